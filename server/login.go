// Copyright 2026 The staffauth Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/college-staff-manager/staffauth/login"
	"github.com/college-staff-manager/staffauth/roster"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	IsAdmin      bool      `json:"isAdmin"`
}

// handleLogin runs the staff login flow on a session of its own. Credentials are passed on
// unchanged.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	ctx := r.Context()
	rec := login.NewReconciler(s.newSession(), s.roster, s.requestLogger(ctx))
	sess, err := rec.Login(ctx, req.Email, req.Password)
	switch {
	case login.IsInvalidCredentials(err):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		UID:          sess.UID,
		Email:        sess.Email,
		IDToken:      sess.IDToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		IsAdmin:      rec.IsAdmin(ctx, sess),
	})
}

// handleCreateIfStaff creates an account for a roster entry whose phone number matches
// the submitted password. Only the first roster entry with the email is considered.
func (s *Server) handleCreateIfStaff(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	email := strings.TrimSpace(req.Email)
	password := strings.TrimSpace(req.Password)
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	ctx := r.Context()
	logger := s.requestLogger(ctx)
	staff, err := s.roster.StaffByEmail(ctx, email)
	if err != nil {
		logger.ErrorContext(ctx, "staff lookup failed", "email", email, "error", err)
		writeErrorDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}
	if len(staff) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"found":   false,
			"message": "No staff record found",
		})
		return
	}

	rec := staff[0]
	phone := roster.StringValue(roster.FirstValue(rec.Fields, roster.FieldMobileNo, "Phone", "phone"))
	if phone != password {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"found":   true,
			"match":   false,
			"message": "Password did not match staff phone",
		})
		return
	}

	user, err := s.accounts.CreateUser(ctx, email, password)
	if err != nil {
		logger.ErrorContext(ctx, "account creation failed", "email", email, "error", err)
		writeErrorDetail(w, http.StatusInternalServerError, "Could not create user", err)
		return
	}
	staffID := roster.StringValue(roster.FirstValue(rec.Fields, roster.FieldLegacySerial, "SlNo"))
	profile := &roster.Profile{Email: email, StaffID: staffID}
	if err := s.roster.CreateProfile(ctx, user.UID, profile); err != nil {
		logger.ErrorContext(ctx, "profile write failed", "uid", user.UID, "error", err)
		writeErrorDetail(w, http.StatusInternalServerError, "Could not create user", err)
		return
	}

	logger.InfoContext(ctx, "created account for staff member", "email", email, "uid", user.UID, "staff", rec.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"created": true,
		"uid":     user.UID,
	})
}
