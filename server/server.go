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

// Package server exposes the login flow and the roster administration of the staff
// management application as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/college-staff-manager/staffauth/identity"
	"github.com/college-staff-manager/staffauth/idtoken"
	"github.com/college-staff-manager/staffauth/login"
	"github.com/college-staff-manager/staffauth/roster"
)

// DefaultMaxUploadBytes bounds multipart uploads when Options.MaxUploadBytes is not set.
const DefaultMaxUploadBytes = 32 << 20

// Roster is the document store behind the API.
type Roster interface {
	login.DocumentStore
	ListStaff(ctx context.Context) ([]*roster.StaffRecord, error)
	Staff(ctx context.Context, id string) (*roster.StaffRecord, error)
	UpsertStaff(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteStaff(ctx context.Context, id string) error
	DeleteProfile(ctx context.Context, uid string) error
}

// Accounts manages accounts with administrative credentials.
type Accounts interface {
	GetUserByEmail(ctx context.Context, email string) (*identity.UserRecord, error)
	CreateUser(ctx context.Context, email, password string) (*identity.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	VerifyIDToken(token string) (*idtoken.Token, error)
}

// Uploader stores uploaded files and returns their public URL, if any.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
}

var (
	_ Roster        = (*roster.Store)(nil)
	_ Accounts      = (*identity.AdminClient)(nil)
	_ TokenVerifier = (*idtoken.Verifier)(nil)
)

// Options configures a Server.
type Options struct {
	// NewSession returns a fresh session holder for one login request.
	NewSession func() login.AuthService

	Roster   Roster
	Accounts Accounts
	Verifier TokenVerifier

	// Uploads is optional; without it file uploads are rejected.
	Uploads Uploader

	Logger            *slog.Logger
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// Server serves the staff API.
type Server struct {
	newSession     func() login.AuthService
	roster         Roster
	accounts       Accounts
	verifier       TokenVerifier
	uploads        Uploader
	logger         *slog.Logger
	maxUploadBytes int64
	allowedExt     map[string]bool
}

// New builds a Server from opts.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	allowed := make(map[string]bool, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Server{
		newSession:     opts.NewSession,
		roster:         opts.Roster,
		accounts:       opts.Accounts,
		verifier:       opts.Verifier,
		uploads:        opts.Uploads,
		logger:         logger,
		maxUploadBytes: maxBytes,
		allowedExt:     allowed,
	}
}

// RegisterRoutes registers the API endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/create_if_staff", s.handleCreateIfStaff)

	mux.Handle("GET /api/staffs", s.requireLogin(http.HandlerFunc(s.handleListStaff)))
	mux.Handle("POST /api/upload_file", s.requireLogin(http.HandlerFunc(s.handleUploadFile)))

	mux.Handle("DELETE /api/staff/{id}", s.requireAdmin(http.HandlerFunc(s.handleDeleteStaff)))
	mux.Handle("POST /api/staff/bulk_delete", s.requireAdmin(http.HandlerFunc(s.handleBulkDelete)))
	mux.Handle("GET /api/staff/test_admin_check", s.requireAdmin(http.HandlerFunc(s.handleAdminCheck)))
	uploadRoster := s.requireAdmin(http.HandlerFunc(s.handleUploadRoster))
	mux.Handle("POST /api/upload_roster", uploadRoster)
	mux.Handle("POST /api/upload_excel", uploadRoster)

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// Handler returns the API with request ids and panic recovery applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.withRequestID(s.withRecover(mux))
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorDetail(w http.ResponseWriter, status int, msg string, err error) {
	writeJSON(w, status, errorResponse{Error: msg, Detail: err.Error()})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}
