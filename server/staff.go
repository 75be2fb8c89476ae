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
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/college-staff-manager/staffauth/errorutils"
	"github.com/college-staff-manager/staffauth/identity"
	"github.com/college-staff-manager/staffauth/roster"
)

func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	staff, err := s.roster.ListStaff(ctx)
	if err != nil {
		s.requestLogger(ctx).ErrorContext(ctx, "listing staff failed", "error", err)
		writeErrorDetail(w, http.StatusInternalServerError, "Failed to fetch staffs", err)
		return
	}

	list := make([]map[string]interface{}, 0, len(staff))
	for _, rec := range staff {
		doc := make(map[string]interface{}, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			doc[k] = v
		}
		doc["id"] = rec.ID
		list = append(list, doc)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"staffs": list})
}

func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	accountDeleted, err := s.deleteStaff(ctx, id)
	if errors.Is(err, roster.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Staff member not found")
		return
	}
	var accountErr *accountError
	if err != nil && !errors.As(err, &accountErr) {
		writeErrorDetail(w, http.StatusInternalServerError, "Failed to delete staff member", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"message":           "Staff member deleted successfully",
		"deleted_auth_user": accountDeleted,
		"staff_id":          id,
	})
}

type bulkDeleteRequest struct {
	StaffIDs []string `json:"staff_ids"`
}

type bulkDeleteError struct {
	StaffID string `json:"staff_id"`
	Error   string `json:"error"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "staff_ids array required")
		return
	}
	if len(req.StaffIDs) == 0 {
		writeError(w, http.StatusBadRequest, "staff_ids array required")
		return
	}

	ctx := r.Context()
	var deletedStaff, deletedAccounts int
	errs := []bulkDeleteError{}
	for _, id := range req.StaffIDs {
		accountDeleted, err := s.deleteStaff(ctx, id)
		var accountErr *accountError
		switch {
		case errors.Is(err, roster.ErrNotFound):
			errs = append(errs, bulkDeleteError{StaffID: id, Error: "Staff not found"})
			continue
		case errors.As(err, &accountErr):
			// The staff document is gone; only the account cleanup failed.
			deletedStaff++
			errs = append(errs, bulkDeleteError{StaffID: id, Error: accountErr.Error()})
			continue
		case err != nil:
			errs = append(errs, bulkDeleteError{StaffID: id, Error: err.Error()})
			continue
		}
		deletedStaff++
		if accountDeleted {
			deletedAccounts++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"deleted_staff":      deletedStaff,
		"deleted_auth_users": deletedAccounts,
		"errors":             errs,
	})
}

func (s *Server) handleAdminCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"isAdmin": true})
}

// accountError reports a failed account cleanup after the staff document was deleted.
type accountError struct {
	err error
}

func (e *accountError) Error() string {
	return fmt.Sprintf("Auth deletion failed: %v", e.err)
}

func (e *accountError) Unwrap() error {
	return e.err
}

// deleteStaff deletes a staff document and then the account and profile registered with
// its email, if there are any. The second result is an *accountError when only the
// account cleanup failed.
func (s *Server) deleteStaff(ctx context.Context, id string) (bool, error) {
	rec, err := s.roster.Staff(ctx, id)
	if err != nil {
		return false, err
	}
	if err := s.roster.DeleteStaff(ctx, id); err != nil {
		return false, err
	}
	if rec.Email == "" {
		return false, nil
	}

	deleted, err := s.deleteAccount(ctx, rec.Email)
	if err != nil {
		s.requestLogger(ctx).WarnContext(ctx, "failed to delete account of staff member",
			"staff", id, "email", rec.Email, "error", err)
		return false, &accountError{err: err}
	}
	return deleted, nil
}

func (s *Server) deleteAccount(ctx context.Context, email string) (bool, error) {
	user, err := s.accounts.GetUserByEmail(ctx, email)
	if identity.IsUserNotFound(err) || errorutils.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.roster.DeleteProfile(ctx, user.UID); err != nil {
		return false, err
	}
	if err := s.accounts.DeleteUser(ctx, user.UID); err != nil {
		return false, err
	}
	return true, nil
}
