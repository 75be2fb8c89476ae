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

// Package login implements the sign-in policy of the staff management application.
//
// A staff member signs in with an email and a password. When no account accepts those
// credentials, the staff roster is consulted: a roster entry with the same email whose
// mobile number equals the password gets an account provisioned on the spot, together
// with its user profile.
//
// The mobile number is compared to the password as a plain string, without hashing or
// normalization. This makes the roster phone number a shared secret and is a known
// weakness of the login flow.
package login

import (
	"context"
	"log/slog"

	"github.com/college-staff-manager/staffauth/identity"
	"github.com/college-staff-manager/staffauth/roster"
)

// AuthService is the subset of the authentication backend used by the Reconciler.
// *identity.Auth implements it.
type AuthService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	CreateAccount(ctx context.Context, email, password string) (*identity.Session, error)
	CurrentSession() *identity.Session
	RefreshSession(ctx context.Context) (*identity.Session, error)
}

// DocumentStore is the subset of the roster store used by the Reconciler. *roster.Store
// implements it.
type DocumentStore interface {
	StaffByEmail(ctx context.Context, email string) ([]*roster.StaffRecord, error)
	Profile(ctx context.Context, uid string) (*roster.Profile, error)
	CreateProfile(ctx context.Context, uid string, p *roster.Profile) error
}

var (
	_ AuthService   = (*identity.Auth)(nil)
	_ DocumentStore = (*roster.Store)(nil)
)

// Reconciler signs staff members in, falling back to the staff roster.
type Reconciler struct {
	auth   AuthService
	store  DocumentStore
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. A nil logger discards log output.
func NewReconciler(auth AuthService, store DocumentStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		auth:   auth,
		store:  store,
		logger: logger,
	}
}

// Login signs in with email and password.
//
// Direct sign-in is attempted first. On any failure the roster is searched for entries
// with the same email, and the first one (in store order) whose mobile number equals
// password is used to create an account and a non-admin profile. If several entries share
// the email, which one wins depends on the order the store returns them in.
//
// Login returns ErrInvalidCredentials when no roster entry matches, and ErrLoginFailed when
// the roster lookup or the provisioning fails. Underlying errors are logged, not returned.
func (r *Reconciler) Login(ctx context.Context, email, password string) (*identity.Session, error) {
	sess, err := r.auth.SignInWithPassword(ctx, email, password)
	if err == nil {
		return sess, nil
	}
	r.logger.InfoContext(ctx, "direct sign-in failed, checking staff roster", "email", email, "error", err)

	staff, err := r.store.StaffByEmail(ctx, email)
	if err != nil {
		r.logger.ErrorContext(ctx, "staff roster lookup failed", "email", email, "error", err)
		return nil, newError(KindLoginFailed, "staff lookup failed")
	}

	match := firstMatch(staff, password)
	if match == nil {
		r.logger.InfoContext(ctx, "no matching staff record", "email", email, "candidates", len(staff))
		return nil, newError(KindInvalidCredentials, "no account or staff record matches")
	}

	sess, err = r.auth.CreateAccount(ctx, email, password)
	if err != nil {
		r.logger.ErrorContext(ctx, "account provisioning failed", "email", email, "staff", match.ID, "error", err)
		return nil, newError(KindLoginFailed, "account creation failed")
	}

	profile := &roster.Profile{
		Email:   email,
		IsAdmin: false,
		StaffID: match.StaffID,
	}
	if err := r.store.CreateProfile(ctx, sess.UID, profile); err != nil {
		r.logger.ErrorContext(ctx, "profile write failed", "email", email, "uid", sess.UID, "error", err)
		return nil, newError(KindLoginFailed, "profile creation failed")
	}

	r.logger.InfoContext(ctx, "provisioned account for staff member", "email", email, "uid", sess.UID, "staff", match.ID)
	return sess, nil
}

// firstMatch returns the first record whose mobile number equals password.
func firstMatch(staff []*roster.StaffRecord, password string) *roster.StaffRecord {
	for _, s := range staff {
		if s.MobileNo == password {
			return s
		}
	}
	return nil
}

// IsAdmin reports whether the profile of sess carries the admin flag. It returns false for
// a nil session, a missing profile, and on any error.
func (r *Reconciler) IsAdmin(ctx context.Context, sess *identity.Session) bool {
	if sess == nil {
		return false
	}
	p, err := r.store.Profile(ctx, sess.UID)
	if err != nil {
		r.logger.WarnContext(ctx, "admin status check failed", "uid", sess.UID, "error", err)
		return false
	}
	return p != nil && p.IsAdmin
}

// IDToken force-refreshes the current session and returns its ID token. The second result
// is false when there is no current session or the refresh fails.
func (r *Reconciler) IDToken(ctx context.Context) (string, bool) {
	if r.auth.CurrentSession() == nil {
		return "", false
	}
	sess, err := r.auth.RefreshSession(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "token refresh failed", "error", err)
		return "", false
	}
	return sess.IDToken, true
}
