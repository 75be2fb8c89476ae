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

package login

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/college-staff-manager/staffauth/identity"
	"github.com/college-staff-manager/staffauth/roster"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type fakeAuth struct {
	accounts   map[string]string
	current    *identity.Session
	signIns    int
	created    []string
	createErr  error
	refreshErr error
	nextUID    int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{accounts: map[string]string{}}
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	f.signIns++
	if pw, ok := f.accounts[email]; !ok || pw != password {
		return nil, errors.New("INVALID_LOGIN_CREDENTIALS")
	}
	f.current = &identity.Session{UID: "uid-" + email, Email: email, IDToken: "token"}
	return f.current, nil
}

func (f *fakeAuth) CreateAccount(ctx context.Context, email, password string) (*identity.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.accounts[email]; ok {
		return nil, errors.New("EMAIL_EXISTS")
	}
	f.nextUID++
	f.accounts[email] = password
	f.created = append(f.created, email)
	f.current = &identity.Session{UID: "new-uid-" + email, Email: email, IDToken: "token"}
	return f.current, nil
}

func (f *fakeAuth) CurrentSession() *identity.Session {
	return f.current
}

func (f *fakeAuth) RefreshSession(ctx context.Context) (*identity.Session, error) {
	if f.current == nil {
		return nil, identity.ErrNoSession
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	refreshed := *f.current
	refreshed.IDToken = "refreshed-token"
	f.current = &refreshed
	return f.current, nil
}

type fakeStore struct {
	staff      []*roster.StaffRecord
	profiles   map[string]*roster.Profile
	queryErr   error
	profileErr error
	writeErr   error
	writes     int
	queries    []string
}

func newFakeStore(staff ...*roster.StaffRecord) *fakeStore {
	return &fakeStore{staff: staff, profiles: map[string]*roster.Profile{}}
}

func (f *fakeStore) StaffByEmail(ctx context.Context, email string) ([]*roster.StaffRecord, error) {
	f.queries = append(f.queries, email)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []*roster.StaffRecord
	for _, s := range f.staff {
		if s.Email == email {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) Profile(ctx context.Context, uid string) (*roster.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profiles[uid], nil
}

func (f *fakeStore) CreateProfile(ctx context.Context, uid string, p *roster.Profile) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes++
	f.profiles[uid] = p
	return nil
}

func staff(id, email, mobile, staffID string) *roster.StaffRecord {
	return &roster.StaffRecord{ID: id, Email: email, MobileNo: mobile, StaffID: staffID}
}

func TestLoginExistingAccount(t *testing.T) {
	auth := newFakeAuth()
	auth.accounts["staff@example.com"] = "secret"
	store := newFakeStore(staff("s1", "staff@example.com", "secret", "1"))
	r := NewReconciler(auth, store, nil)

	sess, err := r.Login(context.Background(), "staff@example.com", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if sess.UID != "uid-staff@example.com" {
		t.Errorf("Login() UID = %q", sess.UID)
	}
	if len(store.queries) != 0 || store.writes != 0 || len(auth.created) != 0 {
		t.Errorf("direct login touched the fallback path: queries=%v writes=%d created=%v",
			store.queries, store.writes, auth.created)
	}
}

func TestLoginProvisionsFromRoster(t *testing.T) {
	auth := newFakeAuth()
	store := newFakeStore(staff("s1", "staff@example.com", "9876543210", "17"))
	r := NewReconciler(auth, store, nil)

	sess, err := r.Login(context.Background(), "staff@example.com", "9876543210")
	if err != nil {
		t.Fatal(err)
	}
	if sess.UID != "new-uid-staff@example.com" {
		t.Errorf("Login() UID = %q", sess.UID)
	}
	if diff := cmp.Diff([]string{"staff@example.com"}, auth.created); diff != "" {
		t.Errorf("created accounts mismatch (-want +got):\n%s", diff)
	}
	if store.writes != 1 {
		t.Errorf("profile writes = %d; want = 1", store.writes)
	}

	want := &roster.Profile{Email: "staff@example.com", IsAdmin: false, StaffID: "17"}
	got := store.profiles[sess.UID]
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(roster.Profile{}, "CreatedAt")); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	if !got.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v; want zero so the store assigns the server timestamp", got.CreatedAt)
	}
}

func TestLoginSecondAttemptUsesDirectPath(t *testing.T) {
	auth := newFakeAuth()
	store := newFakeStore(staff("s1", "staff@example.com", "9876543210", "17"))
	r := NewReconciler(auth, store, nil)

	for i := 0; i < 2; i++ {
		if _, err := r.Login(context.Background(), "staff@example.com", "9876543210"); err != nil {
			t.Fatalf("Login() attempt %d = %v", i, err)
		}
	}
	if len(auth.created) != 1 || store.writes != 1 {
		t.Errorf("created = %v, writes = %d; want one of each", auth.created, store.writes)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	cases := []struct {
		name  string
		staff []*roster.StaffRecord
	}{
		{"no staff record", nil},
		{"phone mismatch", []*roster.StaffRecord{staff("s1", "staff@example.com", "1111111111", "1")}},
		{"other email", []*roster.StaffRecord{staff("s1", "other@example.com", "9876543210", "1")}},
		{"case differs", []*roster.StaffRecord{staff("s1", "Staff@Example.com", "9876543210", "1")}},
		{"phone not normalized", []*roster.StaffRecord{staff("s1", "staff@example.com", "+91 9876543210", "1")}},
		{"empty phone", []*roster.StaffRecord{staff("s1", "staff@example.com", "", "1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := newFakeAuth()
			store := newFakeStore(tc.staff...)
			r := NewReconciler(auth, store, nil)

			sess, err := r.Login(context.Background(), "staff@example.com", "9876543210")
			if sess != nil || !IsInvalidCredentials(err) {
				t.Fatalf("Login() = (%v, %v); want = (nil, invalid credentials)", sess, err)
			}
			if IsLoginFailed(err) {
				t.Error("IsLoginFailed() = true; want = false")
			}
			if len(auth.created) != 0 || store.writes != 0 {
				t.Errorf("created = %v, writes = %d; want no writes", auth.created, store.writes)
			}
		})
	}
}

func TestLoginEmptyPasswordMatchesEmptyPhone(t *testing.T) {
	auth := newFakeAuth()
	store := newFakeStore(staff("s1", "staff@example.com", "", "1"))
	r := NewReconciler(auth, store, nil)

	if _, err := r.Login(context.Background(), "staff@example.com", ""); err != nil {
		t.Errorf("Login() = %v; want the empty mobile number to match an empty password", err)
	}
}

func TestLoginFirstMatchWins(t *testing.T) {
	auth := newFakeAuth()
	store := newFakeStore(
		staff("s1", "staff@example.com", "1111111111", "1"),
		staff("s2", "staff@example.com", "9876543210", "2"),
		staff("s3", "staff@example.com", "9876543210", "3"),
	)
	r := NewReconciler(auth, store, nil)

	sess, err := r.Login(context.Background(), "staff@example.com", "9876543210")
	if err != nil {
		t.Fatal(err)
	}
	if got := store.profiles[sess.UID].StaffID; got != "2" {
		t.Errorf("StaffID = %q; want = %q", got, "2")
	}
	if len(auth.created) != 1 || store.writes != 1 {
		t.Errorf("created = %v, writes = %d; want one of each", auth.created, store.writes)
	}
}

func TestLoginFailed(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*fakeAuth, *fakeStore)
	}{
		{"staff query", func(a *fakeAuth, s *fakeStore) { s.queryErr = errors.New("unavailable") }},
		{"account creation", func(a *fakeAuth, s *fakeStore) { a.createErr = errors.New("EMAIL_EXISTS") }},
		{"profile write", func(a *fakeAuth, s *fakeStore) { s.writeErr = errors.New("deadline exceeded") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := newFakeAuth()
			store := newFakeStore(staff("s1", "staff@example.com", "9876543210", "1"))
			tc.setup(auth, store)

			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			r := NewReconciler(auth, store, logger)

			sess, err := r.Login(context.Background(), "staff@example.com", "9876543210")
			if sess != nil || !IsLoginFailed(err) {
				t.Fatalf("Login() = (%v, %v); want = (nil, login failed)", sess, err)
			}
			if err.Error() != "login failed" {
				t.Errorf("Error() = %q; want = %q", err.Error(), "login failed")
			}
			if !strings.Contains(logs.String(), "level=ERROR") {
				t.Errorf("underlying error not logged:\n%s", logs.String())
			}
		})
	}
}

func TestLoginErrorDoesNotLeakCause(t *testing.T) {
	auth := newFakeAuth()
	auth.createErr = errors.New("backend secret detail")
	store := newFakeStore(staff("s1", "staff@example.com", "9876543210", "1"))
	r := NewReconciler(auth, store, nil)

	_, err := r.Login(context.Background(), "staff@example.com", "9876543210")
	if strings.Contains(err.Error(), "secret") || errors.Unwrap(err) != nil {
		t.Errorf("Login() error exposes its cause: %v", err)
	}
	var le *Error
	if !errors.As(err, &le) || le.Kind != KindLoginFailed || le.Reason() == "" {
		t.Errorf("Login() error = %#v; want *Error with KindLoginFailed", err)
	}
}

func TestIsAdmin(t *testing.T) {
	store := newFakeStore()
	store.profiles["admin"] = &roster.Profile{IsAdmin: true}
	store.profiles["staff"] = &roster.Profile{IsAdmin: false}
	r := NewReconciler(newFakeAuth(), store, nil)
	ctx := context.Background()

	cases := []struct {
		sess *identity.Session
		want bool
	}{
		{nil, false},
		{&identity.Session{UID: "missing"}, false},
		{&identity.Session{UID: "staff"}, false},
		{&identity.Session{UID: "admin"}, true},
	}
	for _, tc := range cases {
		if got := r.IsAdmin(ctx, tc.sess); got != tc.want {
			t.Errorf("IsAdmin(%v) = %v; want = %v", tc.sess, got, tc.want)
		}
	}

	store.profileErr = errors.New("unavailable")
	if r.IsAdmin(ctx, &identity.Session{UID: "admin"}) {
		t.Error("IsAdmin() = true on store error; want = false")
	}
}

func TestIDToken(t *testing.T) {
	auth := newFakeAuth()
	r := NewReconciler(auth, newFakeStore(), nil)
	ctx := context.Background()

	if tok, ok := r.IDToken(ctx); ok || tok != "" {
		t.Errorf("IDToken() = (%q, %v); want = (\"\", false)", tok, ok)
	}

	auth.current = &identity.Session{UID: "uid1", IDToken: "stale-token"}
	if tok, ok := r.IDToken(ctx); !ok || tok != "refreshed-token" {
		t.Errorf("IDToken() = (%q, %v); want = (%q, true)", tok, ok, "refreshed-token")
	}

	auth.refreshErr = errors.New("TOKEN_EXPIRED")
	if tok, ok := r.IDToken(ctx); ok || tok != "" {
		t.Errorf("IDToken() = (%q, %v); want = (\"\", false) on refresh failure", tok, ok)
	}
}

func TestErrorKinds(t *testing.T) {
	if ErrInvalidCredentials.Error() != "invalid credentials" {
		t.Errorf("ErrInvalidCredentials = %q", ErrInvalidCredentials)
	}
	if errors.Is(ErrInvalidCredentials, ErrLoginFailed) {
		t.Error("errors.Is(ErrInvalidCredentials, ErrLoginFailed) = true")
	}
	if Kind(0).String() != "unknown" {
		t.Errorf("Kind(0) = %q", Kind(0).String())
	}
}
