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

package idtoken

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-cmp/cmp"

	"github.com/college-staff-manager/staffauth/internal"
)

const (
	testProjectID = "college-staff-manager"
	testKeyID     = "test-key-1"
)

var mockTime = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	key      *rsa.PrivateKey
	verifier *Verifier
}

func setupFakeJWKS(t *testing.T) *fixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	jwks, err := json.Marshal(map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": testKeyID,
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(jwks)
	}))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	v, err := NewVerifier(ctx, &internal.VerifierConfig{
		ProjectID: testProjectID,
		JWKSURL:   ts.URL,
	})
	if err != nil {
		t.Fatalf("NewVerifier() = %v", err)
	}
	t.Cleanup(v.Close)

	jwt.TimeFunc = func() time.Time { return mockTime }
	t.Cleanup(func() { jwt.TimeFunc = time.Now })
	return &fixture{key: key, verifier: v}
}

func (f *fixture) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKeyID
	s, err := tok.SignedString(f.key)
	if err != nil {
		t.Fatalf("error generating JWT: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            IssuerPrefix + testProjectID,
		"aud":            testProjectID,
		"sub":            "uid1",
		"iat":            mockTime.Add(-time.Minute).Unix(),
		"exp":            mockTime.Add(time.Hour).Unix(),
		"auth_time":      mockTime.Add(-time.Minute).Unix(),
		"email":          "staff@example.com",
		"email_verified": true,
		"firebase":       map[string]interface{}{"sign_in_provider": "password"},
	}
}

func TestNewVerifierNoProjectID(t *testing.T) {
	v, err := NewVerifier(context.Background(), &internal.VerifierConfig{})
	if v != nil || err == nil {
		t.Errorf("NewVerifier() = (%v, %v); want = (nil, error)", v, err)
	}
}

func TestVerifyIDToken(t *testing.T) {
	f := setupFakeJWKS(t)

	got, err := f.verifier.VerifyIDToken(f.sign(t, validClaims()))
	if err != nil {
		t.Fatal(err)
	}
	want := &Token{
		UID:           "uid1",
		Email:         "staff@example.com",
		EmailVerified: true,
		Issuer:        IssuerPrefix + testProjectID,
		Audience:      testProjectID,
		IssuedAt:      mockTime.Add(-time.Minute),
		ExpiresAt:     mockTime.Add(time.Hour),
		AuthTime:      mockTime.Add(-time.Minute),
		Claims: map[string]interface{}{
			"firebase": map[string]interface{}{"sign_in_provider": "password"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("VerifyIDToken() mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyIDTokenInvalidClaims(t *testing.T) {
	f := setupFakeJWKS(t)

	cases := []struct {
		name    string
		mutate  func(jwt.MapClaims)
		wantErr error
	}{
		{"audience", func(c jwt.MapClaims) { c["aud"] = "another-project" }, ErrTokenAudience},
		{"issuer", func(c jwt.MapClaims) { c["iss"] = "https://securetoken.google.com/another-project" }, ErrTokenIssuer},
		{"empty subject", func(c jwt.MapClaims) { c["sub"] = "" }, ErrTokenSubject},
		{"missing subject", func(c jwt.MapClaims) { delete(c, "sub") }, ErrTokenSubject},
		{"long subject", func(c jwt.MapClaims) { c["sub"] = strings.Repeat("a", 129) }, ErrTokenSubject},
		{"auth time", func(c jwt.MapClaims) { c["auth_time"] = mockTime.Add(time.Hour).Unix() }, ErrTokenAuthTime},
		{"no expiry", func(c jwt.MapClaims) { delete(c, "exp") }, ErrTokenExpiry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := validClaims()
			tc.mutate(claims)
			got, err := f.verifier.VerifyIDToken(f.sign(t, claims))
			if got != nil || !errors.Is(err, tc.wantErr) {
				t.Errorf("VerifyIDToken() = (%v, %v); want = (nil, %v)", got, err, tc.wantErr)
			}
		})
	}
}

func TestVerifyIDTokenExpiry(t *testing.T) {
	f := setupFakeJWKS(t)

	cases := []struct {
		expiresAt time.Time
		wantErr   bool
	}{
		{mockTime.Add(time.Hour), false},
		{mockTime.Add(-time.Hour), true},
	}
	for _, tc := range cases {
		claims := validClaims()
		claims["exp"] = tc.expiresAt.Unix()
		_, err := f.verifier.VerifyIDToken(f.sign(t, claims))
		if tc.wantErr && err == nil {
			t.Errorf("VerifyIDToken(exp=%v) = nil; want error", tc.expiresAt)
		} else if !tc.wantErr && err != nil {
			t.Errorf("VerifyIDToken(exp=%v) = %v; want nil", tc.expiresAt, err)
		}
	}
}

func TestVerifyIDTokenIssuedInFuture(t *testing.T) {
	f := setupFakeJWKS(t)

	claims := validClaims()
	claims["iat"] = mockTime.Add(time.Hour).Unix()
	if _, err := f.verifier.VerifyIDToken(f.sign(t, claims)); err == nil {
		t.Error("VerifyIDToken() = nil; want error for future iat")
	}
}

func TestVerifyIDTokenAlgorithm(t *testing.T) {
	f := setupFakeJWKS(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	tok.Header["kid"] = testKeyID
	s, err := tok.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.verifier.VerifyIDToken(s); !errors.Is(err, ErrTokenAlgorithm) {
		t.Errorf("VerifyIDToken(HS256) = %v; want = %v", err, ErrTokenAlgorithm)
	}
}

func TestVerifyIDTokenWrongKey(t *testing.T) {
	f := setupFakeJWKS(t)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	tok.Header["kid"] = testKeyID
	s, err := tok.SignedString(other)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.verifier.VerifyIDToken(s); err == nil {
		t.Error("VerifyIDToken() = nil; want signature error")
	}
}

func TestVerifyIDTokenMalformed(t *testing.T) {
	f := setupFakeJWKS(t)

	for _, token := range []string{"", "-", ".", "a.b.c"} {
		got, err := f.verifier.VerifyIDToken(token)
		if got != nil || err == nil {
			t.Errorf("VerifyIDToken(%q) = (%v, %v); want = (nil, error)", token, got, err)
		}
	}
}
