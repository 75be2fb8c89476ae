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

// Package idtoken verifies Firebase ID tokens presented to the staff API as bearer tokens.
package idtoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/api/option"

	"github.com/college-staff-manager/staffauth/internal"
)

const (
	// IssuerPrefix is the issuer of ID tokens, followed by the project id.
	IssuerPrefix = "https://securetoken.google.com/"

	// JWKSURL publishes the keys ID tokens are signed with.
	JWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	maxSubjectLength = 128
)

var (
	ErrTokenAlgorithm = errors.New("id token has incorrect algorithm")
	ErrTokenClaims    = errors.New("id token has incorrect claims")
	ErrTokenAudience  = errors.New("id token has incorrect audience")
	ErrTokenIssuer    = errors.New("id token has incorrect issuer")
	ErrTokenSubject   = errors.New("id token has empty or invalid subject")
	ErrTokenAuthTime  = errors.New("id token has auth time in the future")
	ErrTokenExpiry    = errors.New("id token has no expiry")
)

var reservedClaims = []string{"aud", "exp", "iat", "iss", "nbf", "sub", "auth_time", "email", "email_verified"}

// Token is a verified ID token.
type Token struct {
	UID           string
	Email         string
	EmailVerified bool
	Issuer        string
	Audience      string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	AuthTime      time.Time
	Claims        map[string]interface{}
}

// Verifier checks ID token signatures and claims for one project.
type Verifier struct {
	projectID string
	jwks      *keyfunc.JWKS
}

// NewVerifier fetches the signing keys and returns a Verifier. Keys are refreshed in the
// background until ctx is done or Close is called, and on demand when a token names an
// unknown key.
func NewVerifier(ctx context.Context, conf *internal.VerifierConfig) (*Verifier, error) {
	if conf.ProjectID == "" {
		return nil, errors.New("project id is required to verify id tokens")
	}
	url := conf.JWKSURL
	if url == "" {
		url = JWKSURL
	}
	logger := conf.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc, _, err := internal.NewHTTPClient(ctx, option.WithoutAuthentication())
	if err != nil {
		return nil, err
	}
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		Ctx:               ctx,
		Client:            hc.Client,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("refreshing id token keys failed", "url", url, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching id token keys: %w", err)
	}
	return &Verifier{
		projectID: conf.ProjectID,
		jwks:      jwks,
	}, nil
}

// Close stops the background key refresh.
func (v *Verifier) Close() {
	v.jwks.EndBackground()
}

// VerifyIDToken verifies the signature and claims of the given ID token.
//
// The token must be signed with RS256 by one of the published keys, be unexpired, be
// issued for this project by the Secure Token service, name a subject of at most 128
// characters, and carry an authentication time in the past.
func (v *Verifier) VerifyIDToken(token string) (*Token, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, ErrTokenAlgorithm
		}
		return v.jwks.Keyfunc(t)
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenClaims
	}
	if _, ok := claims["exp"]; !ok {
		return nil, ErrTokenExpiry
	}
	if !claims.VerifyAudience(v.projectID, true) {
		return nil, ErrTokenAudience
	}
	if !claims.VerifyIssuer(IssuerPrefix+v.projectID, true) {
		return nil, ErrTokenIssuer
	}
	sub, _ := claims["sub"].(string)
	if sub == "" || len(sub) > maxSubjectLength {
		return nil, ErrTokenSubject
	}

	now := jwt.TimeFunc()
	authTime := numericTime(claims["auth_time"])
	if authTime.After(now) {
		return nil, ErrTokenAuthTime
	}

	t := &Token{
		UID:       sub,
		Issuer:    claims["iss"].(string),
		Audience:  v.projectID,
		IssuedAt:  numericTime(claims["iat"]),
		ExpiresAt: numericTime(claims["exp"]),
		AuthTime:  authTime,
		Claims:    map[string]interface{}{},
	}
	t.Email, _ = claims["email"].(string)
	t.EmailVerified, _ = claims["email_verified"].(bool)
	for k, val := range claims {
		t.Claims[k] = val
	}
	for _, k := range reservedClaims {
		delete(t.Claims, k)
	}
	return t, nil
}

func numericTime(v interface{}) time.Time {
	f, ok := v.(float64)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(f), 0).UTC()
}
