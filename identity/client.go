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

// Package identity talks to the Firebase Authentication backend (Identity Toolkit and the
// Secure Token API) on behalf of staff-facing clients.
//
// Client performs the password-based calls a browser SDK would make with the project API
// key. AdminClient performs privileged account management with service account
// credentials. Auth keeps the signed-in Session of one logical client and notifies
// subscribers when it changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/college-staff-manager/staffauth/internal"
	"google.golang.org/api/option"
)

const (
	identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	secureTokenURL     = "https://securetoken.googleapis.com/v1/token"
)

var timeNow = time.Now

// Session is the result of a successful sign-in, account creation or token refresh.
//
// Sessions are immutable values. Refreshing a session produces a new Session carrying the
// same UID.
type Session struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the ID token of the session has passed its expiry time.
func (s *Session) Expired() bool {
	return !timeNow().Before(s.ExpiresAt)
}

// Client is the API-key client of the Identity Toolkit and Secure Token APIs.
type Client struct {
	httpClient *internal.HTTPClient
	baseURL    string
	tokenURL   string
}

// NewClient creates a new Client from the given configuration.
//
// The client is unauthenticated at the transport level; every request carries the
// project API key instead.
func NewClient(ctx context.Context, conf *internal.IdentityConfig) (*Client, error) {
	if conf.APIKey == "" {
		return nil, errors.New("api key is required to access the identity toolkit")
	}
	hc, _, err := internal.NewHTTPClient(ctx, option.WithoutAuthentication())
	if err != nil {
		return nil, err
	}
	hc.CreateErr = handleHTTPError
	hc.Opts = []internal.HTTPOption{
		internal.WithQueryParam("key", conf.APIKey),
		internal.WithHeader("X-Client-Version", "Go/Staffauth/"+conf.Version),
	}
	return &Client{
		httpClient: hc,
		baseURL:    identityToolkitURL,
		tokenURL:   secureTokenURL,
	}, nil
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (r *passwordResponse) session() (*Session, error) {
	if r.LocalID == "" || r.IDToken == "" {
		return nil, errors.New("identity toolkit response is missing the user id or token")
	}
	return &Session{
		UID:          r.LocalID,
		Email:        r.Email,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiry(r.ExpiresIn),
	}, nil
}

// SignInWithPassword signs in an existing account with an email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.passwordCall(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp creates a new account with an email and password and signs it in.
//
// SignUp fails with an EMAIL_EXISTS error (see IsEmailExists) when the email is already
// registered.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.passwordCall(ctx, "accounts:signUp", email, password)
}

func (c *Client) passwordCall(ctx context.Context, method, email, password string) (*Session, error) {
	if email == "" {
		return nil, errors.New("email must be a non-empty string")
	}
	req := &internal.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/%s", c.baseURL, method),
		Body: internal.NewJSONEntity(&passwordRequest{
			Email:             email,
			Password:          password,
			ReturnSecureToken: true,
		}),
	}
	var result passwordResponse
	if _, err := c.httpClient.DoAndUnmarshal(ctx, req, &result); err != nil {
		return nil, err
	}
	return result.session()
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// RefreshToken exchanges the refresh token of s for a fresh ID token, and returns the
// resulting Session.
func (c *Client) RefreshToken(ctx context.Context, s *Session) (*Session, error) {
	if s == nil || s.RefreshToken == "" {
		return nil, errors.New("session has no refresh token")
	}
	req := &internal.Request{
		Method: http.MethodPost,
		URL:    c.tokenURL,
		Body: internal.NewFormEntity(url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {s.RefreshToken},
		}),
	}
	var result refreshResponse
	if _, err := c.httpClient.DoAndUnmarshal(ctx, req, &result); err != nil {
		return nil, err
	}
	if result.IDToken == "" {
		return nil, errors.New("secure token response is missing the id token")
	}
	if result.UserID != "" && result.UserID != s.UID {
		return nil, fmt.Errorf("refreshed token belongs to %q; want %q", result.UserID, s.UID)
	}

	refreshed := *s
	refreshed.IDToken = result.IDToken
	if result.RefreshToken != "" {
		refreshed.RefreshToken = result.RefreshToken
	}
	refreshed.ExpiresAt = expiry(result.ExpiresIn)
	return &refreshed, nil
}

// NewAuth returns a signed-out Auth backed by this client.
func (c *Client) NewAuth() *Auth {
	return &Auth{client: c}
}

// expiry converts the expiresIn field (seconds, as a decimal string) into an absolute time.
func expiry(expiresIn string) time.Time {
	secs, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return timeNow().Add(time.Duration(secs) * time.Second)
}
