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

package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/college-staff-manager/staffauth/internal"
)

// UserRecord contains the account attributes returned by the Identity Toolkit admin API.
type UserRecord struct {
	UID           string `json:"localId"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
	Disabled      bool   `json:"disabled,omitempty"`
}

// AdminClient manages accounts with service account credentials.
type AdminClient struct {
	httpClient *internal.HTTPClient
	baseURL    string
}

// NewAdminClient creates a new AdminClient from the given configuration.
func NewAdminClient(ctx context.Context, conf *internal.IdentityConfig) (*AdminClient, error) {
	if conf.ProjectID == "" {
		return nil, errors.New("project id is required to manage accounts")
	}
	hc, _, err := internal.NewHTTPClient(ctx, conf.Opts...)
	if err != nil {
		return nil, err
	}
	hc.CreateErr = handleHTTPError
	hc.Opts = []internal.HTTPOption{
		internal.WithHeader("X-Client-Version", "Go/Staffauth/"+conf.Version),
	}
	return &AdminClient{
		httpClient: hc,
		baseURL:    fmt.Sprintf("%s/projects/%s", identityToolkitURL, conf.ProjectID),
	}, nil
}

// GetUserByEmail looks up the account registered with the given email.
func (c *AdminClient) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	if email == "" {
		return nil, errors.New("email must be a non-empty string")
	}
	var result struct {
		Users []*UserRecord `json:"users"`
	}
	if err := c.post(ctx, "accounts:lookup", map[string]interface{}{"email": []string{email}}, &result); err != nil {
		return nil, err
	}
	if len(result.Users) == 0 {
		return nil, &internal.FirebaseError{
			ErrorCode: internal.NotFound,
			String:    fmt.Sprintf("cannot find user from email: %q", email),
			Ext:       map[string]interface{}{identityErrorCodeKey: userNotFound},
		}
	}
	return result.Users[0], nil
}

// CreateUser creates an account with the given email and password without signing it in.
func (c *AdminClient) CreateUser(ctx context.Context, email, password string) (*UserRecord, error) {
	if email == "" {
		return nil, errors.New("email must be a non-empty string")
	}
	payload := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	var result UserRecord
	if err := c.post(ctx, "accounts", payload, &result); err != nil {
		return nil, err
	}
	if result.UID == "" {
		return nil, errors.New("failed to create new user")
	}
	if result.Email == "" {
		result.Email = email
	}
	return &result, nil
}

// DeleteUser deletes the account with the given uid.
func (c *AdminClient) DeleteUser(ctx context.Context, uid string) error {
	if uid == "" {
		return errors.New("uid must be a non-empty string")
	}
	return c.post(ctx, "accounts:delete", map[string]interface{}{"localId": uid}, nil)
}

func (c *AdminClient) post(ctx context.Context, path string, payload interface{}, v interface{}) error {
	req := &internal.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/%s", c.baseURL, path),
		Body:   internal.NewJSONEntity(payload),
	}
	_, err := c.httpClient.DoAndUnmarshal(ctx, req, v)
	return err
}
