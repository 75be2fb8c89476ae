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

// Package internal contains functionality that is only accessible from within staffauth.
package internal

import (
	"log/slog"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// IdentityConfig represents the configuration of the Identity Toolkit clients.
type IdentityConfig struct {
	Opts      []option.ClientOption
	ProjectID string
	APIKey    string
	Version   string
}

// StorageConfig represents the configuration of Google Cloud Storage service.
type StorageConfig struct {
	Opts   []option.ClientOption
	Bucket string
}

// VerifierConfig represents the configuration of the ID token verifier.
type VerifierConfig struct {
	ProjectID string
	JWKSURL   string
	Logger    *slog.Logger
}

// MockTokenSource is a TokenSource implementation that can be used for testing.
type MockTokenSource struct {
	AccessToken string
}

// Token returns the test token associated with the TokenSource.
func (ts *MockTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: ts.AccessToken}, nil
}
