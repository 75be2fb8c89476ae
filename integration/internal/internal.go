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

// Package internal contains utilities for running integration tests.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"google.golang.org/api/option"

	"github.com/college-staff-manager/staffauth"
)

const certPath = "../testdata/integration_cert.json"
const apiKeyPath = "../testdata/integration_apikey.txt"

// ErrNoCredentials is returned when the integration test credentials are not present.
var ErrNoCredentials = errors.New("integration test credentials not found in testdata")

// NewTestApp creates a new App instance for integration tests.
//
// NewTestApp looks for a service account JSON file named integration_cert.json and an API
// key file named integration_apikey.txt in the testdata directory. The API key is added to
// conf unless it already carries one.
func NewTestApp(ctx context.Context, conf *staffauth.Config) (*staffauth.App, error) {
	if _, err := os.Stat(certPath); err != nil {
		return nil, ErrNoCredentials
	}
	if conf == nil {
		conf = &staffauth.Config{}
	}
	if conf.APIKey == "" {
		key, err := APIKey()
		if err != nil {
			return nil, err
		}
		conf.APIKey = key
	}
	return staffauth.NewApp(ctx, conf, option.WithCredentialsFile(certPath))
}

// APIKey fetches a Firebase API key for integration tests.
func APIKey() (string, error) {
	b, err := os.ReadFile(apiKeyPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ProjectID fetches a Google Cloud project ID for integration tests.
func ProjectID() (string, error) {
	b, err := os.ReadFile(certPath)
	if err != nil {
		return "", err
	}
	var serviceAccount struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(b, &serviceAccount); err != nil {
		return "", err
	}
	return serviceAccount.ProjectID, nil
}
