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

// Package staffauth is the entry point to the staff authentication module. It resolves
// the Firebase project configuration and credentials, and hands out the clients the
// login flow and the staff API are built from.
package staffauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/transport"

	"github.com/college-staff-manager/staffauth/identity"
	"github.com/college-staff-manager/staffauth/idtoken"
	"github.com/college-staff-manager/staffauth/internal"
	"github.com/college-staff-manager/staffauth/login"
	"github.com/college-staff-manager/staffauth/roster"
	"github.com/college-staff-manager/staffauth/storage"
)

var firebaseScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/devstorage.full_control",
	"https://www.googleapis.com/auth/firebase",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Version of the staffauth module.
const Version = "1.0.0"

// firebaseEnvName is the name of the environment variable with the default config. It
// holds either a service account JSON document or the path of a JSON config file.
const firebaseEnvName = "FIREBASE_CONFIG"

// An App holds configuration and credentials common to all services exposed from the module.
type App struct {
	creds         *google.Credentials
	projectID     string
	storageBucket string
	apiKey        string
	opts          []option.ClientOption
}

// Fields accepted in a FIREBASE_CONFIG file. This is the web app config shown in the
// Firebase console; only the first three are used.
var validConfigFieldNames = map[string]bool{
	"projectId":         true,
	"storageBucket":     true,
	"apiKey":            true,
	"authDomain":        true,
	"databaseURL":       true,
	"messagingSenderId": true,
	"appId":             true,
	"measurementId":     true,
}

// Config represents the configuration used to initialize an App.
type Config struct {
	ProjectID     string `json:"projectId"`
	StorageBucket string `json:"storageBucket"`
	APIKey        string `json:"apiKey"`
}

// NewApp creates a new App from the provided config and client options.
//
// Values set in config take precedence over the ones read from FIREBASE_CONFIG. When client
// options are given they supply the credential. Otherwise the App is authenticated with the
// service account held in FIREBASE_CONFIG, if any, and failing that with Google application
// default credentials.
func NewApp(ctx context.Context, config *Config, opts ...option.ClientOption) (*App, error) {
	if config == nil {
		config = &Config{}
	}
	def, err := loadDefaultConfig()
	if err != nil {
		return nil, err
	}

	o := []option.ClientOption{option.WithScopes(firebaseScopes...)}
	if def.credentials != nil && len(opts) == 0 {
		o = append(o, option.WithCredentialsJSON(def.credentials))
	}
	o = append(o, opts...)
	creds, err := transport.Creds(ctx, o...)
	if err != nil {
		return nil, err
	}

	merged := mergeConfig(config, def.config)
	pid := merged.ProjectID
	if pid == "" {
		pid = creds.ProjectID
	}
	if pid == "" {
		pid = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if pid == "" {
		pid = os.Getenv("GCLOUD_PROJECT")
	}

	return &App{
		creds:         creds,
		projectID:     pid,
		storageBucket: merged.StorageBucket,
		apiKey:        merged.APIKey,
		opts:          o,
	}, nil
}

// ProjectID returns the id of the Firebase project the App is bound to.
func (a *App) ProjectID() string {
	return a.projectID
}

func (a *App) identityConfig() *internal.IdentityConfig {
	return &internal.IdentityConfig{
		Opts:      a.opts,
		ProjectID: a.projectID,
		APIKey:    a.apiKey,
		Version:   Version,
	}
}

// Identity returns an API-key client of the Identity Toolkit.
func (a *App) Identity(ctx context.Context) (*identity.Client, error) {
	return identity.NewClient(ctx, a.identityConfig())
}

// IdentityAdmin returns a credentialed client of the Identity Toolkit account APIs.
func (a *App) IdentityAdmin(ctx context.Context) (*identity.AdminClient, error) {
	return identity.NewAdminClient(ctx, a.identityConfig())
}

// Firestore returns a new firestore.Client instance from the https://godoc.org/cloud.google.com/go/firestore
// package.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	if a.projectID == "" {
		return nil, errors.New("project id is required to access Firestore")
	}
	return firestore.NewClient(ctx, a.projectID, a.opts...)
}

// Roster returns a roster.Store backed by a new Firestore client. Callers close it when done.
func (a *App) Roster(ctx context.Context) (*roster.Store, error) {
	client, err := a.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	return roster.New(client), nil
}

// Storage returns a new instance of storage.Client.
func (a *App) Storage(ctx context.Context) (*storage.Client, error) {
	return storage.NewClient(ctx, &internal.StorageConfig{
		Opts:   a.opts,
		Bucket: a.storageBucket,
	})
}

// Verifier returns an ID token verifier for the project. Key refresh runs until ctx is done
// or the verifier is closed.
func (a *App) Verifier(ctx context.Context, logger *slog.Logger) (*idtoken.Verifier, error) {
	return idtoken.NewVerifier(ctx, &internal.VerifierConfig{
		ProjectID: a.projectID,
		Logger:    logger,
	})
}

// Reconciler wires a login.Reconciler to a fresh session holder and the given store.
// The returned Auth is the session the reconciler signs in to.
func (a *App) Reconciler(ctx context.Context, store *roster.Store, logger *slog.Logger) (*login.Reconciler, *identity.Auth, error) {
	client, err := a.Identity(ctx)
	if err != nil {
		return nil, nil, err
	}
	auth := client.NewAuth()
	return login.NewReconciler(auth, store, logger), auth, nil
}

type defaultConfig struct {
	config *Config

	// service account JSON with a usable private key, when FIREBASE_CONFIG carries one.
	credentials []byte
}

// loadDefaultConfig reads FIREBASE_CONFIG. A value starting with "{" is parsed as JSON,
// anything else is taken as a file name.
func loadDefaultConfig() (*defaultConfig, error) {
	val := strings.TrimSpace(os.Getenv(firebaseEnvName))
	if val == "" {
		return &defaultConfig{config: &Config{}}, nil
	}

	var dat []byte
	if strings.HasPrefix(val, "{") {
		dat = []byte(val)
	} else {
		var err error
		if dat, err = os.ReadFile(val); err != nil {
			return nil, err
		}
	}
	return parseDefaultConfig(dat)
}

func parseDefaultConfig(dat []byte) (*defaultConfig, error) {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(dat, &fields); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", firebaseEnvName, err)
	}

	if typ, _ := fields["type"].(string); typ == "service_account" {
		// Keys pasted into env vars usually arrive with escaped newlines.
		if key, ok := fields["private_key"].(string); ok {
			fields["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
		}
		creds, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		pid, _ := fields["project_id"].(string)
		return &defaultConfig{
			config:      &Config{ProjectID: pid},
			credentials: creds,
		}, nil
	}

	for k := range fields {
		if !validConfigFieldNames[k] {
			return nil, fmt.Errorf("unexpected field %s in JSON config file", k)
		}
	}
	config := &Config{}
	if err := json.Unmarshal(dat, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", firebaseEnvName, err)
	}
	return &defaultConfig{config: config}, nil
}

// mergeConfig returns defaults overridden by the non-empty fields of explicit.
func mergeConfig(explicit, defaults *Config) *Config {
	merged := *defaults
	if explicit.ProjectID != "" {
		merged.ProjectID = explicit.ProjectID
	}
	if explicit.StorageBucket != "" {
		merged.StorageBucket = explicit.StorageBucket
	}
	if explicit.APIKey != "" {
		merged.APIKey = explicit.APIKey
	}
	return &merged
}
