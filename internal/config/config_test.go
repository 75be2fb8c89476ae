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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staffauth.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("Server.Addr = %q; want = %q", cfg.Server.Addr, ":5000")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeFile(t, `
server:
  addr: ":8080"
  shutdownTimeout: 30s
  allowedExtensions: [csv, pdf]
firebase:
  projectId: file-project
  storageBucket: file-project.appspot.com
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := Default()
	want.Server.Addr = ":8080"
	want.Server.ShutdownTimeout = 30 * time.Second
	want.Server.AllowedExtensions = []string{"csv", "pdf"}
	want.Firebase.ProjectID = "file-project"
	want.Firebase.StorageBucket = "file-project.appspot.com"
	want.Log.Level = "debug"
	want.Log.Format = "text"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeFile(t, `
server:
  addr: ":8080"
firebase:
  projectId: file-project
  apiKey: file-key
`)
	t.Setenv("STAFFAUTH_FIREBASE_PROJECT_ID", "env-project")
	t.Setenv("STAFFAUTH_SERVER_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("STAFFAUTH_SERVER_ALLOWED_EXTENSIONS", "png,jpg")
	t.Setenv("STAFFAUTH_LOG_FILE", "/var/log/staffauth.log")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Firebase.ProjectID != "env-project" {
		t.Errorf("Firebase.ProjectID = %q; want = %q", cfg.Firebase.ProjectID, "env-project")
	}
	if cfg.Firebase.APIKey != "file-key" {
		t.Errorf("Firebase.APIKey = %q; want = %q", cfg.Firebase.APIKey, "file-key")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q; want = %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Server.MaxUploadBytes != 1024 {
		t.Errorf("Server.MaxUploadBytes = %d; want = 1024", cfg.Server.MaxUploadBytes)
	}
	if diff := cmp.Diff([]string{"png", "jpg"}, cfg.Server.AllowedExtensions); diff != "" {
		t.Errorf("Server.AllowedExtensions mismatch (-want +got):\n%s", diff)
	}
	if cfg.Log.File != "/var/log/staffauth.log" {
		t.Errorf("Log.File = %q; want = %q", cfg.Log.File, "/var/log/staffauth.log")
	}
}

func TestPort(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q; want = %q", cfg.Server.Addr, ":9090")
	}

	t.Setenv("STAFFAUTH_SERVER_ADDR", "127.0.0.1:7000")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Errorf("Server.Addr = %q; want = %q", cfg.Server.Addr, "127.0.0.1:7000")
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("PORT", "")

	cases := []struct {
		name string
		path func(t *testing.T) string
		env  map[string]string
	}{
		{
			name: "MissingFile",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
		},
		{
			name: "UnknownField",
			path: func(t *testing.T) string { return writeFile(t, "server:\n  adr: \":1\"\n") },
		},
		{
			name: "MalformedYAML",
			path: func(t *testing.T) string { return writeFile(t, "server: [") },
		},
		{
			name: "BadEnvValue",
			path: func(t *testing.T) string { return "" },
			env:  map[string]string{"STAFFAUTH_SERVER_MAX_UPLOAD_BYTES": "lots"},
		},
		{
			name: "BadLogLevel",
			path: func(t *testing.T) string { return "" },
			env:  map[string]string{"STAFFAUTH_LOG_LEVEL": "verbose"},
		},
		{
			name: "BadLogFormat",
			path: func(t *testing.T) string { return writeFile(t, "log:\n  format: xml\n") },
		},
		{
			name: "NonPositiveUpload",
			path: func(t *testing.T) string { return writeFile(t, "server:\n  maxUploadBytes: 0\n") },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(tc.path(t))
			if cfg != nil || err == nil {
				t.Errorf("Load() = (%v, %v); want = (nil, error)", cfg, err)
			}
		})
	}
}
