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

// Command staffauthd serves the staff management API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/college-staff-manager/staffauth"
	"github.com/college-staff-manager/staffauth/internal/config"
	"github.com/college-staff-manager/staffauth/internal/logging"
	"github.com/college-staff-manager/staffauth/login"
	"github.com/college-staff-manager/staffauth/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("STAFFAUTH_CONFIG"), "path of a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, closer := logging.New(cfg.Log)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app, err := staffauth.NewApp(ctx, &staffauth.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
		APIKey:        cfg.Firebase.APIKey,
	})
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}

	client, err := app.Identity(ctx)
	if err != nil {
		return err
	}
	accounts, err := app.IdentityAdmin(ctx)
	if err != nil {
		return err
	}
	store, err := app.Roster(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	verifier, err := app.Verifier(ctx, logger)
	if err != nil {
		return err
	}
	defer verifier.Close()

	var uploads server.Uploader
	if files, err := app.Storage(ctx); err != nil {
		logger.Warn("file uploads disabled", "error", err)
	} else {
		defer files.Close()
		uploads = files
	}

	api := server.New(server.Options{
		NewSession: func() login.AuthService {
			return client.NewAuth()
		},
		Roster:            store,
		Accounts:          accounts,
		Verifier:          verifier,
		Uploads:           uploads,
		Logger:            logger,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		AllowedExtensions: cfg.Server.AllowedExtensions,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "project", app.ProjectID())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
