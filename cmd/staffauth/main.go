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

// Command staffauth signs a staff member in against a live project and prints the result.
//
// Usage:
//
//	staffauth login  -email <email> [-password <password>] [-config <file>] [-v]
//	staffauth token  -email <email> ...
//	staffauth whoami -email <email> ...
//
// The password is read from the terminal when -password is not given. Sessions are not
// persisted; every invocation signs in again and signs out before exiting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/college-staff-manager/staffauth"
	"github.com/college-staff-manager/staffauth/identity"
	"github.com/college-staff-manager/staffauth/internal/config"
	"github.com/college-staff-manager/staffauth/internal/logging"
	"github.com/college-staff-manager/staffauth/login"
)

const usage = `usage: staffauth <login|token|whoami> -email <email> [-password <password>] [-config <file>] [-v]`

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type options struct {
	command    string
	email      string
	password   string
	configPath string
	verbose    bool
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "staffauth:", err)
		stop()
		if login.IsInvalidCredentials(err) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, error) {
	if len(args) == 0 {
		return nil, errors.New("missing command")
	}
	opts := &options{command: args[0]}
	switch opts.command {
	case "login", "token", "whoami":
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}

	fs := flag.NewFlagSet(opts.command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.email, "email", "", "email of the staff member")
	fs.StringVar(&opts.password, "password", "", "password; prompted for when empty")
	fs.StringVar(&opts.configPath, "config", os.Getenv("STAFFAUTH_CONFIG"), "path of a YAML config file")
	fs.BoolVar(&opts.verbose, "v", false, "log to stderr")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments %q", fs.Args())
	}
	if opts.email == "" {
		return nil, errors.New("-email is required")
	}
	return opts, nil
}

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// sessionPrinter reports session changes on w. The initial signed-out state is not
// reported.
func sessionPrinter(w io.Writer) identity.Listener {
	signedIn := false
	return func(s *identity.Session) {
		switch {
		case s != nil:
			signedIn = true
			fmt.Fprintf(w, "signed in as %s (%s)\n", s.Email, s.UID)
		case signedIn:
			signedIn = false
			fmt.Fprintln(w, "signed out")
		}
	}
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := slog.New(slog.DiscardHandler)
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.Log.Level)}))
	}

	password := opts.password
	if password == "" {
		if password, err = promptPassword(stderr); err != nil {
			return err
		}
	}

	app, err := staffauth.NewApp(ctx, &staffauth.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
		APIKey:        cfg.Firebase.APIKey,
	})
	if err != nil {
		return err
	}
	store, err := app.Roster(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	rec, auth, err := app.Reconciler(ctx, store, logger)
	if err != nil {
		return err
	}

	sub := auth.Subscribe(sessionPrinter(stderr))
	defer sub.Cancel()

	sess, err := rec.Login(ctx, opts.email, password)
	if err != nil {
		return err
	}
	defer auth.SignOut()

	switch opts.command {
	case "login":
		fmt.Fprintf(stdout, "uid:     %s\nemail:   %s\nadmin:   %t\nexpires: %s\n",
			sess.UID, sess.Email, rec.IsAdmin(ctx, sess), sess.ExpiresAt.Format(time.RFC3339))
	case "token":
		token, ok := rec.IDToken(ctx)
		if !ok {
			return errors.New("no id token available")
		}
		fmt.Fprintln(stdout, token)
	case "whoami":
		p, err := store.Profile(ctx, sess.UID)
		if err != nil {
			return err
		}
		if p == nil {
			fmt.Fprintf(stdout, "uid:     %s\nprofile: none\n", sess.UID)
			return nil
		}
		fmt.Fprintf(stdout, "uid:     %s\nemail:   %s\nstaffId: %s\nadmin:   %t\n",
			sess.UID, p.Email, p.StaffID, p.IsAdmin)
	}
	return nil
}
