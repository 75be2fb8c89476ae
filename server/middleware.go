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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/college-staff-manager/staffauth/idtoken"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

type ctxKey int

const (
	loggerKey ctxKey = iota
	tokenKey
)

// requestLogger returns the logger tagged with the request id, or the server logger.
func (s *Server) requestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return s.logger
}

// tokenFromContext returns the verified token of an authenticated request.
func tokenFromContext(ctx context.Context) *idtoken.Token {
	t, _ := ctx.Value(tokenKey).(*idtoken.Token)
	return t
}

// withRequestID tags each request with an id, taken from the caller when it sends a
// usable one, and echoes it in the response.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		logger := s.logger.With("request_id", id)
		logger.DebugContext(r.Context(), "request", "method", r.Method, "path", r.URL.Path)
		ctx := context.WithValue(r.Context(), loggerKey, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.requestLogger(r.Context()).ErrorContext(r.Context(), "handler panic",
					"path", r.URL.Path, "panic", fmt.Sprint(v))
				writeError(w, http.StatusInternalServerError, "Server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// requireLogin rejects requests without a valid ID token.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authorization token required")
			return
		}
		tok, err := s.verifier.VerifyIDToken(raw)
		if err != nil {
			s.requestLogger(r.Context()).InfoContext(r.Context(), "rejected id token", "error", err)
			writeErrorDetail(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}
		ctx := context.WithValue(r.Context(), tokenKey, tok)
		ctx = context.WithValue(ctx, loggerKey, s.requestLogger(ctx).With("uid", tok.UID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects requests whose account profile does not carry the admin flag.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return s.requireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tok := tokenFromContext(ctx)
		p, err := s.roster.Profile(ctx, tok.UID)
		if err != nil {
			s.requestLogger(ctx).ErrorContext(ctx, "admin check failed", "error", err)
			writeErrorDetail(w, http.StatusInternalServerError, "Admin check failed", err)
			return
		}
		if p == nil {
			writeError(w, http.StatusForbidden, "User doc not found")
			return
		}
		if !p.IsAdmin {
			writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
