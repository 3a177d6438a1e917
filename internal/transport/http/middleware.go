// Copyright 2026 The Acme Account Service Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/acmecorp/account-service/internal/audit"
	"github.com/acmecorp/account-service/internal/identity"
	"github.com/acmecorp/account-service/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware authenticates the request with HTTP basic credentials.
// Authentication is stateless: every request runs the full credential
// check. A missing or unparsable header is rejected before the gate, so
// it leaves no audit trail and no ledger entry.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="account-service"`)
			respondError(w, r, http.StatusUnauthorized, "")
			return
		}

		user, err := h.identityService.Authenticate(r.Context(), email, password, r.URL.Path)
		if err != nil {
			h.meter.LoginFailures.Add(r.Context(), 1)
			if errors.Is(err, identity.ErrAccountLockedNow) {
				h.meter.Lockouts.Add(r.Context(), 1)
			}
			respondDomainError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// OptionalAuthMiddleware runs the credential gate only when the request
// carries basic credentials. Anonymous requests pass through unchanged;
// supplied credentials are verified in full, so a bad pair still fails
// the request and counts against the lockout ledger.
func (h *Handler) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.identityService.Authenticate(r.Context(), email, password, r.URL.Path)
		if err != nil {
			h.meter.LoginFailures.Add(r.Context(), 1)
			if errors.Is(err, identity.ErrAccountLockedNow) {
				h.meter.Lockouts.Add(r.Context(), 1)
			}
			respondDomainError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RequireRoles gates a route on the caller holding at least one of the
// given canonical roles. A failing gate is itself a security event.
func (h *Handler) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				respondError(w, r, http.StatusUnauthorized, "")
				return
			}

			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			h.meter.AccessDenials.Add(r.Context(), 1)
			if err := h.auditor.Record(r.Context(), audit.ActionAccessDenied, user.Email, r.URL.Path, r.URL.Path); err != nil {
				slog.ErrorContext(r.Context(), "failed to record access denial",
					logger.Component("transport"), logger.Error(err))
				respondError(w, r, http.StatusInternalServerError, "Internal server error")
				return
			}
			respondError(w, r, http.StatusForbidden, "Access Denied!")
		})
	}
}
