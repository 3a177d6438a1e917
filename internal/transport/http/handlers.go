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
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/acmecorp/account-service/internal/admin"
	"github.com/acmecorp/account-service/internal/audit"
	"github.com/acmecorp/account-service/internal/identity"
	"github.com/acmecorp/account-service/internal/observability/logger"
	"github.com/acmecorp/account-service/internal/observability/metrics"
	"github.com/acmecorp/account-service/internal/payroll"
	"github.com/acmecorp/account-service/internal/rbac"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	adminService    *admin.Service
	payrollService  *payroll.Service
	auditService    *audit.Service
	auditor         audit.Recorder
	meter           *metrics.Meter
	validate        *validator.Validate
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	adminService *admin.Service,
	payrollService *payroll.Service,
	auditService *audit.Service,
	meter *metrics.Meter,
) *Handler {
	return &Handler{
		identityService: identityService,
		adminService:    adminService,
		payrollService:  payrollService,
		auditService:    auditService,
		auditor:         auditService,
		meter:           meter,
		validate:        validator.New(),
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Sign-up accepts anonymous callers; credentials, when present,
		// are still verified so the creating actor is attributed.
		r.With(h.OptionalAuthMiddleware).Post("/auth/signup", h.SignUp)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.With(h.RequireRoles(rbac.RoleUser, rbac.RoleAccountant, rbac.RoleAdministrator)).
				Post("/auth/changepass", h.ChangePassword)

			r.With(h.RequireRoles(rbac.RoleUser, rbac.RoleAccountant)).
				Get("/empl/payment", h.GetPayments)

			r.Route("/acct", func(r chi.Router) {
				r.Use(h.RequireRoles(rbac.RoleAccountant))
				r.Post("/payments", h.UploadPayments)
				r.Put("/payments", h.UpdatePayment)
			})

			r.Route("/admin/user", func(r chi.Router) {
				r.Use(h.RequireRoles(rbac.RoleAdministrator))
				r.Get("/", h.ListUsers)
				r.Put("/role", h.ChangeRole)
				r.Put("/access", h.ChangeAccess)
				r.Delete("/{email}", h.DeleteUser)
			})

			r.With(h.RequireRoles(rbac.RoleAuditor)).
				Get("/security/events/", h.ListEvents)
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "account-service",
	})
}

// userView is the client-facing shape of a user.
type userView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Lastname string   `json:"lastname"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func viewOf(user *identity.User) userView {
	return userView{
		ID:       user.ID,
		Name:     user.Name,
		Lastname: user.Lastname,
		Email:    user.Email,
		Roles:    user.SortedRoles(),
	}
}

// SignUpRequest represents registration data
type SignUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Lastname string `json:"lastname" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignUp handles account registration
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}

	actor := ""
	if user := GetUser(r.Context()); user != nil {
		actor = user.Email
	}

	user, err := h.identityService.SignUp(r.Context(), identity.SignUpInput{
		Name:     req.Name,
		Lastname: req.Lastname,
		Email:    req.Email,
		Password: req.Password,
	}, actor, r.URL.Path)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to sign up user",
			logger.Error(err),
			logger.Email(req.Email),
		)
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, viewOf(user))
}

// ChangePasswordRequest carries the new password
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}

// ChangePassword replaces the caller's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}

	user := GetUser(r.Context())
	if _, err := h.identityService.ChangePassword(r.Context(), user.Email, req.NewPassword, r.URL.Path); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"email":  user.Email,
		"status": "The password has been updated successfully",
	})
}

// GetPayments renders the caller's payslips. With a period query
// parameter it returns exactly that record.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	period := r.URL.Query().Get("period")

	slips, err := h.payrollService.ForEmployee(r.Context(), user.Email, period)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if period != "" {
		respondJSON(w, http.StatusOK, slips[0])
		return
	}
	respondJSON(w, http.StatusOK, slips)
}

// UploadPayments stores a batch of salary allocations
func (h *Handler) UploadPayments(w http.ResponseWriter, r *http.Request) {
	var inputs []payroll.PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}

	if err := h.payrollService.Upload(r.Context(), inputs); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "Added successfully!"})
}

// UpdatePayment changes the salary of one allocation
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var input payroll.PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}

	if err := h.payrollService.Update(r.Context(), input); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "Updated successfully!"})
}

// ListUsers returns every registered user in creation order
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, viewOf(&users[i]))
	}
	respondJSON(w, http.StatusOK, views)
}

// ChangeRoleRequest asks to grant or remove one role
type ChangeRoleRequest struct {
	User      string `json:"user" validate:"required"`
	Role      string `json:"role" validate:"required"`
	Operation string `json:"operation" validate:"required"`
}

// ChangeRole grants or removes a role on the target user
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}

	actor := GetUser(r.Context())
	user, err := h.adminService.ChangeRole(r.Context(), req.User, req.Role, req.Operation, actor.Email, r.URL.Path)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, viewOf(user))
}

// ChangeAccessRequest asks to lock or unlock a user
type ChangeAccessRequest struct {
	User      string `json:"user" validate:"required"`
	Operation string `json:"operation" validate:"required"`
}

// ChangeAccess locks or unlocks the target user
func (h *Handler) ChangeAccess(w http.ResponseWriter, r *http.Request) {
	var req ChangeAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body!")
		return
	}

	actor := GetUser(r.Context())
	status, err := h.adminService.ChangeBlockedStatus(r.Context(), req.User, req.Operation, actor.Email, r.URL.Path)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// DeleteUser removes the target user
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	actor := GetUser(r.Context())
	if err := h.adminService.DeleteUser(r.Context(), email, actor.Email, r.URL.Path); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"user":   identity.NormalizeEmail(email),
		"status": "Deleted successfully!",
	})
}

// ListEvents returns the full audit trail in admission order
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.auditService.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}
