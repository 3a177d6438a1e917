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
	"errors"
	"net/http"
	"time"

	"github.com/acmecorp/account-service/internal/admin"
	"github.com/acmecorp/account-service/internal/identity"
	"github.com/acmecorp/account-service/internal/payroll"
)

// errorBody is the error envelope for every non-2xx response.
type errorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, status, errorBody{
		Timestamp: time.Now(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
	})
}

// respondDomainError translates a service error into a status code and
// the client-facing message.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var batch *payroll.BatchError
	if errors.As(err, &batch) {
		respondError(w, r, http.StatusBadRequest, batch.Error())
		return
	}

	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		respondError(w, r, http.StatusNotFound, "User not found!")
	case errors.Is(err, identity.ErrUserExists):
		respondError(w, r, http.StatusBadRequest, "User exist!")
	case errors.Is(err, identity.ErrEmailDomain):
		respondError(w, r, http.StatusBadRequest, "Email must end with @acme.com!")
	case errors.Is(err, identity.ErrPasswordTooShort):
		respondError(w, r, http.StatusBadRequest, "Password length must be 12 chars minimum!")
	case errors.Is(err, identity.ErrPasswordBreached):
		respondError(w, r, http.StatusBadRequest, "The password is in the hacker's database!")
	case errors.Is(err, identity.ErrPasswordUnchanged):
		respondError(w, r, http.StatusBadRequest, "The passwords must be different!")
	case errors.Is(err, identity.ErrAccountLocked),
		errors.Is(err, identity.ErrAccountLockedNow):
		respondError(w, r, http.StatusUnauthorized, "User account is locked")
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrAdministratorLockRefused):
		respondError(w, r, http.StatusUnauthorized, "")

	case errors.Is(err, admin.ErrRoleNotFound):
		respondError(w, r, http.StatusNotFound, "Role not found!")
	case errors.Is(err, admin.ErrRoleNotHeld):
		respondError(w, r, http.StatusBadRequest, "The user does not have a role!")
	case errors.Is(err, admin.ErrRemoveAdminRole):
		respondError(w, r, http.StatusBadRequest, "Can't remove ADMINISTRATOR role!")
	case errors.Is(err, admin.ErrLastRole):
		respondError(w, r, http.StatusBadRequest, "The user must have at least one role!")
	case errors.Is(err, admin.ErrRoleConflict):
		respondError(w, r, http.StatusBadRequest, "The user cannot combine administrative and business roles!")
	case errors.Is(err, admin.ErrLockAdministrator):
		respondError(w, r, http.StatusBadRequest, "Can't lock the ADMINISTRATOR!")
	case errors.Is(err, admin.ErrDeleteAdministrator):
		respondError(w, r, http.StatusBadRequest, "Can't remove ADMINISTRATOR role!")
	case errors.Is(err, admin.ErrAlreadyBlocked):
		respondError(w, r, http.StatusBadRequest, "The user is already locked!")
	case errors.Is(err, admin.ErrNotBlocked):
		respondError(w, r, http.StatusBadRequest, "The user is not locked!")
	case errors.Is(err, admin.ErrInvalidOperation):
		respondError(w, r, http.StatusBadRequest, "Invalid operation!")

	case errors.Is(err, payroll.ErrSalaryNegative):
		respondError(w, r, http.StatusBadRequest, "Salary can't be negative!")
	case errors.Is(err, payroll.ErrInvalidPeriod):
		respondError(w, r, http.StatusBadRequest, "Invalid period!")
	case errors.Is(err, payroll.ErrPaymentNotFound):
		respondError(w, r, http.StatusBadRequest, "Payment not found!")
	case errors.Is(err, payroll.ErrPaymentExists):
		respondError(w, r, http.StatusBadRequest, "Payment already allocated!")
	case errors.Is(err, payroll.ErrEmployeeUnknown):
		respondError(w, r, http.StatusBadRequest, "Employee not found!")

	default:
		respondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
