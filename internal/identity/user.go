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

package identity

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned for an account that was already blocked
	// before this attempt; ErrAccountLockedNow for one blocked by this very
	// attempt. Both surface as the same client-visible status.
	ErrAccountLocked    = errors.New("account is locked")
	ErrAccountLockedNow = errors.New("account locked after too many failed login attempts")

	// ErrAdministratorLockRefused signals that brute-force detection fired
	// against the administrator account. The block is never persisted.
	ErrAdministratorLockRefused = errors.New("can't lock the administrator")

	ErrEmailDomain       = errors.New("email must be registered with acme.com domain")
	ErrPasswordTooShort  = errors.New("password length must be 12 chars minimum")
	ErrPasswordBreached  = errors.New("password is in the breached passwords list")
	ErrPasswordUnchanged = errors.New("new password must differ from the current one")
)

// User is an account identity. Email is the canonical lookup key and is
// always stored lowercase. The role set is never empty and never mixes
// administrative and business tiers.
type User struct {
	ID           string
	Name         string
	Lastname     string
	Email        string
	PasswordHash string
	Blocked      bool
	Roles        []string
	CreatedAt    time.Time
}

// HasRole reports whether the user holds the given canonical role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SortedRoles returns the role set sorted ascending, for stable output.
func (u *User) SortedRoles() []string {
	out := make([]string, len(u.Roles))
	copy(out, u.Roles)
	sort.Strings(out)
	return out
}

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	// Create persists a new user together with its role set.
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by lowercase email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List returns all users in creation order.
	List(ctx context.Context) ([]User, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)

	// UpdateRoles replaces the user's role set.
	UpdateRoles(ctx context.Context, userID string, roles []string) error

	// SetBlocked flips the blocked flag for the given email.
	SetBlocked(ctx context.Context, email string, blocked bool) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Delete removes the user.
	Delete(ctx context.Context, userID string) error
}

// AttemptLedger tracks consecutive failed authentications per email.
// Counts only grow between successes; a success or explicit unlock purges
// the email's history.
type AttemptLedger interface {
	// RecordFailure appends one failure and returns the updated consecutive
	// count. Append and count happen atomically per email so concurrent
	// failures cannot both observe a below-threshold count.
	RecordFailure(ctx context.Context, email string) (int, error)

	// ConsecutiveFailures returns the current count without recording.
	ConsecutiveFailures(ctx context.Context, email string) (int, error)

	// Clear purges all recorded failures for the email.
	Clear(ctx context.Context, email string) error
}

// BreachChecker reports whether a password appears in a known breach
// corpus. Injected as a capability so the gate stays hermetic in tests.
type BreachChecker interface {
	Breached(password string) bool
}
