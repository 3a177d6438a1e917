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
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/acmecorp/account-service/internal/audit"
	"github.com/acmecorp/account-service/internal/rbac"
)

// AnonymousSubject is used as the audit subject when no authenticated
// caller is present.
const AnonymousSubject = "Anonymous"

var corporateEmail = regexp.MustCompile(`^.+@acme\.com$`)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 12

// Service provides identity business logic: sign-up, credential
// verification with brute-force lockout, and password changes.
type Service struct {
	users    UserRepository
	attempts AttemptLedger
	hasher   *PasswordHasher
	breach   BreachChecker
	auditor  audit.Recorder

	// lockoutThreshold is the number of consecutive failures tolerated
	// before an account is blocked. Strictly "more than": with the default
	// of 5, the 6th consecutive failure trips the lock.
	lockoutThreshold int
}

// NewService creates a new identity service.
func NewService(
	users UserRepository,
	attempts AttemptLedger,
	hasher *PasswordHasher,
	breach BreachChecker,
	auditor audit.Recorder,
	lockoutThreshold int,
) *Service {
	return &Service{
		users:            users,
		attempts:         attempts,
		hasher:           hasher,
		breach:           breach,
		auditor:          auditor,
		lockoutThreshold: lockoutThreshold,
	}
}

// NormalizeEmail lowercases and trims an email for canonical lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUpInput carries new-account data.
type SignUpInput struct {
	Name     string
	Lastname string
	Email    string
	Password string
}

// SignUp registers a new account. The first registered user receives the
// administrator role; everyone after that starts as a plain user. The
// actor is the authenticated caller, or empty for anonymous sign-up.
func (s *Service) SignUp(ctx context.Context, input SignUpInput, actor, path string) (*User, error) {
	email := NormalizeEmail(input.Email)

	if !corporateEmail.MatchString(email) {
		return nil, ErrEmailDomain
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if s.breach.Breached(input.Password) {
		return nil, ErrPasswordBreached
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	role := rbac.RoleUser
	if count == 0 {
		role = rbac.RoleAdministrator
	}

	user := &User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         input.Name,
		Lastname:     input.Lastname,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        []string{role},
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	subject := actor
	if subject == "" {
		subject = AnonymousSubject
	}
	if err := s.auditor.Record(ctx, audit.ActionCreateUser, subject, user.Email, path); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies a credential pair and enforces the lockout policy.
//
// Failures for a known identity are audited and counted; crossing the
// threshold blocks the account, except for the administrator, whose
// lockout is refused without persisting anything. Unknown identities
// leave no trail at all. A success purges the failure ledger.
func (s *Service) Authenticate(ctx context.Context, email, password, path string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// No identity to attribute the failure to.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Blocked {
		return nil, ErrAccountLocked
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		// A stored hash we cannot parse is a storage fault, not a wrong
		// password; it must not feed the lockout ledger.
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, s.handleFailedAttempt(ctx, user, path)
	}

	if err := s.attempts.Clear(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to clear login attempts: %w", err)
	}

	return user, nil
}

// handleFailedAttempt records the failure, updates the ledger and decides
// whether this attempt crossed the lockout threshold. The returned error
// is what the gate reports to the caller.
func (s *Service) handleFailedAttempt(ctx context.Context, user *User, path string) error {
	if err := s.auditor.Record(ctx, audit.ActionLoginFailed, user.Email, path, path); err != nil {
		return err
	}

	count, err := s.attempts.RecordFailure(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	if count <= s.lockoutThreshold {
		return ErrInvalidCredentials
	}

	if err := s.auditor.Record(ctx, audit.ActionBruteForce, user.Email, path, path); err != nil {
		return err
	}

	// The administrator is immune to lockout; the block must not persist.
	if user.HasRole(rbac.RoleAdministrator) {
		return ErrAdministratorLockRefused
	}

	if err := s.users.SetBlocked(ctx, user.Email, true); err != nil {
		return fmt.Errorf("failed to block user: %w", err)
	}
	if err := s.auditor.Record(ctx, audit.ActionLockUser, user.Email, "Lock user "+user.Email, path); err != nil {
		return err
	}

	return ErrAccountLockedNow
}

// ChangePassword replaces the caller's password after validating length,
// novelty and the breach list.
func (s *Service) ChangePassword(ctx context.Context, email, newPassword, path string) (*User, error) {
	email = NormalizeEmail(email)

	if len(newPassword) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	same, err := s.hasher.Verify(newPassword, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if same {
		return nil, ErrPasswordUnchanged
	}

	if s.breach.Breached(newPassword) {
		return nil, ErrPasswordBreached
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.auditor.Record(ctx, audit.ActionChangePassword, email, email, path); err != nil {
		return nil, err
	}

	return user, nil
}

// GetByEmail retrieves a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}
