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

package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/acmecorp/account-service/internal/audit"
	"github.com/acmecorp/account-service/internal/identity"
	"github.com/acmecorp/account-service/internal/rbac"
)

// Role and access operations accepted by the API.
const (
	OpGrant  = "GRANT"
	OpRemove = "REMOVE"
	OpLock   = "LOCK"
	OpUnlock = "UNLOCK"
)

// Domain errors
var (
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleNotHeld         = errors.New("the user does not have a role")
	ErrRemoveAdminRole     = errors.New("can't remove ADMINISTRATOR role")
	ErrLastRole            = errors.New("the user must have at least one role")
	ErrRoleConflict        = errors.New("the user cannot combine administrative and business roles")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrLockAdministrator   = errors.New("can't lock the ADMINISTRATOR")
	ErrAlreadyBlocked      = errors.New("user is already blocked")
	ErrNotBlocked          = errors.New("user is not blocked")
	ErrDeleteAdministrator = errors.New("can't delete the ADMINISTRATOR")
)

// Service mutates user role sets and blocked status under the tier
// mutual-exclusion and minimum-role invariants, and maintains the user
// inventory for administrative callers.
type Service struct {
	users    identity.UserRepository
	attempts identity.AttemptLedger
	auditor  audit.Recorder

	// Per-email serialization of validate-then-mutate sequences. Two
	// concurrent changes to the same user must not both validate against
	// a stale role set.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new administration service.
func NewService(users identity.UserRepository, attempts identity.AttemptLedger, auditor audit.Recorder) *Service {
	return &Service{
		users:    users,
		attempts: attempts,
		auditor:  auditor,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockEmail acquires the per-email mutex and returns its release func.
func (s *Service) lockEmail(email string) func() {
	s.mu.Lock()
	l, ok := s.locks[email]
	if !ok {
		l = &sync.Mutex{}
		s.locks[email] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ChangeRole grants a role to or removes a role from the target user.
// The role may be given in short form ("ACCOUNTANT"). Validation runs
// against the role set as it is before mutation; the first failing check
// wins.
func (s *Service) ChangeRole(ctx context.Context, email, roleName, operation, actor, path string) (*identity.User, error) {
	role := rbac.Canonical(roleName)
	if !rbac.Known(role) {
		return nil, ErrRoleNotFound
	}

	email = identity.NormalizeEmail(email)
	unlock := s.lockEmail(email)
	defer unlock()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if operation == OpRemove {
		if !user.HasRole(role) {
			return nil, ErrRoleNotHeld
		}
		if role == rbac.RoleAdministrator {
			return nil, ErrRemoveAdminRole
		}
		if len(user.Roles) == 1 {
			return nil, ErrLastRole
		}
	}

	if rbac.Conflicts(user.Roles, role) {
		return nil, ErrRoleConflict
	}

	var action, object string
	switch operation {
	case OpGrant:
		if !user.HasRole(role) {
			user.Roles = append(user.Roles, role)
		}
		action = audit.ActionGrantRole
		object = fmt.Sprintf("Grant role %s to %s", rbac.Short(role), user.Email)
	case OpRemove:
		kept := make([]string, 0, len(user.Roles)-1)
		for _, r := range user.Roles {
			if r != role {
				kept = append(kept, r)
			}
		}
		user.Roles = kept
		action = audit.ActionRemoveRole
		object = fmt.Sprintf("Remove role %s from %s", rbac.Short(role), user.Email)
	default:
		return nil, ErrInvalidOperation
	}

	if err := s.users.UpdateRoles(ctx, user.ID, user.Roles); err != nil {
		return nil, fmt.Errorf("failed to update roles: %w", err)
	}

	if err := s.auditor.Record(ctx, action, actor, object, path); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangeBlockedStatus locks or unlocks the target user. Locking is
// self-attributed in the audit trail; unlocking is attributed to the
// acting administrator and gives the target a fresh failure ledger.
func (s *Service) ChangeBlockedStatus(ctx context.Context, email, operation, actor, path string) (string, error) {
	email = identity.NormalizeEmail(email)
	unlock := s.lockEmail(email)
	defer unlock()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if user.HasRole(rbac.RoleAdministrator) {
		return "", ErrLockAdministrator
	}

	if operation != OpLock && operation != OpUnlock {
		return "", ErrInvalidOperation
	}

	// Redundant operations are rejected, not silently accepted.
	locking := operation == OpLock
	if user.Blocked && locking {
		return "", ErrAlreadyBlocked
	}
	if !user.Blocked && !locking {
		return "", ErrNotBlocked
	}

	if err := s.users.SetBlocked(ctx, email, locking); err != nil {
		return "", fmt.Errorf("failed to change blocked status: %w", err)
	}

	if locking {
		if err := s.auditor.Record(ctx, audit.ActionLockUser, user.Email, "Lock user "+user.Email, path); err != nil {
			return "", err
		}
		return fmt.Sprintf("User %s locked!", user.Email), nil
	}

	if err := s.attempts.Clear(ctx, email); err != nil {
		return "", fmt.Errorf("failed to clear login attempts: %w", err)
	}
	if err := s.auditor.Record(ctx, audit.ActionUnlockUser, actor, "Unlock user "+user.Email, path); err != nil {
		return "", err
	}
	return fmt.Sprintf("User %s unlocked!", user.Email), nil
}

// DeleteUser removes the target user. The administrator account cannot
// be deleted.
func (s *Service) DeleteUser(ctx context.Context, email, actor, path string) error {
	email = identity.NormalizeEmail(email)
	unlock := s.lockEmail(email)
	defer unlock()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.HasRole(rbac.RoleAdministrator) {
		return ErrDeleteAdministrator
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return s.auditor.Record(ctx, audit.ActionDeleteUser, actor, user.Email, path)
}

// ListUsers returns all registered users in creation order. No users is
// an empty slice, not an error.
func (s *Service) ListUsers(ctx context.Context) ([]identity.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []identity.User{}
	}
	return users, nil
}
