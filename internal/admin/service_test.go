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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmecorp/account-service/internal/audit"
	"github.com/acmecorp/account-service/internal/identity"
	"github.com/acmecorp/account-service/internal/rbac"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*identity.User
	order []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*identity.User)}
}

func (f *fakeUserRepo) add(email string, roles ...string) *identity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &identity.User{
		ID:    "id-" + email,
		Email: email,
		Roles: append([]string{}, roles...),
	}
	f.users[email] = u
	f.order = append(f.order, email)
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *identity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.Email] = user
	f.order = append(f.order, user.Email)
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	cp.Roles = append([]string{}, u.Roles...)
	return &cp, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]identity.User, 0, len(f.order))
	for _, email := range f.order {
		if u, ok := f.users[email]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeUserRepo) UpdateRoles(ctx context.Context, userID string, roles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			u.Roles = append([]string{}, roles...)
			return nil
		}
	}
	return identity.ErrUserNotFound
}

func (f *fakeUserRepo) SetBlocked(ctx context.Context, email string, blocked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.Blocked = blocked
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, u := range f.users {
		if u.ID == userID {
			delete(f.users, email)
			return nil
		}
	}
	return identity.ErrUserNotFound
}

type fakeLedger struct {
	cleared []string
}

func (f *fakeLedger) RecordFailure(ctx context.Context, email string) (int, error) { return 1, nil }
func (f *fakeLedger) ConsecutiveFailures(ctx context.Context, email string) (int, error) {
	return 0, nil
}
func (f *fakeLedger) Clear(ctx context.Context, email string) error {
	f.cleared = append(f.cleared, email)
	return nil
}

type recordingAuditor struct {
	actions  []string
	subjects []string
	objects  []string
}

func (r *recordingAuditor) Record(ctx context.Context, action, subject, object, path string) error {
	r.actions = append(r.actions, action)
	r.subjects = append(r.subjects, subject)
	r.objects = append(r.objects, object)
	return nil
}

const requestPath = "/api/admin/user/role"

// TestPurpose: Validates role granting, including the GRANT_ROLE audit object text.
// Scope: Unit Test
// Security: Role-based access control mutation
// Expected: Granting ACCOUNTANT to a USER-only account succeeds and appends one GRANT_ROLE event.
// Test Case ID: ADM-01
func TestAdmin_Service_ChangeRole_Grant(t *testing.T) {
	repo := newFakeUserRepo()
	auditor := &recordingAuditor{}
	s := NewService(repo, &fakeLedger{}, auditor)
	repo.add("john@acme.com", rbac.RoleUser)

	user, err := s.ChangeRole(context.Background(), "john@acme.com", "ACCOUNTANT", OpGrant, "admin@acme.com", requestPath)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rbac.RoleUser, rbac.RoleAccountant}, user.Roles)

	require.Len(t, auditor.actions, 1)
	assert.Equal(t, audit.ActionGrantRole, auditor.actions[0])
	assert.Equal(t, "admin@acme.com", auditor.subjects[0])
	assert.Equal(t, "Grant role ACCOUNTANT to john@acme.com", auditor.objects[0])
}

// TestPurpose: Validates the ordered REMOVE checks: role not held, administrator role, last remaining role.
// Scope: Unit Test
// Security: Minimum-role and administrator invariants
// Expected: Each violation fails with its dedicated error; removing one of two non-conflicting roles succeeds.
// Test Case ID: ADM-02
func TestAdmin_Service_ChangeRole_RemoveChecks(t *testing.T) {
	repo := newFakeUserRepo()
	auditor := &recordingAuditor{}
	s := NewService(repo, &fakeLedger{}, auditor)
	ctx := context.Background()

	repo.add("admin@acme.com", rbac.RoleAdministrator)
	repo.add("solo@acme.com", rbac.RoleUser)
	repo.add("both@acme.com", rbac.RoleUser, rbac.RoleAccountant)

	_, err := s.ChangeRole(ctx, "solo@acme.com", "AUDITOR", OpRemove, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrRoleNotHeld)

	_, err = s.ChangeRole(ctx, "admin@acme.com", "ADMINISTRATOR", OpRemove, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrRemoveAdminRole)

	_, err = s.ChangeRole(ctx, "solo@acme.com", "USER", OpRemove, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrLastRole)

	user, err := s.ChangeRole(ctx, "both@acme.com", "ACCOUNTANT", OpRemove, "admin@acme.com", requestPath)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleUser}, user.Roles)
	assert.Equal(t, "Remove role ACCOUNTANT from both@acme.com", auditor.objects[len(auditor.objects)-1])
}

// TestPurpose: Validates the administrative/business tier mutual exclusion on grants.
// Scope: Unit Test
// Security: Separation of duties
// Expected: Granting a business role to the administrator, or the administrator role to a business user, fails.
// Test Case ID: ADM-03
func TestAdmin_Service_ChangeRole_TierConflict(t *testing.T) {
	repo := newFakeUserRepo()
	s := NewService(repo, &fakeLedger{}, &recordingAuditor{})
	ctx := context.Background()

	repo.add("admin@acme.com", rbac.RoleAdministrator)
	repo.add("john@acme.com", rbac.RoleUser)

	_, err := s.ChangeRole(ctx, "admin@acme.com", "ACCOUNTANT", OpGrant, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrRoleConflict)

	_, err = s.ChangeRole(ctx, "john@acme.com", "ADMINISTRATOR", OpGrant, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrRoleConflict)
}

// TestPurpose: Validates rejection of unknown roles, unknown users and unknown operations.
// Scope: Unit Test
// Security: Input validation at the component boundary
// Expected: NotFound for unknown role or user; invalid-operation error otherwise.
// Test Case ID: ADM-04
func TestAdmin_Service_ChangeRole_Invalid(t *testing.T) {
	repo := newFakeUserRepo()
	s := NewService(repo, &fakeLedger{}, &recordingAuditor{})
	ctx := context.Background()
	repo.add("john@acme.com", rbac.RoleUser)

	_, err := s.ChangeRole(ctx, "john@acme.com", "WIZARD", OpGrant, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrRoleNotFound)

	_, err = s.ChangeRole(ctx, "ghost@acme.com", "USER", OpGrant, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	_, err = s.ChangeRole(ctx, "john@acme.com", "AUDITOR", "TOGGLE", "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

// TestPurpose: Validates lock/unlock semantics: admin immunity, idempotency rejection, event attribution and ledger reset on unlock.
// Scope: Unit Test
// Security: Account lockout administration
// Expected: LOCK is self-attributed; UNLOCK is actor-attributed and clears the failure ledger; redundant operations fail.
// Test Case ID: ADM-05
func TestAdmin_Service_ChangeBlockedStatus(t *testing.T) {
	repo := newFakeUserRepo()
	ledger := &fakeLedger{}
	auditor := &recordingAuditor{}
	s := NewService(repo, ledger, auditor)
	ctx := context.Background()

	repo.add("admin@acme.com", rbac.RoleAdministrator)
	repo.add("john@acme.com", rbac.RoleUser)

	_, err := s.ChangeBlockedStatus(ctx, "admin@acme.com", OpLock, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrLockAdministrator)
	_, err = s.ChangeBlockedStatus(ctx, "admin@acme.com", OpUnlock, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrLockAdministrator)

	_, err = s.ChangeBlockedStatus(ctx, "john@acme.com", OpUnlock, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrNotBlocked)

	status, err := s.ChangeBlockedStatus(ctx, "john@acme.com", OpLock, "admin@acme.com", requestPath)
	require.NoError(t, err)
	assert.Equal(t, "User john@acme.com locked!", status)
	assert.True(t, repo.users["john@acme.com"].Blocked)
	assert.Equal(t, audit.ActionLockUser, auditor.actions[0])
	assert.Equal(t, "john@acme.com", auditor.subjects[0], "lock is attributed to the target itself")

	_, err = s.ChangeBlockedStatus(ctx, "john@acme.com", OpLock, "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrAlreadyBlocked)

	status, err = s.ChangeBlockedStatus(ctx, "john@acme.com", OpUnlock, "admin@acme.com", requestPath)
	require.NoError(t, err)
	assert.Equal(t, "User john@acme.com unlocked!", status)
	assert.False(t, repo.users["john@acme.com"].Blocked)
	assert.Equal(t, audit.ActionUnlockUser, auditor.actions[1])
	assert.Equal(t, "admin@acme.com", auditor.subjects[1], "unlock is attributed to the actor")
	assert.Equal(t, []string{"john@acme.com"}, ledger.cleared, "unlock grants a fresh failure ledger")

	_, err = s.ChangeBlockedStatus(ctx, "john@acme.com", "TOGGLE", "admin@acme.com", requestPath)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

// TestPurpose: Validates user deletion rules and the DELETE_USER event.
// Scope: Unit Test
// Security: Administrator account protection
// Expected: Deleting the administrator fails; deleting anyone else removes the record and appends DELETE_USER with the actor as subject.
// Test Case ID: ADM-06
func TestAdmin_Service_DeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	auditor := &recordingAuditor{}
	s := NewService(repo, &fakeLedger{}, auditor)
	ctx := context.Background()

	repo.add("admin@acme.com", rbac.RoleAdministrator)
	repo.add("john@acme.com", rbac.RoleUser)

	err := s.DeleteUser(ctx, "ghost@acme.com", "admin@acme.com", "/api/admin/user/ghost@acme.com")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	err = s.DeleteUser(ctx, "admin@acme.com", "admin@acme.com", "/api/admin/user/admin@acme.com")
	assert.ErrorIs(t, err, ErrDeleteAdministrator)

	err = s.DeleteUser(ctx, "john@acme.com", "admin@acme.com", "/api/admin/user/john@acme.com")
	require.NoError(t, err)
	_, err = repo.GetByEmail(ctx, "john@acme.com")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	require.Len(t, auditor.actions, 1)
	assert.Equal(t, audit.ActionDeleteUser, auditor.actions[0])
	assert.Equal(t, "admin@acme.com", auditor.subjects[0])
	assert.Equal(t, "john@acme.com", auditor.objects[0])
}

// TestPurpose: Validates concurrent role changes on the same user are serialized.
// Scope: Unit Test
// Security: Validation must not run against a stale role set
// Expected: With two concurrent removals of different roles from a three-role user, the user is never left with zero roles.
// Test Case ID: ADM-07
func TestAdmin_Service_ChangeRole_ConcurrentSerialized(t *testing.T) {
	repo := newFakeUserRepo()
	s := NewService(repo, &fakeLedger{}, &recordingAuditor{})
	ctx := context.Background()

	repo.add("busy@acme.com", rbac.RoleUser, rbac.RoleAccountant, rbac.RoleAuditor)

	var wg sync.WaitGroup
	for _, role := range []string{"ACCOUNTANT", "AUDITOR"} {
		wg.Add(1)
		go func(role string) {
			defer wg.Done()
			s.ChangeRole(ctx, "busy@acme.com", role, OpRemove, "admin@acme.com", requestPath)
		}(role)
	}
	wg.Wait()

	user, err := repo.GetByEmail(ctx, "busy@acme.com")
	require.NoError(t, err)
	assert.NotEmpty(t, user.Roles, "a user must never end up with an empty role set")
	assert.Contains(t, user.Roles, rbac.RoleUser)
}
