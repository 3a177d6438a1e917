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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/acmecorp/account-service/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and its role set in one transaction.
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, name, lastname, email, password_hash, blocked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Name, user.Lastname, user.Email, user.PasswordHash, user.Blocked, now)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	for _, role := range user.Roles {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		`, user.ID, role); err != nil {
			return fmt.Errorf("failed to insert user role: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.CreatedAt = now
	return nil
}

const userColumns = `
	u.id, u.name, u.lastname, u.email, u.password_hash, u.blocked, u.created_at,
	COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
`

// GetByEmail retrieves a user by lowercase email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	var user identity.User

	err := r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE u.email = $1
		GROUP BY u.id
	`, email).Scan(
		&user.ID, &user.Name, &user.Lastname, &user.Email,
		&user.PasswordHash, &user.Blocked, &user.CreatedAt, &user.Roles,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// List returns all users in creation order.
func (r *UserRepository) List(ctx context.Context) ([]identity.User, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at, u.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []identity.User
	for rows.Next() {
		var user identity.User
		if err := rows.Scan(
			&user.ID, &user.Name, &user.Lastname, &user.Email,
			&user.PasswordHash, &user.Blocked, &user.CreatedAt, &user.Roles,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// UpdateRoles replaces the user's role set in one transaction.
func (r *UserRepository) UpdateRoles(ctx context.Context, userID string, roles []string) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	for _, role := range roles {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		`, userID, role); err != nil {
			return fmt.Errorf("failed to insert user role: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetBlocked flips the blocked flag for the given email.
func (r *UserRepository) SetBlocked(ctx context.Context, email string, blocked bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET blocked = $2 WHERE email = $1
	`, email, blocked)
	if err != nil {
		return fmt.Errorf("failed to update blocked status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2 WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// Delete removes the user. Roles go with it via ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}
