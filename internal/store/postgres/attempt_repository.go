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
)

// AttemptRepository implements identity.AttemptLedger on the
// login_attempts table.
type AttemptRepository struct {
	db *DB
}

// NewAttemptRepository creates a new login-attempt repository
func NewAttemptRepository(db *DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// RecordFailure appends one failure and returns the consecutive count.
// Append and count run in one transaction under a per-email advisory
// lock, so two concurrent failures for the same email serialize and
// cannot both observe a below-threshold count.
func (r *AttemptRepository) RecordFailure(ctx context.Context, email string) (int, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, email); err != nil {
		return 0, fmt.Errorf("failed to acquire attempt lock: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO login_attempts (email) VALUES ($1)
	`, email); err != nil {
		return 0, fmt.Errorf("failed to insert login attempt: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts WHERE email = $1
	`, email).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return count, nil
}

// ConsecutiveFailures returns the current count without recording.
func (r *AttemptRepository) ConsecutiveFailures(ctx context.Context, email string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts WHERE email = $1
	`, email).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}
	return count, nil
}

// Clear purges all recorded failures for the email.
func (r *AttemptRepository) Clear(ctx context.Context, email string) error {
	if _, err := r.db.pool.Exec(ctx, `
		DELETE FROM login_attempts WHERE email = $1
	`, email); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}
