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

	"github.com/acmecorp/account-service/internal/payroll"
)

// PaymentRepository implements payroll.PaymentRepository
type PaymentRepository struct {
	db *DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateBatch persists all payments in one transaction.
func (r *PaymentRepository) CreateBatch(ctx context.Context, payments []payroll.Payment) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range payments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payments (id, employee, period, salary)
			VALUES ($1, $2, $3, $4)
		`, p.ID, p.Employee, p.Period, p.Salary); err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Exists reports whether a payment is allocated for the employee and period.
func (r *PaymentRepository) Exists(ctx context.Context, employee string, period time.Time) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM payments WHERE employee = $1 AND period = $2)
	`, employee, period).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check payment: %w", err)
	}
	return exists, nil
}

// UpdateSalary replaces the salary of an existing allocation.
func (r *PaymentRepository) UpdateSalary(ctx context.Context, employee string, period time.Time, salary int64) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE payments SET salary = $3 WHERE employee = $1 AND period = $2
	`, employee, period, salary)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return payroll.ErrPaymentNotFound
	}
	return nil
}

// ListByEmployee returns all payments for the employee, newest period first.
func (r *PaymentRepository) ListByEmployee(ctx context.Context, employee string) ([]payroll.Payment, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, employee, period, salary
		FROM payments
		WHERE employee = $1
		ORDER BY period DESC
	`, employee)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []payroll.Payment
	for rows.Next() {
		var p payroll.Payment
		if err := rows.Scan(&p.ID, &p.Employee, &p.Period, &p.Salary); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}

// GetByEmployeeAndPeriod returns one allocation.
func (r *PaymentRepository) GetByEmployeeAndPeriod(ctx context.Context, employee string, period time.Time) (*payroll.Payment, error) {
	var p payroll.Payment
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, employee, period, salary
		FROM payments
		WHERE employee = $1 AND period = $2
	`, employee, period).Scan(&p.ID, &p.Employee, &p.Period, &p.Salary)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, payroll.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}
