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

package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/acmecorp/account-service/internal/identity"
)

// BatchError aggregates every violation found in an upload so the
// accountant can fix the whole batch in one round trip.
type BatchError struct {
	Violations []string
}

func (e *BatchError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// Service manages salary allocations.
type Service struct {
	payments PaymentRepository
	users    identity.UserRepository
}

// NewService creates a new payroll service.
func NewService(payments PaymentRepository, users identity.UserRepository) *Service {
	return &Service{payments: payments, users: users}
}

// Upload validates and stores a batch of salary allocations. The batch is
// atomic: a single invalid record rejects the whole upload, and the
// returned BatchError names every violation by its position.
func (s *Service) Upload(ctx context.Context, inputs []PaymentInput) error {
	batch := &BatchError{}
	seen := make(map[string]struct{}, len(inputs))
	payments := make([]Payment, 0, len(inputs))

	for i, in := range inputs {
		employee := identity.NormalizeEmail(in.Employee)

		if in.Salary <= 0 {
			batch.Violations = append(batch.Violations,
				fmt.Sprintf("payments[%d].salary: %s", i, ErrSalaryNegative))
		}

		period, err := ParsePeriod(in.Period)
		if err != nil {
			batch.Violations = append(batch.Violations,
				fmt.Sprintf("payments[%d].period: %s", i, ErrInvalidPeriod))
			continue
		}

		key := employee + "|" + in.Period
		if _, dup := seen[key]; dup {
			batch.Violations = append(batch.Violations,
				fmt.Sprintf("payments[%d]: %s", i, ErrDuplicatePeriod))
			continue
		}
		seen[key] = struct{}{}

		if _, err := s.users.GetByEmail(ctx, employee); err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				batch.Violations = append(batch.Violations,
					fmt.Sprintf("payments[%d].employee: %s", i, ErrEmployeeUnknown))
				continue
			}
			return fmt.Errorf("failed to look up employee: %w", err)
		}

		exists, err := s.payments.Exists(ctx, employee, period)
		if err != nil {
			return fmt.Errorf("failed to check payment allocation: %w", err)
		}
		if exists {
			batch.Violations = append(batch.Violations,
				fmt.Sprintf("payments[%d]: %s", i, ErrPaymentExists))
			continue
		}

		payments = append(payments, Payment{
			ID:       uuid.Must(uuid.NewV7()).String(),
			Employee: employee,
			Period:   period,
			Salary:   in.Salary,
		})
	}

	if len(batch.Violations) > 0 {
		return batch
	}

	if err := s.payments.CreateBatch(ctx, payments); err != nil {
		return fmt.Errorf("failed to store payments: %w", err)
	}
	return nil
}

// Update changes the salary of an existing allocation.
func (s *Service) Update(ctx context.Context, in PaymentInput) error {
	if in.Salary <= 0 {
		return ErrSalaryNegative
	}
	period, err := ParsePeriod(in.Period)
	if err != nil {
		return err
	}

	employee := identity.NormalizeEmail(in.Employee)
	if _, err := s.payments.GetByEmployeeAndPeriod(ctx, employee, period); err != nil {
		return err
	}

	if err := s.payments.UpdateSalary(ctx, employee, period, in.Salary); err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// ForEmployee renders the employee's payslips. With a period it returns
// exactly that allocation; without one it returns the full history,
// newest period first.
func (s *Service) ForEmployee(ctx context.Context, email, period string) ([]Payslip, error) {
	email = identity.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if period != "" {
		at, err := ParsePeriod(period)
		if err != nil {
			return nil, err
		}
		payment, err := s.payments.GetByEmployeeAndPeriod(ctx, email, at)
		if err != nil {
			return nil, err
		}
		return []Payslip{renderPayslip(user, payment)}, nil
	}

	payments, err := s.payments.ListByEmployee(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	slips := make([]Payslip, 0, len(payments))
	for i := range payments {
		slips = append(slips, renderPayslip(user, &payments[i]))
	}
	return slips, nil
}

func renderPayslip(user *identity.User, p *Payment) Payslip {
	return Payslip{
		Name:     user.Name,
		Lastname: user.Lastname,
		Period:   FormatPeriod(p.Period),
		Salary:   FormatSalary(p.Salary),
	}
}
