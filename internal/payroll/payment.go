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
	"time"
)

// Domain errors
var (
	ErrSalaryNegative  = errors.New("salary can't be negative")
	ErrInvalidPeriod   = errors.New("period must be in MM-YYYY format")
	ErrDuplicatePeriod = errors.New("duplicate period for employee in upload")
	ErrPaymentExists   = errors.New("payment already allocated for period")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrEmployeeUnknown = errors.New("employee not found")
)

// Payment is one salary allocation. Salary is stored in cents; Period is
// normalized to the first day of its month, UTC.
type Payment struct {
	ID       string
	Employee string
	Period   time.Time
	Salary   int64
}

// PaymentInput is a salary record as submitted by accountants. Period
// uses the MM-YYYY form.
type PaymentInput struct {
	Employee string `json:"employee" validate:"required,email"`
	Period   string `json:"period" validate:"required"`
	Salary   int64  `json:"salary"`
}

// Payslip is the employee-facing rendering of a payment.
type Payslip struct {
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Period   string `json:"period"`
	Salary   string `json:"salary"`
}

// PaymentRepository defines the interface for payment persistence.
type PaymentRepository interface {
	// CreateBatch persists all payments or none of them.
	CreateBatch(ctx context.Context, payments []Payment) error

	// Exists reports whether a payment is already allocated for the
	// employee and period.
	Exists(ctx context.Context, employee string, period time.Time) (bool, error)

	// UpdateSalary replaces the salary of an existing allocation.
	UpdateSalary(ctx context.Context, employee string, period time.Time, salary int64) error

	// ListByEmployee returns all payments for the employee, newest
	// period first.
	ListByEmployee(ctx context.Context, employee string) ([]Payment, error)

	// GetByEmployeeAndPeriod returns one allocation, or ErrPaymentNotFound.
	GetByEmployeeAndPeriod(ctx context.Context, employee string, period time.Time) (*Payment, error)
}

// ParsePeriod parses an MM-YYYY period string.
func ParsePeriod(s string) (time.Time, error) {
	t, err := time.Parse("01-2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return t.UTC(), nil
}

// FormatPeriod renders a period as "January-2021".
func FormatPeriod(t time.Time) string {
	return fmt.Sprintf("%s-%d", t.Month().String(), t.Year())
}

// FormatSalary renders cents as "D dollar(s) C cent(s)".
func FormatSalary(cents int64) string {
	return fmt.Sprintf("%d dollar(s) %d cent(s)", cents/100, cents%100)
}
