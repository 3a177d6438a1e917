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

	"github.com/acmecorp/account-service/internal/audit"
)

// EventRepository implements audit.Store on the append-only
// security_events table. The serial id is the admission order.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new security-event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append stores the event and stamps its assigned id.
func (r *EventRepository) Append(ctx context.Context, event *audit.Event) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO security_events (occurred_at, action, subject, object, path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, event.OccurredAt, event.Action, event.Subject, event.Object, event.Path).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// ListAll returns every event in admission order.
func (r *EventRepository) ListAll(ctx context.Context) ([]audit.Event, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, occurred_at, action, subject, object, path
		FROM security_events
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Action, &e.Subject, &e.Object, &e.Path); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security events: %w", err)
	}

	return events, nil
}
