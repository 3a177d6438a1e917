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

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/acmecorp/account-service/internal/observability/logger"
)

// Security event actions. The vocabulary is fixed and case-sensitive.
const (
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionBruteForce     = "BRUTE_FORCE"
	ActionLockUser       = "LOCK_USER"
	ActionUnlockUser     = "UNLOCK_USER"
	ActionGrantRole      = "GRANT_ROLE"
	ActionRemoveRole     = "REMOVE_ROLE"
	ActionDeleteUser     = "DELETE_USER"
	ActionAccessDenied   = "ACCESS_DENIED"
	ActionCreateUser     = "CREATE_USER"
	ActionChangePassword = "CHANGE_PASSWORD"
)

// Event is one immutable record of a security-relevant action.
// Once appended it is never mutated or deleted.
type Event struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"date"`
	Action     string    `json:"action"`
	Subject    string    `json:"subject"`
	Object     string    `json:"object"`
	Path       string    `json:"path"`
}

// Store is the durable append-only log behind the auditor.
type Store interface {
	// Append persists one event. The assigned ID reflects insertion order.
	Append(ctx context.Context, event *Event) error

	// ListAll returns every event in insertion order.
	ListAll(ctx context.Context) ([]Event, error)
}

// Recorder is the interface emitters depend on. An audit write that fails
// must surface to the caller; durability of the trail is a security
// property, not best effort.
type Recorder interface {
	Record(ctx context.Context, action, subject, object, path string) error
}

// Service records security events durably and mirrors them to slog.
type Service struct {
	store Store
}

// NewService creates a new auditor backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record stamps the current time and appends one event. The append is
// synchronous: callers must not report their outcome before it returns.
func (s *Service) Record(ctx context.Context, action, subject, object, path string) error {
	event := &Event{
		OccurredAt: time.Now(),
		Action:     action,
		Subject:    subject,
		Object:     object,
		Path:       path,
	}

	if err := s.store.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append audit event %s: %w", action, err)
	}

	slog.InfoContext(ctx, "security_event",
		logger.Action(event.Action),
		logger.Subject(event.Subject),
		slog.String("object", event.Object),
		logger.Path(event.Path),
		slog.Time("occurred_at", event.OccurredAt),
		logger.Component("audit"),
	)

	return nil
}

// List returns the full trail in insertion order. No events is an empty
// slice, not an error.
func (s *Service) List(ctx context.Context) ([]Event, error) {
	events, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}
