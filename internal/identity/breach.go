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
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed passwords.json
var breachedPasswords []byte

// BreachList is a BreachChecker backed by a bundled list of passwords
// known to appear in breach dumps.
type BreachList struct {
	passwords map[string]struct{}
}

// NewBreachList loads the bundled breached-password list.
func NewBreachList() (*BreachList, error) {
	var doc struct {
		Passwords []string `json:"passwords"`
	}
	if err := json.Unmarshal(breachedPasswords, &doc); err != nil {
		return nil, fmt.Errorf("failed to load breached passwords list: %w", err)
	}

	set := make(map[string]struct{}, len(doc.Passwords))
	for _, p := range doc.Passwords {
		set[p] = struct{}{}
	}
	return &BreachList{passwords: set}, nil
}

// Breached reports whether password appears in the list.
func (b *BreachList) Breached(password string) bool {
	_, ok := b.passwords[password]
	return ok
}
