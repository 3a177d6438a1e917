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

package rbac

import "strings"

// System-defined roles. The set is fixed; role names are stored and
// compared in their canonical ROLE_* form.
const (
	RoleUser          = "ROLE_USER"
	RoleAdministrator = "ROLE_ADMINISTRATOR"
	RoleAccountant    = "ROLE_ACCOUNTANT"
	RoleAuditor       = "ROLE_AUDITOR"
)

// Tier classifies a role into one of two mutually exclusive authority
// tiers. A user must never hold roles from both tiers at once.
type Tier int

const (
	TierUnknown Tier = iota
	TierAdministrative
	TierBusiness
)

// All lists every known role in canonical form.
func All() []string {
	return []string{RoleUser, RoleAdministrator, RoleAccountant, RoleAuditor}
}

// Canonical resolves a short role name ("ACCOUNTANT") to its canonical
// form ("ROLE_ACCOUNTANT"). Already-canonical names pass through.
func Canonical(name string) string {
	if strings.HasPrefix(name, "ROLE_") {
		return name
	}
	return "ROLE_" + name
}

// Short strips the ROLE_ prefix for display ("ROLE_ACCOUNTANT" -> "ACCOUNTANT").
func Short(name string) string {
	return strings.TrimPrefix(name, "ROLE_")
}

// Known reports whether name is one of the system-defined roles.
func Known(name string) bool {
	switch name {
	case RoleUser, RoleAdministrator, RoleAccountant, RoleAuditor:
		return true
	}
	return false
}

// TierOf returns the authority tier of a canonical role name.
func TierOf(name string) Tier {
	switch name {
	case RoleAdministrator:
		return TierAdministrative
	case RoleUser, RoleAccountant, RoleAuditor:
		return TierBusiness
	}
	return TierUnknown
}

// Conflicts reports whether granting or removing changed on a user that
// currently holds the given roles would mix authority tiers. The check is
// evaluated against the role set before mutation.
func Conflicts(held []string, changed string) bool {
	changedTier := TierOf(changed)
	for _, r := range held {
		t := TierOf(r)
		if t == TierAdministrative && changedTier == TierBusiness {
			return true
		}
		if t == TierBusiness && changedTier == TierAdministrative {
			return true
		}
	}
	return false
}
