package rbac

import "testing"

// TestPurpose: Validates role name canonicalization from the short form used in API requests.
// Scope: Unit Test
// Security: Authorization role resolution
// Expected: Short names gain the ROLE_ prefix; canonical names pass through unchanged.
// Test Case ID: RBAC-01
func TestRBAC_Canonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ACCOUNTANT", "ROLE_ACCOUNTANT"},
		{"USER", "ROLE_USER"},
		{"ROLE_ADMINISTRATOR", "ROLE_ADMINISTRATOR"},
		{"AUDITOR", "ROLE_AUDITOR"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestPurpose: Validates the authority-tier classification that backs the
// administrative/business mutual-exclusion invariant.
// Scope: Unit Test
// Security: Separation of duties between privilege tiers
// Expected: ADMINISTRATOR is administrative; USER/ACCOUNTANT/AUDITOR are business; unknown names have no tier.
// Test Case ID: RBAC-02
func TestRBAC_TierOf(t *testing.T) {
	if TierOf(RoleAdministrator) != TierAdministrative {
		t.Error("ADMINISTRATOR must be in the administrative tier")
	}
	for _, r := range []string{RoleUser, RoleAccountant, RoleAuditor} {
		if TierOf(r) != TierBusiness {
			t.Errorf("%s must be in the business tier", r)
		}
	}
	if TierOf("ROLE_NOPE") != TierUnknown {
		t.Error("unknown role must have no tier")
	}
}

// TestPurpose: Validates tier-conflict detection over a user's current role set.
// Scope: Unit Test
// Security: Prevents combining administrative and business authority
// Expected: Mixing tiers conflicts in both directions; same-tier changes never conflict.
// Test Case ID: RBAC-03
func TestRBAC_Conflicts(t *testing.T) {
	tests := []struct {
		name    string
		held    []string
		changed string
		want    bool
	}{
		{"admin gains business", []string{RoleAdministrator}, RoleAccountant, true},
		{"business gains admin", []string{RoleUser}, RoleAdministrator, true},
		{"business gains business", []string{RoleUser}, RoleAccountant, false},
		{"auditor gains accountant", []string{RoleAuditor}, RoleAccountant, false},
		{"admin keeps admin", []string{RoleAdministrator}, RoleAdministrator, false},
		{"no roles held", nil, RoleAdministrator, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Conflicts(tt.held, tt.changed); got != tt.want {
				t.Errorf("Conflicts(%v, %s) = %v, want %v", tt.held, tt.changed, got, tt.want)
			}
		})
	}
}
