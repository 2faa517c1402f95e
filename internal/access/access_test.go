package access

import "testing"

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name string
		m    Membership
		want bool
	}{
		{"no memberships", Membership{}, false},
		{"org member only", Membership{IsOrgMember: true}, true},
		{"project member only", Membership{IsProjectMember: true}, true},
		{"both", Membership{IsOrgMember: true, IsProjectMember: true}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccess(tc.m); got != tc.want {
				t.Fatalf("CanAccess(%+v) = %v, want %v", tc.m, got, tc.want)
			}
		})
	}
}

func TestCanManage(t *testing.T) {
	tests := []struct {
		name string
		m    Membership
		want bool
	}{
		{"no memberships", Membership{}, false},
		{"org member implies manage", Membership{IsOrgMember: true}, true},
		{"project member without permissions", Membership{IsProjectMember: true}, false},
		{"project member with view only", Membership{IsProjectMember: true, Permissions: []Permission{PermissionView}}, false},
		{"project member with settings", Membership{IsProjectMember: true, Permissions: []Permission{PermissionSettings}}, true},
		{"project member with admin", Membership{IsProjectMember: true, Permissions: []Permission{PermissionView, PermissionAdmin}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanManage(tc.m); got != tc.want {
				t.Fatalf("CanManage(%+v) = %v, want %v", tc.m, got, tc.want)
			}
		})
	}
}

func TestParsePermissionsDropsUnknown(t *testing.T) {
	parsed := ParsePermissions([]string{"view", "superuser", "admin", ""})
	if len(parsed) != 2 || parsed[0] != PermissionView || parsed[1] != PermissionAdmin {
		t.Fatalf("unexpected permissions: %v", parsed)
	}
}
