// Package access evaluates project membership permissions. Membership rows are
// loaded by the store; the rules here are pure so they can be tested without a
// database.
package access

type Permission string

const (
	PermissionView     Permission = "view"
	PermissionEdit     Permission = "edit"
	PermissionApprove  Permission = "approve"
	PermissionSettings Permission = "settings"
	PermissionAdmin    Permission = "admin"
)

// Membership is the guard's view of a user's standing on a project.
type Membership struct {
	IsOrgMember     bool
	IsProjectMember bool
	Permissions     []Permission
}

// CanAccess reports whether the user may read or submit against the project:
// membership in the owning organization, or an explicit project membership row.
func CanAccess(m Membership) bool {
	return m.IsOrgMember || m.IsProjectMember
}

// CanManage reports whether the user may decide workflows and change project
// configuration. Organization membership implies manage rights; project
// members need the settings or admin permission.
func CanManage(m Membership) bool {
	if m.IsOrgMember {
		return true
	}
	if !m.IsProjectMember {
		return false
	}
	for _, p := range m.Permissions {
		if p == PermissionSettings || p == PermissionAdmin {
			return true
		}
	}
	return false
}

// ParsePermissions maps raw permission strings from the membership row,
// dropping anything unrecognized.
func ParsePermissions(raw []string) []Permission {
	parsed := make([]Permission, 0, len(raw))
	for _, r := range raw {
		switch Permission(r) {
		case PermissionView, PermissionEdit, PermissionApprove, PermissionSettings, PermissionAdmin:
			parsed = append(parsed, Permission(r))
		}
	}
	return parsed
}
