package rbac

import "strings"

// Role is a fixed category of user determining a default permission set.
// The set is closed: there is no role hierarchy, each role's permissions are
// enumerated in the catalog.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleAdmin         Role = "ADMIN"
	RoleBranchManager Role = "BRANCH_MANAGER"
	RoleMediaBuyer    Role = "MEDIA_BUYER"
	RoleSalesAgent    Role = "SALES_AGENT"
	RoleAnalyst       Role = "ANALYST"
	RoleViewer        Role = "VIEWER"
)

// Roles lists every known role in a stable order.
var Roles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleBranchManager,
	RoleMediaBuyer,
	RoleSalesAgent,
	RoleAnalyst,
	RoleViewer,
}

// ParseRole normalizes raw input into a known Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if role.Valid() {
		return role, true
	}
	return "", false
}

// Valid reports whether the role is a member of the fixed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleBranchManager, RoleMediaBuyer, RoleSalesAgent, RoleAnalyst, RoleViewer:
		return true
	}
	return false
}

// BranchScoped reports whether the role operates inside a single branch.
// SUPER_ADMIN and ADMIN see every branch; MEDIA_BUYER works across branches
// and is scoped by authorship instead.
func (r Role) BranchScoped() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleMediaBuyer:
		return false
	}
	return true
}
