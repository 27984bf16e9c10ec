package rbac

// The catalog is built once from explicit set unions so that a permission
// added to a shared slice propagates to every role composed from it, while
// each role's full set can still be asserted independently in tests.

var (
	basePerms = NewPermissionSet(
		PermViewDashboards,
	)

	viewerPerms = union(basePerms, NewPermissionSet(
		PermViewMediaReports,
		PermViewSalesReports,
	))

	analystPerms = union(viewerPerms, NewPermissionSet(
		PermViewAnalytics,
		PermExportReports,
	))

	salesAgentPerms = union(basePerms, NewPermissionSet(
		PermViewSalesReports,
		PermCreateSalesReports,
		PermEditSalesReports,
	))

	mediaBuyerPerms = union(basePerms, NewPermissionSet(
		PermViewMediaReports,
		PermCreateMediaReports,
		PermEditMediaReports,
	))

	branchManagerPerms = union(analystPerms, salesAgentPerms, mediaBuyerPerms, NewPermissionSet(
		PermDeleteMediaReports,
		PermDeleteSalesReports,
		PermViewUsers,
		PermManageUsers,
		PermViewBranches,
	))

	adminPerms = union(branchManagerPerms, NewPermissionSet(
		PermManageBranches,
		PermManageSettings,
	))

	superAdminPerms = union(adminPerms, NewPermissionSet(
		PermViewAuditLog,
	))
)

var rolePermissions = map[Role]PermissionSet{
	RoleSuperAdmin:    superAdminPerms,
	RoleAdmin:         adminPerms,
	RoleBranchManager: branchManagerPerms,
	RoleMediaBuyer:    mediaBuyerPerms,
	RoleSalesAgent:    salesAgentPerms,
	RoleAnalyst:       analystPerms,
	RoleViewer:        viewerPerms,
}

// Permissions returns the permission set for a role. Unknown roles yield the
// empty set. The returned set is a copy; callers may not mutate the catalog.
func Permissions(role Role) PermissionSet {
	set, ok := rolePermissions[role]
	if !ok {
		return PermissionSet{}
	}
	return set.Clone()
}
