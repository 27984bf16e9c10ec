package rbac

import (
	"encoding/json"
	"sort"
)

// Permission is an atomic capability required to perform an action.
type Permission string

const (
	PermViewDashboards Permission = "view_dashboards"

	PermCreateMediaReports Permission = "create_media_reports"
	PermViewMediaReports   Permission = "view_media_reports"
	PermEditMediaReports   Permission = "edit_media_reports"
	PermDeleteMediaReports Permission = "delete_media_reports"

	PermCreateSalesReports Permission = "create_sales_reports"
	PermViewSalesReports   Permission = "view_sales_reports"
	PermEditSalesReports   Permission = "edit_sales_reports"
	PermDeleteSalesReports Permission = "delete_sales_reports"

	PermViewAnalytics Permission = "view_analytics"
	PermExportReports Permission = "export_reports"

	PermViewUsers   Permission = "view_users"
	PermManageUsers Permission = "manage_users"

	PermViewBranches   Permission = "view_branches"
	PermManageBranches Permission = "manage_branches"

	PermManageSettings Permission = "manage_settings"
	PermViewAuditLog   Permission = "view_audit_log"
)

// PermissionSet is an unordered collection of permissions. It serializes as a
// sorted JSON array so responses are stable.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership of a single permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether at least one of the required permissions is present.
func (s PermissionSet) HasAny(required ...Permission) bool {
	for _, p := range required {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every required permission is present.
func (s PermissionSet) HasAll(required ...Permission) bool {
	for _, p := range required {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Sorted returns the permissions as a sorted slice.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports set equality.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Has(p) {
			return false
		}
	}
	return true
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var list []Permission
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = NewPermissionSet(list...)
	return nil
}

func union(sets ...PermissionSet) PermissionSet {
	out := make(PermissionSet)
	for _, set := range sets {
		for p := range set {
			out[p] = struct{}{}
		}
	}
	return out
}
