package rbac

// Pure authorization decisions over a UserProfile. None of these touch
// storage; they are safe to call concurrently.

// CanAccessBranch reports whether the user may operate on the given branch.
// SUPER_ADMIN and ADMIN are unrestricted; everyone else must match their own
// branch assignment.
func CanAccessBranch(user *UserProfile, branchID string) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case RoleSuperAdmin, RoleAdmin:
		return true
	}
	return user.BranchID != nil && *user.BranchID == branchID
}

// CanViewUserData reports whether viewer may read target's profile data.
func CanViewUserData(viewer, target *UserProfile) bool {
	if viewer == nil || target == nil {
		return false
	}
	switch viewer.Role {
	case RoleSuperAdmin, RoleAdmin:
		return true
	case RoleBranchManager:
		if viewer.BranchID != nil && target.BranchID != nil && *viewer.BranchID == *target.BranchID {
			return true
		}
	}
	return viewer.ID == target.ID
}

// CanManageUser reports whether manager may modify target (role changes,
// deactivation). SUPER_ADMIN manages anyone; a BRANCH_MANAGER manages only
// same-branch users who are not themselves privileged.
func CanManageUser(manager, target *UserProfile) bool {
	if manager == nil || target == nil {
		return false
	}
	switch manager.Role {
	case RoleSuperAdmin:
		return true
	case RoleBranchManager:
		if manager.BranchID == nil || target.BranchID == nil || *manager.BranchID != *target.BranchID {
			return false
		}
		switch target.Role {
		case RoleSuperAdmin, RoleAdmin, RoleBranchManager:
			return false
		}
		return true
	}
	return false
}

// DataFilters is the declarative scoping contract handed to the storage
// layer. The core never builds query predicates itself: the store translates
// RestrictToOwn into an authorship predicate, BranchID into a branch
// predicate and AgentNumber into an agent predicate.
type DataFilters struct {
	BranchID      *string `json:"branch_filter,omitempty"`
	AgentNumber   *string `json:"agent_filter,omitempty"`
	RestrictToOwn bool    `json:"restrict_to_own"`
}

// DataFiltersFor derives the scoping policy for a user. SUPER_ADMIN and ADMIN
// see everything; BRANCH_MANAGER sees the whole branch; MEDIA_BUYER is always
// restricted to own records regardless of branch assignment; every other role
// defaults to own records only.
func DataFiltersFor(user *UserProfile) DataFilters {
	if user == nil {
		return DataFilters{RestrictToOwn: true}
	}
	switch user.Role {
	case RoleSuperAdmin, RoleAdmin:
		return DataFilters{}
	case RoleBranchManager:
		return DataFilters{BranchID: user.BranchID}
	case RoleMediaBuyer:
		return DataFilters{RestrictToOwn: true}
	case RoleSalesAgent:
		return DataFilters{RestrictToOwn: true, AgentNumber: user.AgentNumber}
	default:
		return DataFilters{RestrictToOwn: true}
	}
}

// RoleAssignmentResult is returned, not thrown: callers render the reason
// directly to the client.
type RoleAssignmentResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func invalidAssignment(reason string) RoleAssignmentResult {
	return RoleAssignmentResult{Reason: reason}
}

// ValidateRoleAssignment checks whether assigner may grant targetRole with an
// optional branch scope. SUPER_ADMIN assigns anything. ADMIN may only assign
// MEDIA_BUYER, and never with a branch (media buyers are not branch-scoped).
func ValidateRoleAssignment(assigner *UserProfile, targetRole Role, targetBranchID *string) RoleAssignmentResult {
	if assigner == nil {
		return invalidAssignment("insufficient permissions to assign roles")
	}
	switch assigner.Role {
	case RoleSuperAdmin:
		return RoleAssignmentResult{Valid: true}
	case RoleAdmin:
		if targetRole != RoleMediaBuyer {
			return invalidAssignment("admins may only assign the MEDIA_BUYER role")
		}
		if targetBranchID != nil && *targetBranchID != "" {
			return invalidAssignment("media buyers are not branch-scoped; remove the branch assignment")
		}
		return RoleAssignmentResult{Valid: true}
	default:
		return invalidAssignment("insufficient permissions to assign roles")
	}
}
