package rbac

import "time"

// UserProfile is the authenticated identity handed to business handlers.
// Permissions are always a snapshot of the catalog for the current role at
// construction time; a profile never carries a stale set.
type UserProfile struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        Role          `json:"role"`
	BranchID    *string       `json:"branch_id,omitempty"`
	AgentNumber *string       `json:"agent_number,omitempty"`
	Permissions PermissionSet `json:"permissions"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty"`
}

// AttachPermissions rebuilds the profile's permission set from the catalog for
// its current role, discarding whatever was there before.
func (p *UserProfile) AttachPermissions() {
	p.Permissions = Permissions(p.Role)
}
