package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/ids"
	"atlasmark.io/internal/rbac"
)

// UserAdmin performs user management on behalf of an authenticated actor.
// Role-assignment rules and per-actor visibility are enforced here, before
// anything touches the store.
type UserAdmin struct {
	creds    CredentialStore
	recorder *audit.Recorder
	now      func() time.Time
}

// NewUserAdmin constructs the user management service.
func NewUserAdmin(creds CredentialStore, recorder *audit.Recorder) (*UserAdmin, error) {
	if creds == nil {
		return nil, errors.New("auth: credential store is required")
	}
	if recorder == nil {
		recorder = audit.NewRecorder(nil)
	}
	return &UserAdmin{creds: creds, recorder: recorder, now: time.Now}, nil
}

// CreateUserInput is the payload for creating an account.
type CreateUserInput struct {
	Email       string
	Name        string
	Password    string
	Role        rbac.Role
	BranchID    *string
	AgentNumber *string
}

// CreateUser creates an account subject to role-assignment rules. The
// rejection is returned as a structured result, not an error, so callers
// render the reason directly.
func (u *UserAdmin) CreateUser(ctx context.Context, actor *rbac.UserProfile, in CreateUserInput) (*rbac.UserProfile, rbac.RoleAssignmentResult, error) {
	if verdict := rbac.ValidateRoleAssignment(actor, in.Role, in.BranchID); !verdict.Valid {
		return nil, verdict, nil
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, rbac.RoleAssignmentResult{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, rbac.RoleAssignmentResult{}, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, in.Role)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, rbac.RoleAssignmentResult{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	now := u.now().UTC()
	cred := &Credential{
		ID:           ids.New(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         in.Role,
		BranchID:     in.BranchID,
		AgentNumber:  in.AgentNumber,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.creds.Create(ctx, cred); err != nil {
		return nil, rbac.RoleAssignmentResult{}, err
	}

	u.recorder.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     audit.ActionUserCreated,
		Resource:   "user",
		ResourceID: cred.ID,
		Details:    map[string]any{"role": string(cred.Role), "email": cred.Email},
		BranchID:   cred.BranchID,
	})
	return ProfileFromCredential(cred), rbac.RoleAssignmentResult{Valid: true}, nil
}

// GetUser loads a profile if the actor is allowed to view it.
func (u *UserAdmin) GetUser(ctx context.Context, actor *rbac.UserProfile, userID string) (*rbac.UserProfile, error) {
	cred, err := u.creds.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	target := ProfileFromCredential(cred)
	if !rbac.CanViewUserData(actor, target) {
		return nil, ErrNotFound
	}
	return target, nil
}

// DeactivateUser soft-deactivates an account. Accounts are never hard-deleted:
// report authorship and the audit trail must stay attributable.
func (u *UserAdmin) DeactivateUser(ctx context.Context, actor *rbac.UserProfile, userID string) error {
	cred, err := u.creds.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	target := ProfileFromCredential(cred)
	if !rbac.CanManageUser(actor, target) {
		u.recorder.Record(ctx, audit.Entry{
			UserID:     actor.ID,
			UserEmail:  actor.Email,
			Action:     audit.ActionPermissionDenied,
			Resource:   "user",
			ResourceID: cred.ID,
			Details:    map[string]any{"attempted": "deactivate"},
			BranchID:   cred.BranchID,
		})
		return ErrForbidden
	}
	if err := u.creds.SetActive(ctx, cred.ID, false); err != nil {
		return err
	}
	u.recorder.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     audit.ActionUserDeactivated,
		Resource:   "user",
		ResourceID: cred.ID,
		BranchID:   cred.BranchID,
	})
	return nil
}
