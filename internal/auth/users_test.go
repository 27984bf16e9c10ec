package auth

import (
	"context"
	"errors"
	"testing"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/rbac"
)

func adminActor() *rbac.UserProfile {
	p := &rbac.UserProfile{ID: "admin-1", Email: "admin@example.com", Role: rbac.RoleAdmin, IsActive: true}
	p.AttachPermissions()
	return p
}

func superActor() *rbac.UserProfile {
	p := &rbac.UserProfile{ID: "root-1", Email: "root@example.com", Role: rbac.RoleSuperAdmin, IsActive: true}
	p.AttachPermissions()
	return p
}

func managerActor(branch string) *rbac.UserProfile {
	p := &rbac.UserProfile{ID: "mgr-" + branch, Email: "mgr@example.com", Role: rbac.RoleBranchManager, BranchID: strPtr(branch), IsActive: true}
	p.AttachPermissions()
	return p
}

func newUserAdmin(t *testing.T, creds ...*Credential) (*UserAdmin, *memCredentials, *captureSink) {
	t.Helper()
	store := newMemCredentials(creds...)
	sink := &captureSink{}
	admin, err := NewUserAdmin(store, audit.NewRecorder(sink))
	if err != nil {
		t.Fatal(err)
	}
	return admin, store, sink
}

func TestCreateUser(t *testing.T) {
	admin, store, sink := newUserAdmin(t)

	profile, verdict, err := admin.CreateUser(context.Background(), superActor(), CreateUserInput{
		Email:    "  New.Agent@Example.COM ",
		Name:     "New Agent",
		Password: "secret-pass-1",
		Role:     rbac.RoleSalesAgent,
		BranchID: strPtr("b1"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("unexpected rejection: %s", verdict.Reason)
	}
	if profile.Email != "new.agent@example.com" {
		t.Fatalf("email should be normalized, got %q", profile.Email)
	}
	if !profile.IsActive {
		t.Fatal("new accounts start active")
	}
	if !profile.Permissions.Equal(rbac.Permissions(rbac.RoleSalesAgent)) {
		t.Fatal("profile should carry catalog permissions for the role")
	}

	stored, err := store.FindByEmail(context.Background(), "new.agent@example.com")
	if err != nil {
		t.Fatalf("stored credential missing: %v", err)
	}
	if stored.PasswordHash == "secret-pass-1" {
		t.Fatal("password must not be stored in the clear")
	}
	if err := VerifyPassword(stored.PasswordHash, "secret-pass-1"); err != nil {
		t.Fatalf("stored hash should verify: %v", err)
	}

	created := sink.byAction(audit.ActionUserCreated)
	if len(created) != 1 || created[0].ResourceID != profile.ID {
		t.Fatalf("expected one attributed USER_CREATED entry, got %+v", created)
	}
}

func TestCreateUserRoleAssignmentVerdicts(t *testing.T) {
	admin, store, _ := newUserAdmin(t)

	// Admin assigning a privileged role: structured rejection, no error.
	profile, verdict, err := admin.CreateUser(context.Background(), adminActor(), CreateUserInput{
		Email:    "mgr@example.com",
		Password: "secret-pass-1",
		Role:     rbac.RoleBranchManager,
		BranchID: strPtr("b1"),
	})
	if err != nil {
		t.Fatalf("verdict path must not error: %v", err)
	}
	if profile != nil || verdict.Valid {
		t.Fatalf("expected a rejection, got profile=%v verdict=%+v", profile, verdict)
	}
	if verdict.Reason == "" {
		t.Fatal("rejection must carry a reason")
	}
	if _, err := store.FindByEmail(context.Background(), "mgr@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatal("rejected create must not touch the store")
	}

	// Admin may create media buyers, but only without a branch.
	_, verdict, err = admin.CreateUser(context.Background(), adminActor(), CreateUserInput{
		Email:    "buyer@example.com",
		Password: "secret-pass-1",
		Role:     rbac.RoleMediaBuyer,
		BranchID: strPtr("b1"),
	})
	if err != nil || verdict.Valid {
		t.Fatalf("branch-scoped buyer must be rejected, verdict=%+v err=%v", verdict, err)
	}
	_, verdict, err = admin.CreateUser(context.Background(), adminActor(), CreateUserInput{
		Email:    "buyer@example.com",
		Password: "secret-pass-1",
		Role:     rbac.RoleMediaBuyer,
	})
	if err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("admin should create media buyers: %s", verdict.Reason)
	}
}

func TestCreateUserValidation(t *testing.T) {
	admin, _, _ := newUserAdmin(t)

	cases := []CreateUserInput{
		{Email: "not-an-email", Password: "secret-pass-1", Role: rbac.RoleViewer},
		{Email: "", Password: "secret-pass-1", Role: rbac.RoleViewer},
		{Email: "ok@example.com", Password: "short", Role: rbac.RoleViewer},
	}
	for _, in := range cases {
		_, _, err := admin.CreateUser(context.Background(), superActor(), in)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("input %+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	existing := agentCredential(t)
	admin, _, _ := newUserAdmin(t, existing)

	_, _, err := admin.CreateUser(context.Background(), superActor(), CreateUserInput{
		Email:    existing.Email,
		Password: "secret-pass-1",
		Role:     rbac.RoleViewer,
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetUserVisibility(t *testing.T) {
	b1Agent := agentCredential(t)
	b2Agent := &Credential{
		ID: "u2", Email: "other@example.com", PasswordHash: "x",
		Role: rbac.RoleSalesAgent, BranchID: strPtr("b2"), IsActive: true,
	}
	admin, _, _ := newUserAdmin(t, b1Agent, b2Agent)

	if _, err := admin.GetUser(context.Background(), adminActor(), "u2"); err != nil {
		t.Fatalf("admin should see any user: %v", err)
	}
	if _, err := admin.GetUser(context.Background(), managerActor("b1"), "u1"); err != nil {
		t.Fatalf("manager should see own-branch user: %v", err)
	}
	// Out-of-branch lookups are indistinguishable from missing users.
	if _, err := admin.GetUser(context.Background(), managerActor("b1"), "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-branch lookup, got %v", err)
	}
	if _, err := admin.GetUser(context.Background(), managerActor("b1"), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestDeactivateUser(t *testing.T) {
	target := agentCredential(t)
	admin, store, sink := newUserAdmin(t, target)

	if err := admin.DeactivateUser(context.Background(), managerActor("b2"), "u1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cross-branch manager must get ErrForbidden, got %v", err)
	}
	denied := sink.byAction(audit.ActionPermissionDenied)
	if len(denied) != 1 || denied[0].ResourceID != "u1" {
		t.Fatalf("denied deactivation must be audited, got %+v", denied)
	}
	if stored, _ := store.FindByID(context.Background(), "u1"); !stored.IsActive {
		t.Fatal("denied deactivation must not touch the account")
	}

	if err := admin.DeactivateUser(context.Background(), managerActor("b1"), "u1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	stored, err := store.FindByID(context.Background(), "u1")
	if err != nil {
		t.Fatal("soft deactivation must keep the row")
	}
	if stored.IsActive {
		t.Fatal("account should be inactive")
	}
	if len(sink.byAction(audit.ActionUserDeactivated)) != 1 {
		t.Fatal("expected one USER_DEACTIVATED entry")
	}
}
