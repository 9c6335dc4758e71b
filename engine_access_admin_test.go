package goIdentity_test

import (
	"context"
	"errors"
	"testing"

	goIdentity "github.com/MrEthical07/goIdentity"
)

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.engine.SeedDefaults(ctx); err != nil {
		t.Fatalf("second SeedDefaults: %v", err)
	}
	roles, _ := h.engine.ListRoles(ctx)
	perms, _ := h.engine.ListPermissions(ctx)
	if len(roles) != 2 || len(perms) != 5 {
		t.Fatalf("expected 2 roles and 5 permissions, got %d and %d", len(roles), len(perms))
	}

	admin, err := h.engine.GetRole(ctx, roleID(t, h, goIdentity.RoleAdmin))
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if len(admin.Permissions) != 5 {
		t.Fatalf("expected ADMIN to hold every base permission, got %d", len(admin.Permissions))
	}
}

func TestSystemRolesAreProtected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	adminID := roleID(t, h, goIdentity.RoleAdmin)

	if err := h.engine.DeleteRole(ctx, adminID); !errors.Is(err, goIdentity.ErrSystemRole) {
		t.Fatalf("expected ErrSystemRole, got %v", err)
	}
	name := "ROOT"
	if _, err := h.engine.UpdateRole(ctx, adminID, &name, nil); !errors.Is(err, goIdentity.ErrSystemRole) {
		t.Fatalf("expected ErrSystemRole on rename, got %v", err)
	}
	desc := "Superuser"
	role, err := h.engine.UpdateRole(ctx, adminID, nil, &desc)
	if err != nil || role.Description != "Superuser" {
		t.Fatalf("expected description change to be allowed: %+v %v", role, err)
	}
}

func TestRoleLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	role, err := h.engine.CreateRole(ctx, "EDITOR", "Edits things")
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if _, err := h.engine.CreateRole(ctx, "EDITOR", ""); !errors.Is(err, goIdentity.ErrDuplicateRole) {
		t.Fatalf("expected ErrDuplicateRole, got %v", err)
	}
	if _, err := h.engine.CreateRole(ctx, "editor role", ""); !errors.Is(err, goIdentity.ErrValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}

	perm, err := h.engine.CreatePermission(ctx, "PUBLISH", "Publish posts")
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	if err := h.engine.GrantRolePermissions(ctx, role.ID, []string{perm.ID, perm.ID}); err != nil {
		t.Fatalf("GrantRolePermissions: %v", err)
	}
	if err := h.engine.GrantRolePermissions(ctx, role.ID, []string{"missing"}); !errors.Is(err, goIdentity.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}

	userID := h.activeUser(t, "editor@example.com")
	if err := h.engine.AssignRole(ctx, userID, "EDITOR"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if !h.engine.HasPermission(ctx, userID, "PUBLISH") {
		t.Fatal("expected PUBLISH through EDITOR")
	}

	if err := h.engine.DeleteRole(ctx, role.ID); !errors.Is(err, goIdentity.ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}
	if err := h.engine.DeletePermission(ctx, perm.ID); !errors.Is(err, goIdentity.ErrPermissionInUse) {
		t.Fatalf("expected ErrPermissionInUse, got %v", err)
	}

	renamed := "PUBLISH_POSTS"
	if _, err := h.engine.UpdatePermission(ctx, perm.ID, &renamed, nil); err != nil {
		t.Fatalf("UpdatePermission: %v", err)
	}
	if !h.engine.HasPermission(ctx, userID, "PUBLISH_POSTS") || h.engine.HasPermission(ctx, userID, "PUBLISH") {
		t.Fatal("expected the rename to apply to checks")
	}

	if err := h.engine.UnassignRole(ctx, userID, "EDITOR"); err != nil {
		t.Fatalf("UnassignRole: %v", err)
	}
	if err := h.engine.RevokeRolePermissions(ctx, role.ID, []string{perm.ID}); err != nil {
		t.Fatalf("RevokeRolePermissions: %v", err)
	}
	if err := h.engine.DeleteRole(ctx, role.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	if err := h.engine.DeletePermission(ctx, perm.ID); err != nil {
		t.Fatalf("DeletePermission: %v", err)
	}
	if _, err := h.engine.GetRole(ctx, role.ID); !errors.Is(err, goIdentity.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestUserGrantErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.activeUser(t, "grants@example.com")

	if err := h.engine.AssignRole(ctx, userID, "NOPE"); !errors.Is(err, goIdentity.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	if err := h.engine.GrantUserPermission(ctx, userID, "NOPE"); !errors.Is(err, goIdentity.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
	if err := h.engine.AssignRole(ctx, "missing", goIdentity.RoleAdmin); !errors.Is(err, goIdentity.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSoftDeletedUsersDoNotBlockDeletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	role, err := h.engine.CreateRole(ctx, "ARCHIVIST", "")
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	perm, err := h.engine.CreatePermission(ctx, "ARCHIVE", "")
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	userID := h.activeUser(t, "archivist@example.com")
	if err := h.engine.AssignRole(ctx, userID, "ARCHIVIST"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := h.engine.GrantUserPermission(ctx, userID, "ARCHIVE"); err != nil {
		t.Fatalf("GrantUserPermission: %v", err)
	}
	if err := h.engine.DeleteRole(ctx, role.ID); !errors.Is(err, goIdentity.ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}

	if err := h.engine.SoftDeleteAccount(ctx, userID); err != nil {
		t.Fatalf("SoftDeleteAccount: %v", err)
	}
	if err := h.engine.DeleteRole(ctx, role.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	if err := h.engine.DeletePermission(ctx, perm.ID); err != nil {
		t.Fatalf("DeletePermission: %v", err)
	}

	roles, err := h.store.ListUserRoles(ctx, userID)
	if err != nil {
		t.Fatalf("ListUserRoles: %v", err)
	}
	for _, name := range roles {
		if name == "ARCHIVIST" {
			t.Fatal("expected the assignment to be removed with the role")
		}
	}
}
