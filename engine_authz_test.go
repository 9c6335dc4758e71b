package goIdentity_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/permission"
)

func roleID(t *testing.T, h *harness, name string) string {
	t.Helper()
	roles, err := h.engine.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	for _, r := range roles {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("role %s not found", name)
	return ""
}

func permissionID(t *testing.T, h *harness, name string) string {
	t.Helper()
	perms, err := h.engine.ListPermissions(context.Background())
	if err != nil {
		t.Fatalf("ListPermissions: %v", err)
	}
	for _, p := range perms {
		if p.Name == name {
			return p.ID
		}
	}
	t.Fatalf("permission %s not found", name)
	return ""
}

func runAuthzScenario(t *testing.T, h *harness) {
	ctx := context.Background()
	userID := h.activeUser(t, "authz@example.com")

	if h.engine.HasPermission(ctx, userID, permission.ManageRoles) {
		t.Fatal("USER must not manage roles")
	}

	if err := h.engine.AssignRole(ctx, userID, goIdentity.RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if !h.engine.HasPermission(ctx, userID, permission.ManageRoles) {
		t.Fatal("expected ADMIN to grant MANAGE_ROLES")
	}
	if !h.engine.HasRole(ctx, userID, goIdentity.RoleAdmin) {
		t.Fatal("expected ADMIN role")
	}

	// Revoking from the role reaches every holder at once.
	if err := h.engine.RevokeRolePermissions(ctx, roleID(t, h, goIdentity.RoleAdmin),
		[]string{permissionID(t, h, permission.ManageRoles)}); err != nil {
		t.Fatalf("RevokeRolePermissions: %v", err)
	}
	if h.engine.HasPermission(ctx, userID, permission.ManageRoles) {
		t.Fatal("expected the revoked permission to be gone")
	}

	if err := h.engine.GrantUserPermission(ctx, userID, permission.ManageRoles); err != nil {
		t.Fatalf("GrantUserPermission: %v", err)
	}
	if !h.engine.HasPermission(ctx, userID, permission.ManageRoles) {
		t.Fatal("expected the direct grant to apply")
	}

	if err := h.engine.UnassignRole(ctx, userID, goIdentity.RoleAdmin); err != nil {
		t.Fatalf("UnassignRole: %v", err)
	}
	got, err := h.engine.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	if want := []string{permission.ManageRoles}; !reflect.DeepEqual(got, want) {
		t.Fatalf("effective permissions = %v, want %v", got, want)
	}

	if err := h.engine.RevokeUserPermission(ctx, userID, permission.ManageRoles); err != nil {
		t.Fatalf("RevokeUserPermission: %v", err)
	}
	if h.engine.HasPermission(ctx, userID, permission.ManageRoles) {
		t.Fatal("expected the direct grant to be revoked")
	}
}

func TestAuthorizationWithoutCache(t *testing.T) {
	runAuthzScenario(t, newHarness(t))
}

func TestAuthorizationWithCache(t *testing.T) {
	h := newHarness(t, withRedis(t))
	runAuthzScenario(t, h)

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[goIdentity.MetricAuthzCacheMiss] == 0 {
		t.Fatal("expected cache misses to be recorded")
	}
}

func TestAuthorizationCacheHit(t *testing.T) {
	h := newHarness(t, withRedis(t))
	ctx := context.Background()
	userID := h.activeUser(t, "hit@example.com")
	if err := h.engine.AssignRole(ctx, userID, goIdentity.RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !h.engine.HasPermission(ctx, userID, permission.DeleteUser) {
			t.Fatal("expected DELETE_USER")
		}
	}
	if hits := h.engine.MetricsSnapshot().Counters[goIdentity.MetricAuthzCacheHit]; hits < 2 {
		t.Fatalf("expected repeated checks to hit the cache, got %d hits", hits)
	}
}

func TestAuthorizationSurvivesCacheOutage(t *testing.T) {
	h := newHarness(t, withRedis(t))
	ctx := context.Background()
	userID := h.activeUser(t, "outage@example.com")
	if err := h.engine.AssignRole(ctx, userID, goIdentity.RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	h.redis.Close()
	if !h.engine.HasPermission(ctx, userID, permission.UpdateUser) {
		t.Fatal("expected the store to answer while Redis is down")
	}
	if h.engine.HasPermission(ctx, userID, "NOT_A_PERMISSION") {
		t.Fatal("unknown permission must be denied")
	}
}

func TestAuthorizationFailsClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.activeUser(t, "closed@example.com")
	if err := h.engine.AssignRole(ctx, userID, goIdentity.RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	if h.engine.HasPermission(ctx, "unknown-user", permission.ManageRoles) {
		t.Fatal("unknown user must be denied")
	}
	if h.engine.HasPermission(ctx, "", permission.ManageRoles) {
		t.Fatal("empty user id must be denied")
	}
	if err := h.engine.Authorize(ctx, nil, permission.ManageRoles); !errors.Is(err, goIdentity.ErrPermissionDenied) {
		t.Fatalf("expected nil principal to be denied, got %v", err)
	}

	principal := &goIdentity.Principal{UserID: userID}
	if err := h.engine.Authorize(ctx, principal, permission.ManageRoles); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if err := h.engine.SetAccountStatus(ctx, userID, false); err != nil {
		t.Fatalf("SetAccountStatus: %v", err)
	}
	err := h.engine.Authorize(ctx, principal, permission.ManageRoles)
	if !errors.Is(err, goIdentity.ErrForbidden) {
		t.Fatalf("expected a deactivated account to be denied, got %v", err)
	}
}
