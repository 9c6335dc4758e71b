package goIdentity

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goIdentity/permission"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func isSystemRole(name string) bool {
	return name == RoleAdmin || name == RoleUser
}

func (e *Engine) auditAccess(ctx context.Context, event, action, subject string, err error) {
	e.emitAudit(ctx, event, err == nil, "", err, func() map[string]string {
		return map[string]string{"action": action, "subject": subject}
	})
}

// ---------------- roles ----------------

// CreateRole adds a role. Names are upper-case letters and underscores.
func (e *Engine) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	role, err := e.createRole(ctx, name, description)
	e.auditAccess(ctx, auditEventRoleChange, "create", strings.TrimSpace(name), err)
	return role, err
}

func (e *Engine) createRole(ctx context.Context, name, description string) (*Role, error) {
	in := accessInput{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if _, err := e.store.FindRoleByName(ctx, in.Name); err == nil {
		return nil, ErrDuplicateRole
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, e.internalError("find role", err, zap.String("role", in.Name))
	}

	now := e.now().UTC()
	role, err := e.store.CreateRole(ctx, Role{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, ErrRecordConflict) {
			return nil, ErrDuplicateRole
		}
		return nil, e.internalError("create role", err, zap.String("role", in.Name))
	}
	return role, nil
}

// UpdateRole renames a role or changes its description. ADMIN and USER
// cannot be renamed.
func (e *Engine) UpdateRole(ctx context.Context, roleID string, name, description *string) (*Role, error) {
	role, err := e.updateRole(ctx, roleID, name, description)
	e.auditAccess(ctx, auditEventRoleChange, "update", roleID, err)
	return role, err
}

func (e *Engine) updateRole(ctx context.Context, roleID string, name, description *string) (*Role, error) {
	current, err := e.findRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	name, description = trimmed(name), trimmed(description)

	in := accessInput{Name: current.Name, Description: current.Description}
	if name != nil {
		in.Name = *name
	}
	if description != nil {
		in.Description = *description
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	if name != nil && *name != current.Name {
		if isSystemRole(current.Name) {
			return nil, ErrSystemRole
		}
		if _, err := e.store.FindRoleByName(ctx, *name); err == nil {
			return nil, ErrDuplicateRole
		} else if !errors.Is(err, ErrRecordNotFound) {
			return nil, e.internalError("find role", err, zap.String("role", *name))
		}
	}

	updated, err := e.store.UpdateRole(ctx, roleID, name, description)
	if err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, ErrRoleNotFound
		case errors.Is(err, ErrRecordConflict):
			return nil, ErrDuplicateRole
		}
		return nil, e.internalError("update role", err, zap.String("role_id", roleID))
	}
	if name != nil && *name != current.Name {
		e.invalidateAllAuthz(ctx)
	}
	return updated, nil
}

// DeleteRole removes a role that no active account holds. ADMIN and USER
// cannot be deleted.
func (e *Engine) DeleteRole(ctx context.Context, roleID string) error {
	err := e.deleteRole(ctx, roleID)
	e.auditAccess(ctx, auditEventRoleChange, "delete", roleID, err)
	return err
}

func (e *Engine) deleteRole(ctx context.Context, roleID string) error {
	role, err := e.findRole(ctx, roleID)
	if err != nil {
		return err
	}
	if isSystemRole(role.Name) {
		return ErrSystemRole
	}
	n, err := e.store.CountRoleAssignments(ctx, roleID)
	if err != nil {
		return e.internalError("count role assignments", err, zap.String("role_id", roleID))
	}
	if n > 0 {
		return ErrRoleInUse
	}
	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return e.internalError("delete role", err, zap.String("role_id", roleID))
	}
	e.invalidateAllAuthz(ctx)
	return nil
}

// ListRoles returns every role.
func (e *Engine) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := e.store.ListAllRoles(ctx)
	if err != nil {
		return nil, e.internalError("list roles", err)
	}
	return roles, nil
}

// GetRole returns a role with its granted permissions.
func (e *Engine) GetRole(ctx context.Context, roleID string) (*RoleWithPermissions, error) {
	role, err := e.findRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	perms, err := e.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, e.internalError("list role permissions", err, zap.String("role_id", roleID))
	}
	return &RoleWithPermissions{Role: *role, Permissions: perms}, nil
}

// GrantRolePermissions grants permissions to a role. Every id must exist;
// already granted permissions are skipped.
func (e *Engine) GrantRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	err := e.editRolePermissions(ctx, roleID, permissionIDs, true)
	e.auditAccess(ctx, auditEventGrantChange, "grant_role_permissions", roleID, err)
	return err
}

// RevokeRolePermissions removes permissions from a role. Ids that are not
// granted are ignored.
func (e *Engine) RevokeRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	err := e.editRolePermissions(ctx, roleID, permissionIDs, false)
	e.auditAccess(ctx, auditEventGrantChange, "revoke_role_permissions", roleID, err)
	return err
}

func (e *Engine) editRolePermissions(ctx context.Context, roleID string, permissionIDs []string, grant bool) error {
	if len(permissionIDs) == 0 {
		return &ValidationError{Fields: map[string]string{"permissionIds": "is required"}}
	}
	if _, err := e.findRole(ctx, roleID); err != nil {
		return err
	}
	for _, id := range permissionIDs {
		if _, err := e.findPermission(ctx, id); err != nil {
			return err
		}
	}

	current, err := e.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return e.internalError("list role permissions", err, zap.String("role_id", roleID))
	}
	granted := make(permission.Set, len(current))
	for _, p := range current {
		granted.Add(p.ID)
	}

	var changes []string
	seen := permission.NewSet()
	for _, id := range permissionIDs {
		if seen.Has(id) || granted.Has(id) == grant {
			continue
		}
		seen.Add(id)
		changes = append(changes, id)
	}
	if len(changes) == 0 {
		return nil
	}

	if grant {
		err = e.store.AddRolePermissions(ctx, roleID, changes)
	} else {
		err = e.store.RemoveRolePermissions(ctx, roleID, changes)
	}
	if err != nil {
		return e.internalError("edit role permissions", err, zap.String("role_id", roleID))
	}
	e.invalidateAllAuthz(ctx)
	return nil
}

func (e *Engine) findRole(ctx context.Context, roleID string) (*Role, error) {
	role, err := e.store.FindRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, e.internalError("find role", err, zap.String("role_id", roleID))
	}
	return role, nil
}

func (e *Engine) findRoleByName(ctx context.Context, name string) (*Role, error) {
	role, err := e.store.FindRoleByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, e.internalError("find role", err, zap.String("role", name))
	}
	return role, nil
}

// ---------------- permissions ----------------

// CreatePermission adds a permission. Names follow the role name rules.
func (e *Engine) CreatePermission(ctx context.Context, name, description string) (*Permission, error) {
	perm, err := e.createPermission(ctx, name, description)
	e.auditAccess(ctx, auditEventPermissionChange, "create", strings.TrimSpace(name), err)
	return perm, err
}

func (e *Engine) createPermission(ctx context.Context, name, description string) (*Permission, error) {
	in := accessInput{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if _, err := e.store.FindPermissionByName(ctx, in.Name); err == nil {
		return nil, ErrDuplicatePermission
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, e.internalError("find permission", err, zap.String("permission", in.Name))
	}

	now := e.now().UTC()
	perm, err := e.store.CreatePermission(ctx, Permission{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, ErrRecordConflict) {
			return nil, ErrDuplicatePermission
		}
		return nil, e.internalError("create permission", err, zap.String("permission", in.Name))
	}
	return perm, nil
}

// UpdatePermission renames a permission or changes its description.
func (e *Engine) UpdatePermission(ctx context.Context, permissionID string, name, description *string) (*Permission, error) {
	perm, err := e.updatePermission(ctx, permissionID, name, description)
	e.auditAccess(ctx, auditEventPermissionChange, "update", permissionID, err)
	return perm, err
}

func (e *Engine) updatePermission(ctx context.Context, permissionID string, name, description *string) (*Permission, error) {
	current, err := e.findPermission(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	name, description = trimmed(name), trimmed(description)

	in := accessInput{Name: current.Name, Description: current.Description}
	if name != nil {
		in.Name = *name
	}
	if description != nil {
		in.Description = *description
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if name != nil && *name != current.Name {
		if _, err := e.store.FindPermissionByName(ctx, *name); err == nil {
			return nil, ErrDuplicatePermission
		} else if !errors.Is(err, ErrRecordNotFound) {
			return nil, e.internalError("find permission", err, zap.String("permission", *name))
		}
	}

	updated, err := e.store.UpdatePermission(ctx, permissionID, name, description)
	if err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, ErrPermissionNotFound
		case errors.Is(err, ErrRecordConflict):
			return nil, ErrDuplicatePermission
		}
		return nil, e.internalError("update permission", err, zap.String("permission_id", permissionID))
	}
	if name != nil && *name != current.Name {
		e.invalidateAllAuthz(ctx)
	}
	return updated, nil
}

// DeletePermission removes a permission that no role or user holds.
func (e *Engine) DeletePermission(ctx context.Context, permissionID string) error {
	err := e.deletePermission(ctx, permissionID)
	e.auditAccess(ctx, auditEventPermissionChange, "delete", permissionID, err)
	return err
}

func (e *Engine) deletePermission(ctx context.Context, permissionID string) error {
	if _, err := e.findPermission(ctx, permissionID); err != nil {
		return err
	}
	n, err := e.store.CountPermissionGrants(ctx, permissionID)
	if err != nil {
		return e.internalError("count permission grants", err, zap.String("permission_id", permissionID))
	}
	if n > 0 {
		return ErrPermissionInUse
	}
	if err := e.store.DeletePermission(ctx, permissionID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrPermissionNotFound
		}
		return e.internalError("delete permission", err, zap.String("permission_id", permissionID))
	}
	e.invalidateAllAuthz(ctx)
	return nil
}

// ListPermissions returns every permission.
func (e *Engine) ListPermissions(ctx context.Context) ([]Permission, error) {
	perms, err := e.store.ListAllPermissions(ctx)
	if err != nil {
		return nil, e.internalError("list permissions", err)
	}
	return perms, nil
}

func (e *Engine) findPermission(ctx context.Context, permissionID string) (*Permission, error) {
	perm, err := e.store.FindPermissionByID(ctx, permissionID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, e.internalError("find permission", err, zap.String("permission_id", permissionID))
	}
	return perm, nil
}

func (e *Engine) findPermissionByName(ctx context.Context, name string) (*Permission, error) {
	perm, err := e.store.FindPermissionByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, e.internalError("find permission", err, zap.String("permission", name))
	}
	return perm, nil
}

// ---------------- user grants ----------------

// AssignRole gives a user the named role. Assigning a held role is a no-op.
func (e *Engine) AssignRole(ctx context.Context, userID, roleName string) error {
	err := e.editUserRole(ctx, userID, roleName, true)
	e.auditUserGrant(ctx, userID, "assign_role", roleName, err)
	return err
}

// UnassignRole removes the named role from a user.
func (e *Engine) UnassignRole(ctx context.Context, userID, roleName string) error {
	err := e.editUserRole(ctx, userID, roleName, false)
	e.auditUserGrant(ctx, userID, "unassign_role", roleName, err)
	return err
}

func (e *Engine) editUserRole(ctx context.Context, userID, roleName string, assign bool) error {
	if _, err := e.loadUser(ctx, "edit user role", userID); err != nil {
		return err
	}
	role, err := e.findRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if assign {
		err = e.store.AssignUserRole(ctx, userID, role.ID)
	} else {
		err = e.store.RemoveUserRole(ctx, userID, role.ID)
	}
	if err != nil {
		return e.internalError("edit user role", err, zap.String("user_id", userID), zap.String("role", role.Name))
	}
	e.invalidateUserAuthz(ctx, userID)
	return nil
}

// GrantUserPermission grants the named permission directly to a user.
func (e *Engine) GrantUserPermission(ctx context.Context, userID, permissionName string) error {
	err := e.editUserPermission(ctx, userID, permissionName, true)
	e.auditUserGrant(ctx, userID, "grant_permission", permissionName, err)
	return err
}

// RevokeUserPermission removes a direct grant. Role-derived permissions are
// unaffected.
func (e *Engine) RevokeUserPermission(ctx context.Context, userID, permissionName string) error {
	err := e.editUserPermission(ctx, userID, permissionName, false)
	e.auditUserGrant(ctx, userID, "revoke_permission", permissionName, err)
	return err
}

func (e *Engine) editUserPermission(ctx context.Context, userID, permissionName string, grant bool) error {
	if _, err := e.loadUser(ctx, "edit user permission", userID); err != nil {
		return err
	}
	perm, err := e.findPermissionByName(ctx, permissionName)
	if err != nil {
		return err
	}
	if grant {
		err = e.store.GrantUserPermission(ctx, userID, perm.ID)
	} else {
		err = e.store.RevokeUserPermission(ctx, userID, perm.ID)
	}
	if err != nil {
		return e.internalError("edit user permission", err, zap.String("user_id", userID), zap.String("permission", perm.Name))
	}
	e.invalidateUserAuthz(ctx, userID)
	return nil
}

func (e *Engine) auditUserGrant(ctx context.Context, userID, action, subject string, err error) {
	e.emitAudit(ctx, auditEventGrantChange, err == nil, userID, err, func() map[string]string {
		return map[string]string{"action": action, "subject": strings.TrimSpace(subject)}
	})
}

// SeedDefaults creates the ADMIN and USER roles and the base permissions,
// granting every base permission to ADMIN. Existing rows are kept, so it is
// safe to run on every start.
func (e *Engine) SeedDefaults(ctx context.Context) error {
	seed := permission.DefaultSeed()

	ids := make(map[string]string, len(seed.Permissions))
	for name, description := range seed.Permissions {
		perm, err := e.ensurePermission(ctx, name, description)
		if err != nil {
			return err
		}
		ids[name] = perm.ID
	}

	for _, grant := range seed.Roles {
		role, err := e.ensureRole(ctx, grant.Role, grant.Description)
		if err != nil {
			return err
		}
		if len(grant.Permissions) == 0 {
			continue
		}
		permIDs := make([]string, 0, len(grant.Permissions))
		for _, name := range grant.Permissions {
			permIDs = append(permIDs, ids[name])
		}
		if err := e.editRolePermissions(ctx, role.ID, permIDs, true); err != nil {
			return err
		}
	}
	e.logger.Info("authorization catalog seeded",
		zap.Int("roles", len(seed.Roles)),
		zap.Int("permissions", len(seed.Permissions)),
	)
	return nil
}

func (e *Engine) ensureRole(ctx context.Context, name, description string) (*Role, error) {
	role, err := e.store.FindRoleByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, e.internalError("find role", err, zap.String("role", name))
	}
	role, err = e.createRole(ctx, name, description)
	if errors.Is(err, ErrDuplicateRole) {
		return e.findRoleByName(ctx, name)
	}
	return role, err
}

func (e *Engine) ensurePermission(ctx context.Context, name, description string) (*Permission, error) {
	perm, err := e.store.FindPermissionByName(ctx, name)
	if err == nil {
		return perm, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, e.internalError("find permission", err, zap.String("permission", name))
	}
	perm, err = e.createPermission(ctx, name, description)
	if errors.Is(err, ErrDuplicatePermission) {
		return e.findPermissionByName(ctx, name)
	}
	return perm, err
}
