package postgres

import (
	"context"
	"errors"
	"fmt"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/jackc/pgx/v5"
)

// Roles and permissions share a column layout.
const catalogColumns = `id, name, description, created_at, updated_at`

func scanRole(row pgx.Row) (*goIdentity.Role, error) {
	var r goIdentity.Role
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goIdentity.ErrRecordNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &r, nil
}

func scanPermission(row pgx.Row) (*goIdentity.Permission, error) {
	var p goIdentity.Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goIdentity.ErrRecordNotFound
		}
		return nil, fmt.Errorf("scan permission: %w", err)
	}
	return &p, nil
}

// ---------------- roles ----------------

// CreateRole implements goIdentity.AccessStore.
func (s *Store) CreateRole(ctx context.Context, role goIdentity.Role) (*goIdentity.Role, error) {
	query := `
		INSERT INTO roles (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + catalogColumns

	r, err := scanRole(s.db.QueryRow(ctx, query, role.ID, role.Name, role.Description, role.CreatedAt, role.UpdatedAt))
	if err != nil {
		return nil, mapWriteError("insert role", err)
	}
	return r, nil
}

// FindRoleByID implements goIdentity.AccessStore.
func (s *Store) FindRoleByID(ctx context.Context, roleID string) (*goIdentity.Role, error) {
	return scanRole(s.db.QueryRow(ctx, `SELECT `+catalogColumns+` FROM roles WHERE id = $1`, roleID))
}

// FindRoleByName implements goIdentity.AccessStore.
func (s *Store) FindRoleByName(ctx context.Context, name string) (*goIdentity.Role, error) {
	return scanRole(s.db.QueryRow(ctx, `SELECT `+catalogColumns+` FROM roles WHERE name = $1`, name))
}

// UpdateRole implements goIdentity.AccessStore.
func (s *Store) UpdateRole(ctx context.Context, roleID string, name, description *string) (*goIdentity.Role, error) {
	query := `
		UPDATE roles
		SET name = COALESCE($1, name), description = COALESCE($2, description), updated_at = $3
		WHERE id = $4
		RETURNING ` + catalogColumns

	r, err := scanRole(s.db.QueryRow(ctx, query, name, description, s.now().UTC(), roleID))
	if err != nil {
		return nil, mapWriteError("update role", err)
	}
	return r, nil
}

// DeleteRole implements goIdentity.AccessStore.
func (s *Store) DeleteRole(ctx context.Context, roleID string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, roleID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return goIdentity.ErrRecordNotFound
	}
	return nil
}

// ListAllRoles implements goIdentity.AccessStore.
func (s *Store) ListAllRoles(ctx context.Context) ([]goIdentity.Role, error) {
	rows, err := s.db.Query(ctx, `SELECT `+catalogColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, pgx.RowToStructByPos[goIdentity.Role])
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// CountRoleAssignments implements goIdentity.AccessStore. Soft-deleted
// users are not counted.
func (s *Store) CountRoleAssignments(ctx context.Context, roleID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		WHERE ur.role_id = $1 AND u.deleted_at IS NULL`, roleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count role assignments: %w", err)
	}
	return n, nil
}

// ListRolePermissions implements goIdentity.AccessStore.
func (s *Store) ListRolePermissions(ctx context.Context, roleID string) ([]goIdentity.Permission, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	perms, err := pgx.CollectRows(rows, pgx.RowToStructByPos[goIdentity.Permission])
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return perms, nil
}

// AddRolePermissions implements goIdentity.AccessStore.
func (s *Store) AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING`, roleID, permissionIDs)
	if err != nil {
		return fmt.Errorf("add role permissions: %w", err)
	}
	return nil
}

// RemoveRolePermissions implements goIdentity.AccessStore.
func (s *Store) RemoveRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = ANY($2)`, roleID, permissionIDs)
	if err != nil {
		return fmt.Errorf("remove role permissions: %w", err)
	}
	return nil
}

// ---------------- permissions ----------------

// CreatePermission implements goIdentity.AccessStore.
func (s *Store) CreatePermission(ctx context.Context, perm goIdentity.Permission) (*goIdentity.Permission, error) {
	query := `
		INSERT INTO permissions (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + catalogColumns

	p, err := scanPermission(s.db.QueryRow(ctx, query, perm.ID, perm.Name, perm.Description, perm.CreatedAt, perm.UpdatedAt))
	if err != nil {
		return nil, mapWriteError("insert permission", err)
	}
	return p, nil
}

// FindPermissionByID implements goIdentity.AccessStore.
func (s *Store) FindPermissionByID(ctx context.Context, permissionID string) (*goIdentity.Permission, error) {
	return scanPermission(s.db.QueryRow(ctx, `SELECT `+catalogColumns+` FROM permissions WHERE id = $1`, permissionID))
}

// FindPermissionByName implements goIdentity.AccessStore.
func (s *Store) FindPermissionByName(ctx context.Context, name string) (*goIdentity.Permission, error) {
	return scanPermission(s.db.QueryRow(ctx, `SELECT `+catalogColumns+` FROM permissions WHERE name = $1`, name))
}

// UpdatePermission implements goIdentity.AccessStore.
func (s *Store) UpdatePermission(ctx context.Context, permissionID string, name, description *string) (*goIdentity.Permission, error) {
	query := `
		UPDATE permissions
		SET name = COALESCE($1, name), description = COALESCE($2, description), updated_at = $3
		WHERE id = $4
		RETURNING ` + catalogColumns

	p, err := scanPermission(s.db.QueryRow(ctx, query, name, description, s.now().UTC(), permissionID))
	if err != nil {
		return nil, mapWriteError("update permission", err)
	}
	return p, nil
}

// DeletePermission implements goIdentity.AccessStore.
func (s *Store) DeletePermission(ctx context.Context, permissionID string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, permissionID)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return goIdentity.ErrRecordNotFound
	}
	return nil
}

// ListAllPermissions implements goIdentity.AccessStore.
func (s *Store) ListAllPermissions(ctx context.Context) ([]goIdentity.Permission, error) {
	rows, err := s.db.Query(ctx, `SELECT `+catalogColumns+` FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	perms, err := pgx.CollectRows(rows, pgx.RowToStructByPos[goIdentity.Permission])
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// CountPermissionGrants implements goIdentity.AccessStore. Direct grants
// of soft-deleted users are not counted.
func (s *Store) CountPermissionGrants(ctx context.Context, permissionID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1)
		     + (SELECT COUNT(*)
		        FROM user_permissions up
		        JOIN users u ON u.id = up.user_id
		        WHERE up.permission_id = $1 AND u.deleted_at IS NULL)`, permissionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count permission grants: %w", err)
	}
	return n, nil
}

// ---------------- user grants ----------------

func (s *Store) execGrant(ctx context.Context, op, query string, args ...any) error {
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return goIdentity.ErrRecordNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AssignUserRole implements goIdentity.AccessStore.
func (s *Store) AssignUserRole(ctx context.Context, userID, roleID string) error {
	return s.execGrant(ctx, "assign user role",
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
}

// RemoveUserRole implements goIdentity.AccessStore.
func (s *Store) RemoveUserRole(ctx context.Context, userID, roleID string) error {
	return s.execGrant(ctx, "remove user role",
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
}

// GrantUserPermission implements goIdentity.AccessStore.
func (s *Store) GrantUserPermission(ctx context.Context, userID, permissionID string) error {
	return s.execGrant(ctx, "grant user permission",
		`INSERT INTO user_permissions (user_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, permissionID)
}

// RevokeUserPermission implements goIdentity.AccessStore.
func (s *Store) RevokeUserPermission(ctx context.Context, userID, permissionID string) error {
	return s.execGrant(ctx, "revoke user permission",
		`DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
}
