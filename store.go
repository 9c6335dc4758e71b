package goIdentity

import "context"

// CredentialStore is the user repository consumed by the Engine.
//
// Lookups return ErrRecordNotFound when no row matches. UpdateUser applies
// the whole UserUpdate as one atomic write and returns the updated row; it
// returns ErrRecordStale when a guard does not hold and ErrRecordConflict
// when a unique constraint rejects the write.
type CredentialStore interface {
	FindUserByID(ctx context.Context, userID string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByPhone(ctx context.Context, phone string) (*User, error)
	FindUserByProvider(ctx context.Context, provider, providerID string) (*User, error)
	FindUserByResetToken(ctx context.Context, tokenHash string) (*User, error)
	CreateUser(ctx context.Context, input NewUser) (*User, error)
	UpdateUser(ctx context.Context, userID string, update UserUpdate) (*User, error)
	ListEffectivePermissions(ctx context.Context, userID string) ([]string, error)
	ListUserRoles(ctx context.Context, userID string) ([]string, error)
}

// AccessStore is the role and permission repository consumed by the
// administration operations. Association inserts are idempotent.
type AccessStore interface {
	CreateRole(ctx context.Context, role Role) (*Role, error)
	FindRoleByID(ctx context.Context, roleID string) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	UpdateRole(ctx context.Context, roleID string, name, description *string) (*Role, error)
	DeleteRole(ctx context.Context, roleID string) error
	ListAllRoles(ctx context.Context) ([]Role, error)
	// CountRoleAssignments counts users holding the role, skipping soft-deleted ones.
	CountRoleAssignments(ctx context.Context, roleID string) (int, error)
	ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error)
	AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	RemoveRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error

	CreatePermission(ctx context.Context, permission Permission) (*Permission, error)
	FindPermissionByID(ctx context.Context, permissionID string) (*Permission, error)
	FindPermissionByName(ctx context.Context, name string) (*Permission, error)
	UpdatePermission(ctx context.Context, permissionID string, name, description *string) (*Permission, error)
	DeletePermission(ctx context.Context, permissionID string) error
	ListAllPermissions(ctx context.Context) ([]Permission, error)
	// CountPermissionGrants counts role grants plus direct grants to users
	// that are not soft-deleted.
	CountPermissionGrants(ctx context.Context, permissionID string) (int, error)

	AssignUserRole(ctx context.Context, userID, roleID string) error
	RemoveUserRole(ctx context.Context, userID, roleID string) error
	GrantUserPermission(ctx context.Context, userID, permissionID string) error
	RevokeUserPermission(ctx context.Context, userID, permissionID string) error
}

// Store is the full repository the Engine is built with.
type Store interface {
	CredentialStore
	AccessStore
}

// NotificationSender delivers codes to users. The Engine calls it from a
// background dispatcher; errors are logged and never reach the caller.
type NotificationSender interface {
	SendCode(ctx context.Context, n Notification) error
}

// IdentityVerifier turns a provider credential (an ID token, an OAuth access
// token) into a verified profile. Verifiers are registered per method name
// with Builder.WithIdentityVerifier.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, credential string) (FederatedProfile, error)
}
