package permission

// Names of the permissions every deployment starts with.
const (
	CreateUser        = "CREATE_USER"
	UpdateUser        = "UPDATE_USER"
	DeleteUser        = "DELETE_USER"
	ManageRoles       = "MANAGE_ROLES"
	ManagePermissions = "MANAGE_PERMISSIONS"
)

// Grant is one seeded role with the permissions it receives.
type Grant struct {
	Role        string
	Description string
	Permissions []string
}

// Seed describes the initial authorization catalog.
type Seed struct {
	Permissions map[string]string
	Roles       []Grant
}

// DefaultSeed returns the ADMIN and USER system roles and the base
// permission set, all granted to ADMIN.
func DefaultSeed() Seed {
	return Seed{
		Permissions: map[string]string{
			CreateUser:        "Create users",
			UpdateUser:        "Update users",
			DeleteUser:        "Delete users",
			ManageRoles:       "Manage roles",
			ManagePermissions: "Manage permissions",
		},
		Roles: []Grant{
			{
				Role:        "ADMIN",
				Description: "Administrator",
				Permissions: []string{CreateUser, UpdateUser, DeleteUser, ManageRoles, ManagePermissions},
			},
			{
				Role:        "USER",
				Description: "Standard user",
			},
		},
	}
}
