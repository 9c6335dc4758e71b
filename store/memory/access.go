package memory

import (
	"context"
	"sort"

	goIdentity "github.com/MrEthical07/goIdentity"
)

func (s *Store) roleNameTaken(name, exceptID string) bool {
	for id, r := range s.roles {
		if id != exceptID && r.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) permissionNameTaken(name, exceptID string) bool {
	for id, p := range s.permissions {
		if id != exceptID && p.Name == name {
			return true
		}
	}
	return false
}

// CreateRole implements goIdentity.AccessStore.
func (s *Store) CreateRole(_ context.Context, role goIdentity.Role) (*goIdentity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.roles[role.ID]; exists || s.roleNameTaken(role.Name, "") {
		return nil, goIdentity.ErrRecordConflict
	}
	r := role
	s.roles[r.ID] = &r
	out := r
	return &out, nil
}

// FindRoleByID implements goIdentity.AccessStore.
func (s *Store) FindRoleByID(_ context.Context, roleID string) (*goIdentity.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID]
	if !ok {
		return nil, goIdentity.ErrRecordNotFound
	}
	out := *r
	return &out, nil
}

// FindRoleByName implements goIdentity.AccessStore.
func (s *Store) FindRoleByName(_ context.Context, name string) (*goIdentity.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			out := *r
			return &out, nil
		}
	}
	return nil, goIdentity.ErrRecordNotFound
}

// UpdateRole implements goIdentity.AccessStore.
func (s *Store) UpdateRole(_ context.Context, roleID string, name, description *string) (*goIdentity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[roleID]
	if !ok {
		return nil, goIdentity.ErrRecordNotFound
	}
	if name != nil && s.roleNameTaken(*name, roleID) {
		return nil, goIdentity.ErrRecordConflict
	}
	if name != nil {
		r.Name = *name
	}
	if description != nil {
		r.Description = *description
	}
	r.UpdatedAt = s.now().UTC()
	out := *r
	return &out, nil
}

// DeleteRole implements goIdentity.AccessStore. Grants and assignments of
// the role go with it.
func (s *Store) DeleteRole(_ context.Context, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return goIdentity.ErrRecordNotFound
	}
	delete(s.roles, roleID)
	delete(s.rolePermissions, roleID)
	for userID := range s.userRoles {
		removeFrom(s.userRoles, userID, roleID)
	}
	return nil
}

// ListAllRoles implements goIdentity.AccessStore. Roles are ordered by name.
func (s *Store) ListAllRoles(_ context.Context) ([]goIdentity.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]goIdentity.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CountRoleAssignments implements goIdentity.AccessStore. Soft-deleted users
// are not counted.
func (s *Store) CountRoleAssignments(_ context.Context, roleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for userID, roles := range s.userRoles {
		if _, ok := roles[roleID]; !ok {
			continue
		}
		if u, ok := s.users[userID]; ok && !u.Deleted() {
			n++
		}
	}
	return n, nil
}

// ListRolePermissions implements goIdentity.AccessStore.
func (s *Store) ListRolePermissions(_ context.Context, roleID string) ([]goIdentity.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]goIdentity.Permission, 0, len(s.rolePermissions[roleID]))
	for permID := range s.rolePermissions[roleID] {
		if p, ok := s.permissions[permID]; ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AddRolePermissions implements goIdentity.AccessStore.
func (s *Store) AddRolePermissions(_ context.Context, roleID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return goIdentity.ErrRecordNotFound
	}
	for _, id := range permissionIDs {
		if _, ok := s.permissions[id]; !ok {
			return goIdentity.ErrRecordNotFound
		}
	}
	for _, id := range permissionIDs {
		addTo(s.rolePermissions, roleID, id)
	}
	return nil
}

// RemoveRolePermissions implements goIdentity.AccessStore.
func (s *Store) RemoveRolePermissions(_ context.Context, roleID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range permissionIDs {
		removeFrom(s.rolePermissions, roleID, id)
	}
	return nil
}

// CreatePermission implements goIdentity.AccessStore.
func (s *Store) CreatePermission(_ context.Context, perm goIdentity.Permission) (*goIdentity.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.permissions[perm.ID]; exists || s.permissionNameTaken(perm.Name, "") {
		return nil, goIdentity.ErrRecordConflict
	}
	p := perm
	s.permissions[p.ID] = &p
	out := p
	return &out, nil
}

// FindPermissionByID implements goIdentity.AccessStore.
func (s *Store) FindPermissionByID(_ context.Context, permissionID string) (*goIdentity.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permissionID]
	if !ok {
		return nil, goIdentity.ErrRecordNotFound
	}
	out := *p
	return &out, nil
}

// FindPermissionByName implements goIdentity.AccessStore.
func (s *Store) FindPermissionByName(_ context.Context, name string) (*goIdentity.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.Name == name {
			out := *p
			return &out, nil
		}
	}
	return nil, goIdentity.ErrRecordNotFound
}

// UpdatePermission implements goIdentity.AccessStore.
func (s *Store) UpdatePermission(_ context.Context, permissionID string, name, description *string) (*goIdentity.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.permissions[permissionID]
	if !ok {
		return nil, goIdentity.ErrRecordNotFound
	}
	if name != nil && s.permissionNameTaken(*name, permissionID) {
		return nil, goIdentity.ErrRecordConflict
	}
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = *description
	}
	p.UpdatedAt = s.now().UTC()
	out := *p
	return &out, nil
}

// DeletePermission implements goIdentity.AccessStore.
func (s *Store) DeletePermission(_ context.Context, permissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[permissionID]; !ok {
		return goIdentity.ErrRecordNotFound
	}
	delete(s.permissions, permissionID)
	for roleID := range s.rolePermissions {
		removeFrom(s.rolePermissions, roleID, permissionID)
	}
	for userID := range s.userPermissions {
		removeFrom(s.userPermissions, userID, permissionID)
	}
	return nil
}

// ListAllPermissions implements goIdentity.AccessStore. Permissions are
// ordered by name.
func (s *Store) ListAllPermissions(_ context.Context) ([]goIdentity.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]goIdentity.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CountPermissionGrants implements goIdentity.AccessStore. Role and direct
// user grants both count.
func (s *Store) CountPermissionGrants(_ context.Context, permissionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, perms := range s.rolePermissions {
		if _, ok := perms[permissionID]; ok {
			n++
		}
	}
	for userID, perms := range s.userPermissions {
		if _, ok := perms[permissionID]; !ok {
			continue
		}
		if u, ok := s.users[userID]; ok && !u.Deleted() {
			n++
		}
	}
	return n, nil
}

// AssignUserRole implements goIdentity.AccessStore.
func (s *Store) AssignUserRole(_ context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return goIdentity.ErrRecordNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return goIdentity.ErrRecordNotFound
	}
	addTo(s.userRoles, userID, roleID)
	return nil
}

// RemoveUserRole implements goIdentity.AccessStore.
func (s *Store) RemoveUserRole(_ context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removeFrom(s.userRoles, userID, roleID)
	return nil
}

// GrantUserPermission implements goIdentity.AccessStore.
func (s *Store) GrantUserPermission(_ context.Context, userID, permissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return goIdentity.ErrRecordNotFound
	}
	if _, ok := s.permissions[permissionID]; !ok {
		return goIdentity.ErrRecordNotFound
	}
	addTo(s.userPermissions, userID, permissionID)
	return nil
}

// RevokeUserPermission implements goIdentity.AccessStore.
func (s *Store) RevokeUserPermission(_ context.Context, userID, permissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removeFrom(s.userPermissions, userID, permissionID)
	return nil
}
