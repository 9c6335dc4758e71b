// Package memory is an in-process goIdentity.Store for tests, examples and
// single-node tools. All data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
)

type idSet map[string]struct{}

// Store keeps users, roles, permissions and their associations in maps
// guarded by one RWMutex. Returned records are copies.
type Store struct {
	mu sync.RWMutex

	users       map[string]*goIdentity.User
	roles       map[string]*goIdentity.Role
	permissions map[string]*goIdentity.Permission

	userRoles       map[string]idSet // user id -> role ids
	userPermissions map[string]idSet // user id -> permission ids
	rolePermissions map[string]idSet // role id -> permission ids

	now func() time.Time
}

var _ goIdentity.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:           map[string]*goIdentity.User{},
		roles:           map[string]*goIdentity.Role{},
		permissions:     map[string]*goIdentity.Permission{},
		userRoles:       map[string]idSet{},
		userPermissions: map[string]idSet{},
		rolePermissions: map[string]idSet{},
		now:             time.Now,
	}
}

func copyUser(u *goIdentity.User) *goIdentity.User {
	c := *u
	if u.DeletedAt != nil {
		deletedAt := *u.DeletedAt
		c.DeletedAt = &deletedAt
	}
	return &c
}

func (s *Store) findUser(match func(*goIdentity.User) bool) (*goIdentity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, goIdentity.ErrRecordNotFound
}

// FindUserByID implements goIdentity.CredentialStore.
func (s *Store) FindUserByID(_ context.Context, userID string) (*goIdentity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, goIdentity.ErrRecordNotFound
	}
	return copyUser(u), nil
}

// FindUserByEmail implements goIdentity.CredentialStore.
func (s *Store) FindUserByEmail(_ context.Context, email string) (*goIdentity.User, error) {
	if email == "" {
		return nil, goIdentity.ErrRecordNotFound
	}
	return s.findUser(func(u *goIdentity.User) bool { return u.Email == email })
}

// FindUserByPhone implements goIdentity.CredentialStore.
func (s *Store) FindUserByPhone(_ context.Context, phone string) (*goIdentity.User, error) {
	if phone == "" {
		return nil, goIdentity.ErrRecordNotFound
	}
	return s.findUser(func(u *goIdentity.User) bool { return u.Phone == phone })
}

// FindUserByProvider implements goIdentity.CredentialStore.
func (s *Store) FindUserByProvider(_ context.Context, provider, providerID string) (*goIdentity.User, error) {
	if providerID == "" {
		return nil, goIdentity.ErrRecordNotFound
	}
	return s.findUser(func(u *goIdentity.User) bool {
		return u.Provider == provider && u.ProviderID == providerID
	})
}

// FindUserByResetToken implements goIdentity.CredentialStore.
func (s *Store) FindUserByResetToken(_ context.Context, tokenHash string) (*goIdentity.User, error) {
	if tokenHash == "" {
		return nil, goIdentity.ErrRecordNotFound
	}
	return s.findUser(func(u *goIdentity.User) bool { return u.ResetTokenHash == tokenHash })
}

// uniqueViolation reports whether candidate collides with another user on
// email, phone or provider identity. Caller holds the lock.
func (s *Store) uniqueViolation(candidate *goIdentity.User) bool {
	for id, u := range s.users {
		if id == candidate.ID {
			continue
		}
		switch {
		case candidate.Email != "" && u.Email == candidate.Email:
			return true
		case candidate.Phone != "" && u.Phone == candidate.Phone:
			return true
		case candidate.ProviderID != "" && u.Provider == candidate.Provider && u.ProviderID == candidate.ProviderID:
			return true
		}
	}
	return false
}

// CreateUser implements goIdentity.CredentialStore.
func (s *Store) CreateUser(_ context.Context, in goIdentity.NewUser) (*goIdentity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[in.ID]; exists {
		return nil, goIdentity.ErrRecordConflict
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	u := &goIdentity.User{
		ID:            in.ID,
		Email:         in.Email,
		Phone:         in.Phone,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		PasswordHash:  in.PasswordHash,
		Active:        in.Active,
		EmailVerified: in.EmailVerified,
		Provider:      in.Provider,
		ProviderID:    in.ProviderID,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if s.uniqueViolation(u) {
		return nil, goIdentity.ErrRecordConflict
	}
	s.users[u.ID] = u
	return copyUser(u), nil
}

// UpdateUser implements goIdentity.CredentialStore. Guards and unique
// constraints are checked before anything is written.
func (s *Store) UpdateUser(_ context.Context, userID string, upd goIdentity.UserUpdate) (*goIdentity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[userID]
	if !ok {
		return nil, goIdentity.ErrRecordNotFound
	}
	if !upd.GuardsHold(current) {
		return nil, goIdentity.ErrRecordStale
	}

	next := copyUser(current)
	upd.Apply(next)
	if s.uniqueViolation(next) {
		return nil, goIdentity.ErrRecordConflict
	}
	next.UpdatedAt = s.now().UTC()
	s.users[userID] = next
	return copyUser(next), nil
}

// ListUserRoles implements goIdentity.CredentialStore.
func (s *Store) ListUserRoles(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.userRoles[userID]))
	for roleID := range s.userRoles[userID] {
		if r, ok := s.roles[roleID]; ok {
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListEffectivePermissions implements goIdentity.CredentialStore.
func (s *Store) ListEffectivePermissions(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := idSet{}
	for permID := range s.userPermissions[userID] {
		ids[permID] = struct{}{}
	}
	for roleID := range s.userRoles[userID] {
		for permID := range s.rolePermissions[roleID] {
			ids[permID] = struct{}{}
		}
	}

	names := make([]string, 0, len(ids))
	for permID := range ids {
		if p, ok := s.permissions[permID]; ok {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func addTo(m map[string]idSet, key, value string) {
	set, ok := m[key]
	if !ok {
		set = idSet{}
		m[key] = set
	}
	set[value] = struct{}{}
}

func removeFrom(m map[string]idSet, key, value string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(m, key)
	}
}
