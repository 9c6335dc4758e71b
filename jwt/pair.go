package jwt

import (
	"bytes"
	"errors"
)

// ErrSharedSecret is returned when access and refresh tokens would be signed with the same key.
var ErrSharedSecret = errors.New("access and refresh tokens must use distinct keys")

// TokenService issues access/refresh pairs from two Managers with distinct keys.
type TokenService struct {
	access  *Manager
	refresh *Manager
}

// NewTokenService builds both managers. It rejects configurations where the
// refresh key equals the access key, so leaking one does not expose the other.
func NewTokenService(access, refresh Config) (*TokenService, error) {
	if len(access.PrivateKey) > 0 && bytes.Equal(access.PrivateKey, refresh.PrivateKey) {
		return nil, ErrSharedSecret
	}
	if len(access.PublicKey) > 0 && bytes.Equal(access.PublicKey, refresh.PublicKey) {
		return nil, ErrSharedSecret
	}

	accessManager, err := NewManager(access)
	if err != nil {
		return nil, errors.Join(errors.New("access token config"), err)
	}
	refreshManager, err := NewManager(refresh)
	if err != nil {
		return nil, errors.Join(errors.New("refresh token config"), err)
	}

	return &TokenService{access: accessManager, refresh: refreshManager}, nil
}

// Issue signs a fresh pair for the payload.
func (s *TokenService) Issue(uid string, email *string, roles []string) (string, string, error) {
	access, err := s.access.Issue(uid, email, roles)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.refresh.Issue(uid, email, roles)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseAccess verifies an access token.
func (s *TokenService) ParseAccess(token string) (*Claims, error) {
	return s.access.Parse(token)
}

// ParseRefresh verifies a refresh token.
func (s *TokenService) ParseRefresh(token string) (*Claims, error) {
	return s.refresh.Parse(token)
}
