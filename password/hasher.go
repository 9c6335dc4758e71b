package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces Argon2id hashes and verifies both Argon2id and legacy
// bcrypt hashes, so accounts imported from a bcrypt store keep working and
// are upgraded on their next successful login.
type Hasher struct {
	argon *Argon2
}

// NewHasher builds a Hasher around the Argon2id configuration.
func NewHasher(cfg Config) (*Hasher, error) {
	argon, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: argon}, nil
}

// Hash returns a new Argon2id PHC string.
func (h *Hasher) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

// Verify checks password against an Argon2id or bcrypt hash.
// A mismatch is (false, nil); an unreadable hash is an error.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, errors.Join(ErrInvalidHash, err)
		}
		return true, nil
	}
	return h.argon.Verify(password, encodedHash)
}

// NeedsRehash reports whether encodedHash should be replaced after a
// successful verification: every bcrypt hash does, and Argon2id hashes do
// when their parameters are below the current configuration.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return true
	}
	upgrade, err := h.argon.NeedsUpgrade(encodedHash)
	return err == nil && upgrade
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}
