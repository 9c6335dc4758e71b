package totp

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

// Config controls secret generation and code validation.
type Config struct {
	Issuer     string
	Period     uint
	Digits     int
	Skew       uint
	SecretSize uint
	QRSize     int
}

// DefaultConfig returns RFC 6238 defaults: 30s steps, 6 digits, SHA1,
// one step of drift in each direction.
func DefaultConfig() Config {
	return Config{
		Issuer:     "goIdentity",
		Period:     30,
		Digits:     6,
		Skew:       1,
		SecretSize: 20,
		QRSize:     200,
	}
}

// Key is a freshly generated shared secret.
type Key struct {
	Secret string
	URI    string
	QRCode string
}

// Authenticator generates and validates TOTP secrets.
type Authenticator struct {
	config Config
}

// New validates cfg and returns an Authenticator.
func New(cfg Config) (*Authenticator, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("totp issuer must be set")
	}
	if cfg.Period == 0 {
		return nil, errors.New("totp period must be > 0")
	}
	if cfg.Digits != 6 && cfg.Digits != 8 {
		return nil, errors.New("totp digits must be 6 or 8")
	}
	if cfg.Skew > 3 {
		return nil, errors.New("totp skew must be <= 3")
	}
	if cfg.SecretSize == 0 {
		cfg.SecretSize = 20
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = 200
	}
	return &Authenticator{config: cfg}, nil
}

// Generate creates a new base32 secret labelled "<issuer>:<account>" and
// renders its otpauth URI as a PNG data URL.
func (a *Authenticator) Generate(account string) (*Key, error) {
	if account == "" {
		return nil, errors.New("totp account name must be set")
	}
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      a.config.Issuer,
		AccountName: account,
		Period:      a.config.Period,
		SecretSize:  a.config.SecretSize,
		Digits:      otp.Digits(a.config.Digits),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(a.config.QRSize, a.config.QRSize)
	if err != nil {
		return nil, fmt.Errorf("render totp qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode totp qr code: %w", err)
	}

	return &Key{
		Secret: key.Secret(),
		URI:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate reports whether code is valid for secret at time at, allowing the
// configured number of steps of drift. It keeps no state between calls.
// A malformed code is (false, nil); a malformed secret is an error.
func (a *Authenticator) Validate(secret, code string, at time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != a.config.Digits {
		return false, nil
	}
	ok, err := pqtotp.ValidateCustom(code, secret, at.UTC(), a.validateOpts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("validate totp code: %w", err)
	}
	return ok, nil
}

// Code returns the code for secret at time at. It is used by tests and by
// tooling that simulates an authenticator app.
func (a *Authenticator) Code(secret string, at time.Time) (string, error) {
	return pqtotp.GenerateCodeCustom(secret, at.UTC(), a.validateOpts())
}

// Period returns the step length.
func (a *Authenticator) Period() time.Duration {
	return time.Duration(a.config.Period) * time.Second
}

func (a *Authenticator) validateOpts() pqtotp.ValidateOpts {
	return pqtotp.ValidateOpts{
		Period:    a.config.Period,
		Skew:      a.config.Skew,
		Digits:    otp.Digits(a.config.Digits),
		Algorithm: otp.AlgorithmSHA1,
	}
}
