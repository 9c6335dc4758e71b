package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"reflect"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func hsConfig(secret string) Config {
	return Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte(secret), Issuer: "goidentity"}
}

func TestIssueParseRoundTrip(t *testing.T) {
	m, err := NewManager(hsConfig("access-secret-access-secret"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	email := "a@x.com"
	token, err := m.Issue("u1", &email, []string{"USER", "ADMIN"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "u1" {
		t.Fatalf("expected uid u1, got %q", claims.UID)
	}
	if claims.Email == nil || *claims.Email != email {
		t.Fatalf("expected email %q, got %v", email, claims.Email)
	}
	if !reflect.DeepEqual(claims.Roles, []string{"USER", "ADMIN"}) {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestIssueNullEmail(t *testing.T) {
	m, err := NewManager(hsConfig("access-secret-access-secret"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.Issue("u1", nil, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email != nil {
		t.Fatalf("expected null email, got %q", *claims.Email)
	}
	if claims.Roles == nil || len(claims.Roles) != 0 {
		t.Fatalf("expected empty roles, got %v", claims.Roles)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	now := time.Now()
	cfg := hsConfig("access-secret-access-secret")
	cfg.Now = func() time.Time { return now }
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.Issue("u1", nil, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(time.Hour + time.Second)
	if _, err := m.Parse(token); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParseRejectsTamperedSignature(t *testing.T) {
	m, err := NewManager(hsConfig("access-secret-access-secret"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	other, err := NewManager(hsConfig("another-secret-another-secret"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := other.Issue("u1", nil, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected token signed with another key to fail")
	}
	if _, err := m.Parse(token + "x"); err == nil {
		t.Fatal("expected modified token to fail")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseIssuerAndAudience(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "goidentity",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Issue("u1", nil, []string{"USER"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	wrongIssuer := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	badIssuer, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongIssuer).SignedString(priv)
	if _, err := m.Parse(badIssuer); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	wrongAudience := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goidentity",
		Audience:  gjwt.ClaimStrings{"other-api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	badAudience, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongAudience).SignedString(priv)
	if _, err := m.Parse(badAudience); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
}

func TestParseRejectsMissingExpiry(t *testing.T) {
	m, err := NewManager(hsConfig("access-secret-access-secret"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	claims := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{Issuer: "goidentity"}}
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("access-secret-access-secret"))
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestKeyRotationWithVerifyKeys(t *testing.T) {
	pubOld, privOld := newEdKeys(t)
	pubNew, privNew := newEdKeys(t)

	oldSigner, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: privOld, PublicKey: pubOld, KeyID: "k-old"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	verifier, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    privNew,
		KeyID:         "k-new",
		VerifyKeys:    map[string][]byte{"k-old": pubOld, "k-new": pubNew},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	oldToken, err := oldSigner.Issue("u1", nil, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Parse(oldToken); err != nil {
		t.Fatalf("expected token signed with retired key to verify: %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := map[string]Config{
		"zero ttl":      {SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		"no secret":     {TTL: time.Minute, SigningMethod: MethodHS256},
		"big leeway":    {TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
		"unknown alg":   {TTL: time.Minute, SigningMethod: "rs512", PrivateKey: []byte("k")},
		"ed no pubkeys": {TTL: time.Minute, SigningMethod: MethodEd25519},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
