package flows

import (
	"context"
	"errors"
	"testing"
)

func loginDeps(acct Account) (LoginDeps, *[]string) {
	var persisted []string
	return LoginDeps{
		FindAccount: accounts(acct),
		NotFound:    errNotFound,
		VerifyPassword: func(p, h string) (bool, error) {
			return "hash:"+p == h, nil
		},
		NeedsRehash:  func(h string) bool { return h == "hash:legacy-pass" },
		HashPassword: func(p string) (string, error) { return "argon:" + p, nil },
		Session:      testSession(),
		PersistLogin: func(_ context.Context, _, refreshHash, passwordHash string) error {
			persisted = append(persisted, refreshHash+"|"+passwordHash)
			return nil
		},
	}, &persisted
}

func TestRunLoginSuccess(t *testing.T) {
	acct := Account{UserID: "u1", Email: "a@x.com", PasswordHash: "hash:pw", Active: true}
	deps, persisted := loginDeps(acct)

	res := RunLogin(context.Background(), "a@x.com", "pw", deps)
	if res.Failure != LoginFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected tokens")
	}
	if len(*persisted) != 1 || (*persisted)[0] != "h("+res.RefreshToken+")|" {
		t.Fatalf("unexpected persisted writes %v", *persisted)
	}
}

func TestRunLoginFailureKinds(t *testing.T) {
	cases := []struct {
		name string
		acct Account
		id   string
		pw   string
		want LoginFailureKind
	}{
		{"unknown", Account{UserID: "u1", Email: "a@x.com"}, "b@x.com", "pw", LoginFailureUnknownAccount},
		{"no password", Account{UserID: "u1", Email: "a@x.com", Active: true}, "a@x.com", "pw", LoginFailureNoPassword},
		{"mismatch", Account{UserID: "u1", Email: "a@x.com", PasswordHash: "hash:pw", Active: true}, "a@x.com", "nope", LoginFailurePasswordMismatch},
		{"inactive", Account{UserID: "u1", Email: "a@x.com", PasswordHash: "hash:pw"}, "a@x.com", "pw", LoginFailureDisabled},
		{"deleted", Account{UserID: "u1", Email: "a@x.com", PasswordHash: "hash:pw", Active: true, Deleted: true}, "a@x.com", "pw", LoginFailureDisabled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps, persisted := loginDeps(tc.acct)
			res := RunLogin(context.Background(), tc.id, tc.pw, deps)
			if res.Failure != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, res.Failure)
			}
			if len(*persisted) != 0 {
				t.Fatal("failed login must not persist")
			}
		})
	}
}

func TestRunLoginLookupErrorIsInfrastructure(t *testing.T) {
	deps, _ := loginDeps(Account{})
	boom := errors.New("db down")
	deps.FindAccount = func(context.Context, string) (Account, error) { return Account{}, boom }

	res := RunLogin(context.Background(), "a@x.com", "pw", deps)
	if res.Failure != LoginFailureLookup || !errors.Is(res.Err, boom) {
		t.Fatalf("expected lookup failure, got %v %v", res.Failure, res.Err)
	}
}

func TestRunLoginRequireVerified(t *testing.T) {
	acct := Account{UserID: "u1", Email: "a@x.com", PasswordHash: "hash:pw", Active: true}
	deps, _ := loginDeps(acct)
	deps.RequireVerified = true

	if res := RunLogin(context.Background(), "a@x.com", "pw", deps); res.Failure != LoginFailureUnverified {
		t.Fatalf("expected unverified, got %v", res.Failure)
	}
}

func TestRunLoginTwoFactorMarker(t *testing.T) {
	acct := Account{UserID: "u1", Email: "a@x.com", PasswordHash: "hash:pw", Active: true, TwoFactorEnabled: true, TwoFactorSecret: "S"}
	deps, persisted := loginDeps(acct)

	res := RunLogin(context.Background(), "a@x.com", "pw", deps)
	if !res.RequiresTwoFactor || res.UserID != "u1" {
		t.Fatalf("expected two-factor marker, got %+v", res)
	}
	if res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatal("marker must not carry tokens")
	}
	if len(*persisted) != 0 {
		t.Fatal("marker must not persist a refresh hash")
	}
}

func TestRunLoginUpgradesLegacyHash(t *testing.T) {
	acct := Account{UserID: "u1", Email: "a@x.com", PasswordHash: "hash:legacy-pass", Active: true}
	deps, persisted := loginDeps(acct)
	deps.UpgradeHashes = true

	res := RunLogin(context.Background(), "a@x.com", "legacy-pass", deps)
	if res.Failure != LoginFailureNone || !res.PasswordUpgraded {
		t.Fatalf("expected upgraded login, got %+v", res)
	}
	if got := (*persisted)[0]; got != "h("+res.RefreshToken+")|argon:legacy-pass" {
		t.Fatalf("unexpected persisted write %q", got)
	}
}
