package flows

import (
	"context"
	"testing"
)

type federatedFixture struct {
	users   map[string]Account
	created int
	deps    FederatedDeps
}

func newFederatedFixture(existing ...Account) *federatedFixture {
	f := &federatedFixture{users: map[string]Account{}}
	for _, a := range existing {
		f.users[a.UserID] = a
	}
	f.deps = FederatedDeps{
		FindByEmail: func(_ context.Context, email string) (Account, error) {
			for _, a := range f.users {
				if a.Email == email {
					return a, nil
				}
			}
			return Account{}, errNotFound
		},
		FindByProvider: func(_ context.Context, provider, id string) (Account, error) {
			for _, a := range f.users {
				if a.Provider == provider && a.ProviderID == id {
					return a, nil
				}
			}
			return Account{}, errNotFound
		},
		NotFound: errNotFound,
		Create: func(_ context.Context, p FederatedProfile) (Account, error) {
			f.created++
			a := Account{UserID: "new", Email: p.Email, Provider: p.Provider, ProviderID: p.ProviderID, Active: true, Verified: true}
			f.users[a.UserID] = a
			return a, nil
		},
		Relink: func(_ context.Context, id string, p FederatedProfile) (Account, error) {
			a := f.users[id]
			a.Provider, a.ProviderID, a.Verified = p.Provider, p.ProviderID, true
			f.users[id] = a
			return a, nil
		},
		PersistRefresh: func(context.Context, string, string) error { return nil },
		Session:        testSession(),
	}
	return f
}

func TestLinkFederatedCreatesAccount(t *testing.T) {
	f := newFederatedFixture()
	res := RunLinkFederated(context.Background(), FederatedProfile{Provider: "google", ProviderID: "g1", Email: "a@x.com"}, f.deps)
	if res.Failure != FederatedFailureNone || !res.Created || res.AccessToken == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	again := RunLinkFederated(context.Background(), FederatedProfile{Provider: "google", ProviderID: "g1", Email: "a@x.com"}, f.deps)
	if again.Created || again.Relinked || f.created != 1 {
		t.Fatalf("second login must reuse the account, got %+v", again)
	}
}

func TestLinkFederatedRelinksByEmail(t *testing.T) {
	f := newFederatedFixture(Account{UserID: "u1", Email: "a@x.com", Provider: "local", PasswordHash: "h", Active: true})
	res := RunLinkFederated(context.Background(), FederatedProfile{Provider: "github", ProviderID: "42", Email: "a@x.com"}, f.deps)
	if res.Failure != FederatedFailureNone || !res.Relinked || res.UserID != "u1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.users["u1"].Provider != "github" || !f.users["u1"].Verified {
		t.Fatalf("expected relinked account, got %+v", f.users["u1"])
	}
}

func TestLinkFederatedFindsByProviderWhenEmailChanged(t *testing.T) {
	f := newFederatedFixture(Account{UserID: "u1", Email: "old@x.com", Provider: "github", ProviderID: "42", Active: true})
	res := RunLinkFederated(context.Background(), FederatedProfile{Provider: "github", ProviderID: "42", Email: "new@x.com"}, f.deps)
	if res.Failure != FederatedFailureNone || res.UserID != "u1" || res.Created {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLinkFederatedRejects(t *testing.T) {
	f := newFederatedFixture(Account{UserID: "u1", Email: "a@x.com", Provider: "google", ProviderID: "g1"})
	if res := RunLinkFederated(context.Background(), FederatedProfile{Provider: "google", ProviderID: "g1", Email: "a@x.com"}, f.deps); res.Failure != FederatedFailureDisabled {
		t.Fatalf("expected disabled, got %v", res.Failure)
	}
	if res := RunLinkFederated(context.Background(), FederatedProfile{Provider: "google", ProviderID: "g1"}, f.deps); res.Failure != FederatedFailureIncomplete {
		t.Fatalf("expected incomplete, got %v", res.Failure)
	}
}

func TestLinkFederatedHonorsTwoFactor(t *testing.T) {
	f := newFederatedFixture(Account{UserID: "u1", Email: "a@x.com", Provider: "google", ProviderID: "g1", Active: true, TwoFactorEnabled: true, TwoFactorSecret: "S"})
	res := RunLinkFederated(context.Background(), FederatedProfile{Provider: "google", ProviderID: "g1", Email: "a@x.com"}, f.deps)
	if !res.RequiresTwoFactor || res.AccessToken != "" {
		t.Fatalf("expected two-factor marker, got %+v", res)
	}
}
