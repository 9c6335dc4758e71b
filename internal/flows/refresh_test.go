package flows

import (
	"context"
	"errors"
	"testing"
)

type refreshFixture struct {
	acct   Account
	stored string
	deps   RefreshDeps
}

func newRefreshFixture(stored string) *refreshFixture {
	f := &refreshFixture{
		acct:   Account{UserID: "u1", Email: "a@x.com", Active: true},
		stored: stored,
	}
	f.deps = RefreshDeps{
		ParseRefresh: func(token string) (string, error) {
			if token == "garbage" {
				return "", errors.New("bad signature")
			}
			return "u1", nil
		},
		LoadAccount: func(_ context.Context, id string) (Account, error) {
			if id != f.acct.UserID {
				return Account{}, errNotFound
			}
			a := f.acct
			a.RefreshTokenHash = f.stored
			return a, nil
		},
		NotFound:  errNotFound,
		Stale:     errStale,
		HashToken: func(s string) string { return "h(" + s + ")" },
		Session:   testSession(),
		Rotate: func(_ context.Context, _, expect, next string) error {
			if f.stored != expect {
				return errStale
			}
			f.stored = next
			return nil
		},
	}
	return f
}

func TestRunRefreshRotates(t *testing.T) {
	f := newRefreshFixture("h(old)")

	res := RunRefresh(context.Background(), "old", f.deps)
	if res.Failed() {
		t.Fatalf("unexpected failure %v", res.Failure)
	}
	if f.stored != "h("+res.RefreshToken+")" {
		t.Fatalf("expected rotated hash, got %q", f.stored)
	}

	again := RunRefresh(context.Background(), "old", f.deps)
	if again.Failure != RefreshFailureHashMismatch {
		t.Fatalf("expected superseded token to fail, got %v", again.Failure)
	}
	if again.Internal() {
		t.Fatal("hash mismatch must not be reported as internal")
	}
}

func TestRunRefreshFailureKinds(t *testing.T) {
	f := newRefreshFixture("")
	if res := RunRefresh(context.Background(), "garbage", f.deps); res.Failure != RefreshFailureDecode {
		t.Fatalf("expected decode failure, got %v", res.Failure)
	}
	if res := RunRefresh(context.Background(), "old", f.deps); res.Failure != RefreshFailureHashMismatch {
		t.Fatalf("expected mismatch after logout, got %v", res.Failure)
	}

	f = newRefreshFixture("h(old)")
	f.acct.Active = false
	if res := RunRefresh(context.Background(), "old", f.deps); res.Failure != RefreshFailureAccountStatus {
		t.Fatalf("expected status failure, got %v", res.Failure)
	}

	f = newRefreshFixture("h(old)")
	f.acct.UserID = "other"
	if res := RunRefresh(context.Background(), "old", f.deps); res.Failure != RefreshFailureAccountMissing {
		t.Fatalf("expected missing account, got %v", res.Failure)
	}
}

func TestRunRefreshLosesRace(t *testing.T) {
	f := newRefreshFixture("h(old)")
	rotate := f.deps.Rotate
	f.deps.Rotate = func(ctx context.Context, id, expect, next string) error {
		f.stored = "h(winner)"
		return rotate(ctx, id, expect, next)
	}

	res := RunRefresh(context.Background(), "old", f.deps)
	if res.Failure != RefreshFailureReplay {
		t.Fatalf("expected replay failure, got %v", res.Failure)
	}
	if f.stored != "h(winner)" {
		t.Fatal("losing rotation must not overwrite the winner")
	}
}

func TestRunRefreshStoreErrorIsInternal(t *testing.T) {
	f := newRefreshFixture("h(old)")
	f.deps.LoadAccount = func(context.Context, string) (Account, error) { return Account{}, errors.New("db down") }

	res := RunRefresh(context.Background(), "old", f.deps)
	if res.Failure != RefreshFailureLookup || !res.Internal() {
		t.Fatalf("expected internal lookup failure, got %v", res.Failure)
	}
}
