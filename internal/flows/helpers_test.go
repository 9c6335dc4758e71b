package flows

import (
	"context"
	"errors"
	"strings"
)

var (
	errNotFound = errors.New("not found")
	errStale    = errors.New("stale")
)

func testSession() SessionDeps {
	n := 0
	return SessionDeps{
		ListRoles: func(context.Context, string) ([]string, error) { return []string{"USER"}, nil },
		IssuePair: func(uid, _ string, _ []string) (string, string, error) {
			n++
			return "access-" + uid, "refresh-" + uid + "-" + strings.Repeat("x", n), nil
		},
		HashToken: func(s string) string { return "h(" + s + ")" },
	}
}

func accounts(list ...Account) func(context.Context, string) (Account, error) {
	return func(_ context.Context, id string) (Account, error) {
		for _, a := range list {
			if a.UserID == id || a.Email == id || (a.Phone != "" && a.Phone == id) {
				return a, nil
			}
		}
		return Account{}, errNotFound
	}
}
