package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"golang.org/x/oauth2"
)

// ProviderGitHub is the provider name stored on GitHub-linked accounts.
const ProviderGitHub = "github"

const defaultGitHubAPI = "https://api.github.com"

// GitHubVerifier resolves a GitHub OAuth access token to the user's profile
// and primary verified email.
type GitHubVerifier struct {
	baseURL string
	timeout time.Duration
}

// GitHubOption configures a GitHubVerifier.
type GitHubOption func(*GitHubVerifier)

// WithGitHubBaseURL points the verifier at a GitHub Enterprise or test API.
func WithGitHubBaseURL(u string) GitHubOption {
	return func(v *GitHubVerifier) { v.baseURL = strings.TrimRight(u, "/") }
}

// NewGitHubVerifier returns a verifier for api.github.com.
func NewGitHubVerifier(opts ...GitHubOption) *GitHubVerifier {
	v := &GitHubVerifier{baseURL: defaultGitHubAPI, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// VerifyIdentity implements goIdentity.IdentityVerifier. The credential is an
// OAuth access token with the read:user and user:email scopes.
func (v *GitHubVerifier) VerifyIdentity(ctx context.Context, credential string) (goIdentity.FederatedProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential}))

	var user githubUser
	if err := v.get(ctx, client, "/user", &user); err != nil {
		return goIdentity.FederatedProfile{}, err
	}
	var emails []githubEmail
	if err := v.get(ctx, client, "/user/emails", &emails); err != nil {
		return goIdentity.FederatedProfile{}, err
	}

	var email string
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			break
		}
	}
	if user.ID == 0 {
		return goIdentity.FederatedProfile{}, ErrIncompleteProfile
	}
	if email == "" {
		return goIdentity.FederatedProfile{}, ErrEmailNotVerified
	}

	first, last := splitName(user.Name)
	display := user.Name
	if display == "" {
		display = user.Login
	}
	return goIdentity.FederatedProfile{
		Provider:      ProviderGitHub,
		ProviderID:    strconv.FormatInt(user.ID, 10),
		Email:         email,
		EmailVerified: true,
		FirstName:     first,
		LastName:      last,
		DisplayName:   display,
	}, nil
}

func (v *GitHubVerifier) get(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode github %s: %w", path, err)
	}
	return nil
}

func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}
