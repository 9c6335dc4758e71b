package federated

import (
	"context"
	"fmt"

	goIdentity "github.com/MrEthical07/goIdentity"
	"google.golang.org/api/idtoken"
)

// ProviderGoogle is the provider name stored on Google-linked accounts.
const ProviderGoogle = "google"

type idTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier verifies Google ID tokens issued to one OAuth client.
type GoogleVerifier struct {
	clientID string
	validate idTokenValidator
}

// NewGoogleVerifier returns a verifier accepting ID tokens whose audience is
// clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// VerifyIdentity implements goIdentity.IdentityVerifier. The credential is
// a Google ID token; its email must be verified by Google.
func (v *GoogleVerifier) VerifyIdentity(ctx context.Context, credential string) (goIdentity.FederatedProfile, error) {
	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return goIdentity.FederatedProfile{}, fmt.Errorf("validate google id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	firstName, _ := payload.Claims["given_name"].(string)
	lastName, _ := payload.Claims["family_name"].(string)
	name, _ := payload.Claims["name"].(string)

	if payload.Subject == "" || email == "" {
		return goIdentity.FederatedProfile{}, ErrIncompleteProfile
	}
	if !verified {
		return goIdentity.FederatedProfile{}, ErrEmailNotVerified
	}

	return goIdentity.FederatedProfile{
		Provider:      ProviderGoogle,
		ProviderID:    payload.Subject,
		Email:         email,
		EmailVerified: true,
		FirstName:     firstName,
		LastName:      lastName,
		DisplayName:   name,
	}, nil
}
