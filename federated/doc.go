// Package federated provides goIdentity.IdentityVerifier implementations for
// external identity providers. Register them with
// Builder.WithIdentityVerifier and call Engine.LoginWithProvider with the
// provider's credential.
package federated

import "errors"

// ErrEmailNotVerified is returned when the provider cannot vouch for the
// account's email address.
var ErrEmailNotVerified = errors.New("provider email not verified")

// ErrIncompleteProfile is returned when the provider response lacks the
// subject or email.
var ErrIncompleteProfile = errors.New("provider profile incomplete")
