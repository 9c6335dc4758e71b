// Package goIdentity is a credential and session engine: local registration
// with one-time verification codes, password login, rotating refresh tokens,
// TOTP second factor, federated sign-in and role/permission checks.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goIdentity is the public surface. It exposes [Engine], [Builder], [Config],
// the storage contracts ([CredentialStore], [AccessStore]) and value types.
// Flow orchestration, the Redis permission cache, audit and notification
// dispatch live under internal/ and are never exported.
//
// Persistence is pluggable: store/memory is an in-process implementation for
// tests and examples, store/postgres is the production adapter.
//
// # Sessions
//
// Each user has at most one valid refresh token. Login, Refresh and
// VerifyTwoFactor replace it; Logout, ChangePassword, ResetPassword and
// account deactivation clear it. Access tokens are stateless and stay valid
// until they expire. Use [Engine.Authorize] when a decision must observe
// revoked grants immediately.
//
// # Errors
//
// Every error returned by the Engine unwraps to one kind sentinel
// ([ErrValidation], [ErrDuplicateResource], [ErrNotFound], [ErrExpired],
// [ErrInvalidCredential], [ErrForbidden], [ErrConflict], [ErrInternal]).
// Infrastructure failures are logged and returned as ErrInternal without the
// cause.
package goIdentity
