// Package totp wraps github.com/pquerna/otp for second-factor enrollment:
// secret generation with a scannable QR data URL, and stateless validation
// of time-step codes.
package totp
