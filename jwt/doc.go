// Package jwt signs and verifies the access and refresh tokens issued by the
// engine. Each token kind has its own Manager and key; TokenService pairs them.
package jwt
