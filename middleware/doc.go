// Package middleware exposes HTTP middleware built on goIdentity.Engine.
//
// # Guards
//
//   - [Guard] verifies the bearer access token and stores the
//     [goIdentity.Principal] in the request context.
//   - [RequirePermission] rejects principals lacking a permission. The check
//     reads current grants through Engine.Authorize.
//   - [RequireRole] rejects principals whose current roles do not include a
//     role.
//
// RequirePermission and RequireRole must run behind Guard.
//
// This package translates HTTP semantics into Engine calls. It never parses
// tokens or reads the store itself.
package middleware
