// Package flows contains pure-function orchestrators for the Engine's
// credential operations.
//
// Each flow function (RunLogin, RunRefresh, RunVerifyOTP, ...) accepts a
// typed dependency struct of function fields and returns a Result carrying
// either the outcome or a failure kind plus the underlying error. The root
// package maps failure kinds to public errors, metrics and audit events.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goIdentity (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
