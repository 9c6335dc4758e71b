// Package permission holds the name-set type used for effective permission
// and role checks, and the default authorization catalog seeded at startup.
//
// This package performs no I/O.
package permission
