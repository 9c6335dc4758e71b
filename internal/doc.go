// Package internal holds helpers private to goIdentity: secure random codes
// and tokens, and the hashing applied to bearer secrets before storage.
//
// Sub-packages:
//
//   - audit: async audit event dispatch (Dispatcher + Sink implementations)
//   - delivery: async, best-effort notification delivery
//   - flows: the decision logic of each Engine operation, free of root types
//   - stores: Redis-backed effective-permission cache
//   - validate: request validation rules
//   - config, logging, httpapi: the goidentityd daemon
package internal
