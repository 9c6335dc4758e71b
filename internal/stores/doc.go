// Package stores provides the Redis-backed cache of effective permission and
// role names consulted by authorization checks.
//
// Entries are JSON arrays stored with a TTL under a generation-scoped key.
// The cache never decides access: a miss or a Redis failure sends the caller
// back to the credential store.
package stores
