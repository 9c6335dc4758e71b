// Package password hashes passwords with Argon2id and verifies them.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher] also accepts bcrypt hashes ($2a$, $2b$, $2y$) for verification
// and reports them through [Hasher.NeedsRehash] so the caller can replace
// them with Argon2id on the next successful login.
//
// Password policy (character classes) is enforced by the engine, not here.
// This package never stores, logs or returns plaintext.
package password
