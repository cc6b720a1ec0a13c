// Package password implements the credential strength policy and peppered
// Argon2id hashing.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The configured pepper is appended to the raw password before key
// derivation, so hashes are only verifiable by a process holding the same
// pepper.
//
// # Architecture boundaries
//
// This package owns policy validation, hashing, and verification only.
// Credential storage and sign-in failure accounting belong to the Engine
// and its user store.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other accountd package.
//   - Log plaintext passwords or the pepper at runtime.
package password
