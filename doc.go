// Package accountd implements the account and session subsystem of a web
// backend: peppered Argon2id password hashing, HS512 bearer tokens, a
// Redis-backed session cache keyed by token fingerprints, and sign-in
// failure accounting that deactivates accounts after repeated in-window
// failures.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// accountd is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] contract, and value types. Flow orchestration and rate
// limiting live under internal/ and are never exported. Persistence is
// injected: the engine talks to users only through [UserStore], with a
// pgx-backed implementation under stores/postgres.
//
// # What this package must NOT do
//
//   - Expose Redis clients or cache key formats in its public API.
//   - Distinguish unknown-email, wrong-password, and inactive-account
//     rejections to callers.
//   - Check the expiry claim embedded in tokens; session cache TTL is the
//     only expiry authority.
package accountd
