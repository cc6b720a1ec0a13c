// Package token signs and verifies the HS512 bearer tokens handed to
// clients.
//
// # Expiry model
//
// Tokens embed their intended expiry as a string claim, but [Codec.Verify]
// never compares it against the clock. Expiry is enforced solely by the TTL
// of the matching session cache entry: when the cache entry is gone the
// token is dead, regardless of what the claim says. The embedded value is
// informational.
//
// # Architecture boundaries
//
// This package owns token encoding only. It does not touch Redis, does not
// know about permissions, and holds no per-user state.
//
// # What this package must NOT do
//
//   - Import any other accountd package.
//   - Accept tokens signed with any algorithm other than HS512.
//   - Make authorization decisions from claim contents.
package token
