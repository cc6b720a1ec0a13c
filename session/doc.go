// Package session provides the Redis-backed token session cache.
//
// # Storage model
//
// Each live token has exactly one cache entry. Keys are the SHA-256
// fingerprint of the raw token under a configurable prefix, so raw token
// material never reaches Redis. Values are small text records of the form
// "<user id>:<kind>:<permission code>". Expiry is entry TTL only — nothing
// else retires a session.
//
// # Architecture boundaries
//
// This package owns cache reads and writes and the entry codec. It does NOT
// verify token signatures or decide authorization — those belong to the
// token package and the Engine.
//
// # What this package must NOT do
//
//   - Import the root accountd package (no upward imports).
//   - Store raw tokens or password material.
//   - Interpret the embedded token expiry claim.
package session
