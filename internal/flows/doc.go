// Package flows holds the orchestration logic for account operations,
// expressed over dependency structs of plain functions.
//
// Each RunXxx function receives everything it touches — store lookups,
// hashing, token issuance, metrics, audit — as fields on a Deps struct, so
// the flows are testable without Redis, Postgres, or a built Engine. The
// Engine is the only production caller and wires the fields from its own
// components.
//
// # What this package must NOT do
//
//   - Import the root accountd package (no upward imports).
//   - Talk to Redis or SQL directly.
//   - Define its own sentinel errors; hosts inject them via the Errors
//     structs so errors.Is works against the public surface.
package flows
