// Package httpapi exposes the account engine over HTTP.
//
// The package owns routing, request/response JSON shapes, cookie handling,
// and the mapping from engine errors to status codes. Internal error detail
// never leaves this layer; clients see a fixed message per status.
//
// # What this package must NOT do
//
//   - No business rules. Every decision about credentials, lockout, and
//     permissions lives in the engine and its stores.
//   - No direct store or Redis access.
//   - No logging of passwords or raw tokens.
package httpapi
