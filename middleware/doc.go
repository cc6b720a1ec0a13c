// Package middleware provides net/http middleware over the accountd Engine:
// a request guard that resolves bearer or cookie tokens into session
// content, and role post-conditions layered on top of it.
//
// Ordering matters: [RequireAdmin] and [RequireSelf] read the context value
// installed by [Guard] and must be chained after it.
package middleware
