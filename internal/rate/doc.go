// Package rate provides Redis fixed-window counters that throttle repeated
// sign-in attempts.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:signin:email: — per email
//   - rl:signin:ip:    — per client IP
//
// # What this package must NOT do
//
//   - Implement per-user failure accounting (that lives in internal/flows
//     and the user store).
//   - Be imported outside the accountd module.
package rate
