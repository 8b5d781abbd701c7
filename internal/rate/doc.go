// Package rate provides the fixed-window counter primitive behind goShield's
// tiered request limits.
//
// # Window semantics
//
// Fixed-window counters: one atomic increment per check, with the window TTL
// set on the first hit. RetryAfter for a denied check is the counter's
// remaining TTL. Callers compose logical keys that land under the configured
// prefix:
//   - <prefix>:g:<identity>         global budget
//   - <prefix>:r:<route>:<identity> per-route budget
//
// A window may admit up to its full limit again immediately after rolling
// over; that burst-at-the-boundary behavior is accepted in exchange for a
// single-counter hot path.
//
// # What this package must NOT do
//
//   - Decide which identities or routes are limited (the engine does).
//   - Be imported outside the goShield module.
package rate
