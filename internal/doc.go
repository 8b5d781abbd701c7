// Package internal contains the token material helpers that are intentionally
// private to goShield: token id and secret generation, submission encoding,
// MAC computation, and subkey derivation.
//
// # Sub-packages
//
//   - limiters: attack-aware counting policies (failure lockout)
//   - rate: fixed-window counter primitive behind the tiered request limits
//   - stores: the bounded per-session token-set record store
//
// # What this package must NOT do
//
//   - Export types that appear in the public goShield API.
//   - Be imported by any package outside the goShield module.
package internal
