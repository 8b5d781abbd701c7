// Package limiters provides the attack-aware counting policies built on the
// shared store, one level above the generic internal/rate primitive.
//
// # Limiters
//
//   - [FailureLimiter]: per-session failure counter that locks anti-forgery
//     validation after a threshold of integrity mismatches within a window.
//
// The limiter is nil-safe: calling any method on a nil receiver returns zero
// values.
//
// # Architecture boundaries
//
// The limiter owns its key namespace and counting rules. Policy thresholds
// come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goShield or any sibling internal package except store.
//   - Decide consequences beyond counting; the engine maps a lock to its
//     error taxonomy.
package limiters
