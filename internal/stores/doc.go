// Package stores provides the bounded per-session token-set record behind
// goShield's anti-forgery engine.
//
// # Design
//
// Each session owns one versioned, binary-encoded record in the shared store
// with a TTL that tracks its longest-lived entry. Mutation operations
// (Insert, Consume, Remove, Replace) load the record, mutate it in memory,
// and write back through compare-and-swap with bounded retry on contention.
// Inserting past the session bound evicts the oldest entries atomically with
// the insert. Expired entries are pruned opportunistically during mutation.
// MAC comparisons inside Consume use constant-time compare.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for token-set
// records. It does NOT generate token material, enforce rate limits, or make
// authorization decisions; those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goShield or any sibling internal package.
//   - Persist or log token secrets (records hold MACs only).
//   - Use non-constant-time comparisons for MAC matching.
package stores
