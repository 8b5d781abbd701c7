// Package goShield provides a session-bound anti-forgery token service with
// tiered, attack-aware rate limiting backed by a shared low-latency key-value store.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goShield is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (Decision, IssuedToken, MetricsSnapshot, etc.). All internal coordination, token set
// encoding, failure counting, and rate limiting live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Store token secrets; only their MACs reach the shared store.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//
// # Performance contract
//
// Validation and authorization are the hot paths. One stored record per session keeps
// validation to a single store read in the common case; issuance and single-use
// consumption add one compare-and-swap write.
package goShield
