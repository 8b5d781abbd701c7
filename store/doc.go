// Package store defines the shared key-value contract every goShield
// component persists through, plus the Redis implementation used in
// production.
//
// # Design
//
// The KV interface is deliberately small: blob reads, TTL'd writes, atomic
// counter increments, and compare-and-swap. Those four primitives are enough
// to express bounded token sets, failure counters, and fixed rate windows
// without process-local locks, so any number of engine instances can share
// one store. Expiry is always delegated to the store's TTL machinery; nothing
// in goShield runs a background sweeper.
//
// # Architecture boundaries
//
// This package owns transport and atomicity only. It does NOT encode records,
// interpret token material, or make security decisions; callers hand it
// opaque bytes.
//
// # What this package must NOT do
//
//   - Import goShield or any sibling package.
//   - Retry failed operations on its own.
//   - Log or expose stored values.
package store
