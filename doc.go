// Package refreshguard manages the full lifecycle of authentication
// sessions built on the split-credential model: short-lived signed access
// tokens paired with long-lived, single-use refresh credentials that rotate
// on every use, with reuse treated as compromise evidence.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. The store's atomic compare-and-set is the only
// synchronization point for rotation races.
//
// # Architecture boundaries
//
// refreshguard is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (TokenPair, CredentialInfo, MetricsSnapshot).
// All internal coordination — flow orchestration, token minting, audit
// dispatch — lives under internal/ and is never exported. Credential
// persistence lives in the credential sub-package.
//
// # What this package must NOT do
//
//   - Expose store clients, record encodings, or raw credential hashes in
//     its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports refreshguard (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path. It must complete without store
// round-trips; all state checks are deferred to rotation. Issue and Rotate
// are allowed one store round-trip each on their critical section, plus
// limiter bookkeeping off the hot path.
package refreshguard
