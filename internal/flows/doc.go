// Package flows contains pure-function orchestrators for the engine's
// issuance and rotation paths.
//
// RunIssue and RunRotate accept typed dependency structs and report
// outcomes as FailureKind values instead of sentinel errors, leaving
// error mapping, metrics, and audit emission to the Engine. The flows
// themselves hold no state, which keeps the compare-and-swap rotation
// sequence and the compromise response unit-testable with in-memory
// fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate the credential store, token minting, and
// access signing. They do NOT own any of these resources — ownership
// stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import refreshguard (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency interfaces.
package flows
