// Package audit implements async event dispatching for credential lifecycle
// operations: issuance, rotation, reuse detection, and revocation.
//
// # Components
//
//   - [Event] — structured audit record keyed by identity, credential, and family.
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — single-goroutine relay with drop-if-full / block-if-full intake.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. Deciding which events
// to emit, and with what metadata, belongs to the Engine and flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Carry raw tokens or lookup hashes in event fields.
//   - Import refreshguard or any sibling internal package.
package audit
