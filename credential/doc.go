// Package credential provides persistence and compact binary encoding for
// refresh credential records.
//
// # Binary encoding
//
// Records are stored as a compact binary blob with a fixed-offset header
// (version, status, identifiers, timestamps) followed by length-prefixed
// variable fields. The fixed header lets the Redis rotation script read
// status and expiry, and patch status in place, without a full decode.
//
// # Architecture boundaries
//
// This package owns the [Store] implementations (Redis and Postgres) and the
// [Credential] model. It does NOT mint tokens, sign access credentials, or
// decide what a rotation failure means — those responsibilities belong to
// the Engine.
//
// # What this package must NOT do
//
//   - Import refreshguard or jwt (no upward imports).
//   - Store raw refresh secrets; only sha256 lookup hashes are persisted.
//   - Resurrect a rotated or revoked record: status transitions are one-way.
package credential
