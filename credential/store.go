package credential

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStoreUnavailable wraps backend connectivity failures.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// ErrCredentialNotFound is returned when no record exists for a hash or id.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrCredentialExpired is returned when the target record exists but its
// expiry has passed. The record is left untouched.
var ErrCredentialExpired = errors.New("credential expired")

// ErrCredentialNotActive is returned by Rotate when the target record is in
// a terminal state. The record is returned alongside the error so the caller
// can distinguish rotated from revoked and locate the family.
var ErrCredentialNotActive = errors.New("credential not active")

// ErrRecordCorrupt is returned when a stored blob fails to decode.
var ErrRecordCorrupt = errors.New("credential record corrupt")

// ErrDuplicateHash is returned when an insert collides with an existing
// credential hash. With 32-byte random secrets this indicates a broken
// random source and must be treated as fatal by the caller.
var ErrDuplicateHash = errors.New("credential hash already exists")

// Store persists refresh credential records keyed by sha256 hash.
//
// Implementations must guarantee that Rotate and the revocation methods are
// compare-and-set operations: of N concurrent Rotate calls presenting the
// same hash, exactly one observes the active record.
type Store interface {
	// Insert persists a new active record. ttl bounds backend retention and
	// must exceed the record's expiry so expired presentations remain
	// distinguishable from unknown ones.
	Insert(ctx context.Context, c *Credential, ttl time.Duration) error

	// GetByHash fetches a record without mutating state.
	GetByHash(ctx context.Context, hash [32]byte) (*Credential, error)

	// GetByID fetches a record by credential id without mutating state.
	GetByID(ctx context.Context, id uuid.UUID) (*Credential, error)

	// Rotate atomically transitions the record for hash from active to
	// rotated and returns the prior record. On ErrCredentialNotActive the
	// terminal record is returned alongside the error; all other failures
	// return a nil record.
	Rotate(ctx context.Context, hash [32]byte, now time.Time) (*Credential, error)

	// RevokeByHash transitions an active record to revoked. Reports whether
	// a transition happened; terminal or missing records are a no-op.
	RevokeByHash(ctx context.Context, hash [32]byte) (bool, error)

	// RevokeByID is RevokeByHash addressed by credential id.
	RevokeByID(ctx context.Context, id uuid.UUID) (bool, error)

	// RevokeFamily transitions every active member of a family to revoked
	// and returns the number of records transitioned.
	RevokeFamily(ctx context.Context, familyID uuid.UUID) (int, error)

	// RevokeAllForIdentity transitions every active record belonging to an
	// identity to revoked and returns the number of records transitioned.
	RevokeAllForIdentity(ctx context.Context, identityID string) (int, error)

	// ActiveForIdentity returns the identity's active, unexpired records
	// ordered oldest first.
	ActiveForIdentity(ctx context.Context, identityID string) ([]*Credential, error)

	// ActiveCount returns the number of tracked active records for an identity.
	ActiveCount(ctx context.Context, identityID string) (int, error)

	// PurgeExpired removes records whose expiry lies before now and returns
	// the number removed. Backends with native expiry may report zero.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	// Ping verifies backend connectivity and reports round-trip latency.
	Ping(ctx context.Context) (time.Duration, error)
}
