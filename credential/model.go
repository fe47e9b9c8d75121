package credential

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a refresh credential record.
// Transitions are monotonic: an active record may become rotated or revoked,
// and both of those states are terminal.
type Status uint8

const (
	// StatusActive marks a credential that may still win a rotation.
	StatusActive Status = 0
	// StatusRotated marks a credential consumed by a successful rotation.
	// Presenting it again is treated as replay.
	StatusRotated Status = 1
	// StatusRevoked marks a credential invalidated by an explicit revocation,
	// a limit eviction, or a family-wide compromise response.
	StatusRevoked Status = 2
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s != StatusActive
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRotated:
		return "rotated"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Credential is one stored refresh credential record. The raw secret is never
// stored; Hash is the sha256 of the raw token bytes and is the primary lookup
// key on the rotation hot path.
//
// Timestamps are Unix milliseconds so the Redis rotation script can compare
// them without float precision loss.
type Credential struct {
	ID         uuid.UUID
	IdentityID string
	Hash       [32]byte
	FamilyID   uuid.UUID
	Status     Status
	CreatedAt  int64
	ExpiresAt  int64
	RotatedAt  int64
	Context    string
}

// Expired reports whether the record's expiry lies at or before now.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.UnixMilli()
}

// CreatedTime returns CreatedAt as a time.Time.
func (c *Credential) CreatedTime() time.Time {
	return time.UnixMilli(c.CreatedAt)
}

// ExpiresTime returns ExpiresAt as a time.Time.
func (c *Credential) ExpiresTime() time.Time {
	return time.UnixMilli(c.ExpiresAt)
}
