package refreshguard

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenPair defines a public type used by refreshguard APIs.
//
// TokenPair instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenPair struct {
	// AccessToken is the short-lived signed token presented on normal
	// requests. It is self-contained; validation never consults the store.
	AccessToken string
	// RefreshToken is the opaque single-use credential. Presenting it to
	// [Engine.Rotate] consumes it.
	RefreshToken string
	// AccessExpiresIn is the access token validity window.
	AccessExpiresIn time.Duration
	// CredentialID identifies the refresh credential record.
	CredentialID uuid.UUID
	// FamilyID identifies the rotation chain the credential belongs to.
	FamilyID uuid.UUID
}

// CredentialInfo defines a public type used by refreshguard APIs.
//
// CredentialInfo is the introspection view of an active credential. It never
// carries the raw token or its hash.
type CredentialInfo struct {
	ID         uuid.UUID
	IdentityID string
	FamilyID   uuid.UUID
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Context    string
}

// RevokeAuthorizer gates administrative bulk revocation. CanRevoke reports
// whether actorID may revoke credentials belonging to identityID.
type RevokeAuthorizer interface {
	CanRevoke(ctx context.Context, actorID, identityID string) bool
}

// RevokeAuthorizerFunc adapts a function to [RevokeAuthorizer].
type RevokeAuthorizerFunc func(ctx context.Context, actorID, identityID string) bool

// CanRevoke implements [RevokeAuthorizer].
func (f RevokeAuthorizerFunc) CanRevoke(ctx context.Context, actorID, identityID string) bool {
	return f(ctx, actorID, identityID)
}
