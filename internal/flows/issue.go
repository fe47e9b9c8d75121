package flows

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/refreshguard/refreshguard/credential"
)

// IssueFailureKind classifies issuance flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureMint
	IssueFailureCollision
	IssueFailurePersist
	IssueFailureSign
)

// IssueResult carries either the issued token pair or failure metadata.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	CredentialID uuid.UUID
	FamilyID     uuid.UUID
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type IssueStore interface {
	Insert(ctx context.Context, c *credential.Credential, ttl time.Duration) error
}

// IssueDeps captures issuance flow dependencies.
type IssueDeps struct {
	MintToken     func() (token string, id uuid.UUID, hash [32]byte, err error)
	NewFamilyID   func() uuid.UUID
	Now           func() time.Time
	RefreshTTL    func() time.Duration
	RetainExpired func() time.Duration
	AccessTTL     func() time.Duration
	ContextInfo   func(context.Context) string
	SignAccess    func(identityID, credentialID string) (string, error)
	EnforceLimit  func(ctx context.Context, identityID string)
	Store         IssueStore
	DuplicateHash error
}

// RunIssue mints a refresh credential, persists it, and signs the matching
// access token. familyID nil starts a new family (login); non-nil continues
// an existing one (rotation successor).
func RunIssue(ctx context.Context, identityID string, familyID *uuid.UUID, deps IssueDeps) IssueResult {
	token, id, hash, err := deps.MintToken()
	if err != nil {
		return IssueResult{Failure: IssueFailureMint, Err: err}
	}

	family := deps.NewFamilyID()
	if familyID != nil {
		family = *familyID
	}

	now := deps.Now()
	refreshTTL := deps.RefreshTTL()

	record := &credential.Credential{
		ID:         id,
		IdentityID: identityID,
		Hash:       hash,
		FamilyID:   family,
		Status:     credential.StatusActive,
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  now.Add(refreshTTL).UnixMilli(),
		Context:    deps.ContextInfo(ctx),
	}

	// Retention outlives expiry so an expired presentation is still
	// classified as expired rather than unknown.
	if err := deps.Store.Insert(ctx, record, refreshTTL+deps.RetainExpired()); err != nil {
		if deps.DuplicateHash != nil && errors.Is(err, deps.DuplicateHash) {
			return IssueResult{
				Failure:      IssueFailureCollision,
				Err:          err,
				CredentialID: id,
				FamilyID:     family,
			}
		}
		return IssueResult{
			Failure:      IssueFailurePersist,
			Err:          err,
			CredentialID: id,
			FamilyID:     family,
		}
	}

	access, err := deps.SignAccess(identityID, id.String())
	if err != nil {
		return IssueResult{
			Failure:      IssueFailureSign,
			Err:          err,
			CredentialID: id,
			FamilyID:     family,
		}
	}

	if deps.EnforceLimit != nil {
		deps.EnforceLimit(ctx, identityID)
	}

	return IssueResult{
		Failure:      IssueFailureNone,
		CredentialID: id,
		FamilyID:     family,
		AccessToken:  access,
		RefreshToken: token,
		ExpiresIn:    deps.AccessTTL(),
	}
}
