package flows

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/refreshguard/refreshguard/credential"
)

// RotateFailureKind classifies rotation flow failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureDecode
	RotateFailureNotFound
	RotateFailureExpired
	RotateFailureReused
	RotateFailureRevoked
	RotateFailureStore
	RotateFailureIssue
)

// RotateResult carries either the successor token pair or failure metadata.
// On reuse and revoked failures, FamilyRevoked counts the records the
// compromise response transitioned.
type RotateResult struct {
	Failure       RotateFailureKind
	Err           error
	IdentityID    string
	CredentialID  uuid.UUID
	FamilyID      uuid.UUID
	FamilyRevoked int
	Issue         IssueResult
}

type RotateStore interface {
	Rotate(ctx context.Context, hash [32]byte, now time.Time) (*credential.Credential, error)
	RevokeFamily(ctx context.Context, familyID uuid.UUID) (int, error)
}

// RotateDeps captures rotation flow dependencies.
type RotateDeps struct {
	DecodeToken func(string) (uuid.UUID, []byte, error)
	HashToken   func([]byte) [32]byte
	Now         func() time.Time
	Store       RotateStore
	IssueDeps   IssueDeps
	Warn        func(string, ...any)

	NotFound  error
	Expired   error
	NotActive error
}

// RunRotate executes the rotation state machine: decode, atomic
// compare-and-set on the presented credential, compromise response on
// terminal records, successor issuance on the win.
//
// A rotation lost to a concurrent winner surfaces as a terminal record and
// is treated identically to replay. That is deliberate: the store cannot
// distinguish a benign race from an attacker holding a stolen credential,
// so both trigger the family-wide response.
func RunRotate(ctx context.Context, token string, deps RotateDeps) RotateResult {
	credID, raw, err := deps.DecodeToken(token)
	if err != nil {
		return RotateResult{Failure: RotateFailureDecode, Err: err}
	}

	prior, err := deps.Store.Rotate(ctx, deps.HashToken(raw), deps.Now())
	if err != nil {
		switch {
		case deps.NotFound != nil && errors.Is(err, deps.NotFound):
			return RotateResult{
				Failure:      RotateFailureNotFound,
				Err:          err,
				CredentialID: credID,
			}
		case deps.Expired != nil && errors.Is(err, deps.Expired):
			return RotateResult{
				Failure:      RotateFailureExpired,
				Err:          err,
				CredentialID: credID,
			}
		case deps.NotActive != nil && errors.Is(err, deps.NotActive) && prior != nil:
			revoked, famErr := deps.Store.RevokeFamily(ctx, prior.FamilyID)
			if famErr != nil && deps.Warn != nil {
				deps.Warn("refreshguard: family revocation failed")
			}
			failure := RotateFailureReused
			if prior.Status == credential.StatusRevoked {
				failure = RotateFailureRevoked
			}
			return RotateResult{
				Failure:       failure,
				Err:           err,
				IdentityID:    prior.IdentityID,
				CredentialID:  prior.ID,
				FamilyID:      prior.FamilyID,
				FamilyRevoked: revoked,
			}
		default:
			return RotateResult{
				Failure:      RotateFailureStore,
				Err:          err,
				CredentialID: credID,
			}
		}
	}

	issue := RunIssue(ctx, prior.IdentityID, &prior.FamilyID, deps.IssueDeps)
	if issue.Failure != IssueFailureNone {
		return RotateResult{
			Failure:      RotateFailureIssue,
			Err:          issue.Err,
			IdentityID:   prior.IdentityID,
			CredentialID: prior.ID,
			FamilyID:     prior.FamilyID,
			Issue:        issue,
		}
	}

	return RotateResult{
		Failure:      RotateFailureNone,
		IdentityID:   prior.IdentityID,
		CredentialID: prior.ID,
		FamilyID:     prior.FamilyID,
		Issue:        issue,
	}
}
