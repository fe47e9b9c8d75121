package refreshguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/refreshguard/refreshguard/credential"
	"github.com/refreshguard/refreshguard/internal"
	"github.com/refreshguard/refreshguard/internal/flows"
)

// Issue mints a new token pair for identityID after the caller has
// authenticated it by other means. The refresh credential starts a new
// family; context metadata attached via [WithClientIP] and [WithUserAgent]
// is stored on the record for later introspection.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Issue(ctx context.Context, identityID string) (*TokenPair, error) {
	if err := e.guardOpen(); err != nil {
		return nil, err
	}
	if identityID == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrIssueFailed)
	}

	result := flows.RunIssue(ctx, identityID, nil, e.issueDeps())
	return e.finishIssue(ctx, identityID, result)
}

func (e *Engine) finishIssue(ctx context.Context, identityID string, result flows.IssueResult) (*TokenPair, error) {
	if result.Failure == flows.IssueFailureNone {
		e.metricInc(MetricIssueSuccess)
		e.emitAudit(ctx, auditEventCredentialIssued, true, identityID,
			result.CredentialID.String(), result.FamilyID.String(), nil, nil)
		return &TokenPair{
			AccessToken:     result.AccessToken,
			RefreshToken:    result.RefreshToken,
			AccessExpiresIn: result.ExpiresIn,
			CredentialID:    result.CredentialID,
			FamilyID:        result.FamilyID,
		}, nil
	}

	e.metricInc(MetricIssueFailure)

	var err error
	switch result.Failure {
	case flows.IssueFailureCollision:
		err = fmt.Errorf("%w: %v", ErrHashCollision, result.Err)
	case flows.IssueFailurePersist:
		if errors.Is(result.Err, credential.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
		} else {
			err = fmt.Errorf("%w: %v", ErrIssueFailed, result.Err)
		}
	default:
		err = fmt.Errorf("%w: %v", ErrIssueFailed, result.Err)
	}

	e.emitAudit(ctx, auditEventIssueFailure, false, identityID,
		result.CredentialID.String(), result.FamilyID.String(), err, nil)
	return nil, err
}

func (e *Engine) issueDeps() flows.IssueDeps {
	return flows.IssueDeps{
		MintToken:     internal.NewRefreshToken,
		NewFamilyID:   uuid.New,
		Now:           time.Now,
		RefreshTTL:    func() time.Duration { return e.config.Credential.RefreshTTL },
		RetainExpired: func() time.Duration { return e.config.Credential.RetainExpired },
		AccessTTL:     func() time.Duration { return e.config.JWT.AccessTTL },
		ContextInfo:   contextInfo,
		SignAccess:    e.jwtManager.CreateAccess,
		EnforceLimit:  e.enforceSessionLimit,
		Store:         e.store,
		DuplicateHash: credential.ErrDuplicateHash,
	}
}

// enforceSessionLimit revokes the oldest active credentials when an identity
// crosses its cap. Runs after issuance; failures are logged, never surfaced,
// so a limiter hiccup cannot fail a login that already persisted.
func (e *Engine) enforceSessionLimit(ctx context.Context, identityID string) {
	max := e.config.Sessions.MaxActivePerIdentity
	if max <= 0 {
		return
	}

	active, err := e.store.ActiveForIdentity(ctx, identityID)
	if err != nil {
		log.Printf("refreshguard: session limit check failed: %v", err)
		return
	}
	if len(active) <= max {
		return
	}

	// ActiveForIdentity returns oldest first.
	for _, record := range active[:len(active)-max] {
		revoked, revokeErr := e.store.RevokeByID(ctx, record.ID)
		if revokeErr != nil {
			log.Printf("refreshguard: session limit eviction failed: %v", revokeErr)
			continue
		}
		if !revoked {
			continue
		}

		e.metricInc(MetricLimitEviction)
		e.emitAudit(ctx, auditEventLimitEviction, true, identityID,
			record.ID.String(), record.FamilyID.String(), nil, func() map[string]string {
				return map[string]string{
					"reason": "session_limit",
					"limit":  strconv.Itoa(max),
				}
			})
	}
}
