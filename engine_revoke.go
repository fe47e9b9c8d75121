package refreshguard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/refreshguard/refreshguard/credential"
	"github.com/refreshguard/refreshguard/internal"
)

// Revoke invalidates the credential behind refreshToken. It is idempotent:
// unknown, malformed, expired, and already-terminal credentials all succeed
// without effect, so a logout can never fail for state reasons. Only store
// connectivity problems surface as errors.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) error {
	id, raw, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		// Malformed tokens cannot reference a record; nothing to revoke.
		return nil
	}

	revoked, err := e.store.RevokeByHash(ctx, internal.HashRefreshToken(raw))
	if err != nil {
		return e.revokeStoreError(err)
	}
	if revoked {
		e.noteRevoked(ctx, id.String(), "")
	}
	return nil
}

// RevokeCredential invalidates a single credential by its id, for targeted
// administrative revocation from a session listing. Idempotent like [Engine.Revoke].
func (e *Engine) RevokeCredential(ctx context.Context, id uuid.UUID) error {
	revoked, err := e.store.RevokeByID(ctx, id)
	if err != nil {
		return e.revokeStoreError(err)
	}
	if revoked {
		e.noteRevoked(ctx, id.String(), "")
	}
	return nil
}

// RevokeAll invalidates every active credential belonging to identityID and
// returns the number of credentials revoked. Calling it for an identity with
// nothing active succeeds with zero.
func (e *Engine) RevokeAll(ctx context.Context, identityID string) (int, error) {
	count, err := e.store.RevokeAllForIdentity(ctx, identityID)
	if err != nil {
		return 0, e.revokeStoreError(err)
	}

	e.metricInc(MetricRevokeAll)
	e.metricAdd(MetricCredentialRevoked, uint64(count))
	e.emitAudit(ctx, auditEventRevokeAll, true, identityID, "", "", nil, func() map[string]string {
		return map[string]string{
			"revoked": strconv.Itoa(count),
		}
	})
	return count, nil
}

// RevokeAllBy is [Engine.RevokeAll] gated by authorization: actorID may
// always revoke its own credentials, anything else is delegated to the
// configured [RevokeAuthorizer]. Without an authorizer, cross-identity
// revocation is refused.
func (e *Engine) RevokeAllBy(ctx context.Context, actorID, identityID string) (int, error) {
	if actorID == "" {
		actorID = actorIDFromContext(ctx)
	}

	allowed := actorID != "" && actorID == identityID
	if !allowed && e.authorizer != nil {
		allowed = e.authorizer.CanRevoke(ctx, actorID, identityID)
	}
	if !allowed {
		err := fmt.Errorf("%w: actor %q", ErrRevokeNotAuthorized, actorID)
		e.emitAudit(ctx, auditEventRevokeAll, false, identityID, "", "", err, func() map[string]string {
			return map[string]string{
				"actor": actorID,
			}
		})
		return 0, err
	}

	return e.RevokeAll(ctx, identityID)
}

func (e *Engine) noteRevoked(ctx context.Context, credentialID, familyID string) {
	e.metricInc(MetricCredentialRevoked)
	e.emitAudit(ctx, auditEventCredentialRevoked, true, "", credentialID, familyID, nil, nil)
}

func (e *Engine) revokeStoreError(err error) error {
	if errors.Is(err, credential.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
