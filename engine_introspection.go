package refreshguard

import (
	"context"
	"fmt"
	"time"

	"github.com/refreshguard/refreshguard/jwt"
)

// ValidateAccess verifies an access token locally (signature, expiry,
// issuer, audience) and returns its claims. No store round-trip happens
// here; that is the core latency trade of the split-credential design, and
// it means revocation only takes effect once the access token expires.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*jwt.AccessClaims, error) {
	start := time.Now()

	claims, err := e.jwtManager.ParseAccess(accessToken)

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

// ActiveCredentials lists the identity's active refresh credentials oldest
// first, as shown on a "your sessions" page. Raw tokens and hashes are
// never included.
func (e *Engine) ActiveCredentials(ctx context.Context, identityID string) ([]CredentialInfo, error) {
	records, err := e.store.ActiveForIdentity(ctx, identityID)
	if err != nil {
		return nil, e.revokeStoreError(err)
	}

	infos := make([]CredentialInfo, 0, len(records))
	for _, record := range records {
		infos = append(infos, CredentialInfo{
			ID:         record.ID,
			IdentityID: record.IdentityID,
			FamilyID:   record.FamilyID,
			CreatedAt:  record.CreatedTime(),
			ExpiresAt:  record.ExpiresTime(),
			Context:    record.Context,
		})
	}
	return infos, nil
}

// ActiveCredentialCount reports the number of active credentials tracked
// for an identity.
func (e *Engine) ActiveCredentialCount(ctx context.Context, identityID string) (int, error) {
	count, err := e.store.ActiveCount(ctx, identityID)
	if err != nil {
		return 0, e.revokeStoreError(err)
	}
	return count, nil
}
