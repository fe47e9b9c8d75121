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

// Rotate consumes refreshToken and returns a successor token pair in the
// same family. The presented credential is atomically transitioned to
// rotated; of N concurrent calls with the same token, exactly one succeeds.
//
// Presenting a rotated or revoked credential is treated as compromise
// evidence: every active credential in the family is revoked before the
// error returns. A rotation lost to a concurrent winner takes the same path
// deliberately, since the store cannot tell a benign race from an attacker.
//
// Rotate may return an error when input validation, dependency calls, or security checks fail.
// Rotate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.guardOpen(); err != nil {
		return nil, err
	}

	result := flows.RunRotate(ctx, refreshToken, e.rotateDeps())

	switch result.Failure {
	case flows.RotateFailureNone:
		pair, err := e.finishIssue(ctx, result.IdentityID, result.Issue)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricRotateSuccess)
		e.emitAudit(ctx, auditEventRotateSuccess, true, result.IdentityID,
			result.CredentialID.String(), result.FamilyID.String(), nil, func() map[string]string {
				return map[string]string{
					"successor": pair.CredentialID.String(),
				}
			})
		return pair, nil

	case flows.RotateFailureIssue:
		e.metricInc(MetricRotateFailure)
		_, err := e.finishIssue(ctx, result.IdentityID, result.Issue)
		return nil, err

	case flows.RotateFailureDecode, flows.RotateFailureNotFound:
		e.metricInc(MetricRotateFailure)
		err := fmt.Errorf("%w: %v", ErrCredentialInvalid, result.Err)
		e.emitAudit(ctx, auditEventRotateInvalid, false, result.IdentityID,
			credentialIDString(result), "", err, nil)
		return nil, err

	case flows.RotateFailureExpired:
		e.metricInc(MetricRotateExpired)
		err := fmt.Errorf("%w: %v", ErrCredentialExpired, result.Err)
		e.emitAudit(ctx, auditEventRotateExpired, false, result.IdentityID,
			credentialIDString(result), "", err, nil)
		return nil, err

	case flows.RotateFailureReused, flows.RotateFailureRevoked:
		e.metricInc(MetricReuseDetected)
		e.metricAdd(MetricFamilyRevoked, uint64(result.FamilyRevoked))

		err := ErrCredentialReused
		status := "rotated"
		if result.Failure == flows.RotateFailureRevoked {
			err = ErrCredentialRevoked
			status = "revoked"
		}

		e.emitAudit(ctx, auditEventReuseDetected, false, result.IdentityID,
			result.CredentialID.String(), result.FamilyID.String(), err, func() map[string]string {
				return map[string]string{
					"prior_status":   status,
					"family_revoked": strconv.Itoa(result.FamilyRevoked),
				}
			})
		return nil, err

	default:
		e.metricInc(MetricRotateFailure)
		var err error
		if errors.Is(result.Err, credential.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
		} else {
			err = fmt.Errorf("rotation failed: %w", result.Err)
		}
		e.emitAudit(ctx, auditEventRotateInvalid, false, result.IdentityID,
			credentialIDString(result), "", err, nil)
		return nil, err
	}
}

func credentialIDString(result flows.RotateResult) string {
	if result.CredentialID == uuid.Nil {
		return ""
	}
	return result.CredentialID.String()
}

func (e *Engine) rotateDeps() flows.RotateDeps {
	return flows.RotateDeps{
		DecodeToken: internal.DecodeRefreshToken,
		HashToken:   internal.HashRefreshToken,
		Now:         time.Now,
		Store:       e.store,
		IssueDeps:   e.issueDeps(),
		Warn:        log.Printf,
		NotFound:    credential.ErrCredentialNotFound,
		Expired:     credential.ErrCredentialExpired,
		NotActive:   credential.ErrCredentialNotActive,
	}
}
