package refreshguard

import (
	"context"
	"errors"
	"time"

	"github.com/refreshguard/refreshguard/credential"
)

const (
	auditEventCredentialIssued  = "credential_issued"
	auditEventIssueFailure      = "issue_failure"
	auditEventRotateSuccess     = "rotate_success"
	auditEventRotateInvalid     = "rotate_invalid"
	auditEventRotateExpired     = "rotate_expired"
	auditEventReuseDetected     = "reuse_detected"
	auditEventCredentialRevoked = "credential_revoked"
	auditEventRevokeAll         = "revoke_all"
	auditEventLimitEviction     = "limit_eviction"
	auditEventSweepCompleted    = "sweep_completed"
)

// AuditErrorCode defines a public type used by refreshguard APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidToken  AuditErrorCode = "invalid_token"
	auditErrExpiredToken  AuditErrorCode = "expired_token"
	auditErrReusedToken   AuditErrorCode = "reused_token"
	auditErrRevokedToken  AuditErrorCode = "revoked_token"
	auditErrUnauthorized  AuditErrorCode = "unauthorized"
	auditErrNotAuthorized AuditErrorCode = "revoke_not_authorized"
	auditErrCollision     AuditErrorCode = "hash_collision"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	credentialID string,
	familyID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		IdentityID:   identityID,
		CredentialID: credentialID,
		FamilyID:     familyID,
		IP:           clientIPFromContext(ctx),
		Success:      success,
		Metadata:     metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCredentialInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrCredentialExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrCredentialReused):
		return auditErrReusedToken
	case errors.Is(err, ErrCredentialRevoked):
		return auditErrRevokedToken
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrRevokeNotAuthorized):
		return auditErrNotAuthorized
	case errors.Is(err, ErrHashCollision),
		errors.Is(err, credential.ErrDuplicateHash):
		return auditErrCollision
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, credential.ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
