package refreshguard

import "errors"

// PublicError collapses rotation failure detail into the single
// [ErrAuthenticationFailed] suitable for external responses. Invalid,
// expired, reused, and revoked presentations all map to the same error so a
// caller probing stolen tokens learns nothing about credential state from
// the response shape. Infrastructure errors pass through unchanged; they
// belong to a different response class entirely.
//
// Internal callers keep the distinct errors for logging and metrics;
// PublicError is applied once, at the outermost API boundary.
func PublicError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrCredentialInvalid),
		errors.Is(err, ErrCredentialExpired),
		errors.Is(err, ErrCredentialReused),
		errors.Is(err, ErrCredentialRevoked),
		errors.Is(err, ErrUnauthorized):
		return ErrAuthenticationFailed
	default:
		return err
	}
}
