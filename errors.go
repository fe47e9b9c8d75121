package refreshguard

import "errors"

var (
	// ErrAuthenticationFailed is an exported constant or variable used by the credential engine.
	//
	// It is the single error surfaced to external callers by [PublicError]:
	// all rotation failure kinds collapse into it so responses cannot be
	// used as an oracle for credential state.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrCredentialInvalid is an exported constant or variable used by the credential engine.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrCredentialExpired is an exported constant or variable used by the credential engine.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrCredentialReused is an exported constant or variable used by the credential engine.
	ErrCredentialReused = errors.New("credential reuse detected")
	// ErrCredentialRevoked is an exported constant or variable used by the credential engine.
	ErrCredentialRevoked = errors.New("credential revoked")
	// ErrUnauthorized is an exported constant or variable used by the credential engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRevokeNotAuthorized is an exported constant or variable used by the credential engine.
	ErrRevokeNotAuthorized = errors.New("revocation not authorized")
	// ErrHashCollision is an exported constant or variable used by the credential engine.
	//
	// A collision on 32 random bytes means the process random source is
	// broken. Treat it as fatal.
	ErrHashCollision = errors.New("credential hash collision")
	// ErrStoreUnavailable is an exported constant or variable used by the credential engine.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrIssueFailed is an exported constant or variable used by the credential engine.
	ErrIssueFailed = errors.New("credential issuance failed")
	// ErrEngineClosed is an exported constant or variable used by the credential engine.
	//
	// Issue and Rotate return it after [Engine.Close]; revocation remains
	// usable so shutdown paths can still log sessions out.
	ErrEngineClosed = errors.New("engine closed")
)
