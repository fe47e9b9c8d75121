package refreshguard

import (
	"errors"
	"fmt"
	"testing"
)

func TestPublicErrorCollapsesCredentialState(t *testing.T) {
	for _, err := range []error{
		ErrCredentialInvalid,
		ErrCredentialExpired,
		ErrCredentialReused,
		ErrCredentialRevoked,
		ErrUnauthorized,
	} {
		if got := PublicError(err); !errors.Is(got, ErrAuthenticationFailed) {
			t.Fatalf("%v: expected ErrAuthenticationFailed, got %v", err, got)
		}
	}

	// Wrapped forms collapse too.
	wrapped := fmt.Errorf("%w: token abc", ErrCredentialReused)
	if got := PublicError(wrapped); !errors.Is(got, ErrAuthenticationFailed) {
		t.Fatalf("wrapped: got %v", got)
	}
}

func TestPublicErrorPassesInfraThrough(t *testing.T) {
	if got := PublicError(ErrStoreUnavailable); !errors.Is(got, ErrStoreUnavailable) {
		t.Fatalf("infra error was collapsed: %v", got)
	}
	plain := errors.New("boom")
	if got := PublicError(plain); got != plain {
		t.Fatalf("unrelated error was altered: %v", got)
	}
	if got := PublicError(nil); got != nil {
		t.Fatalf("nil in, %v out", got)
	}
}
