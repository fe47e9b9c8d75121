package refreshguard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionLimitEvictsOldest(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Sessions.MaxActivePerIdentity = 3

	engine, done := newTestEngine(t, cfg)
	defer done()

	ctx := context.Background()
	var pairs []*TokenPair
	for i := 0; i < 5; i++ {
		pair, err := engine.Issue(ctx, "alice")
		if err != nil {
			t.Fatalf("Issue %d failed: %v", i, err)
		}
		pairs = append(pairs, pair)
		// Creation timestamps order the eviction; keep them distinct.
		time.Sleep(2 * time.Millisecond)
	}

	count, err := engine.ActiveCredentialCount(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveCredentialCount failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 active credentials, got %d", count)
	}

	infos, err := engine.ActiveCredentials(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveCredentials failed: %v", err)
	}
	surviving := make(map[string]bool)
	for _, info := range infos {
		surviving[info.ID.String()] = true
	}
	for i := 0; i < 2; i++ {
		if surviving[pairs[i].CredentialID.String()] {
			t.Fatalf("credential %d should have been evicted", i)
		}
	}
	for i := 2; i < 5; i++ {
		if !surviving[pairs[i].CredentialID.String()] {
			t.Fatalf("credential %d should have survived", i)
		}
	}

	// Evicted credentials are revoked, not rotated, so presenting one is
	// reported as revoked.
	if _, err := engine.Rotate(ctx, pairs[0].RefreshToken); !errors.Is(err, ErrCredentialRevoked) {
		t.Fatalf("expected ErrCredentialRevoked for evicted credential, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLimitEviction] != 2 {
		t.Fatalf("MetricLimitEviction = %d", snap.Counters[MetricLimitEviction])
	}
}

func TestSessionLimitZeroDisablesCap(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Sessions.MaxActivePerIdentity = 0

	engine, done := newTestEngine(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		if _, err := engine.Issue(ctx, "alice"); err != nil {
			t.Fatalf("Issue %d failed: %v", i, err)
		}
	}

	count, err := engine.ActiveCredentialCount(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveCredentialCount failed: %v", err)
	}
	if count != 8 {
		t.Fatalf("expected 8 active credentials, got %d", count)
	}
}

func TestSessionLimitIsPerIdentity(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Sessions.MaxActivePerIdentity = 2

	engine, done := newTestEngine(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := engine.Issue(ctx, "alice"); err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if _, err := engine.Issue(ctx, "bob"); err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	for _, identity := range []string{"alice", "bob"} {
		count, err := engine.ActiveCredentialCount(ctx, identity)
		if err != nil {
			t.Fatalf("ActiveCredentialCount failed: %v", err)
		}
		if count != 2 {
			t.Fatalf("%s: expected 2 active, got %d", identity, count)
		}
	}
}

func TestRotationDoesNotGrowActiveSet(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Sessions.MaxActivePerIdentity = 2

	engine, done := newTestEngine(t, cfg)
	defer done()

	ctx := context.Background()
	pair, err := engine.Issue(ctx, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Rotation replaces a credential rather than adding one, so it never
	// triggers eviction on its own.
	for i := 0; i < 4; i++ {
		pair, err = engine.Rotate(ctx, pair.RefreshToken)
		if err != nil {
			t.Fatalf("Rotate %d failed: %v", i, err)
		}
	}

	count, err := engine.ActiveCredentialCount(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveCredentialCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 active credential, got %d", count)
	}
}
