//go:build integration

package credential

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./credential
func newPostgresTestStore(t *testing.T) (*PostgresStore, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New failed: %v", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		t.Fatalf("schema setup failed: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE refresh_credentials"); err != nil {
		pool.Close()
		t.Fatalf("truncate failed: %v", err)
	}

	return NewPostgresStore(pool), pool.Close
}

func TestPostgresInsertAndGet(t *testing.T) {
	store, done := newPostgresTestStore(t)
	defer done()

	ctx := context.Background()
	c := newActiveCredential("alice", time.Now(), time.Hour)
	c.Context = "ip=10.0.0.1"

	if err := store.Insert(ctx, c, 2*time.Hour); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	byHash, err := store.GetByHash(ctx, c.Hash)
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if byHash.ID != c.ID || byHash.Context != "ip=10.0.0.1" {
		t.Fatalf("unexpected record: %+v", byHash)
	}

	dup := newActiveCredential("alice", time.Now(), time.Hour)
	dup.Hash = c.Hash
	if err := store.Insert(ctx, dup, time.Hour); !errors.Is(err, ErrDuplicateHash) {
		t.Fatalf("expected ErrDuplicateHash, got %v", err)
	}
}

func TestPostgresRotateCAS(t *testing.T) {
	store, done := newPostgresTestStore(t)
	defer done()

	ctx := context.Background()
	c := newActiveCredential("alice", time.Now(), time.Hour)
	if err := store.Insert(ctx, c, 2*time.Hour); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	prior, err := store.Rotate(ctx, c.Hash, time.Now())
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if prior.Status != StatusRotated {
		t.Fatalf("status = %s", prior.Status)
	}

	replay, err := store.Rotate(ctx, c.Hash, time.Now())
	if !errors.Is(err, ErrCredentialNotActive) {
		t.Fatalf("expected ErrCredentialNotActive, got %v", err)
	}
	if replay == nil || replay.Status != StatusRotated {
		t.Fatalf("expected rotated prior record, got %+v", replay)
	}
}

func TestPostgresRotateExpired(t *testing.T) {
	store, done := newPostgresTestStore(t)
	defer done()

	ctx := context.Background()
	c := newActiveCredential("alice", time.Now().Add(-2*time.Hour), time.Hour)
	if err := store.Insert(ctx, c, 24*time.Hour); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if _, err := store.Rotate(ctx, c.Hash, time.Now()); !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}

	stored, err := store.GetByHash(ctx, c.Hash)
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if stored.Status != StatusActive {
		t.Fatalf("expired rotate mutated record: %s", stored.Status)
	}
}

func TestPostgresRevocationAndListing(t *testing.T) {
	store, done := newPostgresTestStore(t)
	defer done()

	ctx := context.Background()
	familyID := uuid.New()
	base := time.Now()

	var members []*Credential
	for i := 0; i < 3; i++ {
		c := newActiveCredential("alice", base.Add(time.Duration(i)*time.Second), time.Hour)
		c.FamilyID = familyID
		if err := store.Insert(ctx, c, 2*time.Hour); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
		members = append(members, c)
	}

	active, err := store.ActiveForIdentity(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveForIdentity failed: %v", err)
	}
	if len(active) != 3 || active[0].ID != members[0].ID {
		t.Fatalf("unexpected listing: %d entries", len(active))
	}

	n, err := store.RevokeFamily(ctx, familyID)
	if err != nil || n != 3 {
		t.Fatalf("RevokeFamily: n=%d err=%v", n, err)
	}

	count, err := store.ActiveCount(ctx, "alice")
	if err != nil || count != 0 {
		t.Fatalf("ActiveCount: count=%d err=%v", count, err)
	}
}

func TestPostgresActiveCountMatchesListingForRetainedExpired(t *testing.T) {
	store, done := newPostgresTestStore(t)
	defer done()

	ctx := context.Background()

	// Expired an hour ago; purge_after keeps the row for reuse classification.
	expired := newActiveCredential("alice", time.Now().Add(-2*time.Hour), time.Hour)
	if err := store.Insert(ctx, expired, 24*time.Hour); err != nil {
		t.Fatalf("Insert expired failed: %v", err)
	}
	live := newActiveCredential("alice", time.Now(), time.Hour)
	if err := store.Insert(ctx, live, 24*time.Hour); err != nil {
		t.Fatalf("Insert live failed: %v", err)
	}

	count, err := store.ActiveCount(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveCount failed: %v", err)
	}
	active, err := store.ActiveForIdentity(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveForIdentity failed: %v", err)
	}
	if count != 1 || len(active) != 1 || active[0].ID != live.ID {
		t.Fatalf("count = %d, listing = %d; want both 1 with the live record", count, len(active))
	}
}

func TestPostgresPurgeExpired(t *testing.T) {
	store, done := newPostgresTestStore(t)
	defer done()

	ctx := context.Background()
	old := newActiveCredential("alice", time.Now().Add(-48*time.Hour), time.Hour)
	if err := store.Insert(ctx, old, 24*time.Hour); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	fresh := newActiveCredential("alice", time.Now(), time.Hour)
	if err := store.Insert(ctx, fresh, 24*time.Hour); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	purged, err := store.PurgeExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d", purged)
	}

	if _, err := store.GetByHash(ctx, old.Hash); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected purge of old record, got %v", err)
	}
	if _, err := store.GetByHash(ctx, fresh.Hash); err != nil {
		t.Fatalf("fresh record lost: %v", err)
	}
}
