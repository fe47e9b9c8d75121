package refreshguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("test-secret")
	cfg.JWT.Issuer = "refreshguard-test"
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, opts ...func(*Builder)) (*Engine, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func TestBuildRequiresStore(t *testing.T) {
	_, err := New().WithConfig(engineTestConfig()).Build()
	if err == nil {
		t.Fatal("expected error without a store backend")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	builder := New().WithConfig(engineTestConfig()).WithRedis(rdb)
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestEngineCloseIdempotent(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	engine.Close()
	engine.Close()
}

func TestClosedEngineRejectsMinting(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	pair, err := engine.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	engine.Close()

	if _, err := engine.Issue(context.Background(), "user-1"); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("Issue after Close: got %v, want ErrEngineClosed", err)
	}
	if _, err := engine.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("Rotate after Close: got %v, want ErrEngineClosed", err)
	}

	// Revocation stays available for shutdown paths.
	if err := engine.Revoke(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("Revoke after Close failed: %v", err)
	}
}

func TestStorePing(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	latency, err := engine.StorePing(context.Background())
	if err != nil {
		t.Fatalf("StorePing failed: %v", err)
	}
	if latency < 0 {
		t.Fatalf("negative latency %v", latency)
	}
}

func TestSweepRedisNoOp(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	if _, err := engine.Issue(context.Background(), "alice"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	purged, err := engine.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if purged != 0 {
		t.Fatalf("redis sweep purged %d, want 0", purged)
	}
}

func TestBackgroundSweeperLifecycle(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Sweep.Interval = 5 * time.Millisecond

	engine, done := newTestEngine(t, cfg)

	time.Sleep(25 * time.Millisecond)
	done()
	// Close must have stopped the sweeper; a second close stays safe.
	engine.Close()
}
