// Rotation loadtest for the Redis credential store. It measures the two hot
// paths in isolation: hash lookup, and the CAS rotate plus successor insert
// pair that one refresh performs.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/refreshguard/refreshguard/credential"
)

// chainState tracks the current head hash of one credential chain. The
// mutex serializes rotations per chain so each worker presents the live
// head, not a hash another worker already retired.
type chainState struct {
	mu   sync.Mutex
	hash [32]byte
}

func main() {
	var (
		credentials = flag.Int("credentials", 100000, "number of refresh credentials to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (lookup + rotate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "rc", "credential key prefix")
	)
	flag.Parse()

	if *credentials <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "credentials, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis setup: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()
	store := credential.NewRedisStore(client, *prefix)

	fmt.Printf("seeding %d credentials...\n", *credentials)
	seedStart := time.Now()
	states, err := seed(ctx, store, *credentials)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(seedStart).Round(time.Millisecond))

	lookup := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		head := st.hash
		st.mu.Unlock()
		_, err := store.GetByHash(ctx, head)
		return err
	})

	rotate := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()

		next := sha256.Sum256(st.hash[:])
		prior, err := store.Rotate(ctx, st.hash, time.Now())
		if err != nil {
			return err
		}
		successor := &credential.Credential{
			ID:         uuid.New(),
			IdentityID: prior.IdentityID,
			Hash:       next,
			FamilyID:   prior.FamilyID,
			Status:     credential.StatusActive,
			CreatedAt:  time.Now().UnixMilli(),
			ExpiresAt:  time.Now().Add(24 * time.Hour).UnixMilli(),
		}
		if err := store.Insert(ctx, successor, 24*time.Hour); err != nil {
			return err
		}
		st.hash = next
		return nil
	})

	fmt.Println("---- results ----")
	lookup.print("lookup")
	rotate.print("rotate")
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seed(ctx context.Context, store *credential.RedisStore, n int) ([]chainState, error) {
	states := make([]chainState, n)
	now := time.Now()
	for i := 0; i < n; i++ {
		var idx [8]byte
		binary.BigEndian.PutUint64(idx[:], uint64(i))
		h := sha256.Sum256(idx[:])
		states[i].hash = h

		cred := &credential.Credential{
			ID:         uuid.New(),
			IdentityID: fmt.Sprintf("identity-%d", i%1000),
			Hash:       h,
			FamilyID:   uuid.New(),
			Status:     credential.StatusActive,
			CreatedAt:  now.UnixMilli(),
			ExpiresAt:  now.Add(24 * time.Hour).UnixMilli(),
		}
		if err := store.Insert(ctx, cred, 24*time.Hour); err != nil {
			return nil, fmt.Errorf("insert credential %d: %w", i, err)
		}
	}
	return states, nil
}

func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	var (
		wg       sync.WaitGroup
		cursor   int64
		failures int64
		mu       sync.Mutex
	)
	latencies := make([]time.Duration, 0, ops)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for int(atomic.AddInt64(&cursor, 1)) <= ops {
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	total := time.Since(start)
	if len(latencies) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	return phaseStats{
		total:    total,
		ops:      len(latencies),
		failures: failures,
		p50:      percentile(latencies, 50),
		p95:      percentile(latencies, 95),
		p99:      percentile(latencies, 99),
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

func (s phaseStats) print(name string) {
	opsPerSec := 0.0
	if s.total > 0 {
		opsPerSec = float64(s.ops) / s.total.Seconds()
	}
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		opsPerSec,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
}
