package refreshguard

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRotateConcurrencySingleWinner(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	pair, err := engine.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	winners := make(chan *TokenPair, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			next, err := engine.Rotate(context.Background(), pair.RefreshToken)
			if err == nil {
				winners <- next
			}
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	close(winners)

	success := 0
	fail := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if errors.Is(err, ErrCredentialReused) {
			fail++
			continue
		}
		t.Fatalf("unexpected rotation error: %v", err)
	}

	if success != 1 {
		t.Fatalf("expected exactly one rotation winner, got %d", success)
	}
	if fail != n-1 {
		t.Fatalf("expected %d losers, got %d", n-1, fail)
	}

	winner := <-winners
	if winner.FamilyID != pair.FamilyID {
		t.Fatal("winner left the family")
	}

	// One more replay after the dust settles: by now the winner's
	// successor is persisted, so the compromise response takes it down.
	if _, err := engine.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrCredentialReused) {
		t.Fatalf("expected ErrCredentialReused on replay, got %v", err)
	}
	if _, err := engine.Rotate(context.Background(), winner.RefreshToken); !errors.Is(err, ErrCredentialRevoked) {
		t.Fatalf("expected revoked successor, got %v", err)
	}
}

func TestConcurrentIssueDistinctTokens(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)

	tokens := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			pair, err := engine.Issue(context.Background(), "bob")
			if err != nil {
				t.Errorf("Issue failed: %v", err)
				return
			}
			tokens <- pair.RefreshToken
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[string]struct{})
	for token := range tokens {
		if _, dup := seen[token]; dup {
			t.Fatal("duplicate refresh token issued")
		}
		seen[token] = struct{}{}
	}
	if len(seen) != n {
		t.Fatalf("expected %d tokens, got %d", n, len(seen))
	}
}
