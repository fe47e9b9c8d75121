package refreshguard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/refreshguard/refreshguard/credential"
	"github.com/refreshguard/refreshguard/internal/audit"
	"github.com/refreshguard/refreshguard/jwt"
)

// Engine defines a public type used by refreshguard APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// All operations are safe for concurrent use; the store's compare-and-set is
// the single synchronization point for rotation races.
type Engine struct {
	config     Config
	store      credential.Store
	jwtManager *jwt.Manager
	audit      *audit.Dispatcher
	metrics    *Metrics
	authorizer RevokeAuthorizer

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// Close stops the background sweeper, if running, and drains the audit
// dispatcher. Safe to call more than once. Operations that mint credentials
// fail with [ErrEngineClosed] afterwards; revocation stays available so a
// shutdown path can still log sessions out.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.sweepStop != nil {
			close(e.sweepStop)
			e.sweepWG.Wait()
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// guardOpen rejects minting operations on a closed engine.
func (e *Engine) guardOpen() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// AuditDropped reports audit events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies all engine counters and histograms at once.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// StorePing verifies store connectivity and reports round-trip latency.
func (e *Engine) StorePing(ctx context.Context) (time.Duration, error) {
	return e.store.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, n)
}
