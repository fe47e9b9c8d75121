package refreshguard

import (
	"context"
	"log"
	"strconv"
	"time"
)

// Sweep purges records the store no longer needs: rows past their retention
// window on backends without native expiry. Redis-backed engines report
// zero, since key TTLs do the work. Returns the number of records purged.
//
// Sweep may return an error when input validation, dependency calls, or security checks fail.
// Sweep does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	purged, err := e.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		return 0, e.revokeStoreError(err)
	}

	if purged > 0 {
		e.metricAdd(MetricSweepPurged, uint64(purged))
		e.emitAudit(ctx, auditEventSweepCompleted, true, "", "", "", nil, func() map[string]string {
			return map[string]string{
				"purged": strconv.Itoa(purged),
			}
		})
	}
	return purged, nil
}

func (e *Engine) startSweeper(interval time.Duration) {
	e.sweepStop = make(chan struct{})
	e.sweepWG.Add(1)

	go func() {
		defer e.sweepWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := e.Sweep(context.Background()); err != nil {
					log.Printf("refreshguard: sweep failed: %v", err)
				}
			case <-e.sweepStop:
				return
			}
		}
	}()
}
