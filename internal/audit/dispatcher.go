package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher forwards audit events to a sink from a dedicated goroutine so
// credential operations never wait on audit I/O. A nil Dispatcher is valid
// and drops everything, so callers never branch on whether auditing is
// enabled.
type Dispatcher struct {
	sink         Sink
	dropWhenFull bool

	queue   chan Event
	wg      sync.WaitGroup
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher returns nil when auditing is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &Dispatcher{
		sink:         sink,
		dropWhenFull: cfg.DropIfFull,
		queue:        make(chan Event, cfg.BufferSize),
	}

	d.wg.Add(1)
	go d.deliver()

	return d
}

// deliver runs until Close closes the queue; the range loop drains any
// events still buffered at shutdown before returning.
func (d *Dispatcher) deliver() {
	defer d.wg.Done()
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit enqueues an event. In drop-if-full mode a full buffer increments the
// dropped counter instead of blocking; otherwise Emit waits until the buffer
// accepts the event or ctx is cancelled.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// The read lock pins the queue open: Close takes the write lock before
	// closing it, so a send in flight here cannot hit a closed channel.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropWhenFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, waits for buffered events to be delivered, and
// returns. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.queue)
	d.wg.Wait()
}

// Dropped reports how many events were discarded because the buffer was
// full in drop-if-full mode.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
