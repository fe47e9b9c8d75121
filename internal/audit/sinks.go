package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink delivers audit events over a buffered channel, for callers
// that consume events with their own goroutine.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Emit blocks until the event is accepted or ctx is cancelled.
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink channel.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink appends events to an io.Writer as newline-delimited JSON.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	// Encoder appends the trailing newline; encoding errors are swallowed
	// because audit output must never fail a credential operation.
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}
