package refreshguard

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/refreshguard/refreshguard/internal/audit"
)

// AuditEvent is the structured record emitted for every credential
// lifecycle operation. Raw tokens and hashes never appear in events.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Implementations must be safe for
// concurrent use; the dispatcher calls Emit from a single goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// ZapSink forwards audit events to a zap logger as structured fields.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a [ZapSink] on the given logger. A nil logger yields a
// sink that drops everything.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.logger == nil {
		return
	}

	fields := []zap.Field{
		zap.Time("timestamp", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IdentityID != "" {
		fields = append(fields, zap.String("identity_id", event.IdentityID))
	}
	if event.CredentialID != "" {
		fields = append(fields, zap.String("credential_id", event.CredentialID))
	}
	if event.FamilyID != "" {
		fields = append(fields, zap.String("family_id", event.FamilyID))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String("meta_"+k, v))
	}

	if event.Success {
		s.logger.Info("audit", fields...)
	} else {
		s.logger.Warn("audit", fields...)
	}
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *audit.Dispatcher {
	return audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}
