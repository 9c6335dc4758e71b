package goIdentity

import (
	"io"

	"github.com/MrEthical07/goIdentity/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is one security-relevant outcome. Events never carry passwords,
// codes or tokens.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's background dispatcher.
type AuditSink = audit.Sink

// NoOpAuditSink drops every event.
type NoOpAuditSink = audit.NoOpSink

// MultiAuditSink fans every event out to each sink in order.
type MultiAuditSink = audit.MultiSink

// NewChannelAuditSink returns a sink that buffers events in a channel,
// useful in tests.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink returns a sink writing one JSON object per line to w.
func NewJSONWriterAuditSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZapAuditSink returns a sink logging events through logger.
func NewZapAuditSink(logger *zap.Logger) *audit.ZapSink {
	return audit.NewZapSink(logger)
}
