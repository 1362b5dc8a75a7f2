package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/metrics"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// TransactionEvent is emitted every time a transaction enters a status.
type TransactionEvent struct {
	TransactionID uint
	Protocol      store.Protocol
	Status        store.TxStatus
	TxHash        string
	Error         string
	At            time.Time
}

// EventSink receives lifecycle events. Emit must not block for long.
type EventSink interface {
	Emit(ctx context.Context, ev TransactionEvent)
}

// LogSink writes events to a logger.
type LogSink struct {
	Logger zerolog.Logger
}

// Emit implements EventSink.
func (s LogSink) Emit(_ context.Context, ev TransactionEvent) {
	e := s.Logger.Info()
	if ev.Status == store.StatusFailed {
		e = s.Logger.Warn().Str("error", ev.Error)
	}
	if ev.TxHash != "" {
		e = e.Str("tx_hash", ev.TxHash)
	}
	e.Uint("tx_id", ev.TransactionID).
		Str("protocol", ev.Protocol.String()).
		Str("status", string(ev.Status)).
		Msg("transaction status")
}

// MetricsSink counts status entries.
type MetricsSink struct{}

// Emit implements EventSink.
func (MetricsSink) Emit(_ context.Context, ev TransactionEvent) {
	metrics.TransactionStatus(ev.Protocol.String(), string(ev.Status))
}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(ctx context.Context, ev TransactionEvent) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}
