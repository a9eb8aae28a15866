package logging

import (
	"fmt"
	"log/slog"

	"vaultpay/core/events"
)

// EventLogger forwards ledger events to a structured logger. It satisfies the
// engines' emitter contract so it can sit inside an events.MultiEmitter next
// to the metrics registry.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger wraps a logger; a nil logger falls back to slog.Default.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// Emit implements events.Emitter.
func (l *EventLogger) Emit(evt events.Event) {
	if l == nil || l.logger == nil || evt == nil {
		return
	}
	l.logger.Info("ledger event",
		slog.String("event", evt.EventType()),
		slog.String("detail", fmt.Sprintf("%+v", evt)),
	)
}
