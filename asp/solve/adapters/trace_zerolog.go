package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

type spanLoggerKey struct{}

// ZerologTracer implements the Tracer port as structured zerolog spans.
type ZerologTracer struct {
	logger zerolog.Logger
}

// NewZerologTracer creates a tracer emitting through logger.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

// StartSpan opens a span and returns a context carrying the span logger
// plus a finish function that records the outcome and duration.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	spanLogger := t.logger.With().Str("span", name).Logger()
	for k, v := range attrs {
		spanLogger = spanLogger.With().Interface(k, v).Logger()
	}
	ctx = context.WithValue(ctx, spanLoggerKey{}, spanLogger)

	start := time.Now()
	spanLogger.Debug().Str("event", "span_start").Msg("span started")

	finish := func(err error) {
		event := spanLogger.Info()
		if err != nil {
			event = spanLogger.Error().Err(err)
		}
		event.
			Str("event", "span_end").
			Dur("duration", time.Since(start)).
			Msg("span finished")
	}

	return ctx, finish
}

// Event records a point-in-time event against the surrounding span, or
// the base logger when called outside one.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if spanLogger, ok := ctx.Value(spanLoggerKey{}).(zerolog.Logger); ok {
		logger = spanLogger
	}

	event := logger.Info()
	for k, v := range attrs {
		event = event.Interface(k, v)
	}
	event.Str("event", name).Msg("trace event")
}

var _ ports.Tracer = (*ZerologTracer)(nil)
