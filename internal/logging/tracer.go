package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type spanKey struct{}

// ZerologTracer writes span and event records for agent runs.
type ZerologTracer struct {
	logger zerolog.Logger
}

// NewZerologTracer creates a tracer writing JSON lines to w.
// A nil w writes to stderr.
func NewZerologTracer(w io.Writer) *ZerologTracer {
	if w == nil {
		w = os.Stderr
	}
	return &ZerologTracer{logger: zerolog.New(w).With().Timestamp().Str("component", "agent").Logger()}
}

// StartSpan starts a span named name and returns a context carrying it along
// with the function that ends it.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	lc := t.logger.With().Str("span", name)
	for k, v := range attrs {
		lc = lc.Interface(k, v)
	}
	spanLogger := lc.Logger()

	ctx = context.WithValue(ctx, spanKey{}, spanLogger)
	start := time.Now()

	spanLogger.Info().Str("event", "span_start").Msg("")

	finish := func(err error) {
		ev := spanLogger.Info()
		if err != nil {
			ev = spanLogger.Error().Err(err)
		}
		ev.Str("event", "span_end").Dur("duration", time.Since(start)).Msg("")
	}
	return ctx, finish
}

// Event records a named event inside the span carried by ctx, or on the root
// logger when ctx has none.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger, ok := ctx.Value(spanKey{}).(zerolog.Logger)
	if !ok {
		logger = t.logger
	}
	ev := logger.Info()
	for k, v := range attrs {
		ev = ev.Interface(k, v)
	}
	ev.Str("event", name).Msg("")
}
