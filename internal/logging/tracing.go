package logging

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// slog.Handler adding the active span to records in the format Cloud Logging
// correlates with Cloud Trace
//
// NOTE: Only the *Context logging methods carry the span
func NewCloudTraceHandler(base slog.Handler, project string) slog.Handler {
	return &cloudTraceHandler{base: base, project: project}
}

type cloudTraceHandler struct {
	base    slog.Handler
	project string
}

func (h *cloudTraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *cloudTraceHandler) Handle(ctx context.Context, record slog.Record) error {
	spanContext := trace.SpanContextFromContext(ctx)
	if spanContext.IsValid() {
		record.AddAttrs(
			slog.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", h.project, spanContext.TraceID())),
			slog.String("logging.googleapis.com/spanId", spanContext.SpanID().String()),
			slog.Bool("logging.googleapis.com/trace_sampled", spanContext.IsSampled()),
		)
	}
	return h.base.Handle(ctx, record)
}

func (h *cloudTraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &cloudTraceHandler{base: h.base.WithAttrs(attrs), project: h.project}
}

func (h *cloudTraceHandler) WithGroup(name string) slog.Handler {
	return &cloudTraceHandler{base: h.base.WithGroup(name), project: h.project}
}
