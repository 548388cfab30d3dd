package observability

import (
	"context"
	"log/slog"
	"sort"
)

// Reporter is the error-reporting sink. Implementations must be safe for concurrent use.
type Reporter interface {
	CaptureException(ctx context.Context, err error, fields map[string]any)
	CaptureMessage(ctx context.Context, msg string, fields map[string]any)
}

// LogReporter reports through structured logs and counts every capture.
type LogReporter struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewLogReporter creates a reporter. A nil logger uses the context or global
// logger; nil metrics disables counting.
func NewLogReporter(logger *slog.Logger, metrics *Metrics) *LogReporter {
	return &LogReporter{logger: logger, metrics: metrics}
}

// CaptureException logs err at error level with the given context fields.
func (r *LogReporter) CaptureException(ctx context.Context, err error, fields map[string]any) {
	if err == nil {
		return
	}
	r.loggerFor(ctx).LogAttrs(ctx, slog.LevelError, "captured exception", append(attrs(fields), slog.String("error", err.Error()))...)
	r.count("exception")
}

// CaptureMessage logs msg at warn level with the given context fields.
func (r *LogReporter) CaptureMessage(ctx context.Context, msg string, fields map[string]any) {
	r.loggerFor(ctx).LogAttrs(ctx, slog.LevelWarn, msg, attrs(fields)...)
	r.count("message")
}

func (r *LogReporter) loggerFor(ctx context.Context) *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return FromContext(ctx)
}

func (r *LogReporter) count(kind string) {
	if r.metrics != nil {
		r.metrics.Captures.WithLabelValues(kind).Inc()
	}
}

// attrs converts fields into attributes in key order so output is stable.
func attrs(fields map[string]any) []slog.Attr {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]slog.Attr, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}

// NopReporter discards everything.
type NopReporter struct{}

// CaptureException does nothing
func (NopReporter) CaptureException(context.Context, error, map[string]any) {}

// CaptureMessage does nothing
func (NopReporter) CaptureMessage(context.Context, string, map[string]any) {}
