package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to a slog level, case-insensitively.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger for w. When setDefault is true it also becomes slog's default.
func NewLogger(w io.Writer, level slog.Level, format string, setDefault bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	if setDefault {
		slog.SetDefault(logger)
	}
	return logger
}

type ctxKey string

const ctxLogger ctxKey = "logger"

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogger, logger)
}

// FromContext returns the context logger, or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// WithJobID returns a logger tagged with job_id.
func WithJobID(logger *slog.Logger, jobID string) *slog.Logger {
	return logger.With("job_id", jobID)
}

// WithProductID returns a logger tagged with product_id.
func WithProductID(logger *slog.Logger, productID string) *slog.Logger {
	return logger.With("product_id", productID)
}
