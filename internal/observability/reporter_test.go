package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, "json", false)
	metrics := NewMetrics(prometheus.NewRegistry())
	r := NewLogReporter(logger, metrics)

	r.CaptureException(context.Background(), errors.New("provider down"), map[string]any{"provider": "gemini", "stage": "copywriting"})
	r.CaptureMessage(context.Background(), "stage substituted", map[string]any{"stage": "seo_scoring"})
	r.CaptureException(context.Background(), nil, nil)

	output := buf.String()
	assert.Contains(t, output, `"error":"provider down"`)
	assert.Contains(t, output, `"provider":"gemini"`)
	assert.Contains(t, output, `"msg":"stage substituted"`)
	assert.Equal(t, 1.0, counterValue(t, metrics.Captures.WithLabelValues("exception")))
	assert.Equal(t, 1.0, counterValue(t, metrics.Captures.WithLabelValues("message")))
}

func TestLogReporter_UsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(&buf, slog.LevelInfo, "text", false))

	NewLogReporter(nil, nil).CaptureMessage(ctx, "hello", nil)

	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNopReporter(t *testing.T) {
	var r Reporter = NopReporter{}
	r.CaptureException(context.Background(), errors.New("x"), nil)
	r.CaptureMessage(context.Background(), "x", nil)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestFromContext_Default(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
	logger := WithJobID(slog.Default(), "job-1")
	assert.Equal(t, logger, FromContext(WithLogger(context.Background(), logger)))
}
