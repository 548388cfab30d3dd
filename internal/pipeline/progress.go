package pipeline

import (
	"log/slog"
	"time"

	"github.com/jonathan/catalog-agent/internal/observability"
)

// EventType identifies a progress event
type EventType string

// Progress event types
const (
	EventJobStarted       EventType = "job_started"
	EventProviderFailed   EventType = "provider_failed"
	EventProviderSelected EventType = "provider_selected"
	EventStageStarted     EventType = "stage_started"
	EventStageCompleted   EventType = "stage_completed"
	EventStageFailed      EventType = "stage_failed"
	EventJobCompleted     EventType = "job_completed"
	EventJobFailed        EventType = "job_failed"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Type        EventType `json:"type"`
	JobID       string    `json:"job_id"`
	ProductID   string    `json:"product_id"`
	Stage       string    `json:"stage,omitempty"`
	Index       int       `json:"index,omitempty"`
	Total       int       `json:"total,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	DurationMs  int64     `json:"duration_ms,omitempty"`
	Substituted bool      `json:"substituted,omitempty"`
	Error       string    `json:"error,omitempty"`
	Content     any       `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Chain calls every non-nil callback in order.
func Chain(callbacks ...ProgressCallback) ProgressCallback {
	return func(event ProgressEvent) {
		for _, cb := range callbacks {
			if cb != nil {
				cb(event)
			}
		}
	}
}

// ObserveMetrics records progress events in m.
func ObserveMetrics(m *observability.Metrics) ProgressCallback {
	return func(event ProgressEvent) {
		switch event.Type {
		case EventJobStarted:
			m.JobsStarted.Inc()
		case EventProviderFailed:
			m.ProviderFailures.WithLabelValues(event.Provider).Inc()
		case EventProviderSelected:
			m.ProviderSelected.WithLabelValues(event.Provider).Inc()
		case EventStageCompleted:
			status := "completed"
			if event.Substituted {
				status = "substituted"
			}
			m.StageDuration.WithLabelValues(event.Stage, status).Observe(ms(event.DurationMs))
		case EventStageFailed:
			m.StageDuration.WithLabelValues(event.Stage, "failed").Observe(ms(event.DurationMs))
		case EventJobCompleted:
			m.JobsFinished.WithLabelValues("completed").Inc()
		case EventJobFailed:
			m.JobsFinished.WithLabelValues("failed").Inc()
		}
	}
}

// LogProgress writes progress events to logger.
func LogProgress(logger *slog.Logger) ProgressCallback {
	return func(event ProgressEvent) {
		attrs := []any{"job_id", event.JobID, "product_id", event.ProductID}
		if event.Stage != "" {
			attrs = append(attrs, "stage", event.Stage)
		}
		if event.Provider != "" {
			attrs = append(attrs, "provider", event.Provider)
		}
		if event.DurationMs > 0 {
			attrs = append(attrs, "duration_ms", event.DurationMs)
		}

		switch event.Type {
		case EventStageFailed, EventJobFailed:
			logger.Warn(string(event.Type), append(attrs, "error", event.Error)...)
		case EventProviderFailed:
			logger.Info(string(event.Type), append(attrs, "error", event.Error)...)
		case EventStageCompleted:
			logger.Info(string(event.Type), append(attrs, "substituted", event.Substituted)...)
		default:
			logger.Info(string(event.Type), attrs...)
		}
	}
}

// PrintProgress renders stage events with the CLI printer.
func PrintProgress(p *observability.Printer) ProgressCallback {
	return func(event ProgressEvent) {
		d := time.Duration(event.DurationMs) * time.Millisecond
		switch event.Type {
		case EventStageCompleted:
			status := "completed"
			if event.Substituted {
				status = "substituted"
			}
			p.PrintStage(event.Index, event.Total, event.Stage, status, d)
		case EventStageFailed:
			p.PrintStage(event.Index, event.Total, event.Stage, "failed", d)
		}
	}
}

func ms(v int64) float64 {
	return float64(v) / 1000
}
