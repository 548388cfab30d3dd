// Package events publishes analysis lifecycle events.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageType is the type of a lifecycle event.
type MessageType string

// Lifecycle event types
const (
	TypeAnalysisCompleted MessageType = "analysis.completed"
	TypeAnalysisFailed    MessageType = "analysis.failed"
)

// Message is the envelope of every published event.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// AnalysisPayload describes a settled analysis run.
type AnalysisPayload struct {
	JobID      string `json:"job_id"`
	ProductID  string `json:"product_id"`
	Status     string `json:"status"`
	Provider   string `json:"provider,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// NewMessage wraps payload in a new envelope.
func NewMessage(t MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, *Message) error { return nil }

// MemoryPublisher keeps published events in memory; used by the CLI and tests.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []*Message
}

// Publish records msg.
func (p *MemoryPublisher) Publish(_ context.Context, msg *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

// Messages returns the recorded events in publish order.
func (p *MemoryPublisher) Messages() []*Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Message, len(p.messages))
	copy(out, p.messages)
	return out
}
