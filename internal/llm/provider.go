package llm

import (
	"context"
	"time"
)

// Default call hints applied when a caller does not set its own.
const (
	DefaultMaxRetries = 2
	DefaultTimeout    = 15 * time.Second
)

// CallOptions are the hints attached to a provider call. Invoke enforces them.
type CallOptions struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultCallOptions returns 2 retries with a 15s per-attempt deadline.
func DefaultCallOptions() CallOptions {
	return CallOptions{MaxRetries: DefaultMaxRetries, Timeout: DefaultTimeout}
}

// Response is the answer of a single provider call.
// Success=false is an unsuccessful answer; a returned error is a raised failure.
// Callers treat both as a failure of the provider.
type Response struct {
	Content      string `json:"content"`
	Success      bool   `json:"success"`
	ProviderUsed string `json:"provider_used"`
	LatencyMs    int64  `json:"latency_ms"`
	Error        string `json:"error,omitempty"`
}

// Provider is a named text-generation backend.
type Provider interface {
	Name() string
	Call(ctx context.Context, prompt string, opts CallOptions) (*Response, error)
}

// ClientProvider adapts a Client to the Provider contract. Client errors become
// unsuccessful responses so that failover can move on to the next provider.
type ClientProvider struct {
	name   string
	client Client
	tier   ModelTier
}

// NewClientProvider wraps client under the given name, generating JSON at tier.
func NewClientProvider(name string, client Client, tier ModelTier) *ClientProvider {
	if tier == "" {
		tier = TierStandard
	}
	return &ClientProvider{name: name, client: client, tier: tier}
}

// Name returns the provider name
func (p *ClientProvider) Name() string { return p.name }

// Call sends prompt to the wrapped client. Retries and deadlines are applied by Invoke.
func (p *ClientProvider) Call(ctx context.Context, prompt string, _ CallOptions) (*Response, error) {
	start := time.Now()
	content, err := p.client.GenerateJSON(ctx, prompt, p.tier)
	resp := &Response{
		ProviderUsed: p.name,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Content = content
	resp.Success = true
	return resp, nil
}

// Close releases the wrapped client
func (p *ClientProvider) Close() error {
	return p.client.Close()
}
