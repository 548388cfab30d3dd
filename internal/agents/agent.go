// Package agents implements the AI agents of the analysis pipeline and the
// standalone strategy agents. Every agent renders an embedded prompt, calls
// its provider through llm.Invoke, validates the JSON answer against a schema
// and decodes it. Each agent also offers the default payload the pipeline
// substitutes when the agent fails.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/catalog-agent/internal/fetch"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
)

// excerptLength is how much review text downstream agents see.
const excerptLength = 300

// Config is what every agent needs to talk to a provider.
type Config struct {
	Provider llm.Provider
	Options  llm.CallOptions
	Retry    llm.RetryPolicy
}

// Error is returned when an agent cannot produce a valid result.
type Error struct {
	Agent    string
	Provider string
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s agent failed (provider %s): %v", e.Agent, e.Provider, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// generate renders a prompt, calls the provider and decodes the validated answer into T.
func generate[T any](ctx context.Context, cfg Config, agent, file, key, schema string, data map[string]string) (*T, error) {
	if cfg.Provider == nil {
		return nil, &Error{Agent: agent, Cause: fmt.Errorf("no provider configured")}
	}
	fail := func(err error) (*T, error) {
		return nil, &Error{Agent: agent, Provider: cfg.Provider.Name(), Cause: err}
	}

	prompt, err := prompts.Render(file, key, data)
	if err != nil {
		return fail(err)
	}

	resp, err := llm.Invoke(ctx, cfg.Provider, prompt, cfg.Options, cfg.Retry)
	if err != nil {
		return fail(err)
	}

	content := llm.CleanJSONBlock(resp.Content)
	if content == "" {
		return fail(fmt.Errorf("empty response"))
	}
	if err := schemas.Validate(schema, content); err != nil {
		return fail(err)
	}

	var out T
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return fail(fmt.Errorf("failed to decode response: %w", err))
	}

	observability.FromContext(ctx).Debug("agent completed",
		"agent", agent,
		"provider", resp.ProviderUsed,
		"latency_ms", resp.LatencyMs,
	)
	return &out, nil
}

// excerpt returns the plain-text start of an HTML review.
func excerpt(html string) string {
	return llm.Truncate(fetch.HTMLToText(html), excerptLength)
}

// slugify lowercases name and joins its words with sep.
func slugify(name, sep string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), sep)
}
