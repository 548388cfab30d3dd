package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
)

// ErrAllProvidersExhausted is returned when no provider answered the probe.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// Selector picks the first working provider from a priority list.
type Selector struct {
	Options  llm.CallOptions
	Retry    llm.RetryPolicy
	Reporter observability.Reporter
	// OnFailure is called for every provider that failed the probe
	OnFailure func(provider string, err error)
}

// Select probes providers in order with prompt and returns the first one whose
// answer reports success. Each probe is one failover attempt made through
// llm.Invoke, so s.Options.MaxRetries retries happen inside that attempt before
// the provider counts as failed. A failed provider is reported and skipped and
// is not probed again in this selection. When every provider fails the error
// wraps ErrAllProvidersExhausted.
func (s *Selector) Select(ctx context.Context, providers []llm.Provider, prompt string) (llm.Provider, error) {
	reporter := s.Reporter
	if reporter == nil {
		reporter = observability.NopReporter{}
	}

	var errs []error
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, err := llm.Invoke(ctx, p, prompt, s.Options, s.Retry)
		if err == nil {
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		reporter.CaptureException(ctx, err, map[string]any{
			"provider": p.Name(),
			"prompt":   prompt,
		})
		if s.OnFailure != nil {
			s.OnFailure(p.Name(), err)
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrAllProvidersExhausted)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllProvidersExhausted, errors.Join(errs...))
}
