package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrUnsuccessful wraps the error message of an unsuccessful provider response.
var ErrUnsuccessful = errors.New("provider returned an unsuccessful response")

// RetryPolicy configures the backoff between attempts of a provider call.
type RetryPolicy struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay is the upper bound on the delay between retries.
	MaxDelay time.Duration

	// BackoffMultiplier controls exponential growth of the delay.
	BackoffMultiplier float64

	// Jitter randomizes the delay between 0 and the computed backoff.
	Jitter bool

	// OnRetry is invoked before each retry with the failure, the attempt
	// number (0-indexed) and the delay that will be applied.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns 500ms base delay, 10s cap, 2x backoff, jitter enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// CalculateDelay computes the delay for a given retry attempt, capped at MaxDelay.
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	multiplier := p.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delayFloat := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if p.MaxDelay > 0 && delayFloat > float64(p.MaxDelay) {
		delayFloat = float64(p.MaxDelay)
	}

	delay := time.Duration(delayFloat)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}
	return delay
}

// Invoke calls provider with the retry policy and call hints applied: each
// attempt runs under its own opts.Timeout deadline, and up to opts.MaxRetries
// retries follow an error or an unsuccessful response. The last response is
// returned together with the last failure. Cancellation of ctx stops retrying
// and returns ctx.Err().
func Invoke(ctx context.Context, provider Provider, prompt string, opts CallOptions, policy RetryPolicy) (*Response, error) {
	var (
		resp    *Response
		lastErr error
	)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		resp, lastErr = callOnce(ctx, provider, prompt, opts)
		if lastErr == nil {
			return resp, nil
		}
		if attempt >= opts.MaxRetries {
			return resp, lastErr
		}

		delay := policy.CalculateDelay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(lastErr, attempt, delay)
		}

		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func callOnce(ctx context.Context, provider Provider, prompt string, opts CallOptions) (*Response, error) {
	attemptCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// A provider that ignores its context still cannot outlive the deadline
	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		r, e := provider.Call(attemptCtx, prompt, opts)
		done <- result{r, e}
	}()

	var (
		resp *Response
		err  error
	)
	select {
	case r := <-done:
		resp, err = r.resp, r.err
	case <-attemptCtx.Done():
		return nil, fmt.Errorf("provider %s: %w", provider.Name(), attemptCtx.Err())
	}
	if err != nil {
		return resp, fmt.Errorf("provider %s: %w", provider.Name(), err)
	}
	if resp == nil {
		return nil, fmt.Errorf("provider %s: %w: empty response", provider.Name(), ErrUnsuccessful)
	}
	if !resp.Success {
		if attemptCtx.Err() != nil {
			return resp, fmt.Errorf("provider %s: %w", provider.Name(), attemptCtx.Err())
		}
		return resp, fmt.Errorf("provider %s: %w: %s", provider.Name(), ErrUnsuccessful, resp.Error)
	}
	return resp, nil
}
