package orchestrator

import (
	"context"

	"github.com/jonathan/catalog-agent/internal/agents"
	"github.com/jonathan/catalog-agent/internal/pipeline"
	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/types"
)

// FindOpportunities asks the first working provider for product ideas in niche.
// Failures are reported and answered with the agent's default result.
func (o *Orchestrator) FindOpportunities(ctx context.Context, niche string) (*types.OpportunityResult, error) {
	hunter := agents.NewOpportunityHunter(agents.Config{})
	cfg, err := o.agentConfig(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return hunter.Default(niche), nil
	}

	result, err := agents.NewOpportunityHunter(cfg).Run(ctx, niche)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.reporter.CaptureException(ctx, err, map[string]any{"niche": niche})
		return hunter.Default(niche), nil
	}
	return result, nil
}

// CheckFreshness asks whether a newer model of the product exists. An unknown
// product is an error; agent failures are answered with the default result.
func (o *Orchestrator) CheckFreshness(ctx context.Context, productID string) (*types.FreshnessResult, error) {
	product, err := o.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	sentinel := agents.NewMarketSentinel(agents.Config{})
	cfg, err := o.agentConfig(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return sentinel.Default(), nil
	}

	result, err := agents.NewMarketSentinel(cfg).Run(ctx, product)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.reporter.CaptureException(ctx, err, map[string]any{"productId": productID})
		return sentinel.Default(), nil
	}
	return result, nil
}

// agentConfig selects a working provider from the current configuration.
func (o *Orchestrator) agentConfig(ctx context.Context) (agents.Config, error) {
	o.mu.Lock()
	execCfg := o.executorConfig()
	o.mu.Unlock()

	probe, err := prompts.Get(prompts.StrategyFile, "connectivity-check")
	if err != nil {
		return agents.Config{}, err
	}
	s := &pipeline.Selector{Options: execCfg.CallOptions, Retry: execCfg.Retry, Reporter: o.reporter}
	provider, err := s.Select(ctx, execCfg.Providers, probe)
	if err != nil {
		return agents.Config{}, err
	}
	return agents.Config{Provider: provider, Options: execCfg.CallOptions, Retry: execCfg.Retry}, nil
}
