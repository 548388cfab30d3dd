package agents

import (
	"context"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// OpportunityHunter looks for product opportunities in a niche.
type OpportunityHunter struct {
	cfg Config
}

// NewOpportunityHunter creates an opportunity hunting agent
func NewOpportunityHunter(cfg Config) *OpportunityHunter {
	return &OpportunityHunter{cfg: cfg}
}

// Run lists product ideas for niche.
func (a *OpportunityHunter) Run(ctx context.Context, niche string) (*types.OpportunityResult, error) {
	result, err := generate[types.OpportunityResult](ctx, a.cfg, "opportunity hunter", prompts.StrategyFile, "opportunity-hunter", schemas.Opportunity, map[string]string{
		"Niche": niche,
	})
	if err != nil {
		return nil, err
	}
	if result.Niche == "" {
		result.Niche = niche
	}
	return result, nil
}

// Default reports that no ideas could be fetched.
func (a *OpportunityHunter) Default(niche string) *types.OpportunityResult {
	return &types.OpportunityResult{
		Niche: niche,
		ProductIdeas: []types.ProductIdea{{
			Name:   "Error fetching ideas",
			Reason: "Could not connect to the AI model or parse the response.",
		}},
	}
}

// MarketSentinel checks whether a newer model of a product is on the market.
type MarketSentinel struct {
	cfg Config
}

// NewMarketSentinel creates a market sentinel agent
func NewMarketSentinel(cfg Config) *MarketSentinel {
	return &MarketSentinel{cfg: cfg}
}

// Run checks product freshness.
func (a *MarketSentinel) Run(ctx context.Context, product *types.Product) (*types.FreshnessResult, error) {
	return generate[types.FreshnessResult](ctx, a.cfg, "market sentinel", prompts.StrategyFile, "market-sentinel", schemas.Freshness, map[string]string{
		"ProductName": product.Name,
	})
}

// Default assumes the product is current.
func (a *MarketSentinel) Default() *types.FreshnessResult {
	return &types.FreshnessResult{IsOutdated: false, Reason: "Could not perform the check due to an error."}
}
