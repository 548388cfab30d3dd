package agents

import (
	"context"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// ImprovementSuggester suggests listing improvements.
type ImprovementSuggester struct {
	cfg Config
}

// NewImprovementSuggester creates an improvement suggestion agent
func NewImprovementSuggester(cfg Config) *ImprovementSuggester {
	return &ImprovementSuggester{cfg: cfg}
}

// Run suggests improvements for product.
func (a *ImprovementSuggester) Run(ctx context.Context, product *types.Product) (*types.ImprovementResult, error) {
	result, err := generate[types.ImprovementResult](ctx, a.cfg, "improvement suggestions", prompts.AgentsFile, "improvement-suggestions", schemas.ImprovementSuggestions, map[string]string{
		"ProductName":        product.Name,
		"ProductDescription": product.Description,
	})
	if err != nil {
		return nil, err
	}
	if result.Suggestions == nil {
		result.Suggestions = []types.Suggestion{}
	}
	return result, nil
}

// Default has no suggestions.
func (a *ImprovementSuggester) Default() *types.ImprovementResult {
	return &types.ImprovementResult{Suggestions: []types.Suggestion{}}
}
