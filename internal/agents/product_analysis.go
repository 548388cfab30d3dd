package agents

import (
	"context"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// ProductAnalyst produces the structured product summary shown on the public page.
type ProductAnalyst struct {
	cfg Config
}

// NewProductAnalyst creates a product analysis agent
func NewProductAnalyst(cfg Config) *ProductAnalyst {
	return &ProductAnalyst{cfg: cfg}
}

// Run analyzes product using the start of the generated review.
func (a *ProductAnalyst) Run(ctx context.Context, product *types.Product, copywriting *types.CopywriterResult) (*types.ProductAnalysis, error) {
	review := ""
	if copywriting != nil {
		review = copywriting.HTMLReview
	}
	result, err := generate[types.ProductAnalysis](ctx, a.cfg, "product analysis", prompts.AgentsFile, "product-analysis", schemas.ProductAnalysis, map[string]string{
		"ProductName":        product.Name,
		"ProductDescription": product.Description,
		"ReviewExcerpt":      excerpt(review),
	})
	if err != nil {
		return nil, err
	}
	for _, list := range []*[]string{&result.KeyFeatures, &result.Pros, &result.Cons} {
		if *list == nil {
			*list = []string{}
		}
	}
	return result, nil
}

// Default is only used when the stage is configured to substitute instead of abort.
func (a *ProductAnalyst) Default() *types.ProductAnalysis {
	return &types.ProductAnalysis{
		KeyFeatures: []string{},
		Pros:        []string{},
		Cons:        []string{},
		Summary:     "Analysis unavailable.",
	}
}
