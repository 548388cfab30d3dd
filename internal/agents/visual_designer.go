package agents

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// VisualDesigner proposes image concepts and placeholder images.
type VisualDesigner struct {
	cfg Config
}

// NewVisualDesigner creates a visual designer agent
func NewVisualDesigner(cfg Config) *VisualDesigner {
	return &VisualDesigner{cfg: cfg}
}

// Run generates image prompts for product. Placeholder URLs from the model are
// replaced with deterministic seeded picsum URLs, one per returned URL.
func (a *VisualDesigner) Run(ctx context.Context, product *types.Product) (*types.VisualDesignerResult, error) {
	result, err := generate[types.VisualDesignerResult](ctx, a.cfg, "visual designer", prompts.AgentsFile, "visual-designer", schemas.VisualDesigner, map[string]string{
		"ProductName":        product.Name,
		"ProductDescription": product.Description,
	})
	if err != nil {
		return nil, err
	}
	if result.ImagePrompts == nil {
		result.ImagePrompts = []string{}
	}
	result.PlaceholderURLs = PlaceholderURLs(product.Name, len(result.PlaceholderURLs))
	return result, nil
}

// Default has no concepts.
func (a *VisualDesigner) Default() *types.VisualDesignerResult {
	return &types.VisualDesignerResult{ImagePrompts: []string{}, PlaceholderURLs: []string{}}
}

// PlaceholderURLs returns n seeded picsum.photos URLs for a product name.
func PlaceholderURLs(productName string, n int) []string {
	seed := url.PathEscape(slugify(productName, ""))
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://picsum.photos/seed/%s%d/800/600", seed, i)
	}
	return urls
}
