package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// AffiliateLinkPlaceholder is left in generated reviews where the affiliate link goes.
const AffiliateLinkPlaceholder = "{{AFFILIATE_LINK}}"

// Copywriter drafts the persona-aware HTML review and short marketing assets.
type Copywriter struct {
	cfg Config
}

// NewCopywriter creates a copywriter agent
func NewCopywriter(cfg Config) *Copywriter {
	return &Copywriter{cfg: cfg}
}

// Run writes a review of product grounded on the scouted sources.
func (a *Copywriter) Run(ctx context.Context, product *types.Product, grounding *types.DataScoutResult, brandPersona string) (*types.CopywriterResult, error) {
	result, err := generate[types.CopywriterResult](ctx, a.cfg, "copywriter", prompts.AgentsFile, "copywriter", schemas.Copywriter, map[string]string{
		"ProductName":        product.Name,
		"ProductDescription": product.Description,
		"BrandPersona":       brandPersona,
		"Sources":            formatSources(grounding),
	})
	if err != nil {
		return nil, err
	}
	if result.MarketingAssets.Tweets == nil {
		result.MarketingAssets.Tweets = []string{}
	}
	return result, nil
}

// Default is an error notice in place of the review.
func (a *Copywriter) Default() *types.CopywriterResult {
	return &types.CopywriterResult{
		HTMLReview:      "<p>Error generating review.</p>",
		MarketingAssets: types.MarketingAssets{Tweets: []string{}},
	}
}

// RenderReview substitutes the affiliate link placeholder in a generated review.
func RenderReview(htmlReview, affiliateURL string) string {
	return strings.ReplaceAll(htmlReview, AffiliateLinkPlaceholder, affiliateURL)
}

func formatSources(grounding *types.DataScoutResult) string {
	if grounding == nil || len(grounding.Sources) == 0 {
		return "- (no sources found)"
	}
	lines := make([]string, 0, len(grounding.Sources))
	for _, s := range grounding.Sources {
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Title, s.URL))
	}
	return strings.Join(lines, "\n")
}
