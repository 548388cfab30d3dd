package agents

import (
	"context"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// CompetitorSEO researches keywords, competitors and page metadata.
type CompetitorSEO struct {
	cfg Config
}

// NewCompetitorSEO creates a competitor SEO agent
func NewCompetitorSEO(cfg Config) *CompetitorSEO {
	return &CompetitorSEO{cfg: cfg}
}

// Run analyzes the market around product.
func (a *CompetitorSEO) Run(ctx context.Context, product *types.Product) (*types.CompetitorSEOResult, error) {
	result, err := generate[types.CompetitorSEOResult](ctx, a.cfg, "competitor seo", prompts.AgentsFile, "competitor-seo", schemas.CompetitorSEO, map[string]string{
		"ProductName":        product.Name,
		"ProductDescription": product.Description,
		"Slug":               slugify(product.Name, "-"),
	})
	if err != nil {
		return nil, err
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	if result.CompetitorSlugs == nil {
		result.CompetitorSlugs = []string{}
	}
	if result.CompetitorAnalyses == nil {
		result.CompetitorAnalyses = []types.CompetitorAnalysis{}
	}
	if result.SEOMetadata.SecondaryKeywords == nil {
		result.SEOMetadata.SecondaryKeywords = []string{}
	}
	return result, nil
}

// Default has no keywords, competitors or metadata.
func (a *CompetitorSEO) Default() *types.CompetitorSEOResult {
	return &types.CompetitorSEOResult{
		Keywords:           []string{},
		CompetitorSlugs:    []string{},
		CompetitorAnalyses: []types.CompetitorAnalysis{},
		SEOMetadata:        types.SEOMetadata{SecondaryKeywords: []string{}},
	}
}
