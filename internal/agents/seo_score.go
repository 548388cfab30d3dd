package agents

import (
	"context"
	"strings"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// SEOScorer rates how well the review uses the target keywords.
type SEOScorer struct {
	cfg Config
}

// NewSEOScorer creates an SEO scoring agent
func NewSEOScorer(cfg Config) *SEOScorer {
	return &SEOScorer{cfg: cfg}
}

// Run scores copywriting against the keywords of seo.
func (a *SEOScorer) Run(ctx context.Context, seo *types.CompetitorSEOResult, copywriting *types.CopywriterResult) (*types.SEOScoreResult, error) {
	var keywords []string
	if seo != nil {
		keywords = seo.Keywords
	}
	review := ""
	if copywriting != nil {
		review = copywriting.HTMLReview
	}
	return generate[types.SEOScoreResult](ctx, a.cfg, "seo score", prompts.AgentsFile, "seo-score", schemas.SEOScore, map[string]string{
		"Keywords":      strings.Join(keywords, ", "),
		"ReviewExcerpt": excerpt(review),
	})
}

// Default is a zero score.
func (a *SEOScorer) Default() *types.SEOScoreResult {
	return &types.SEOScoreResult{Score: 0, Feedback: "Failed to perform SEO score check."}
}
