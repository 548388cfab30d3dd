package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// QualityInput is the content the quality check reviews.
type QualityInput struct {
	SEO         *types.CompetitorSEOResult
	Copywriting *types.CopywriterResult
	Visuals     *types.VisualDesignerResult
}

// QualityChecker reviews the assembled content.
type QualityChecker struct {
	cfg Config
}

// NewQualityChecker creates a quality check agent
func NewQualityChecker(cfg Config) *QualityChecker {
	return &QualityChecker{cfg: cfg}
}

// Run scores the content package.
func (a *QualityChecker) Run(ctx context.Context, in QualityInput) (*types.QualityResult, error) {
	data := map[string]string{
		"Keywords":         "",
		"MetaTitle":        "",
		"ReviewExcerpt":    "",
		"PersonaAdherence": "0.00",
		"ImageCount":       "0",
	}
	if in.SEO != nil {
		data["Keywords"] = strings.Join(in.SEO.Keywords, ", ")
		data["MetaTitle"] = in.SEO.SEOMetadata.MetaTitle
	}
	if in.Copywriting != nil {
		data["ReviewExcerpt"] = excerpt(in.Copywriting.HTMLReview)
		data["PersonaAdherence"] = fmt.Sprintf("%.2f", in.Copywriting.BrandPersonaAdherence)
	}
	if in.Visuals != nil {
		data["ImageCount"] = strconv.Itoa(len(in.Visuals.ImagePrompts))
	}

	return generate[types.QualityResult](ctx, a.cfg, "quality check", prompts.AgentsFile, "quality-check", schemas.QualityCheck, data)
}

// Default is a zero score.
func (a *QualityChecker) Default() *types.QualityResult {
	return &types.QualityResult{OverallScore: 0, Feedback: "Quality check unavailable."}
}
