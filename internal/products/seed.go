package products

import (
	"time"

	"github.com/jonathan/catalog-agent/internal/types"
)

// SeedProducts returns the demo catalog: two drafts and one published product
// with a finished analysis.
func SeedProducts() []*types.Product {
	widget := types.NewProduct("Quantum Widget", "https://example.com/aff/quantum",
		"A revolutionary widget that operates on quantum principles.")
	scrubber := types.NewProduct("Hyper Scrubber", "https://example.com/aff/scrubber",
		"Cleans anything, even spacetime stains.")
	mug := types.NewProduct("Galactic Mug", "https://example.com/aff/mug",
		"A mug that holds a tiny, swirling galaxy.")

	now := time.Now()
	mug.AnalysisResult = &types.Job{
		ID:         "seed-job-1",
		ProductID:  mug.ID,
		Status:     types.JobStatusCompleted,
		StartedAt:  now,
		FinishedAt: &now,
		Stages:     []types.StageRecord{},
		Result:     seedResult(),
	}
	mug.UpdateStatus(types.ProductStatusAnalysisCompleted)
	_ = mug.Publish()

	return []*types.Product{widget, scrubber, mug}
}

func seedResult() *types.FinalResult {
	return &types.FinalResult{
		DataScout: &types.DataScoutResult{Sources: []types.Source{}},
		SEO: &types.CompetitorSEOResult{
			Keywords:           []string{"galaxy mug", "space coffee cup"},
			CompetitorSlugs:    []string{},
			CompetitorAnalyses: []types.CompetitorAnalysis{},
			SEOMetadata: types.SEOMetadata{
				PrimaryKeyword:    "galaxy mug",
				SecondaryKeywords: []string{},
				Slug:              "galactic-mug",
				MetaTitle:         "Galactic Mug Review",
				MetaDescription:   "A mug with a galaxy.",
				AICitationSummary: "The Galactic Mug is a novelty item.",
			},
		},
		Copywriting: &types.CopywriterResult{
			HTMLReview: `<h2>Behold the Galactic Mug!</h2><p>This is not just a mug; it's a conversation starter. ` +
				`Drink your morning coffee while contemplating the universe within your hands.</p>` +
				`<p>Ready to own a piece of the cosmos? <a href="{{AFFILIATE_LINK}}">Buy it now!</a></p>`,
			BrandPersonaAdherence: 0.98,
			MarketingAssets:       types.MarketingAssets{Tweets: []string{}},
		},
		ProductAnalysis: &types.ProductAnalysis{
			Category:       "Kitchenware",
			TargetAudience: "Sci-fi fans",
			KeyFeatures:    []string{"Holds liquid", "Contains nebula"},
			Pros:           []string{"Looks cool"},
			Cons:           []string{"Might cause existential dread"},
			Summary:        "A great mug",
			Verdict:        "Buy it!",
			OverallScore:   95,
		},
		SEOScore:     &types.SEOScoreResult{Score: 92, Feedback: "Excellent keyword usage."},
		Visuals:      &types.VisualDesignerResult{ImagePrompts: []string{}, PlaceholderURLs: []string{"https://picsum.photos/seed/galacticmug/800/600"}},
		VideoScript:  &types.VideoScriptResult{Script: "A stunning video script.", Scenes: []types.VideoScene{}},
		Improvements: &types.ImprovementResult{Suggestions: []types.Suggestion{}},
		Quality:      &types.QualityResult{OverallScore: 0.95, Feedback: "High quality content."},
	}
}
