package types

// Source is a discovered online source for a product
type Source struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Verified        bool    `json:"verified,omitempty"`
}

// DataScoutResult is the output of source discovery
type DataScoutResult struct {
	Sources []Source `json:"sources"`
}

// SEOMetadata holds the generated search metadata for a product page
type SEOMetadata struct {
	PrimaryKeyword    string   `json:"primaryKeyword"`
	SecondaryKeywords []string `json:"secondaryKeywords"`
	Slug              string   `json:"slug"`
	MetaTitle         string   `json:"metaTitle"`
	MetaDescription   string   `json:"metaDescription"`
	AICitationSummary string   `json:"aiCitationSummary"`
}

// CompetitorAnalysis describes one competing product
type CompetitorAnalysis struct {
	CompetitorName string   `json:"competitorName"`
	URL            string   `json:"url"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
}

// CompetitorSEOResult is the output of competitive/keyword analysis
type CompetitorSEOResult struct {
	Keywords           []string             `json:"keywords"`
	CompetitorSlugs    []string             `json:"competitorSlugs"`
	CompetitorAnalyses []CompetitorAnalysis `json:"competitorAnalyses"`
	SEOMetadata        SEOMetadata          `json:"seoMetadata"`
}

// MarketingAssets are short-form promotional texts
type MarketingAssets struct {
	Tweets       []string `json:"tweets"`
	FacebookPost string   `json:"facebookPost"`
	EmailSnippet string   `json:"emailSnippet"`
}

// CopywriterResult is the persona-aware review draft
type CopywriterResult struct {
	HTMLReview            string          `json:"htmlReview"`
	BrandPersonaAdherence float64         `json:"brandPersonaAdherence"`
	MarketingAssets       MarketingAssets `json:"marketingAssets"`
}

// ProductAnalysis is the structured summary of a product
type ProductAnalysis struct {
	Category       string   `json:"category"`
	TargetAudience string   `json:"targetAudience"`
	KeyFeatures    []string `json:"keyFeatures"`
	Pros           []string `json:"pros"`
	Cons           []string `json:"cons"`
	Summary        string   `json:"summary"`
	Verdict        string   `json:"verdict"`
	OverallScore   float64  `json:"overallScore"`
}

// SEOScoreResult scores the draft against the target keywords (0-100)
type SEOScoreResult struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// VisualDesignerResult holds image concepts
type VisualDesignerResult struct {
	ImagePrompts    []string `json:"imagePrompts"`
	PlaceholderURLs []string `json:"placeholderUrls"`
}

// VideoScene is one scene of a short-form video script
type VideoScene struct {
	Scene       int    `json:"scene"`
	Description string `json:"description"`
	Dialogue    string `json:"dialogue"`
}

// VideoScriptResult is a short-form vertical video script
type VideoScriptResult struct {
	Script string       `json:"script"`
	Scenes []VideoScene `json:"scenes"`
}

// Suggestion is one improvement suggestion; Area is Title, Description, Pricing, Features or SEO
type Suggestion struct {
	Area       string `json:"area"`
	Suggestion string `json:"suggestion"`
}

// ImprovementResult holds improvement suggestions for the listing
type ImprovementResult struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// QualityResult is the final quality check
type QualityResult struct {
	OverallScore float64 `json:"overallScore"`
	Feedback     string  `json:"feedback"`
}

// FinalResult aggregates every stage output of a successful run
type FinalResult struct {
	DataScout       *DataScoutResult      `json:"dataScout"`
	SEO             *CompetitorSEOResult  `json:"seo"`
	Copywriting     *CopywriterResult     `json:"copywriting"`
	ProductAnalysis *ProductAnalysis      `json:"productAnalysis"`
	SEOScore        *SEOScoreResult       `json:"seoScore"`
	Visuals         *VisualDesignerResult `json:"visuals"`
	VideoScript     *VideoScriptResult    `json:"videoScript"`
	Improvements    *ImprovementResult    `json:"improvements"`
	Quality         *QualityResult        `json:"quality"`
}

// ProductIdea is a product opportunity within a niche
type ProductIdea struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// OpportunityResult lists product opportunities for a niche
type OpportunityResult struct {
	Niche        string        `json:"niche"`
	ProductIdeas []ProductIdea `json:"productIdeas"`
}

// FreshnessResult reports whether a newer model of a product exists
type FreshnessResult struct {
	IsOutdated bool   `json:"isOutdated"`
	Reason     string `json:"reason"`
}
