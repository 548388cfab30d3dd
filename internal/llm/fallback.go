package llm

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
)

// FallbackProviderName is the name of the offline provider
const FallbackProviderName = "fallback"

// fallbackRule maps a prompt marker to canned JSON content
type fallbackRule struct {
	marker  string
	content string
}

var fallbackRules = []fallbackRule{
	{"Data Scout Agent", `{"sources":[{"url":"https://mock.example.com","title":"Mock Source","confidenceScore":0.85}]}`},
	{"Competitor SEO Agent", `{"keywords":["mock keyword 1","mock keyword 2"],"competitorSlugs":["competitor-a","competitor-b"],"competitorAnalyses":[],"seoMetadata":{"primaryKeyword":"mock keyword 1","secondaryKeywords":["mock keyword 2"],"slug":"mock-product","metaTitle":"Mock Product Review","metaDescription":"A mock review.","aiCitationSummary":"A mock product."}}`},
	{"Copywriter Agent", `{"htmlReview":"<h2>Mock Review</h2><p>This product is truly revolutionary. <a href=\"{{AFFILIATE_LINK}}\">Check the price</a></p>","brandPersonaAdherence":0.92,"marketingAssets":{"tweets":["Mock tweet"],"facebookPost":"Mock post","emailSnippet":"Mock email"}}`},
	{"Product Analyst", `{"category":"General","targetAudience":"Everyone","keyFeatures":["Mock feature"],"pros":["Works offline"],"cons":["Generic"],"summary":"A mock analysis.","verdict":"Fine for testing.","overallScore":70}`},
	{"SEO Expert Agent", `{"score":70,"feedback":"Mock SEO feedback."}`},
	{"Visual Designer Agent", `{"imagePrompts":["A mock image of a futuristic gadget on a clean background"],"placeholderUrls":["https://picsum.photos/400/300"]}`},
	{"Video Script Agent", `{"script":"SCENE 1\nVOICEOVER: Mock script.","scenes":[{"scene":1,"description":"Mock scene","dialogue":"Mock dialogue"}]}`},
	{"Marketing Strategy Agent", `{"suggestions":[{"area":"Title","suggestion":"Mock suggestion."}]}`},
	{"Quality Agent", `{"overallScore":0.88,"feedback":"The generated content is of good quality and aligns with the objectives."}`},
	{"Opportunity Hunter", `{"niche":"Mock niche","productIdeas":[{"name":"Mock idea","reason":"Mock reason."}]}`},
	{"Market Sentinel", `{"isOutdated":false,"reason":"Mock check: this appears to be the current version."}`},
}

// FallbackProvider answers every prompt with canned content and never fails.
// It keeps the pipeline usable without network access or API keys.
type FallbackProvider struct {
	// Latency simulates network delay; zero answers immediately
	Latency time.Duration
}

// NewFallbackProvider creates a fallback provider with the given simulated latency
func NewFallbackProvider(latency time.Duration) *FallbackProvider {
	return &FallbackProvider{Latency: latency}
}

// Name returns the provider name
func (p *FallbackProvider) Name() string { return FallbackProviderName }

// Call returns the canned response matching the prompt
func (p *FallbackProvider) Call(ctx context.Context, prompt string, _ CallOptions) (*Response, error) {
	start := time.Now()
	if p.Latency > 0 {
		delay := p.Latency/2 + time.Duration(rand.Int64N(int64(p.Latency)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	content := "This is a fallback response."
	for _, rule := range fallbackRules {
		if strings.Contains(prompt, rule.marker) {
			content = rule.content
			break
		}
	}

	return &Response{
		Content:      content,
		Success:      true,
		ProviderUsed: FallbackProviderName,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
