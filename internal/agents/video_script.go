package agents

import (
	"context"

	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// VideoScripter writes a short vertical video script.
type VideoScripter struct {
	cfg Config
}

// NewVideoScripter creates a video script agent
func NewVideoScripter(cfg Config) *VideoScripter {
	return &VideoScripter{cfg: cfg}
}

// Run scripts a 15-second video based on the review.
func (a *VideoScripter) Run(ctx context.Context, product *types.Product, copywriting *types.CopywriterResult) (*types.VideoScriptResult, error) {
	review := ""
	if copywriting != nil {
		review = copywriting.HTMLReview
	}
	result, err := generate[types.VideoScriptResult](ctx, a.cfg, "video script", prompts.AgentsFile, "video-script", schemas.VideoScript, map[string]string{
		"ProductName":   product.Name,
		"ReviewExcerpt": excerpt(review),
	})
	if err != nil {
		return nil, err
	}
	if result.Scenes == nil {
		result.Scenes = []types.VideoScene{}
	}
	return result, nil
}

// Default is an empty script.
func (a *VideoScripter) Default() *types.VideoScriptResult {
	return &types.VideoScriptResult{Script: "Failed to generate script.", Scenes: []types.VideoScene{}}
}
