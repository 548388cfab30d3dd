package agents

import (
	"context"

	"github.com/jonathan/catalog-agent/internal/fetch"
	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/schemas"
	"github.com/jonathan/catalog-agent/internal/types"
)

// DataScout finds online sources about a product.
type DataScout struct {
	cfg Config
	// Verify checks each source over HTTP when set
	Verify *fetch.VerifyOptions
}

// NewDataScout creates a data scout agent
func NewDataScout(cfg Config) *DataScout {
	return &DataScout{cfg: cfg}
}

// Run discovers sources for product.
func (a *DataScout) Run(ctx context.Context, product *types.Product) (*types.DataScoutResult, error) {
	result, err := generate[types.DataScoutResult](ctx, a.cfg, "data scout", prompts.AgentsFile, "data-scout", schemas.DataScout, map[string]string{
		"ProductName":        product.Name,
		"ProductDescription": product.Description,
		"AffiliateURL":       product.AffiliateURL,
	})
	if err != nil {
		return nil, err
	}
	if result.Sources == nil {
		result.Sources = []types.Source{}
	}

	if a.Verify != nil && len(result.Sources) > 0 {
		verified, err := fetch.VerifySources(ctx, result.Sources, a.Verify)
		if err != nil {
			return nil, &Error{Agent: "data scout", Provider: a.cfg.Provider.Name(), Cause: err}
		}
		result.Sources = verified
	}
	return result, nil
}

// Default is an empty source list.
func (a *DataScout) Default() *types.DataScoutResult {
	return &types.DataScoutResult{Sources: []types.Source{}}
}
