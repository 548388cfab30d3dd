package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/catalog-agent/internal/types"
	"golang.org/x/sync/errgroup"
)

// RenderFunc renders a page and returns its HTML. WithBrowser satisfies it.
type RenderFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

// VerifyOptions configures source verification.
type VerifyOptions struct {
	Fetch *Options

	// Concurrency bounds the number of pages fetched at once
	Concurrency int

	// Render is used for pages whose fetched text is too short; nil disables it
	Render        RenderFunc
	RenderTimeout time.Duration
}

// DefaultVerifyOptions returns plain HTTP verification with four workers.
func DefaultVerifyOptions() *VerifyOptions {
	return &VerifyOptions{
		Fetch:         DefaultOptions(),
		Concurrency:   4,
		RenderTimeout: 20 * time.Second,
	}
}

// VerifySources fetches every source URL and marks the ones that answer with
// a page as verified. Missing titles are filled from the page. The input slice
// is not modified and the order is preserved. Unreachable sources are kept
// unverified; only cancellation of ctx is returned as an error.
func VerifySources(ctx context.Context, sources []types.Source, opts *VerifyOptions) ([]types.Source, error) {
	if opts == nil {
		opts = DefaultVerifyOptions()
	}
	out := make([]types.Source, len(sources))
	copy(out, sources)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i := range out {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verifySource(gctx, &out[i], opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func verifySource(ctx context.Context, src *types.Source, opts *VerifyOptions) {
	logger := slog.Default().With("url", src.URL)

	result, err := URL(ctx, src.URL, opts.Fetch)
	if err != nil {
		logger.Debug("source not reachable", "error", err)
		src.Verified = false
		return
	}

	html := result.HTML
	if opts.Render != nil {
		if text, err := ExtractMainText(html, ProductPageSelectors()); err == nil && ShouldUseBrowser(text) {
			if rendered, err := opts.Render(ctx, src.URL, opts.RenderTimeout); err == nil {
				html = rendered
			} else {
				logger.Debug("browser rendering failed", "error", err)
			}
		}
	}

	src.Verified = true
	if src.Title == "" {
		if title, err := ExtractTitle(html); err == nil {
			src.Title = title
		}
	}
}
