package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/catalog-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySources(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/review", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Galactic Mug Review</title></head><body><main>` +
			`<p>A long and thorough review of the mug that goes on for a while.</p></main></body></html>`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	sources := []types.Source{
		{URL: server.URL + "/review", ConfidenceScore: 0.9},
		{URL: server.URL + "/gone", Title: "Missing page", ConfidenceScore: 0.5},
		{URL: "not a url", Title: "Broken", ConfidenceScore: 0.1},
	}

	verified, err := VerifySources(context.Background(), sources, nil)
	require.NoError(t, err)
	require.Len(t, verified, 3)

	assert.True(t, verified[0].Verified)
	assert.Equal(t, "Galactic Mug Review", verified[0].Title)
	assert.False(t, verified[1].Verified)
	assert.Equal(t, "Missing page", verified[1].Title)
	assert.False(t, verified[2].Verified)

	// Input untouched
	assert.Empty(t, sources[0].Title)
	assert.False(t, sources[0].Verified)
}

func TestVerifySources_RendersThinPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer server.Close()

	var renders atomic.Int32
	opts := DefaultVerifyOptions()
	opts.Render = func(_ context.Context, _ string, _ time.Duration) (string, error) {
		renders.Add(1)
		return `<html><head><title>Rendered Title</title></head></html>`, nil
	}

	verified, err := VerifySources(context.Background(), []types.Source{{URL: server.URL}}, opts)
	require.NoError(t, err)
	assert.Equal(t, int32(1), renders.Load())
	assert.Equal(t, "Rendered Title", verified[0].Title)
	assert.True(t, verified[0].Verified)
}

func TestVerifySources_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := VerifySources(ctx, []types.Source{{URL: "https://example.com"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifySources_Empty(t *testing.T) {
	verified, err := VerifySources(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, verified)
}
