package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/catalog-agent/internal/config"
	"github.com/jonathan/catalog-agent/internal/jobs"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/orchestrator"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/jonathan/catalog-agent/internal/server/ratelimit"
	"github.com/jonathan/catalog-agent/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "server-test-secret-0123456789"

// downProvider always fails
type downProvider struct{ name string }

func (p downProvider) Name() string { return p.name }

func (p downProvider) Call(context.Context, string, llm.CallOptions) (*llm.Response, error) {
	return &llm.Response{Success: false, ProviderUsed: p.name, Error: "unavailable"}, nil
}

type testServer struct {
	srv     *Server
	orch    *orchestrator.Orchestrator
	repo    *products.MemoryRepository
	product *types.Product
	jwt     *JWTService
	reg     *prometheus.Registry
}

type option func(*Deps)

func withAuth(jwt *JWTService) option { return func(d *Deps) { d.JWT = jwt } }

func withLimiter(l *ratelimit.Limiter) option { return func(d *Deps) { d.RateLimiter = l } }

func withLogOutput(w io.Writer) option {
	return func(d *Deps) { d.Logger = observability.NewLogger(w, observability.ParseLevel("info"), "text", false) }
}

func newTestServer(t *testing.T, opts ...option) *testServer {
	t.Helper()

	product := types.NewProduct("Galactic Mug", "https://example.com/aff/mug", "A mug that holds a tiny, swirling galaxy.")
	repo := products.NewMemoryRepository(product)
	registry := llm.NewRegistry(llm.NewFallbackProvider(0), downProvider{name: "offline"})

	orch, err := orchestrator.New(orchestrator.Config{
		Providers:    []llm.Provider{llm.NewFallbackProvider(0)},
		BrandPersona: "Witty and concise",
		CallOptions:  llm.CallOptions{MaxRetries: 0, Timeout: 5 * time.Second},
		Retry:        llm.RetryPolicy{BackoffMultiplier: 1},
	}, orchestrator.Deps{
		Jobs:     jobs.NewMemoryStore(),
		Products: repo,
		Reporter: observability.NopReporter{},
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	deps := Deps{
		Orchestrator: orch,
		Catalog:      products.NewService(repo, orch),
		Registry:     registry,
		Metrics:      observability.NewMetrics(reg),
		Gatherer:     reg,
		Logger:       observability.NewLogger(io.Discard, observability.ParseLevel("error"), "text", false),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(Config{StreamInterval: 10 * time.Millisecond}, deps)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	return &testServer{srv: srv, orch: orch, repo: repo, product: product, jwt: deps.JWT, reg: reg}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.1.2.3:4567"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func newJWT(t *testing.T) *JWTService {
	t.Helper()
	cfg, err := config.JWTConfigFromEnv(func(k string) string {
		if k == "JWT_SECRET" {
			return testJWTSecret
		}
		return ""
	})
	require.NoError(t, err)
	return NewJWTService(cfg)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, []any{llm.FallbackProviderName}, body["providers"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/products", nil, "")

	w := ts.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `catalog_http_requests_total{code="200",method="GET",route="/products"} 1`)
}

func TestProducts_ListAndGet(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/products", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]types.Product](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Galactic Mug", list[0].Name)

	w = ts.do(t, http.MethodGet, "/products/published", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]types.Product](t, w))

	w = ts.do(t, http.MethodGet, "/products/"+ts.product.ID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/products/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "product not found")
}

func TestCreateProduct(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/products", map[string]string{
		"name":          "Hyper Scrubber",
		"affiliate_url": "https://example.com/aff/scrubber",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[types.Product](t, w)
	assert.Equal(t, types.ProductStatusDraft, created.Status)
	assert.NotEmpty(t, created.ID)

	w = ts.do(t, http.MethodPost, "/products", map[string]string{
		"name":          "Broken",
		"affiliate_url": "not a url",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "AffiliateURL")

	w = ts.do(t, http.MethodPost, "/products", map[string]string{"unexpected": "field"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	jwt := newJWT(t)
	ts := newTestServer(t, withAuth(jwt))
	body := map[string]string{"name": "Hyper Scrubber", "affiliate_url": "https://example.com/aff/scrubber"}

	w := ts.do(t, http.MethodPost, "/products", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/products", body, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.GenerateToken("ops")
	require.NoError(t, err)
	w = ts.do(t, http.MethodPost, "/products", body, token)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Reads stay public
	w = ts.do(t, http.MethodGet, "/products", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalysisLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	// Publishing before analysis is refused
	w := ts.do(t, http.MethodPost, "/products/"+ts.product.ID+"/publish", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/products/"+ts.product.ID+"/analyses", nil, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := decode[AnalysisResponse](t, w).JobID
	require.NotEmpty(t, jobID)
	assert.Equal(t, "/jobs/"+jobID, w.Header().Get("Location"))

	require.NoError(t, ts.orch.Wait(ctx, jobID))

	w = ts.do(t, http.MethodGet, "/jobs/"+jobID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[orchestrator.StatusReport](t, w)
	assert.True(t, report.Found)
	assert.Equal(t, types.JobStatusCompleted, report.Status)
	require.NotNil(t, report.Result)
	assert.Len(t, report.Result.Stages, 9)

	w = ts.do(t, http.MethodPost, "/products/"+ts.product.ID+"/publish", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[types.Product](t, w).Published)

	w = ts.do(t, http.MethodGet, "/products/published", nil, "")
	published := decode[[]types.Product](t, w)
	require.Len(t, published, 1)
	review := published[0].AnalysisResult.Result.Copywriting.HTMLReview
	assert.Contains(t, review, `href="https://example.com/aff/mug"`)
	assert.NotContains(t, review, "{{AFFILIATE_LINK}}")

	w = ts.do(t, http.MethodPost, "/products/"+ts.product.ID+"/unpublish", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[types.Product](t, w).Published)
}

func TestTriggerAnalysis_Conflict(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	p, err := ts.repo.FindByID(ctx, ts.product.ID)
	require.NoError(t, err)
	p.UpdateStatus(types.ProductStatusProcessing)
	_, err = ts.repo.Update(ctx, p)
	require.NoError(t, err)

	w := ts.do(t, http.MethodPost, "/products/"+ts.product.ID+"/analyses", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "analysis already in progress")

	w = ts.do(t, http.MethodDelete, "/products/"+ts.product.ID, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerAnalysis_UnknownProduct(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/products/missing/analyses", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductJobs(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/products/"+ts.product.ID+"/jobs", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = ts.do(t, http.MethodPost, "/products/"+ts.product.ID+"/analyses", nil, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := decode[AnalysisResponse](t, w).JobID
	require.NoError(t, ts.orch.Wait(context.Background(), jobID))

	w = ts.do(t, http.MethodGet, "/products/"+ts.product.ID+"/jobs", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]types.Job](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, jobID, history[0].ID)
	assert.Equal(t, types.JobStatusCompleted, history[0].Status)

	w = ts.do(t, http.MethodGet, "/products/missing/jobs", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobStatus_Unknown(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/jobs/no-such-job", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	report := decode[orchestrator.StatusReport](t, w)
	assert.False(t, report.Found)
	assert.Equal(t, types.JobStatusFailed, report.Status)
	assert.Nil(t, report.Result)
}

func TestCancelJob_Unknown(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/jobs/no-such-job/cancel", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelJob_Settled(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	jobID, err := ts.orch.Start(ctx, ts.product.ID)
	require.NoError(t, err)
	require.NoError(t, ts.orch.Wait(ctx, jobID))

	w := ts.do(t, http.MethodPost, "/jobs/"+jobID+"/cancel", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodDelete, "/products/"+ts.product.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodDelete, "/products/"+ts.product.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateConfig(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/config", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[ConfigResponse](t, w)
	assert.Equal(t, "Witty and concise", cfg.BrandPersona)
	assert.Equal(t, []string{llm.FallbackProviderName, "offline"}, cfg.Available)

	w = ts.do(t, http.MethodPut, "/config", map[string]any{
		"brand_persona": "Calm and thorough",
		"providers":     []string{"offline", llm.FallbackProviderName},
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cfg = decode[ConfigResponse](t, w)
	assert.Equal(t, "Calm and thorough", cfg.BrandPersona)
	assert.Equal(t, []string{"offline", llm.FallbackProviderName}, cfg.Providers)
	assert.Equal(t, "Calm and thorough", ts.orch.BrandPersona())
}

func TestUpdateConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "empty update", body: map[string]any{}},
		{name: "unknown provider", body: map[string]any{"providers": []string{"claude"}}},
		{name: "empty provider list", body: map[string]any{"providers": []string{}}},
		{name: "duplicate provider", body: map[string]any{"providers": []string{"fallback", "fallback"}}},
		{name: "blank persona", body: map[string]any{"brand_persona": ""}},
		{name: "whitespace persona", body: map[string]any{"brand_persona": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(t, http.MethodPut, "/config", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "Witty and concise", ts.orch.BrandPersona())
			assert.Equal(t, []string{llm.FallbackProviderName}, ts.orch.Providers())
		})
	}
}

func TestOpportunities(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/opportunities", map[string]string{"niche": "home office gadgets"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[types.OpportunityResult](t, w)
	require.NotEmpty(t, result.ProductIdeas)
	assert.Equal(t, "Mock idea", result.ProductIdeas[0].Name)

	w = ts.do(t, http.MethodPost, "/opportunities", map[string]string{"niche": ""}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFreshness(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/products/"+ts.product.ID+"/freshness", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[types.FreshnessResult](t, w)
	assert.False(t, result.IsOutdated)
	assert.NotEmpty(t, result.Reason)

	w = ts.do(t, http.MethodGet, "/products/missing/freshness", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/opportunities", Method: "POST", Limit: 2, Window: time.Hour, Burst: 2},
		},
	})
	defer limiter.Stop()
	ts := newTestServer(t, withLimiter(limiter))
	body := map[string]string{"niche": "desk toys"}

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/opportunities", body, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodPost, "/opportunities", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// Health is never limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil, "").Code)
	}

	metrics := ts.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Contains(t, metrics.Body.String(), `catalog_http_rate_limited_total{method="POST",route="/opportunities"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodOptions, "/products", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestJobEvents_Stream(t *testing.T) {
	ts := newTestServer(t)
	httpServer := httptest.NewServer(ts.srv.Handler())
	defer httpServer.Close()

	jobID, err := ts.orch.Start(context.Background(), ts.product.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpServer.URL+"/jobs/"+jobID+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The stream ends once the job settles
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, "event: stage")
	assert.Contains(t, body, `"name":"quality_check"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body),
		`data: {"job_id":"`+jobID+`","status":"completed"}`), body)
}

func TestJobEvents_Unknown(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/jobs/missing/events", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminActionsLogSubject(t *testing.T) {
	jwt := newJWT(t)
	var logs bytes.Buffer
	ts := newTestServer(t, withAuth(jwt), withLogOutput(&logs))

	token, err := jwt.GenerateToken("ops")
	require.NoError(t, err)

	w := ts.do(t, http.MethodPut, "/config", map[string]any{"brand_persona": "Dry and precise"}, token)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, logs.String(), `msg="run configuration updated"`)
	assert.Contains(t, logs.String(), "subject=ops")
}
