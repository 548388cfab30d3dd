package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonathan/catalog-agent/internal/config"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/pipeline/steps"
	"github.com/jonathan/catalog-agent/internal/server"
	"github.com/jonathan/catalog-agent/internal/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offlineEnv isolates a test from .env and the host environment and points
// --config at a file that runs the fallback provider without delay.
func offlineEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "AMQP_URL", "GEMINI_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "BRAND_PERSONA", "JWT_SECRET"} {
		t.Setenv(key, "")
	}
	t.Setenv("LLM_PROVIDERS", "fallback")
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fallback_latency_ms: 1\nmax_retries: 1\n"), 0644))

	prev := rootConfigPath
	rootConfigPath = path
	t.Cleanup(func() { rootConfigPath = prev })
}

func testCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd
}

func newTestApp(t *testing.T, opts appOptions) *app {
	t.Helper()
	offlineEnv(t)
	cfg, err := loadConfig()
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.shutdown(context.Background()) })
	return a
}

func TestNewApp_InMemory(t *testing.T) {
	a := newTestApp(t, appOptions{Seed: true})

	assert.Equal(t, []string{llm.FallbackProviderName}, a.orch.Providers())
	assert.Equal(t, config.DefaultBrandPersona, a.orch.BrandPersona())
	assert.Equal(t, []string{llm.FallbackProviderName}, a.registry.Names())

	list, err := a.catalog.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSeedCatalog_SkipsNonEmpty(t *testing.T) {
	a := newTestApp(t, appOptions{Seed: true})
	ctx := context.Background()

	require.NoError(t, seedCatalog(ctx, a.repo))
	list, err := a.repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestAvailableProviders(t *testing.T) {
	registry := llm.NewRegistry(llm.NewFallbackProvider(0))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	got := availableProviders([]string{"gemini", "fallback", "openai"}, registry, logger)
	assert.Equal(t, []string{"fallback"}, got)
}

func TestBuildRegistry_NoKeys(t *testing.T) {
	cfg := config.Default()
	registry, err := buildRegistry(context.Background(), &cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, []string{llm.FallbackProviderName}, registry.Names())
}

func TestBuildRegistry_OpenAI(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAIAPIKey = "sk-test"
	cfg.OpenAIBaseURL = "http://localhost:1234/v1"

	registry, err := buildRegistry(context.Background(), &cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer registry.Close()
	assert.Equal(t, []string{config.ProviderOpenAI, llm.FallbackProviderName}, registry.Names())
}

func TestOrchestratorConfig(t *testing.T) {
	cfg := config.Default()
	cfg.StagePolicies = map[string]string{steps.Copywriting: "abort"}
	cfg.VerifySources = true
	cfg.UseBrowser = true

	out, err := orchestratorConfig(&cfg, []llm.Provider{llm.NewFallbackProvider(0)})
	require.NoError(t, err)
	assert.Equal(t, steps.Abort, out.Policies[steps.Copywriting])
	assert.Equal(t, 2, out.CallOptions.MaxRetries)
	assert.Equal(t, "15s", out.CallOptions.Timeout.String())
	require.NotNil(t, out.VerifySources)
	assert.NotNil(t, out.VerifySources.Render)

	cfg.StagePolicies = map[string]string{"no_such_stage": "abort"}
	_, err = orchestratorConfig(&cfg, nil)
	assert.ErrorContains(t, err, "no_such_stage")
}

func TestNewApp_NoUsableProvider(t *testing.T) {
	offlineEnv(t)
	t.Setenv("LLM_PROVIDERS", "gemini")
	cfg, err := loadConfig()
	require.NoError(t, err)

	_, err = newApp(context.Background(), cfg, appOptions{})
	assert.Error(t, err)
}

func TestRunAnalyze(t *testing.T) {
	offlineEnv(t)
	out := filepath.Join(t.TempDir(), "jobs", "job.json")

	analyzeProductID, analyzeName, analyzeURL = "", "Galactic Mug", "https://example.com/aff/mug"
	analyzeDescription, analyzeOutput, analyzeVerbose = "A mug that holds a tiny galaxy.", out, true
	t.Cleanup(func() {
		analyzeName, analyzeURL, analyzeDescription, analyzeOutput, analyzeVerbose = "", "", "", "", false
	})

	var buf bytes.Buffer
	require.NoError(t, runAnalyze(testCommand(&buf), nil))

	output := buf.String()
	assert.Contains(t, output, "ANALYSIS JOB")
	assert.Contains(t, output, steps.QualityCheck)
	assert.Contains(t, output, "Wrote job to")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var job types.Job
	require.NoError(t, json.Unmarshal(data, &job))
	assert.Equal(t, types.JobStatusCompleted, job.Status)
	assert.Len(t, job.Stages, len(steps.Definitions))
}

func TestRunAnalyze_RequiresProduct(t *testing.T) {
	offlineEnv(t)
	err := runAnalyze(testCommand(io.Discard), nil)
	assert.ErrorContains(t, err, "--product-id")
}

func TestRunAnalyze_InvalidProduct(t *testing.T) {
	offlineEnv(t)
	analyzeName, analyzeURL = "Broken", "not a url"
	t.Cleanup(func() { analyzeName, analyzeURL = "", "" })

	err := runAnalyze(testCommand(io.Discard), nil)
	assert.ErrorContains(t, err, "invalid product")
}

func TestRunOpportunities(t *testing.T) {
	offlineEnv(t)
	opportunitiesNiche = "home office gadgets"
	t.Cleanup(func() { opportunitiesNiche = "" })

	var buf bytes.Buffer
	require.NoError(t, runOpportunities(testCommand(&buf), nil))
	assert.Contains(t, buf.String(), "PRODUCT OPPORTUNITIES")
	assert.Contains(t, buf.String(), "Mock idea")
}

func TestRunFreshness(t *testing.T) {
	offlineEnv(t)
	freshnessProduct, freshnessSeed = "Quantum Widget", true
	t.Cleanup(func() { freshnessProduct, freshnessSeed = "", false })

	var buf bytes.Buffer
	require.NoError(t, runFreshness(testCommand(&buf), nil))
	assert.Contains(t, buf.String(), "MARKET CHECK: Quantum Widget")
	assert.Contains(t, buf.String(), "CURRENT")
}

func TestRunFreshness_UnknownProduct(t *testing.T) {
	offlineEnv(t)
	freshnessProduct = "Nonexistent"
	t.Cleanup(func() { freshnessProduct = "" })

	err := runFreshness(testCommand(io.Discard), nil)
	assert.ErrorContains(t, err, "product not found")
}

func TestRunToken(t *testing.T) {
	offlineEnv(t)
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")

	var buf bytes.Buffer
	tokenSubject = "ops"
	t.Cleanup(func() { tokenSubject = "admin" })
	require.NoError(t, runToken(testCommand(&buf), nil))

	jwtCfg, err := config.NewJWTConfig()
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtCfg).ValidateToken(strings.TrimSpace(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestRunToken_MissingSecret(t *testing.T) {
	offlineEnv(t)
	err := runToken(testCommand(io.Discard), nil)
	assert.ErrorIs(t, err, config.ErrJWTSecretMissing)
}

func TestNewServer(t *testing.T) {
	a := newTestApp(t, appOptions{Seed: true})
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")

	srv, err := newServer(a)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/published", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Galactic Mug")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/opportunities", strings.NewReader(`{"niche":"desk toys"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRootCommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "analyze", "opportunities", "freshness", "token"})
}

func TestOrchestratorConfig_ZeroRetries(t *testing.T) {
	offlineEnv(t)
	require.NoError(t, os.WriteFile(rootConfigPath, []byte("max_retries: 0\nfallback_latency_ms: 0\n"), 0644))

	cfg, err := loadConfig()
	require.NoError(t, err)

	out, err := orchestratorConfig(cfg, []llm.Provider{llm.NewFallbackProvider(cfg.FallbackLatency())})
	require.NoError(t, err)
	assert.Equal(t, 0, out.CallOptions.MaxRetries)
}

func TestClientConfig(t *testing.T) {
	base := llm.DefaultOpenAIConfig()
	assert.Same(t, base, clientConfig(base, ""))

	custom := clientConfig(base, "gpt-custom")
	assert.Equal(t, "gpt-custom", custom.GetModel(llm.TierStandard))
	assert.Equal(t, base.GetModel(llm.TierLite), custom.GetModel(llm.TierLite))
	assert.NotEqual(t, "gpt-custom", base.GetModel(llm.TierStandard))
}
