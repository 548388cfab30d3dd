package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonathan/catalog-agent/internal/config"
	"github.com/jonathan/catalog-agent/internal/db"
	"github.com/jonathan/catalog-agent/internal/events"
	"github.com/jonathan/catalog-agent/internal/fetch"
	"github.com/jonathan/catalog-agent/internal/jobs"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/orchestrator"
	"github.com/jonathan/catalog-agent/internal/pipeline"
	"github.com/jonathan/catalog-agent/internal/pipeline/steps"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	registry *llm.Registry
	repo     products.Repository
	orch     *orchestrator.Orchestrator
	catalog  *products.Service

	closers []func() error
}

// appOptions tune newApp for a command
type appOptions struct {
	// Progress receives stage boxes when verbose output is enabled
	Progress io.Writer
	// Seed loads the demo catalog into an empty repository
	Seed bool
	// Registerer collects metrics; nil uses a private registry
	Registerer prometheus.Registerer
}

// loadConfig reads the config file named by --config (if any), applies
// defaults and environment overrides, and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newApp wires storage, providers, events and the orchestrator from cfg.
// Callers must call close when done.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.logger = observability.NewLogger(os.Stderr, observability.ParseLevel(cfg.LogLevel), cfg.LogFormat, true)

	reg := opts.Registerer
	if reg == nil {
		private := prometheus.NewRegistry()
		reg, a.gatherer = private, private
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		a.gatherer = g
	}
	a.metrics = observability.NewMetrics(reg)

	jobStore, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Seed || cfg.SeedCatalog {
		if err := seedCatalog(ctx, a.repo); err != nil {
			return nil, err
		}
	}

	a.registry, err = buildRegistry(ctx, cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.registry.Close)

	providers, err := a.registry.Resolve(availableProviders(cfg.Providers, a.registry, a.logger))
	if err != nil {
		return nil, err
	}

	publisher, err := a.openPublisher()
	if err != nil {
		return nil, err
	}

	orchCfg, err := orchestratorConfig(cfg, providers)
	if err != nil {
		return nil, err
	}
	progress := []pipeline.ProgressCallback{
		pipeline.ObserveMetrics(a.metrics),
		pipeline.LogProgress(a.logger),
	}
	if cfg.Verbose && opts.Progress != nil {
		progress = append(progress, pipeline.PrintProgress(observability.NewPrinter(opts.Progress)))
	}
	orchCfg.OnProgress = pipeline.Chain(progress...)

	a.orch, err = orchestrator.New(orchCfg, orchestrator.Deps{
		Jobs:      jobStore,
		Products:  a.repo,
		Reporter:  observability.NewLogReporter(a.logger, a.metrics),
		Publisher: publisher,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	a.catalog = products.NewService(a.repo, a.orch)
	return a, nil
}

// openStorage uses PostgreSQL when a database URL is configured and memory otherwise.
func (a *app) openStorage(ctx context.Context) (jobs.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.logger.Info("no database configured, using in-memory storage")
		a.repo = products.NewMemoryRepository()
		return jobs.NewMemoryStore(), nil
	}

	database, err := db.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { database.Close(); return nil })
	if err := database.Migrate(ctx); err != nil {
		return nil, err
	}
	a.repo = db.NewProductRepository(database)
	return db.NewJobStore(database), nil
}

func (a *app) openPublisher() (events.Publisher, error) {
	if a.cfg.AMQPURL == "" {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewAMQPPublisher(a.cfg.AMQPURL, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)
	return publisher, nil
}

// shutdown waits for in-flight runs and then releases resources.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error
	if a.orch != nil {
		errs = append(errs, a.orch.Shutdown(ctx))
	}
	errs = append(errs, a.close())
	return errors.Join(errs...)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// buildRegistry registers every provider that has credentials. The offline
// fallback provider is always available.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*llm.Registry, error) {
	registry := llm.NewRegistry()

	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, clientConfig(llm.DefaultGeminiConfig(), cfg.GeminiModel), cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		registry.Register(llm.NewClientProvider(config.ProviderGemini, client, llm.TierStandard))
	}

	if cfg.OpenAIAPIKey != "" {
		openaiCfg := clientConfig(llm.DefaultOpenAIConfig(), cfg.OpenAIModel)
		openaiCfg.BaseURL = cfg.OpenAIBaseURL
		client, err := llm.NewOpenAIClient(openaiCfg, cfg.OpenAIAPIKey)
		if err != nil {
			_ = registry.Close()
			return nil, err
		}
		registry.Register(llm.NewClientProvider(config.ProviderOpenAI, client, llm.TierStandard))
	}

	registry.Register(llm.NewFallbackProvider(cfg.FallbackLatency()))
	logger.Debug("providers registered", "available", registry.Names())
	return registry, nil
}

// clientConfig applies a configured model to the tier providers generate with.
func clientConfig(base *llm.Config, model string) *llm.Config {
	if model == "" {
		return base
	}
	return base.WithModel(llm.TierStandard, model)
}

// availableProviders keeps the configured names that have a registered provider.
func availableProviders(names []string, registry *llm.Registry, logger *slog.Logger) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := registry.Get(name); !ok {
			logger.Warn("provider skipped, no credentials configured", "provider", name)
			continue
		}
		out = append(out, name)
	}
	return out
}

// orchestratorConfig translates file configuration into run configuration.
func orchestratorConfig(cfg *config.Config, providers []llm.Provider) (orchestrator.Config, error) {
	policies := make(map[string]steps.FailurePolicy, len(cfg.StagePolicies))
	for stage, policy := range cfg.StagePolicies {
		policies[stage] = steps.FailurePolicy(policy)
	}

	out := orchestrator.Config{
		Providers:    providers,
		BrandPersona: cfg.BrandPersona,
		CallOptions: llm.CallOptions{
			MaxRetries: cfg.Retries(),
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		Retry:            llm.DefaultRetryPolicy(),
		ReselectPerStage: cfg.ReselectPerStage,
		Policies:         policies,
	}
	if cfg.VerifySources {
		out.VerifySources = fetch.DefaultVerifyOptions()
		if cfg.UseBrowser {
			out.VerifySources.Render = fetch.WithBrowser
		}
	}
	if _, err := steps.WithPolicies(steps.Definitions, policies); err != nil {
		return orchestrator.Config{}, fmt.Errorf("invalid stage policies: %w", err)
	}
	return out, nil
}

// seedCatalog loads the demo products when the catalog is empty.
func seedCatalog(ctx context.Context, repo products.Repository) error {
	existing, err := repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range products.SeedProducts() {
		if _, err := repo.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.Name, err)
		}
	}
	return nil
}
