// Package orchestrator is the entry point for analysis runs. It starts runs in
// the background, answers status queries and holds the provider and persona
// configuration used by future runs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/catalog-agent/internal/events"
	"github.com/jonathan/catalog-agent/internal/fetch"
	"github.com/jonathan/catalog-agent/internal/jobs"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/pipeline"
	"github.com/jonathan/catalog-agent/internal/pipeline/steps"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/jonathan/catalog-agent/internal/types"
)

var (
	// ErrNoProviders is returned when the provider list is empty
	ErrNoProviders = errors.New("at least one provider is required")
	// ErrNoBrandPersona is returned when the brand persona is blank
	ErrNoBrandPersona = errors.New("brand persona is required")
	// ErrShuttingDown is returned by Start after Shutdown was called
	ErrShuttingDown = errors.New("orchestrator is shutting down")
	// ErrRunFailed is returned by Wait for runs that ended failed
	ErrRunFailed = errors.New("analysis run failed")
)

// eventTimeout bounds publishing of a lifecycle event.
const eventTimeout = 5 * time.Second

// Config holds the run configuration.
type Config struct {
	Providers        []llm.Provider
	BrandPersona     string
	CallOptions      llm.CallOptions
	Retry            llm.RetryPolicy
	ReselectPerStage bool
	Policies         map[string]steps.FailurePolicy
	VerifySources    *fetch.VerifyOptions
	OnProgress       pipeline.ProgressCallback
}

// Deps are the collaborators of the orchestrator. Only Products is required.
type Deps struct {
	Jobs      jobs.Store
	Products  products.Repository
	Reporter  observability.Reporter
	Publisher events.Publisher
	Logger    *slog.Logger
}

// ConfigUpdate replaces parts of the configuration. Nil fields are left as they are.
type ConfigUpdate struct {
	Providers    []llm.Provider
	BrandPersona *string
}

// StatusReport is the answer to a status query. Unknown jobs are reported as
// failed with Found false.
type StatusReport struct {
	Status types.JobStatus `json:"status"`
	Result *types.Job      `json:"result"`
	Found  bool            `json:"found"`
}

// run is the handle of an in-flight analysis.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Orchestrator starts and tracks analysis runs.
type Orchestrator struct {
	jobs      jobs.Store
	products  products.Repository
	reporter  observability.Reporter
	publisher events.Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	cfg      Config
	runs     map[string]*run
	closing  bool
	inflight sync.WaitGroup
}

// New creates an orchestrator. It fails when no provider or no persona is configured.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if len(cfg.Providers) == 0 {
		return nil, ErrNoProviders
	}
	if strings.TrimSpace(cfg.BrandPersona) == "" {
		return nil, ErrNoBrandPersona
	}
	if deps.Products == nil {
		return nil, errors.New("orchestrator requires a product repository")
	}
	if _, err := steps.WithPolicies(steps.Definitions, cfg.Policies); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		jobs:      deps.Jobs,
		products:  deps.Products,
		reporter:  deps.Reporter,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		cfg:       cfg,
		runs:      make(map[string]*run),
	}
	if o.jobs == nil {
		o.jobs = jobs.NewMemoryStore()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.reporter == nil {
		o.reporter = observability.NewLogReporter(o.logger, nil)
	}
	if o.publisher == nil {
		o.publisher = events.NopPublisher{}
	}
	if o.cfg.CallOptions == (llm.CallOptions{}) {
		o.cfg.CallOptions = llm.DefaultCallOptions()
	}
	if o.cfg.Retry.BackoffMultiplier == 0 {
		o.cfg.Retry = llm.DefaultRetryPolicy()
	}
	o.cfg.Providers = append([]llm.Provider(nil), cfg.Providers...)
	return o, nil
}

// Start creates a pending job for productID, launches the run in the
// background and returns the job id without waiting for any stage. The run
// uses the configuration current at the time of the call and is not tied to ctx.
func (o *Orchestrator) Start(ctx context.Context, productID string) (string, error) {
	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		return "", ErrShuttingDown
	}
	execCfg := o.executorConfig()
	o.mu.Unlock()

	exec, err := pipeline.NewExecutor(execCfg, o.jobs, o.products, o.reporter)
	if err != nil {
		return "", err
	}

	job := types.NewJob(uuid.New().String(), productID)
	if err := o.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	logger := o.logger.With("job_id", job.ID, "product_id", productID)
	runCtx, cancel := context.WithCancel(observability.WithLogger(context.Background(), logger))
	h := &run{cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		cancel()
		return "", ErrShuttingDown
	}
	o.runs[job.ID] = h
	o.inflight.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.inflight.Done()
		defer cancel()

		h.err = exec.Run(runCtx, job)
		o.publishSettled(job)

		o.mu.Lock()
		delete(o.runs, job.ID)
		o.mu.Unlock()
		close(h.done)
	}()

	logger.Info("analysis started")
	return job.ID, nil
}

// executorConfig snapshots the current configuration. Callers hold o.mu.
func (o *Orchestrator) executorConfig() pipeline.ExecutorConfig {
	return pipeline.ExecutorConfig{
		Providers:        append([]llm.Provider(nil), o.cfg.Providers...),
		BrandPersona:     o.cfg.BrandPersona,
		CallOptions:      o.cfg.CallOptions,
		Retry:            o.cfg.Retry,
		ReselectPerStage: o.cfg.ReselectPerStage,
		Policies:         o.cfg.Policies,
		VerifySources:    o.cfg.VerifySources,
		OnProgress:       o.cfg.OnProgress,
	}
}

func (o *Orchestrator) publishSettled(job *types.Job) {
	payload := events.AnalysisPayload{
		JobID:     job.ID,
		ProductID: job.ProductID,
		Status:    string(job.Status),
		Provider:  job.Provider,
		Error:     job.Error,
	}
	if job.FinishedAt != nil {
		payload.DurationMs = job.FinishedAt.Sub(job.StartedAt).Milliseconds()
	}

	msgType := events.TypeAnalysisCompleted
	if job.Status != types.JobStatusCompleted {
		msgType = events.TypeAnalysisFailed
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := o.publisher.Publish(ctx, events.NewMessage(msgType, payload)); err != nil {
		o.reporter.CaptureException(ctx, fmt.Errorf("failed to publish %s: %w", msgType, err), map[string]any{
			"jobId":     job.ID,
			"productId": job.ProductID,
		})
	}
}

// Status looks up a job. It never fails: unknown ids and store errors are
// reported as failed with Found false.
func (o *Orchestrator) Status(ctx context.Context, jobID string) StatusReport {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		if !errors.Is(err, jobs.ErrNotFound) {
			o.logger.Warn("job lookup failed", "job_id", jobID, "error", err)
		}
		return StatusReport{Status: types.JobStatusFailed}
	}
	return StatusReport{Status: job.Status, Result: job, Found: true}
}

// History returns the jobs run for a product, newest first.
func (o *Orchestrator) History(ctx context.Context, productID string) ([]*types.Job, error) {
	list, err := o.jobs.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for product %s: %w", productID, err)
	}
	return list, nil
}

// UpdateConfig replaces the providers and/or the brand persona for runs
// started afterwards. Runs in flight keep the configuration they started with.
func (o *Orchestrator) UpdateConfig(update ConfigUpdate) error {
	if update.Providers != nil && len(update.Providers) == 0 {
		return ErrNoProviders
	}
	if update.BrandPersona != nil && strings.TrimSpace(*update.BrandPersona) == "" {
		return ErrNoBrandPersona
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if update.Providers != nil {
		o.cfg.Providers = append([]llm.Provider(nil), update.Providers...)
	}
	if update.BrandPersona != nil {
		o.cfg.BrandPersona = *update.BrandPersona
	}
	o.logger.Info("configuration updated",
		"providers", providerNames(o.cfg.Providers),
		"persona_updated", update.BrandPersona != nil,
	)
	return nil
}

// Providers returns the names of the configured providers in priority order.
func (o *Orchestrator) Providers() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return providerNames(o.cfg.Providers)
}

// BrandPersona returns the configured persona.
func (o *Orchestrator) BrandPersona() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.BrandPersona
}

// Cancel stops an in-flight run before its next stage or provider call.
// It reports whether the job was running.
func (o *Orchestrator) Cancel(jobID string) bool {
	o.mu.Lock()
	h, ok := o.runs[jobID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// Wait blocks until the job settles or ctx is done. A failed run returns an
// error wrapping ErrRunFailed; an unknown job returns jobs.ErrNotFound.
func (o *Orchestrator) Wait(ctx context.Context, jobID string) error {
	o.mu.Lock()
	h, ok := o.runs[jobID]
	o.mu.Unlock()

	if ok {
		select {
		case <-h.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if h.err != nil {
			return fmt.Errorf("%w: %w", ErrRunFailed, h.err)
		}
		return nil
	}

	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == types.JobStatusFailed {
		return fmt.Errorf("%w: %s", ErrRunFailed, job.Error)
	}
	return nil
}

// Shutdown stops accepting runs and waits for in-flight runs to finish. When
// ctx expires first the remaining runs are cancelled and ctx's error is returned
// once they have settled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closing = true
	o.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
	}

	o.mu.Lock()
	for _, h := range o.runs {
		h.cancel()
	}
	o.mu.Unlock()
	<-drained
	return ctx.Err()
}

func providerNames(providers []llm.Provider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	return names
}
