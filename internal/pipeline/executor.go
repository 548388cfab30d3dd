// Package pipeline runs the product analysis pipeline: provider failover, the
// nine sequential agent stages and the bookkeeping of job and product state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/catalog-agent/internal/agents"
	"github.com/jonathan/catalog-agent/internal/fetch"
	"github.com/jonathan/catalog-agent/internal/jobs"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/pipeline/steps"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/jonathan/catalog-agent/internal/prompts"
	"github.com/jonathan/catalog-agent/internal/types"
)

// ExecutorConfig holds the inputs of one or more runs
type ExecutorConfig struct {
	// Providers in priority order
	Providers    []llm.Provider
	BrandPersona string
	CallOptions  llm.CallOptions
	Retry        llm.RetryPolicy
	// ReselectPerStage runs provider selection before every stage instead of once per run
	ReselectPerStage bool
	// Policies overrides the failure policy of individual stages
	Policies      map[string]steps.FailurePolicy
	VerifySources *fetch.VerifyOptions
	OnProgress    ProgressCallback
}

// Executor runs analysis jobs.
type Executor struct {
	cfg      ExecutorConfig
	defs     []steps.Definition
	jobs     jobs.Store
	products products.Repository
	reporter observability.Reporter
}

// NewExecutor validates the stage registry with cfg's policy overrides applied.
func NewExecutor(cfg ExecutorConfig, store jobs.Store, repo products.Repository, reporter observability.Reporter) (*Executor, error) {
	if store == nil || repo == nil {
		return nil, errors.New("executor requires a job store and a product repository")
	}
	defs, err := steps.WithPolicies(steps.Definitions, cfg.Policies)
	if err != nil {
		return nil, err
	}
	if err := steps.Validate(defs); err != nil {
		return nil, fmt.Errorf("invalid stage registry: %w", err)
	}
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	if cfg.Retry.BackoffMultiplier == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	return &Executor{cfg: cfg, defs: defs, jobs: store, products: repo, reporter: reporter}, nil
}

// Run executes job to a terminal state. The job is updated in place and
// snapshots are written to the job store as stages progress; the final
// snapshot is always written, even when ctx is cancelled.
func (e *Executor) Run(ctx context.Context, job *types.Job) error {
	logger := observability.WithProductID(observability.WithJobID(observability.FromContext(ctx), job.ID), job.ProductID)
	ctx = observability.WithLogger(ctx, logger)

	result, loaded, err := e.execute(ctx, job)
	e.finish(ctx, job, loaded, result, err)
	return err
}

func (e *Executor) execute(ctx context.Context, job *types.Job) (*types.FinalResult, bool, error) {
	if err := job.Transition(types.JobStatusRunning); err != nil {
		return nil, false, err
	}
	e.emit(ProgressEvent{JobID: job.ID, ProductID: job.ProductID}, EventJobStarted)
	e.snapshot(ctx, job)

	product, err := e.products.FindByID(ctx, job.ProductID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load product %s: %w", job.ProductID, err)
	}

	product.UpdateStatus(types.ProductStatusProcessing)
	product.SetActiveJob(job.ID)
	if _, err := e.products.Update(ctx, product); err != nil {
		return nil, true, fmt.Errorf("failed to mark product as processing: %w", err)
	}

	provider, err := e.selectProvider(ctx, job)
	if err != nil {
		return nil, true, err
	}

	r := &stageRunner{exec: e, job: job, provider: provider, suites: make(map[string]*agents.Suite)}
	result, err := e.runStages(ctx, r, product)
	return result, true, err
}

func (e *Executor) runStages(ctx context.Context, r *stageRunner, product *types.Product) (*types.FinalResult, error) {
	scout, err := runStage(ctx, r, steps.DataScouting, func(ctx context.Context, s *agents.Suite) (*types.DataScoutResult, error) {
		return s.DataScout.Run(ctx, product)
	}, defaults.DataScout.Default)
	if err != nil {
		return nil, err
	}

	seo, err := runStage(ctx, r, steps.CompetitorSEO, func(ctx context.Context, s *agents.Suite) (*types.CompetitorSEOResult, error) {
		return s.CompetitorSEO.Run(ctx, product)
	}, defaults.CompetitorSEO.Default)
	if err != nil {
		return nil, err
	}

	copywriting, err := runStage(ctx, r, steps.Copywriting, func(ctx context.Context, s *agents.Suite) (*types.CopywriterResult, error) {
		return s.Copywriter.Run(ctx, product, scout, e.cfg.BrandPersona)
	}, defaults.Copywriter.Default)
	if err != nil {
		return nil, err
	}

	analysis, err := runStage(ctx, r, steps.ProductAnalysis, func(ctx context.Context, s *agents.Suite) (*types.ProductAnalysis, error) {
		return s.ProductAnalyst.Run(ctx, product, copywriting)
	}, defaults.ProductAnalyst.Default)
	if err != nil {
		return nil, err
	}

	score, err := runStage(ctx, r, steps.SEOScoring, func(ctx context.Context, s *agents.Suite) (*types.SEOScoreResult, error) {
		return s.SEOScorer.Run(ctx, seo, copywriting)
	}, defaults.SEOScorer.Default)
	if err != nil {
		return nil, err
	}

	visuals, err := runStage(ctx, r, steps.VisualDesign, func(ctx context.Context, s *agents.Suite) (*types.VisualDesignerResult, error) {
		return s.VisualDesigner.Run(ctx, product)
	}, defaults.VisualDesigner.Default)
	if err != nil {
		return nil, err
	}

	video, err := runStage(ctx, r, steps.VideoScript, func(ctx context.Context, s *agents.Suite) (*types.VideoScriptResult, error) {
		return s.VideoScripter.Run(ctx, product, copywriting)
	}, defaults.VideoScripter.Default)
	if err != nil {
		return nil, err
	}

	improvements, err := runStage(ctx, r, steps.ImprovementSuggestions, func(ctx context.Context, s *agents.Suite) (*types.ImprovementResult, error) {
		return s.Improvements.Run(ctx, product)
	}, defaults.Improvements.Default)
	if err != nil {
		return nil, err
	}

	quality, err := runStage(ctx, r, steps.QualityCheck, func(ctx context.Context, s *agents.Suite) (*types.QualityResult, error) {
		return s.QualityChecker.Run(ctx, agents.QualityInput{SEO: seo, Copywriting: copywriting, Visuals: visuals})
	}, defaults.QualityChecker.Default)
	if err != nil {
		return nil, err
	}

	return &types.FinalResult{
		DataScout:       scout,
		SEO:             seo,
		Copywriting:     copywriting,
		ProductAnalysis: analysis,
		SEOScore:        score,
		Visuals:         visuals,
		VideoScript:     video,
		Improvements:    improvements,
		Quality:         quality,
	}, nil
}

// defaults provides the substitute payloads; they do not depend on a provider.
var defaults = agents.NewSuite(agents.Config{})

// finish settles the job and, when it was loaded, the product. Writes use a
// context that survives cancellation of the run.
func (e *Executor) finish(ctx context.Context, job *types.Job, productLoaded bool, result *types.FinalResult, runErr error) {
	persistCtx := context.WithoutCancel(ctx)
	logger := observability.FromContext(ctx)

	now := time.Now()
	job.FinishedAt = &now
	event := ProgressEvent{JobID: job.ID, ProductID: job.ProductID, Provider: job.Provider}

	if runErr == nil {
		job.Result = result
		_ = job.Transition(types.JobStatusCompleted)
	} else {
		job.Error = runErr.Error()
		_ = job.Transition(types.JobStatusFailed)
	}

	if productLoaded {
		if err := e.settleProduct(persistCtx, job); err != nil {
			e.reporter.CaptureException(persistCtx, err, map[string]any{
				"jobId":     job.ID,
				"productId": job.ProductID,
			})
		}
	}

	if err := e.jobs.Save(persistCtx, job); err != nil {
		logger.Error("failed to save job", "error", err)
	}

	if runErr == nil {
		event.Content = job.Result
		e.emit(event, EventJobCompleted)
		return
	}
	event.Error = runErr.Error()
	e.emit(event, EventJobFailed)
}

func (e *Executor) settleProduct(ctx context.Context, job *types.Job) error {
	product, err := e.products.FindByID(ctx, job.ProductID)
	if err != nil {
		return fmt.Errorf("failed to reload product: %w", err)
	}

	if job.Status == types.JobStatusCompleted {
		product.UpdateStatus(types.ProductStatusAnalysisCompleted)
		product.SetAnalysisResult(job.Clone())
	} else {
		product.UpdateStatus(types.ProductStatusAnalysisFailed)
	}
	if product.ActiveJobID == job.ID || product.ActiveJobID == "" {
		product.SetActiveJob("")
	}

	if _, err := e.products.Update(ctx, product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// selectProvider probes the configured providers and records the choice on the job.
func (e *Executor) selectProvider(ctx context.Context, job *types.Job) (llm.Provider, error) {
	probe, err := prompts.Get(prompts.StrategyFile, "connectivity-check")
	if err != nil {
		return nil, err
	}

	s := &Selector{
		Options:  e.cfg.CallOptions,
		Retry:    e.cfg.Retry,
		Reporter: e.reporter,
		OnFailure: func(provider string, err error) {
			e.emit(ProgressEvent{JobID: job.ID, ProductID: job.ProductID, Provider: provider, Error: err.Error()}, EventProviderFailed)
		},
	}
	p, err := s.Select(ctx, e.cfg.Providers, probe)
	if err != nil {
		return nil, err
	}

	job.Provider = p.Name()
	e.emit(ProgressEvent{JobID: job.ID, ProductID: job.ProductID, Provider: p.Name()}, EventProviderSelected)
	return p, nil
}

// snapshot saves a copy of the job; failures are logged and the run continues.
func (e *Executor) snapshot(ctx context.Context, job *types.Job) {
	if err := e.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		observability.FromContext(ctx).Warn("failed to save job snapshot", "error", err)
	}
}

func (e *Executor) emit(event ProgressEvent, t EventType) {
	if e.cfg.OnProgress == nil {
		return
	}
	event.Type = t
	e.cfg.OnProgress(event)
}
