package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/catalog-agent/internal/agents"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/pipeline/steps"
	"github.com/jonathan/catalog-agent/internal/types"
)

// stageRunner carries the per-run state shared by all stages.
type stageRunner struct {
	exec     *Executor
	job      *types.Job
	provider llm.Provider
	suites   map[string]*agents.Suite
}

// suite returns the agents bound to the current provider.
func (r *stageRunner) suite() *agents.Suite {
	name := r.provider.Name()
	if s, ok := r.suites[name]; ok {
		return s
	}
	s := agents.NewSuite(agents.Config{
		Provider: r.provider,
		Options:  r.exec.cfg.CallOptions,
		Retry:    r.exec.cfg.Retry,
	})
	s.DataScout.Verify = r.exec.cfg.VerifySources
	r.suites[name] = s
	return s
}

// reselect runs provider selection again when the run is configured for it.
func (r *stageRunner) reselect(ctx context.Context) error {
	if !r.exec.cfg.ReselectPerStage {
		return nil
	}
	p, err := r.exec.selectProvider(ctx, r.job)
	if err != nil {
		return err
	}
	r.provider = p
	return nil
}

// checkDependencies verifies that every dependency of def has a completed record.
func (r *stageRunner) checkDependencies(def steps.Definition) error {
	var missing []string
	for _, dep := range def.Dependencies {
		done := false
		for _, rec := range r.job.Stages {
			if rec.Name == dep && rec.Status == types.StageStatusCompleted {
				done = true
				break
			}
		}
		if !done {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &steps.DependencyError{Step: def.Name, MissingDependencies: missing}
	}
	return nil
}

// runStage records and runs one stage. On failure the stage's policy decides
// whether fallback's payload is used or the error aborts the run.
func runStage[T any](ctx context.Context, r *stageRunner, name string, work func(context.Context, *agents.Suite) (T, error), fallback func() T) (T, error) {
	var zero T
	e := r.exec
	index, def, ok := steps.Lookup(e.defs, name)
	if !ok {
		return zero, fmt.Errorf("unknown stage: %s", name)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := r.checkDependencies(def); err != nil {
		return zero, err
	}
	if err := r.reselect(ctx); err != nil {
		return zero, err
	}

	event := ProgressEvent{
		JobID:     r.job.ID,
		ProductID: r.job.ProductID,
		Stage:     name,
		Index:     index + 1,
		Total:     len(e.defs),
		Provider:  r.provider.Name(),
	}

	r.job.Stages = append(r.job.Stages, types.StageRecord{
		Name:     name,
		Status:   types.StageStatusRunning,
		Provider: r.provider.Name(),
	})
	e.snapshot(ctx, r.job)
	e.emit(event, EventStageStarted)

	start := time.Now()
	out, err := work(ctx, r.suite())
	elapsed := time.Since(start).Milliseconds()

	rec := r.job.RunningStage(name)
	rec.DurationMs = elapsed
	event.DurationMs = elapsed

	fields := map[string]any{
		"jobId":     r.job.ID,
		"productId": r.job.ProductID,
		"stage":     name,
		"provider":  r.provider.Name(),
	}

	if err == nil {
		rec.Status = types.StageStatusCompleted
		rec.Output = out
		event.Content = out
		e.snapshot(ctx, r.job)
		e.emit(event, EventStageCompleted)
		return out, nil
	}

	if def.OnFailure == steps.Substitute && fallback != nil && ctx.Err() == nil {
		substitute := fallback()
		rec.Status = types.StageStatusCompleted
		rec.Output = substitute
		rec.Substituted = true
		rec.Error = err.Error()

		fields["error"] = err.Error()
		e.reporter.CaptureMessage(ctx, "stage failed, using default payload", fields)

		event.Content = substitute
		event.Substituted = true
		event.Error = err.Error()
		e.snapshot(ctx, r.job)
		e.emit(event, EventStageCompleted)
		return substitute, nil
	}

	rec.Status = types.StageStatusFailed
	rec.Error = err.Error()
	e.reporter.CaptureException(ctx, err, fields)
	observability.FromContext(ctx).Debug("stage failed", "stage", name, "error", err)

	event.Error = err.Error()
	e.snapshot(ctx, r.job)
	e.emit(event, EventStageFailed)
	return zero, fmt.Errorf("stage %s failed: %w", name, err)
}
