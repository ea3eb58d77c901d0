// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pdiddy/fact-engine/internal/fault"
	"github.com/pdiddy/fact-engine/internal/logging"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// StageFunc executes one stage and returns its JSON-encoded output.
type StageFunc func(ctx context.Context) ([]byte, error)

// Runner wraps stage execution in the cache and retry envelope. A stage
// whose fingerprint matches a cached entry is replayed without executing;
// otherwise the stage function runs under jittered exponential backoff
// until it succeeds, exhausts its attempts, or fails terminally.
type Runner struct {
	cache *StageCache
	cfg   types.RetryConfig
}

// NewRunner returns a runner over the given cache. Zero config fields fall
// back to the defaults (3 attempts, 2s base, 30s cap).
func NewRunner(cache *StageCache, cfg types.RetryConfig) *Runner {
	def := types.DefaultConfig().Retry
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	return &Runner{cache: cache, cfg: cfg}
}

// RunStage executes stage for run under the envelope and records the
// resulting status in run.Stages. The returned error is nil for CACHED and
// SUCCEEDED outcomes; a FAILED outcome carries a stage_exhausted error (or
// the cancellation cause) and halts the pipeline at this stage.
//
// Success is durable before it is reported: the output is written to the
// stage cache first, so a later resume replays this stage instead of
// re-executing it.
func (r *Runner) RunStage(ctx context.Context, run *types.Run, stage, fingerprint string, fn StageFunc) (types.StageResult, error) {
	run.CurrentStage = stage

	if output, ok := r.cache.Get(run.ID, stage, fingerprint); ok {
		run.Stages[stage] = types.StageCached
		logging.L().Infow("stage replayed from cache", "run", run.ID, "stage", stage)
		return types.StageResult{
			Stage:       stage,
			Status:      types.StageCached,
			FromCache:   true,
			Fingerprint: fingerprint,
			Output:      output,
		}, nil
	}

	run.Stages[stage] = types.StageRunning
	result := types.StageResult{Stage: stage, Fingerprint: fingerprint}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Status = types.StageFailed
			result.Attempts = attempt - 1
			run.Stages[stage] = types.StageFailed
			return result, fault.Wrap(fault.Transient, err)
		}

		output, err := fn(ctx)
		result.Attempts = attempt
		if err == nil {
			if perr := r.cache.Put(run.ID, stage, fingerprint, output); perr != nil {
				result.Status = types.StageFailed
				run.Stages[stage] = types.StageFailed
				return result, fault.New(fault.StageExhausted, "%s output could not be cached: %v", stage, perr)
			}
			result.Status = types.StageSucceeded
			result.Output = output
			run.Stages[stage] = types.StageSucceeded
			logging.L().Infow("stage succeeded", "run", run.ID, "stage", stage, "attempts", attempt)
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			result.Status = types.StageFailed
			run.Stages[stage] = types.StageFailed
			return result, fault.Wrap(fault.Transient, ctx.Err())
		}
		if !fault.Retryable(err) {
			logging.L().Warnw("stage failed terminally", "run", run.ID, "stage", stage, "kind", fault.KindOf(err), "error", err)
			break
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.backoff(attempt)
		logging.L().Warnw("stage attempt failed, backing off",
			"run", run.ID, "stage", stage, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			result.Status = types.StageFailed
			run.Stages[stage] = types.StageFailed
			return result, fault.Wrap(fault.Transient, ctx.Err())
		case <-time.After(delay):
		}
	}

	result.Status = types.StageFailed
	run.Stages[stage] = types.StageFailed
	return result, fault.New(fault.StageExhausted, "%s failed after %d attempt(s): %v", stage, result.Attempts, lastErr)
}

// backoff returns the wait before the next attempt: the base delay doubled
// per attempt with +/-25% jitter, capped at the configured maximum.
func (r *Runner) backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * r.cfg.BaseDelay
	jittered := time.Duration(float64(d) * (0.75 + rand.Float64()*0.5))
	if jittered > r.cfg.MaxDelay {
		return r.cfg.MaxDelay
	}
	return jittered
}
