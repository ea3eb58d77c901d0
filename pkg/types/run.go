// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the fact-engine pipeline:
// runs and stage statuses, discovery candidates, fetched pages, structured
// documents, claims with their evidence spans, and the per-stage
// configuration surface.
package types

import "time"

// Stage names, in execution order. No stage starts before its predecessor's
// output is durably cached.
const (
	StageDiscover = "discover"
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StageClaims   = "claims"
	StageResolve  = "resolve"
	StageGraph    = "graph"
	StageReport   = "report"
)

// StageOrder lists the pipeline stages in their declared order.
var StageOrder = []string{
	StageDiscover,
	StageFetch,
	StageExtract,
	StageClaims,
	StageResolve,
	StageGraph,
	StageReport,
}

// StageStatus tracks one stage's progress within a run.
type StageStatus string

const (
	StagePending   StageStatus = "PENDING"
	StageRunning   StageStatus = "RUNNING"
	StageCached    StageStatus = "CACHED"
	StageSucceeded StageStatus = "SUCCEEDED"
	StageFailed    StageStatus = "FAILED"
)

// RunStatus is the overall state of a run.
type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run identifies one pipeline execution for one company. It is owned
// exclusively by the orchestrator: created at run start and never mutated
// concurrently by two stages.
type Run struct {
	// ID is the run identifier, minted once at creation.
	ID string `json:"id" yaml:"id"`

	// Company is the company name as given by the caller.
	Company string `json:"company" yaml:"company"`

	// Slug is the company slug used for addressing run artifacts
	// (lowercase, spaces to underscores, dots removed).
	Slug string `json:"slug" yaml:"slug"`

	// Status is the overall run state.
	Status RunStatus `json:"status" yaml:"status"`

	// CurrentStage is the stage the run last entered.
	CurrentStage string `json:"current_stage" yaml:"current_stage"`

	// Stages maps stage name to its status.
	Stages map[string]StageStatus `json:"stages" yaml:"stages"`

	// FailureCause records why a failed run halted. Empty otherwise.
	FailureCause string `json:"failure_cause,omitempty" yaml:"failure_cause,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// StageResult reports the outcome of one orchestrated stage execution.
type StageResult struct {
	// Stage is the executed stage name.
	Stage string `json:"stage" yaml:"stage"`

	// Status is the terminal status of this execution: CACHED, SUCCEEDED,
	// or FAILED.
	Status StageStatus `json:"status" yaml:"status"`

	// FromCache is true when the output was replayed without executing.
	FromCache bool `json:"from_cache" yaml:"from_cache"`

	// Attempts counts executions of the stage function, zero on a cache hit.
	Attempts int `json:"attempts" yaml:"attempts"`

	// Fingerprint is the cache key component derived from the stage input.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Output is the durably cached stage output.
	Output []byte `json:"-" yaml:"-"`
}
