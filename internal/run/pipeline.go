// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/fact-engine/internal/claim"
	"github.com/pdiddy/fact-engine/internal/discover"
	"github.com/pdiddy/fact-engine/internal/entity"
	"github.com/pdiddy/fact-engine/internal/extract"
	"github.com/pdiddy/fact-engine/internal/fetch"
	"github.com/pdiddy/fact-engine/internal/graph"
	"github.com/pdiddy/fact-engine/internal/guard"
	"github.com/pdiddy/fact-engine/internal/logging"
	"github.com/pdiddy/fact-engine/internal/render"
	"github.com/pdiddy/fact-engine/internal/report"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// Pipeline drives a run through the stage sequence. Stage outputs travel as
// JSON through the stage cache; the fact graph and the report artifacts are
// the pipeline's durable side effects, written exactly once per cache miss.
type Pipeline struct {
	cfg       types.Config
	store     *graph.Store
	cache     *StageCache
	runner    *Runner
	providers []discover.Provider
	fetcher   *fetch.Fetcher
	proposer  claim.Proposer
	renderer  render.Renderer
	now       func() time.Time
}

// NewPipeline assembles a pipeline over the store with the given search
// providers and claim proposer.
func NewPipeline(cfg types.Config, store *graph.Store, providers []discover.Provider, proposer claim.Proposer) *Pipeline {
	cache := NewStageCache(cfg.WorkDir)
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		cache:     cache,
		runner:    NewRunner(cache, cfg.Retry),
		providers: providers,
		fetcher:   fetch.NewFetcher(cfg.Fetch),
		proposer:  proposer,
		now:       time.Now,
	}
}

// SetRenderer enables PDF rendering of the report artifact. Without one the
// report stage writes markdown and YAML only.
func (p *Pipeline) SetRenderer(r render.Renderer) { p.renderer = r }

// NewRun mints a run for a company with every stage pending.
func NewRun(company string, now time.Time) *types.Run {
	stages := make(map[string]types.StageStatus, len(types.StageOrder))
	for _, s := range types.StageOrder {
		stages[s] = types.StagePending
	}
	return &types.Run{
		ID:        uuid.NewString(),
		Company:   company,
		Slug:      Slugify(company),
		Status:    types.RunActive,
		Stages:    stages,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Slugify converts a company name to its artifact slug: lowercased, dots
// dropped, runs of whitespace joined with underscores.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(s), "_")
}

// Execute runs the full pipeline for a company under a fresh run. The run
// is returned in its final state even when the pipeline halts.
func (p *Pipeline) Execute(ctx context.Context, company string) (*types.Run, error) {
	run := NewRun(company, p.now())
	logging.L().Infow("run started", "run", run.ID, "company", company)
	return run, p.execute(ctx, run)
}

// Resume re-executes an existing run. Stages whose cached outputs are still
// valid replay without side effects; work restarts at the first stage
// missing one. Resuming a completed run replays every stage and touches no
// network.
func (p *Pipeline) Resume(ctx context.Context, runID string) (*types.Run, error) {
	r, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	run := &r
	logging.L().Infow("run resumed", "run", run.ID, "company", run.Company)
	return run, p.execute(ctx, run)
}

func (p *Pipeline) execute(ctx context.Context, run *types.Run) error {
	run.Status = types.RunActive
	run.FailureCause = ""
	if err := p.store.SaveRun(ctx, *run); err != nil {
		return err
	}

	outputs := make(map[string][]byte, len(types.StageOrder))
	var prev []byte
	for _, stage := range types.StageOrder {
		fingerprint := p.fingerprintFor(run.ID, stage, prev)
		result, err := p.runner.RunStage(ctx, run, stage, fingerprint, p.stageFunc(run, stage, outputs))
		if err != nil {
			run.Status = types.RunFailed
			run.FailureCause = err.Error()
			if serr := p.store.SaveRun(ctx, *run); serr != nil {
				logging.L().Errorw("saving halted run", "run", run.ID, "error", serr)
			}
			return err
		}
		outputs[stage] = result.Output
		prev = result.Output
		if err := p.store.SaveRun(ctx, *run); err != nil {
			return err
		}
	}

	run.Status = types.RunCompleted
	logging.L().Infow("run completed", "run", run.ID, "company", run.Company)
	return p.store.SaveRun(ctx, *run)
}

// fingerprintFor derives a stage's cache key component from the run, the
// stage's configuration, and the predecessor's output bytes. A change to
// any upstream output or config re-executes the stage and everything after
// it; an unchanged chain replays from cache.
func (p *Pipeline) fingerprintFor(runID, stage string, prev []byte) string {
	h := sha256.New()
	io.WriteString(h, runID)
	io.WriteString(h, "\x00")
	io.WriteString(h, stage)
	io.WriteString(h, "\x00")
	if cfg := p.stageConfig(stage); cfg != nil {
		b, _ := json.Marshal(cfg)
		h.Write(b)
	}
	io.WriteString(h, "\x00")
	h.Write(prev)
	return hex.EncodeToString(h.Sum(nil))
}

func (p *Pipeline) stageConfig(stage string) any {
	switch stage {
	case types.StageDiscover:
		return p.cfg.Discover
	case types.StageFetch:
		return p.cfg.Fetch
	case types.StageExtract:
		return p.cfg.Extract
	case types.StageClaims:
		return p.cfg.Claims
	case types.StageGraph:
		return p.cfg.Graph
	case types.StageReport:
		return struct {
			Guard  types.GuardConfig  `json:"guard"`
			Report types.ReportConfig `json:"report"`
		}{p.cfg.Guard, p.cfg.Report}
	}
	return nil
}

func (p *Pipeline) stageFunc(run *types.Run, stage string, outputs map[string][]byte) StageFunc {
	switch stage {
	case types.StageDiscover:
		return func(ctx context.Context) ([]byte, error) {
			out, err := discover.Discover(ctx, run.Company, p.providers, p.cfg.Discover, p.now())
			if err != nil {
				return nil, err
			}
			return json.Marshal(out)
		}

	case types.StageFetch:
		return func(ctx context.Context) ([]byte, error) {
			var in types.DiscoverOutput
			if err := decode(outputs, types.StageDiscover, &in); err != nil {
				return nil, err
			}
			urls := make([]string, 0, len(in.Candidates))
			for _, c := range in.Candidates {
				urls = append(urls, c.URL)
			}
			pages, err := p.fetcher.FetchAll(ctx, urls)
			if err != nil {
				return nil, err
			}
			return json.Marshal(types.FetchOutput{Pages: pages})
		}

	case types.StageExtract:
		return func(ctx context.Context) ([]byte, error) {
			var in types.FetchOutput
			if err := decode(outputs, types.StageFetch, &in); err != nil {
				return nil, err
			}
			return json.Marshal(extract.Extract(in.Pages, p.cfg.Extract))
		}

	case types.StageClaims:
		return func(ctx context.Context) ([]byte, error) {
			sources, err := p.sourcesFromOutputs(outputs)
			if err != nil {
				return nil, err
			}
			out, err := claim.BuildAll(ctx, p.proposer, run.Company, sources, p.cfg.Claims)
			if err != nil {
				return nil, err
			}
			return json.Marshal(out)
		}

	case types.StageResolve:
		return func(ctx context.Context) ([]byte, error) {
			var in types.ClaimsOutput
			if err := decode(outputs, types.StageClaims, &in); err != nil {
				return nil, err
			}
			// Seeding from stored aliases keeps the table append-only when
			// this stage re-executes after an invalidation.
			seed, err := p.store.GetAliases(ctx, run.ID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(entity.ResolveAll(in.Candidates, seed))
		}

	case types.StageGraph:
		return func(ctx context.Context) ([]byte, error) {
			var in types.ResolveOutput
			if err := decode(outputs, types.StageResolve, &in); err != nil {
				return nil, err
			}
			sources, err := p.sourcesFromOutputs(outputs)
			if err != nil {
				return nil, err
			}
			claims, evidence := graph.Build(in, sources, p.cfg.Graph)
			if err := p.store.SaveGraph(ctx, run.ID, sources, claims, evidence, in.Aliases); err != nil {
				return nil, err
			}
			return json.Marshal(graph.Summarize(claims, sources, evidence))
		}

	case types.StageReport:
		return func(ctx context.Context) ([]byte, error) {
			// Reaching the final stage with every predecessor green is
			// what completes the run; the report reflects that.
			reportRun := *run
			reportRun.Status = types.RunCompleted
			out, err := p.buildReport(ctx, reportRun, outputs)
			if err != nil {
				return nil, err
			}
			return json.Marshal(out)
		}
	}

	return func(context.Context) ([]byte, error) {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

// Report rebuilds the report artifacts for a stored run. Halted runs get a
// report covering whatever their completed stages persisted.
func (p *Pipeline) Report(ctx context.Context, runID string) (types.ReportOutput, error) {
	run, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return types.ReportOutput{}, err
	}
	outputs := map[string][]byte{types.StageDiscover: []byte("{}")}
	if raw, err := p.cache.Load(runID, types.StageDiscover); err == nil {
		outputs[types.StageDiscover] = raw
	}
	return p.buildReport(ctx, run, outputs)
}

// buildReport assembles and writes the report artifacts. Claims, evidence,
// and sources come from the store rather than stage outputs so a resumed
// run reports on exactly what was persisted.
func (p *Pipeline) buildReport(ctx context.Context, run types.Run, outputs map[string][]byte) (types.ReportOutput, error) {
	claims, err := p.store.AllClaims(ctx, run.ID)
	if err != nil {
		return types.ReportOutput{}, err
	}
	evidence, err := p.store.AllEvidence(ctx, run.ID)
	if err != nil {
		return types.ReportOutput{}, err
	}
	sources, err := p.store.GetSources(ctx, run.ID)
	if err != nil {
		return types.ReportOutput{}, err
	}

	var disc types.DiscoverOutput
	if err := decode(outputs, types.StageDiscover, &disc); err != nil {
		return types.ReportOutput{}, err
	}
	categories := make(map[string]string, len(disc.Candidates))
	for _, c := range disc.Candidates {
		categories[discover.NormalizeURL(c.URL)] = c.Category
	}

	checker := guard.NewChecker(p.cfg.Guard, evidence)
	rep := report.Build(report.Input{
		Run:        run,
		Claims:     claims,
		Evidence:   evidence,
		Sources:    sources,
		Categories: categories,
	}, checker, p.cfg.Report)

	mdPath, err := report.Write(p.cache.RunDir(run.ID), rep)
	if err != nil {
		return types.ReportOutput{}, err
	}
	out := types.ReportOutput{
		MarkdownPath:    mdPath,
		UngroundedCount: rep.UngroundedCount,
	}
	if p.cfg.Report.PDF && p.renderer != nil {
		pdfPath, err := render.ReportPDF(p.renderer, mdPath)
		if err != nil {
			return types.ReportOutput{}, err
		}
		out.PDFPath = pdfPath
	}
	return out, nil
}

// sourcesFromOutputs rebuilds the source set from the fetch and extract
// stage outputs. Derived deterministically, so the claims and graph stages
// see identical sources without a shared intermediate.
func (p *Pipeline) sourcesFromOutputs(outputs map[string][]byte) ([]types.Source, error) {
	var fo types.FetchOutput
	if err := decode(outputs, types.StageFetch, &fo); err != nil {
		return nil, err
	}
	var eo types.ExtractOutput
	if err := decode(outputs, types.StageExtract, &eo); err != nil {
		return nil, err
	}
	return graph.SourcesFromDocuments(eo.Documents, fo.Pages), nil
}

func decode(outputs map[string][]byte, stage string, v any) error {
	data, ok := outputs[stage]
	if !ok {
		return fmt.Errorf("%s output not available", stage)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s output: %w", stage, err)
	}
	return nil
}
