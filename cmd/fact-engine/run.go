package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fact-engine/internal/claim"
	"github.com/pdiddy/fact-engine/internal/discover"
	"github.com/pdiddy/fact-engine/internal/graph"
	"github.com/pdiddy/fact-engine/internal/render"
	"github.com/pdiddy/fact-engine/internal/run"
	"github.com/pdiddy/fact-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [company]",
	Short: "Execute the research pipeline for a company",
	Long: `Run executes the full research pipeline: source discovery, polite
fetching, content extraction, claim building, entity resolution, graph
merge, and report generation. Stage outputs are cached under the work
directory, so re-running replays finished stages without network traffic
and a halted run picks up at its failing stage.

Use --resume with a run ID to continue a halted run in place.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("resume", "", "resume an existing run by ID instead of starting fresh")
	runCmd.Flags().String("backend", "", "claim proposer backend: openai or heuristic")
	runCmd.Flags().Bool("pdf", false, "also render the report to PDF (needs docker or podman)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	resumeID, _ := cmd.Flags().GetString("resume")
	if resumeID == "" && len(args) == 0 {
		return fmt.Errorf("provide a company name or --resume <run-id>")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Claims.Backend = types.ClaimsBackend(backend)
	}
	if pdf, _ := cmd.Flags().GetBool("pdf"); pdf {
		cfg.Report.PDF = true
	}

	pipeline, store, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var result *types.Run
	if resumeID != "" {
		result, err = pipeline.Resume(cmd.Context(), resumeID)
	} else {
		result, err = pipeline.Execute(cmd.Context(), strings.Join(args, " "))
	}
	if result != nil {
		printRunSummary(result)
		if result.Status == types.RunCompleted {
			printReportLocation(cfg.WorkDir, result.ID)
		}
	}
	return err
}

// buildPipeline assembles the pipeline and its store from the effective
// configuration. The caller closes the store.
func buildPipeline(cfg types.Config) (*run.Pipeline, *graph.Store, error) {
	resolveSecrets(&cfg)

	store, err := graph.NewStore(cfg.WorkDir, cfg.Graph)
	if err != nil {
		return nil, nil, err
	}

	proposer, err := buildProposer(cfg.Claims)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	p := run.NewPipeline(cfg, store, buildProviders(cfg.Discover), proposer)

	if cfg.Report.PDF {
		rt, err := render.DetectRuntime()
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("PDF output needs a container runtime: %w", err)
		}
		renderer, err := render.NewPandocRenderer(rt)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		p.SetRenderer(renderer)
	}
	return p, store, nil
}

func buildProviders(cfg types.DiscoverConfig) []discover.Provider {
	client := &http.Client{Timeout: cfg.Timeout}

	var providers []discover.Provider
	if cfg.EnableBrave {
		if cfg.BraveAPIKey == "" {
			fmt.Fprintln(os.Stderr, "Brave Search enabled but no API key found; skipping")
		} else {
			providers = append(providers, &discover.BraveProvider{
				Client:    client,
				APIKey:    cfg.BraveAPIKey,
				UserAgent: cfg.UserAgent,
			})
		}
	}
	if cfg.EnableSerpAPI {
		if cfg.SerpAPIKey == "" {
			fmt.Fprintln(os.Stderr, "SerpAPI enabled but no API key found; skipping")
		} else {
			providers = append(providers, &discover.SerpAPIProvider{
				Client:    client,
				APIKey:    cfg.SerpAPIKey,
				UserAgent: cfg.UserAgent,
			})
		}
	}
	return providers
}

func buildProposer(cfg types.ClaimsConfig) (claim.Proposer, error) {
	switch cfg.Backend {
	case types.BackendHeuristic, "":
		return &claim.HeuristicProposer{}, nil
	case types.BackendOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai backend selected but no API key found: set OPENAI_API_KEY or .secrets/openai-api-key")
		}
		return claim.NewOpenAIProposer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown claims backend %q: use openai or heuristic", cfg.Backend)
	}
}

func printRunSummary(r *types.Run) {
	fmt.Printf("Run %s (%s): %s\n", r.ID, r.Company, r.Status)
	for _, stage := range types.StageOrder {
		fmt.Printf("  %-10s %s\n", stage, r.Stages[stage])
	}
	if r.FailureCause != "" {
		fmt.Printf("Cause: %s\n", r.FailureCause)
		fmt.Printf("Resume with: fact-engine run --resume %s\n", r.ID)
	}
}

// printReportLocation reads the cached report stage output for the artifact
// paths. Best effort; the run summary already told the user the outcome.
func printReportLocation(workDir, runID string) {
	raw, err := run.NewStageCache(workDir).Load(runID, types.StageReport)
	if err != nil {
		return
	}
	var out types.ReportOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return
	}
	fmt.Printf("Report: %s\n", out.MarkdownPath)
	if out.PDFPath != "" {
		fmt.Printf("PDF:    %s\n", out.PDFPath)
	}
	if out.UngroundedCount > 0 {
		fmt.Printf("%d generated field(s) failed evidence grounding and were replaced with \"unknown\"\n", out.UngroundedCount)
	}
}
