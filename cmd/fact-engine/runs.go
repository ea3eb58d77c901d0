package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fact-engine/internal/graph"
	"github.com/pdiddy/fact-engine/internal/run"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// --- runs subcommand ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List research runs, newest first",
	Long: `Runs lists every run recorded in the fact database with its status and
the stage it last entered.`,
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := graph.NewStore(cfg.WorkDir, cfg.Graph)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunsOutput(runs, jsonOutput)
}

func formatRunsOutput(runs []types.Run, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-9s  %-8s  %s\n",
		"ID", "Company", "Status", "Stage", "Created")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 92))

	for _, r := range runs {
		company := r.Company
		if len(company) > 20 {
			company = company[:17] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-9s  %-8s  %s\n",
			r.ID, company, r.Status, r.CurrentStage, r.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// --- status subcommand ---

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the stage-by-stage state of a run",
	Long: `Status shows per-stage progress for a run. With no run ID it picks the
most recent run; --company picks the latest run for that company.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := graph.NewStore(cfg.WorkDir, cfg.Graph)
	if err != nil {
		return err
	}
	defer store.Close()

	target, err := lookupRun(cmd.Context(), store, cmd, args)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(target)
	}

	printRunSummary(&target)
	return nil
}

// lookupRun resolves the target run: an explicit ID argument, the --run
// flag, the latest run for --company, or the most recent run overall.
func lookupRun(ctx context.Context, store *graph.Store, cmd *cobra.Command, args []string) (types.Run, error) {
	if len(args) > 0 {
		return store.GetRun(ctx, args[0])
	}
	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		return store.GetRun(ctx, runID)
	}
	if company, _ := cmd.Flags().GetString("company"); company != "" {
		return store.LatestRun(ctx, run.Slugify(company))
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return types.Run{}, err
	}
	if len(runs) == 0 {
		return types.Run{}, fmt.Errorf("no runs found: start one with fact-engine run")
	}
	return runs[0], nil
}

func init() {
	runsCmd.Flags().Bool("json", false, "output runs as JSON")

	statusCmd.Flags().String("run", "", "target run ID (default: most recent run)")
	statusCmd.Flags().String("company", "", "show the latest run for this company")
	statusCmd.Flags().Bool("json", false, "output the run as JSON")

	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statusCmd)
}
