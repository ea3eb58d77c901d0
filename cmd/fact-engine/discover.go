package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fact-engine/internal/discover"
	"github.com/pdiddy/fact-engine/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [company]",
	Short: "Preview ranked source candidates for a company",
	Long: `Discover runs the source discovery stage alone: the fixed category
queries against the enabled search providers, deduplication, and ranking
by domain tier, recency, and category coverage. Nothing is persisted; use
run to execute the full pipeline.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().Int("max-candidates", 0, "cap the ranked candidate list (0 = use default)")
	discoverCmd.Flags().Bool("json", false, "output candidates as JSON")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a company name")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolveSecrets(&cfg)
	if maxCandidates, _ := cmd.Flags().GetInt("max-candidates"); maxCandidates > 0 {
		cfg.Discover.MaxCandidates = maxCandidates
	}

	out, err := discover.Discover(cmd.Context(), strings.Join(args, " "),
		buildProviders(cfg.Discover), cfg.Discover, time.Now())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatDiscoverOutput(out, jsonOutput)
}

func formatDiscoverOutput(out types.DiscoverOutput, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, w := range out.Warnings {
		fmt.Fprintln(os.Stderr, "Warning:", w)
	}

	if len(out.Candidates) == 0 {
		fmt.Println("No candidates found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-6s  %-18s  %-4s  %s\n",
		"Rank", "Score", "Category", "Tier", "URL")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for i, c := range out.Candidates {
		url := c.URL
		if len(url) > 62 {
			url = url[:59] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-6.2f  %-18s  %-4d  %s\n",
			i+1, c.Score, c.Category, c.Tier, url)
	}

	fmt.Fprintf(os.Stdout, "\n%d candidates\n", len(out.Candidates))
	return nil
}
