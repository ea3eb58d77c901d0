package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fact-engine/internal/graph"
	"github.com/pdiddy/fact-engine/pkg/types"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Query and export the fact graph",
	Long: `Graph queries the fact database that runs build up. Use subcommands to
search a run's claims, inspect the verbatim evidence behind one, or export
the graph to YAML or JSON.`,
}

// --- claims subcommand ---

var graphClaimsCmd = &cobra.Command{
	Use:   "claims [query]",
	Short: "Search a run's claims with full-text search and filters",
	Long: `Claims searches the fact graph with FTS5 full-text search, structured
filters (class, predicate, subject, flagged), or a combination. Without a
run ID it targets the most recent run; --company picks the latest run for
that company. Claims a correction superseded are hidden unless
--superseded is set.`,
	RunE: runGraphClaims,
}

func runGraphClaims(cmd *cobra.Command, args []string) error {
	store, target, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	claims, err := store.GetClaims(cmd.Context(), target.ID, claimQueryOpts(cmd, args))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatClaimsOutput(claims, jsonOutput)
}

func formatClaimsOutput(claims []types.Claim, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(claims)
	}

	if len(claims) == 0 {
		fmt.Println("No claims found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-5s  %-5s  %-4s  %-58s  %s\n",
		"ID", "Class", "Conf", "Srcs", "Claim", "Date")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 104))

	for _, c := range claims {
		text := fmt.Sprintf("%s %s %s", c.Triple.Subject, c.Triple.Predicate, c.Triple.Object)
		if c.Flagged {
			text = "! " + text
		}
		if len(text) > 58 {
			text = text[:55] + "..."
		}
		date := ""
		if c.Date != nil {
			date = c.Date.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-5s  %-5.2f  %-4d  %-58s  %s\n",
			c.ID, c.Class, c.Confidence, c.Corroboration, text, date)
	}

	fmt.Fprintf(os.Stdout, "\n%d claims (! = flagged for review)\n", len(claims))
	return nil
}

// --- evidence subcommand ---

var graphEvidenceCmd = &cobra.Command{
	Use:   "evidence [claim-id]",
	Short: "Show the verbatim evidence spans behind a claim",
	Long: `Evidence prints every quoted span backing a claim with its source URL
and byte offsets. The quotes are literal substrings of the fetched source
text; the offsets locate them.`,
	RunE: runGraphEvidence,
}

func runGraphEvidence(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a claim id (see fact-engine graph claims)")
	}

	store, target, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := store.GetClaim(cmd.Context(), target.ID, args[0])
	if err != nil {
		return err
	}
	evidence, err := store.GetEvidence(cmd.Context(), target.ID, c.ID)
	if err != nil {
		return err
	}
	sources, err := store.GetSources(cmd.Context(), target.ID)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Claim    types.Claim      `json:"claim"`
			Evidence []types.Evidence `json:"evidence"`
		}{c, evidence})
	}

	urlByID := make(map[string]string, len(sources))
	for _, src := range sources {
		urlByID[src.ID] = src.URL
	}

	fmt.Printf("Claim %s: %s %s %s (%s, %.2f, %d domains)\n",
		c.ID, c.Triple.Subject, c.Triple.Predicate, c.Triple.Object,
		c.Class, c.Confidence, c.Corroboration)
	if c.Supersedes != "" {
		fmt.Printf("Supersedes: %s\n", c.Supersedes)
	}
	fmt.Println()

	for i, ev := range evidence {
		fmt.Printf("%d. %s [%d:%d]\n", i+1, urlByID[ev.SourceID], ev.Start, ev.End)
		fmt.Printf("   %q\n", ev.Quote)
	}

	fmt.Printf("\n%d evidence span(s)\n", len(evidence))
	return nil
}

// --- export subcommand ---

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's claims to YAML or JSON",
	Long: `Export writes the run's claims with their evidence spans and source URLs
to index/export.yaml or export.json under the work directory. Supports the
same filter flags as claims for partial exports.`,
	RunE: runGraphExport,
}

func runGraphExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := graph.NewStore(cfg.WorkDir, cfg.Graph)
	if err != nil {
		return err
	}
	defer store.Close()

	target, err := lookupRun(cmd.Context(), store, cmd, nil)
	if err != nil {
		return err
	}
	opts := claimQueryOpts(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(cmd.Context(), target.ID, opts); err != nil {
			return err
		}
		fmt.Println("Exported to", filepath.Join(cfg.WorkDir, "index", "export.yaml"))
	case "json":
		if err := store.ExportJSON(cmd.Context(), target.ID, opts); err != nil {
			return err
		}
		fmt.Println("Exported to", filepath.Join(cfg.WorkDir, "index", "export.json"))
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

// openGraph opens the store and resolves the target run from the shared
// --run and --company flags.
func openGraph(cmd *cobra.Command) (*graph.Store, types.Run, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, types.Run{}, err
	}
	store, err := graph.NewStore(cfg.WorkDir, cfg.Graph)
	if err != nil {
		return nil, types.Run{}, err
	}

	target, err := lookupRun(cmd.Context(), store, cmd, nil)
	if err != nil {
		store.Close()
		return nil, types.Run{}, err
	}
	return store, target, nil
}

func claimQueryOpts(cmd *cobra.Command, args []string) graph.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	class, _ := cmd.Flags().GetString("class")
	predicate, _ := cmd.Flags().GetString("predicate")
	subject, _ := cmd.Flags().GetString("subject")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	flagged, _ := cmd.Flags().GetBool("flagged")
	superseded, _ := cmd.Flags().GetBool("superseded")
	limit, _ := cmd.Flags().GetInt("limit")

	return graph.QueryOptions{
		Query:             queryText,
		Class:             types.ConfidenceClass(strings.ToUpper(class)),
		Predicate:         predicate,
		Subject:           subject,
		MinConfidence:     minConfidence,
		FlaggedOnly:       flagged,
		IncludeSuperseded: superseded,
		MaxResults:        limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	graphCmd.PersistentFlags().String("run", "", "target run ID (default: most recent run)")
	graphCmd.PersistentFlags().String("company", "", "target the latest run for this company")

	// Claims flags.
	graphClaimsCmd.Flags().String("query", "", "full-text search query")
	graphClaimsCmd.Flags().String("class", "", "filter by confidence class: high or low")
	graphClaimsCmd.Flags().String("predicate", "", "filter by predicate (e.g. founded_in)")
	graphClaimsCmd.Flags().String("subject", "", "filter by canonical subject id")
	graphClaimsCmd.Flags().Float64("min-confidence", 0, "drop claims scored below this floor")
	graphClaimsCmd.Flags().Bool("flagged", false, "only claims flagged for review")
	graphClaimsCmd.Flags().Bool("superseded", false, "include claims a correction superseded")
	graphClaimsCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	graphClaimsCmd.Flags().Bool("json", false, "output claims as JSON")

	// Evidence flags.
	graphEvidenceCmd.Flags().Bool("json", false, "output the claim and spans as JSON")

	// Export flags.
	graphExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	graphExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	graphExportCmd.Flags().String("class", "", "filter by confidence class for partial export")
	graphExportCmd.Flags().String("predicate", "", "filter by predicate for partial export")
	graphExportCmd.Flags().String("subject", "", "filter by canonical subject id for partial export")
	graphExportCmd.Flags().Float64("min-confidence", 0, "drop claims scored below this floor")
	graphExportCmd.Flags().Bool("flagged", false, "only claims flagged for review")
	graphExportCmd.Flags().Bool("superseded", false, "include claims a correction superseded")
	graphExportCmd.Flags().Int("limit", 0, "maximum claims to export (0 = all)")

	// Wire subcommands.
	graphCmd.AddCommand(graphClaimsCmd)
	graphCmd.AddCommand(graphEvidenceCmd)
	graphCmd.AddCommand(graphExportCmd)

	rootCmd.AddCommand(graphCmd)
}
