package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Rebuild the report for a run",
	Long: `Report rebuilds the report artifacts for a run from the fact database and
the cached discovery output, then prints where they were written. Halted
runs get a report naming the failing stage and cause. Use --print to dump
the Markdown to stdout instead.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("run", "", "target run ID (default: most recent run)")
	reportCmd.Flags().String("company", "", "rebuild for the latest run of this company")
	reportCmd.Flags().Bool("pdf", false, "also render the report to PDF (needs docker or podman)")
	reportCmd.Flags().Bool("print", false, "print the rebuilt Markdown to stdout")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pdf, _ := cmd.Flags().GetBool("pdf"); pdf {
		cfg.Report.PDF = true
	}

	pipeline, store, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	target, err := lookupRun(cmd.Context(), store, cmd, args)
	if err != nil {
		return err
	}

	out, err := pipeline.Report(cmd.Context(), target.ID)
	if err != nil {
		return err
	}

	if printMD, _ := cmd.Flags().GetBool("print"); printMD {
		md, err := os.ReadFile(out.MarkdownPath)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(md)
		return err
	}

	fmt.Printf("Report: %s\n", out.MarkdownPath)
	if out.PDFPath != "" {
		fmt.Printf("PDF:    %s\n", out.PDFPath)
	}
	if out.UngroundedCount > 0 {
		fmt.Printf("%d generated field(s) failed evidence grounding and were replaced with \"unknown\"\n", out.UngroundedCount)
	}
	return nil
}
