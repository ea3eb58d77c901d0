// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fact-engine/pkg/types"
)

const (
	markdownFile = "report.md"
	yamlFile     = "report.yaml"
)

// citationPattern matches inline claim citations: a bracketed 12-char hex id.
var citationPattern = regexp.MustCompile(`\[([0-9a-f]{12})\]`)

// RenderMarkdown renders a report as Markdown with YAML frontmatter. Claims
// cite their ids inline so every statement traces back to the graph.
func RenderMarkdown(r types.Report) ([]byte, error) {
	fm := frontmatter{
		RunID:            r.RunID,
		Company:          r.Company,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt.UTC().Format(time.RFC3339),
		HighClaims:       r.HighClaims,
		LowClaims:        r.LowClaims,
		FlaggedClaims:    r.FlaggedClaims,
		UngroundedCount:  r.UngroundedCount,
		UngroundedFields: r.UngroundedFields,
		FailedStage:      r.FailedStage,
		FailureCause:     r.FailureCause,
	}
	fmData, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fmData)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# Research report: %s\n\n", r.Company)

	if r.Status == types.RunFailed {
		b.WriteString("## Run halted\n\n")
		fmt.Fprintf(&b, "- Failing stage: %s\n", r.FailedStage)
		fmt.Fprintf(&b, "- Cause: %s\n", r.FailureCause)
		b.WriteString("\nPrior stage outputs are cached; resume the run after fixing the cause.\n")
		return []byte(b.String()), nil
	}

	b.WriteString("## Audit\n\n")
	fmt.Fprintf(&b, "- High confidence claims: %d\n", r.HighClaims)
	fmt.Fprintf(&b, "- Low confidence claims: %d (flagged for review: %d)\n", r.LowClaims, r.FlaggedClaims)
	fmt.Fprintf(&b, "- Ungrounded replacements: %d\n", r.UngroundedCount)
	if len(r.UngroundedFields) > 0 {
		fmt.Fprintf(&b, "- Replaced fields: %s\n", strings.Join(r.UngroundedFields, ", "))
	}
	b.WriteString("\n")

	for _, section := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", titleCase(section.Category))
		if section.Synopsis != "" {
			fmt.Fprintf(&b, "%s\n\n", section.Synopsis)
		}
		for _, rc := range section.Claims {
			writeClaimLine(&b, rc)
		}
		b.WriteString("\n")
	}

	if len(r.FlaggedForReview) > 0 {
		b.WriteString("## Flagged for review\n\n")
		b.WriteString("Single-domain or date-conflicted claims. Verify before use.\n\n")
		for _, rc := range r.FlaggedForReview {
			writeClaimLine(&b, rc)
		}
	}

	return []byte(b.String()), nil
}

// Write renders the report into dir as report.md plus a report.yaml copy of
// the structured form. Returns the Markdown path.
func Write(dir string, r types.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	md, err := RenderMarkdown(r)
	if err != nil {
		return "", err
	}
	mdPath := filepath.Join(dir, markdownFile)
	if err := os.WriteFile(mdPath, md, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, yamlFile), data, 0o644); err != nil {
		return "", fmt.Errorf("writing report YAML: %w", err)
	}

	return mdPath, nil
}

// ValidateCitations scans rendered Markdown for claim citations and returns
// the ids with no corresponding claim, sorted. A clean report returns none.
func ValidateCitations(markdown string, claims []types.Claim) []string {
	known := make(map[string]bool, len(claims))
	for _, c := range claims {
		known[c.ID] = true
	}

	seen := make(map[string]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(markdown, -1) {
		id := m[1]
		if !known[id] && !seen[id] {
			seen[id] = true
		}
	}

	missing := make([]string, 0, len(seen))
	for id := range seen {
		missing = append(missing, id)
	}
	sort.Strings(missing)
	return missing
}
