// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the user-visible outcome of a run: the confidence
// audit, per-category claim sections with verbatim evidence quotes, and the
// review queue of flagged claims. Every generated field passes through the
// hallucination guard before it reaches the page.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/fact-engine/internal/discover"
	"github.com/pdiddy/fact-engine/internal/guard"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// otherCategory collects claims whose sources no search category surfaced.
const otherCategory = "other findings"

// Input carries everything the report builder reads. All fields come from
// the fact graph and cached stage outputs; the builder itself is pure.
type Input struct {
	Run      types.Run
	Claims   []types.Claim
	Evidence []types.Evidence
	Sources  []types.Source

	// Categories maps normalized source URLs to the search category that
	// surfaced them during discovery.
	Categories map[string]string

	// Synopses optionally carries generated per-category summaries. Every
	// entry is guarded; absent entries fall back to the top claim's quote.
	Synopses map[string]string
}

// Build assembles the report for a run. Halted runs report the failing stage
// and cause; completed runs report audit counts and the claim profile.
func Build(in Input, checker *guard.Checker, cfg types.ReportConfig) types.Report {
	r := types.Report{
		RunID:     in.Run.ID,
		Company:   in.Run.Company,
		Status:    in.Run.Status,
		CreatedAt: in.Run.CreatedAt,
	}

	if in.Run.Status == types.RunFailed {
		r.FailedStage = in.Run.CurrentStage
		r.FailureCause = in.Run.FailureCause
		return r
	}

	topPerCategory := cfg.TopPerCategory
	if topPerCategory <= 0 {
		topPerCategory = 3
	}

	evidenceByClaim := make(map[string][]types.Evidence)
	for _, ev := range in.Evidence {
		evidenceByClaim[ev.ClaimID] = append(evidenceByClaim[ev.ClaimID], ev)
	}
	sourceByID := make(map[string]types.Source, len(in.Sources))
	for _, src := range in.Sources {
		sourceByID[src.ID] = src
	}

	for _, c := range in.Claims {
		if c.Class == types.ClassHigh {
			r.HighClaims++
		} else {
			r.LowClaims++
		}
		if c.Flagged {
			r.FlaggedClaims++
			r.FlaggedForReview = append(r.FlaggedForReview,
				reportClaim(c, evidenceByClaim[c.ID], sourceByID))
		}
	}

	byCategory := make(map[string][]types.Claim)
	for _, c := range in.Claims {
		cat := claimCategory(c, evidenceByClaim[c.ID], sourceByID, in.Categories)
		byCategory[cat] = append(byCategory[cat], c)
	}

	order := append(append([]string{}, discover.Categories...), otherCategory)
	for _, category := range order {
		claims := byCategory[category]
		if len(claims) == 0 {
			continue
		}
		sort.Slice(claims, func(i, j int) bool {
			if claims[i].Confidence != claims[j].Confidence {
				return claims[i].Confidence > claims[j].Confidence
			}
			return claims[i].ID < claims[j].ID
		})
		if len(claims) > topPerCategory {
			claims = claims[:topPerCategory]
		}

		section := types.ReportSection{Category: category}
		var claimIDs []string
		for _, c := range claims {
			section.Claims = append(section.Claims,
				reportClaim(c, evidenceByClaim[c.ID], sourceByID))
			claimIDs = append(claimIDs, c.ID)
		}

		synopsis := in.Synopses[category]
		if synopsis == "" {
			synopsis = topQuote(claims[0], evidenceByClaim[claims[0].ID])
		}
		guarded := checker.Ground("synopsis:"+category, synopsis, claimIDs)
		section.Synopsis = guarded.Text
		if !guarded.Grounded {
			r.UngroundedCount++
			r.UngroundedFields = append(r.UngroundedFields, guarded.Name)
		}

		r.Sections = append(r.Sections, section)
	}

	return r
}

// claimCategory resolves a claim to the search category of its first
// evidence source, or the catch-all section when none is known.
func claimCategory(c types.Claim, evidence []types.Evidence, sourceByID map[string]types.Source, categories map[string]string) string {
	for _, ev := range evidence {
		src, ok := sourceByID[ev.SourceID]
		if !ok {
			continue
		}
		if cat := categories[discover.NormalizeURL(src.URL)]; cat != "" {
			return cat
		}
	}
	return otherCategory
}

func reportClaim(c types.Claim, evidence []types.Evidence, sourceByID map[string]types.Source) types.ReportClaim {
	rc := types.ReportClaim{
		ClaimID:       c.ID,
		Subject:       c.Triple.Subject,
		Predicate:     c.Triple.Predicate,
		Object:        c.Triple.Object,
		Confidence:    c.Confidence,
		Class:         c.Class,
		Corroboration: c.Corroboration,
	}
	if c.Date != nil {
		rc.Date = c.Date.UTC().Format("2006-01-02")
	}
	for _, ev := range evidence {
		quote := types.ReportQuote{Quote: ev.Quote}
		if src, ok := sourceByID[ev.SourceID]; ok {
			quote.SourceURL = src.URL
			quote.Domain = src.Domain
		}
		rc.Quotes = append(rc.Quotes, quote)
	}
	return rc
}

// topQuote is the default synopsis: the first evidence quote of the
// section's top claim, grounded by construction.
func topQuote(c types.Claim, evidence []types.Evidence) string {
	if len(evidence) == 0 {
		return guard.UnknownSentinel
	}
	return evidence[0].Quote
}

// frontmatter is the YAML block rendered at the top of the Markdown report.
type frontmatter struct {
	RunID            string   `yaml:"run_id"`
	Company          string   `yaml:"company"`
	Status           string   `yaml:"status"`
	CreatedAt        string   `yaml:"created_at"`
	HighClaims       int      `yaml:"high_claims"`
	LowClaims        int      `yaml:"low_claims"`
	FlaggedClaims    int      `yaml:"flagged_claims"`
	UngroundedCount  int      `yaml:"ungrounded_count"`
	UngroundedFields []string `yaml:"ungrounded_fields,omitempty"`
	FailedStage      string   `yaml:"failed_stage,omitempty"`
	FailureCause     string   `yaml:"failure_cause,omitempty"`
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeClaimLine(b *strings.Builder, rc types.ReportClaim) {
	fmt.Fprintf(b, "- **%s %s %s**", rc.Subject, rc.Predicate, rc.Object)
	if rc.Date != "" {
		fmt.Fprintf(b, " (%s)", rc.Date)
	}
	fmt.Fprintf(b, " [%s]\n", rc.ClaimID)
	fmt.Fprintf(b, "  confidence %.2f, %s, %d distinct domain(s)\n",
		rc.Confidence, rc.Class, rc.Corroboration)
	for _, q := range rc.Quotes {
		fmt.Fprintf(b, "  > %q (%s, %s)\n", q.Quote, q.Domain, q.SourceURL)
	}
}
