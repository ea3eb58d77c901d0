// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ReportClaim is one claim as presented in the report: the assertion, its
// classification, and its verbatim evidence quotes with source URLs.
type ReportClaim struct {
	ClaimID       string          `json:"claim_id" yaml:"claim_id"`
	Subject       string          `json:"subject" yaml:"subject"`
	Predicate     string          `json:"predicate" yaml:"predicate"`
	Object        string          `json:"object" yaml:"object"`
	Date          string          `json:"date,omitempty" yaml:"date,omitempty"`
	Confidence    float64         `json:"confidence" yaml:"confidence"`
	Class         ConfidenceClass `json:"class" yaml:"class"`
	Corroboration int             `json:"corroboration" yaml:"corroboration"`
	Quotes        []ReportQuote   `json:"quotes" yaml:"quotes"`
}

// ReportQuote is a verbatim evidence span with its source attribution.
type ReportQuote struct {
	Quote     string `json:"quote" yaml:"quote"`
	SourceURL string `json:"source_url" yaml:"source_url"`
	Domain    string `json:"domain" yaml:"domain"`
}

// ReportSection groups report claims by search category.
type ReportSection struct {
	Category string `json:"category" yaml:"category"`

	// Synopsis is a generated one-line summary. It has passed the
	// hallucination guard: either grounded text or the unknown sentinel.
	Synopsis string `json:"synopsis" yaml:"synopsis"`

	Claims []ReportClaim `json:"claims" yaml:"claims"`
}

// Report is the user-visible outcome of a run: for a halted run the failing
// stage and cause, for a completed run the confidence audit and the
// per-category claim profile.
type Report struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Company   string    `json:"company" yaml:"company"`
	Status    RunStatus `json:"status" yaml:"status"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// FailedStage and FailureCause are set for halted runs.
	FailedStage  string `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	FailureCause string `json:"failure_cause,omitempty" yaml:"failure_cause,omitempty"`

	// Audit counts for completed runs.
	HighClaims      int `json:"high_claims" yaml:"high_claims"`
	LowClaims       int `json:"low_claims" yaml:"low_claims"`
	FlaggedClaims   int `json:"flagged_claims" yaml:"flagged_claims"`
	UngroundedCount int `json:"ungrounded_count" yaml:"ungrounded_count"`

	// UngroundedFields names generated fields the guard replaced with the
	// unknown sentinel.
	UngroundedFields []string `json:"ungrounded_fields,omitempty" yaml:"ungrounded_fields,omitempty"`

	// FlaggedForReview lists LOW claims requiring manual review.
	FlaggedForReview []ReportClaim `json:"flagged_for_review,omitempty" yaml:"flagged_for_review,omitempty"`

	Sections []ReportSection `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// ReportOutput is the report stage's cached output: where the artifacts
// were written. The report content itself lives in the files.
type ReportOutput struct {
	MarkdownPath    string `json:"markdown_path" yaml:"markdown_path"`
	PDFPath         string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
	UngroundedCount int    `json:"ungrounded_count" yaml:"ungrounded_count"`
}
