// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Triple is a normalized (subject, predicate, object) assertion.
type Triple struct {
	Subject   string `json:"subject" yaml:"subject"`
	Predicate string `json:"predicate" yaml:"predicate"`
	Object    string `json:"object" yaml:"object"`
}

// ClaimCandidate is a proposed claim extracted from one source, before
// entity resolution and merging. A candidate exists only if its quote is a
// literal span of the source text; proposals without one are rejected at
// build time.
type ClaimCandidate struct {
	// ID is a stable content-derived identifier.
	ID string `json:"id" yaml:"id"`

	// SourceID links the candidate to the source it was extracted from.
	SourceID string `json:"source_id" yaml:"source_id"`

	// Triple holds the raw surface forms as extracted.
	Triple Triple `json:"triple" yaml:"triple"`

	// CanonSubject and CanonObject are the canonical entity ids assigned by
	// the resolve stage. Used for merge matching only; raw text is never
	// rewritten.
	CanonSubject string `json:"canon_subject,omitempty" yaml:"canon_subject,omitempty"`
	CanonObject  string `json:"canon_object,omitempty" yaml:"canon_object,omitempty"`

	// Date is the claim date, nil when undated.
	Date *time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// Quote is the verbatim evidence span, byte-for-byte from the source text.
	Quote string `json:"quote" yaml:"quote"`

	// Start and End are byte offsets of Quote within the source text.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Confidence is the proposer's extraction certainty in [0,1]; distinct
	// from the corroboration-based claim confidence computed at merge.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ClaimsOutput is the claim building stage output.
type ClaimsOutput struct {
	Candidates []ClaimCandidate `json:"candidates" yaml:"candidates"`

	// Rejected counts proposals dropped for lacking a literal evidence span.
	Rejected int `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// EntityAlias maps a surface-form name to a canonical entity id. The alias
// table is per-run and append-only.
type EntityAlias struct {
	// Surface is the name form as it appeared in a claim.
	Surface string `json:"surface" yaml:"surface"`

	// CanonicalID identifies the entity all aliases of this name share.
	CanonicalID string `json:"canonical_id" yaml:"canonical_id"`
}

// ResolveOutput is the entity resolution stage output: the grown alias table
// plus the candidates with canonical keys filled in.
type ResolveOutput struct {
	Aliases    []EntityAlias    `json:"aliases" yaml:"aliases"`
	Candidates []ClaimCandidate `json:"candidates" yaml:"candidates"`
}

// ConfidenceClass buckets a claim's confidence for review routing.
type ConfidenceClass string

const (
	// ClassHigh marks claims corroborated by at least the configured number
	// of distinct source domains with date agreement inside the tolerance.
	ClassHigh ConfidenceClass = "HIGH"

	// ClassLow marks claims that miss the HIGH bar; they are surfaced for
	// manual review, never silently dropped.
	ClassLow ConfidenceClass = "LOW"
)

// Claim is an atomic assertion merged from one or more candidates. Claims
// are the unit of deduplication: candidates merge when their resolved
// triples are equal and their dates agree within the tolerance window or
// are both absent.
type Claim struct {
	// ID is a stable content-derived identifier.
	ID string `json:"id" yaml:"id"`

	// Triple holds the representative surface forms.
	Triple Triple `json:"triple" yaml:"triple"`

	// CanonSubject and CanonObject are the canonical entity keys the claim
	// merged under.
	CanonSubject string `json:"canon_subject" yaml:"canon_subject"`
	CanonObject  string `json:"canon_object" yaml:"canon_object"`

	// Date is the claim date (earliest among merged candidates), nil when undated.
	Date *time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// DateSpreadDays is the span between the earliest and latest merged
	// dates, 0 for undated claims.
	DateSpreadDays int `json:"date_spread_days,omitempty" yaml:"date_spread_days,omitempty"`

	// Confidence is the corroboration-based score in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Corroboration is the number of distinct source domains backing the
	// claim. Syndicated copies on one domain never raise it.
	Corroboration int `json:"corroboration" yaml:"corroboration"`

	// Class is HIGH or LOW.
	Class ConfidenceClass `json:"class" yaml:"class"`

	// Flagged marks LOW claims for manual review.
	Flagged bool `json:"flagged,omitempty" yaml:"flagged,omitempty"`

	// Supersedes holds the id of a prior claim this one corrects. Corrections
	// are new claims; stored claims are never edited.
	Supersedes string `json:"supersedes,omitempty" yaml:"supersedes,omitempty"`
}

// Evidence links a Claim to a Source with the exact quoted span supporting
// it. Every claim carries at least one evidence row; the span is a literal
// substring of the source text at [Start, End).
type Evidence struct {
	// ID is a stable content-derived identifier.
	ID string `json:"id" yaml:"id"`

	// ClaimID and SourceID link the span to its claim and source.
	ClaimID  string `json:"claim_id" yaml:"claim_id"`
	SourceID string `json:"source_id" yaml:"source_id"`

	// Start and End are byte offsets into the source text.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Quote is the span text, byte-for-byte.
	Quote string `json:"quote" yaml:"quote"`
}

// GraphOutput is the graph stage output summary. The claims themselves are
// persisted in the store; the summary travels through the stage cache.
type GraphOutput struct {
	Claims   int `json:"claims" yaml:"claims"`
	High     int `json:"high" yaml:"high"`
	Low      int `json:"low" yaml:"low"`
	Flagged  int `json:"flagged" yaml:"flagged"`
	Sources  int `json:"sources" yaml:"sources"`
	Evidence int `json:"evidence" yaml:"evidence"`
}
