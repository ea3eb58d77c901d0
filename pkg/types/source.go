// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Candidate is a discovered URL scored and ranked by the discovery stage.
type Candidate struct {
	// URL is the normalized candidate URL.
	URL string `json:"url" yaml:"url"`

	// Title is the result title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Snippet is the provider's result snippet.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Category is the search category whose query surfaced this candidate
	// first (e.g. "funding rounds").
	Category string `json:"category" yaml:"category"`

	// Provider identifies which search backend returned the candidate.
	Provider string `json:"provider" yaml:"provider"`

	// Published is the result date when the provider reported one.
	Published *time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Relevance is the provider's position-derived relevance, 1.0 for the
	// top result down to 0.1 for the last. Ranking falls back to it when
	// Published is absent.
	Relevance float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`

	// Tier is the domain authority tier, 1 (unknown) through 4 (primary).
	Tier int `json:"tier" yaml:"tier"`

	// Score is the ranking score: tier + recency decay + category bonus.
	Score float64 `json:"score" yaml:"score"`
}

// DiscoverOutput is the discovery stage output: the ranked candidate list
// plus non-fatal provider warnings.
type DiscoverOutput struct {
	Company    string      `json:"company" yaml:"company"`
	Candidates []Candidate `json:"candidates" yaml:"candidates"`
	Warnings   []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// PageResult is one entry of the fetch stage's partial-result batch: either
// the fetched content or the error that prevented it, never both.
type PageResult struct {
	// URL is the requested URL.
	URL string `json:"url" yaml:"url"`

	// FinalURL is the URL after redirects. Equal to URL when no redirect occurred.
	FinalURL string `json:"final_url,omitempty" yaml:"final_url,omitempty"`

	// StatusCode is the HTTP status of the final response, 0 when no
	// response was received.
	StatusCode int `json:"status_code,omitempty" yaml:"status_code,omitempty"`

	// ContentType is the response Content-Type header.
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`

	// Body is the fetched content, capped at the configured size.
	Body []byte `json:"body,omitempty" yaml:"body,omitempty"`

	// FetchedAt records when the fetch completed.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`

	// Blocked is true when robots directives disallowed the URL; no network
	// request was made.
	Blocked bool `json:"blocked,omitempty" yaml:"blocked,omitempty"`

	// Error describes why the fetch failed. Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the page was fetched successfully.
func (p PageResult) OK() bool { return p.Error == "" && !p.Blocked }

// FetchOutput is the fetch stage output.
type FetchOutput struct {
	Pages []PageResult `json:"pages" yaml:"pages"`
}

// DocKind identifies the input class a document was extracted from.
type DocKind string

const (
	DocHTML       DocKind = "html"
	DocTranscript DocKind = "transcript"
	DocPDF        DocKind = "pdf"
	DocPlain      DocKind = "plain"
)

// DocumentUnit is one text unit of a transcript, carrying its timestamp
// offset from the start of the recording.
type DocumentUnit struct {
	// Offset is the unit start, in seconds.
	Offset float64 `json:"offset" yaml:"offset"`

	// Text is the unit text.
	Text string `json:"text" yaml:"text"`
}

// Document is the common structured shape all inputs normalize into.
// Extraction is a pure function of the fetched bytes: malformed input
// produces an empty document with Empty set, never a failure.
type Document struct {
	// URL is the source URL the document was extracted from.
	URL string `json:"url" yaml:"url"`

	// Kind records the detected input class.
	Kind DocKind `json:"kind" yaml:"kind"`

	// Empty marks a document that yielded no usable text. Reason explains why.
	Empty  bool   `json:"empty,omitempty" yaml:"empty,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Title is the document title, when detected.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Author is the byline author, when detected.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Published is the published date, when detected.
	Published *time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Text is the cleaned body text. Evidence spans index into this text.
	Text string `json:"text" yaml:"text"`

	// Headings lists section headings in document order.
	Headings []string `json:"headings,omitempty" yaml:"headings,omitempty"`

	// Quotes lists detected quotations.
	Quotes []string `json:"quotes,omitempty" yaml:"quotes,omitempty"`

	// Units carries per-unit timestamp offsets for transcripts.
	Units []DocumentUnit `json:"units,omitempty" yaml:"units,omitempty"`
}

// ExtractOutput is the extraction stage output, one document per fetched page.
type ExtractOutput struct {
	Documents []Document `json:"documents" yaml:"documents"`
}

// Source is a fetched document as persisted in the fact graph. Immutable
// once stored; many claims may reference one source.
type Source struct {
	// ID is a stable content-derived identifier.
	ID string `json:"id" yaml:"id"`

	// URL is the source URL.
	URL string `json:"url" yaml:"url"`

	// Domain is the registrable host, used for corroboration counting.
	Domain string `json:"domain" yaml:"domain"`

	// Title is the document title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Author is the byline author, when known.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Published is the published date, when known.
	Published *time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Text is the cleaned extracted text evidence spans index into.
	Text string `json:"text" yaml:"text"`

	// Tier is the domain authority tier, 1 through 4.
	Tier int `json:"tier" yaml:"tier"`

	// FetchedAt records when the source was fetched.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}
