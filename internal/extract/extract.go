// Package extract turns fetched page bodies into cleaned documents: body
// text, title, author, published date, headings, and quotes. Extraction is
// a pure function of the page bytes, so re-running a stage reproduces its
// output exactly.
package extract

import (
	"bytes"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// Extract converts every successfully fetched page into a Document.
// Blocked and failed pages are skipped. Pages that fetched fine but cannot
// be parsed become empty-content markers rather than errors.
func Extract(pages []types.PageResult, cfg types.ExtractConfig) types.ExtractOutput {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	docs := make([]*types.Document, len(pages))

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range pages {
		i := i
		g.Go(func() error {
			if !pages[i].OK() {
				return nil
			}
			doc := extractOne(pages[i], cfg)
			docs[i] = &doc
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; empty markers carry failures

	out := types.ExtractOutput{}
	for _, doc := range docs {
		if doc != nil {
			out.Documents = append(out.Documents, *doc)
		}
	}
	return out
}

// extractOne dispatches a page to the parser for its detected kind.
func extractOne(page types.PageResult, cfg types.ExtractConfig) types.Document {
	kind := detectKind(page)

	var doc types.Document
	switch kind {
	case types.DocHTML:
		doc = extractHTML(page.Body, cfg)
	case types.DocTranscript:
		doc = extractTranscript(page.Body)
	case types.DocPDF:
		doc = extractPDF(page.Body)
	default:
		doc = extractPlain(page.Body)
	}

	doc.URL = page.URL
	doc.Kind = kind
	if strings.TrimSpace(doc.Text) == "" && !doc.Empty {
		doc.Empty = true
		if doc.Reason == "" {
			doc.Reason = "no textual content"
		}
	}
	return doc
}

// detectKind decides the parser for a page from its content type, URL
// extension, and leading bytes.
func detectKind(page types.PageResult) types.DocKind {
	ct := strings.ToLower(page.ContentType)
	lowerURL := strings.ToLower(page.URL)
	head := page.Body
	if len(head) > 1024 {
		head = head[:1024]
	}

	switch {
	case bytes.HasPrefix(page.Body, []byte("%PDF-")),
		strings.Contains(ct, "application/pdf"),
		strings.HasSuffix(lowerURL, ".pdf"):
		return types.DocPDF

	case bytes.HasPrefix(bytes.TrimSpace(page.Body), []byte("WEBVTT")),
		strings.Contains(ct, "text/vtt"),
		strings.HasSuffix(lowerURL, ".vtt"),
		strings.HasSuffix(lowerURL, ".srt"),
		looksLikeTranscript(page.Body):
		return types.DocTranscript

	case strings.Contains(ct, "html"),
		bytes.Contains(head, []byte("<html")),
		bytes.Contains(head, []byte("<!DOCTYPE")),
		bytes.Contains(head, []byte("<!doctype")):
		return types.DocHTML
	}
	return types.DocPlain
}

// extractPlain treats the body as already-clean text.
func extractPlain(body []byte) types.Document {
	return types.Document{Text: normalizeWhitespace(string(body))}
}

// normalizeWhitespace trims lines and collapses blank-line runs, keeping
// span offsets into the text stable across parser quirks.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// parseDocDate parses the date formats page metadata commonly uses.
func parseDocDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"01/02/2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2006", // year only, January 1
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
