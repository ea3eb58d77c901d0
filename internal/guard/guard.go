// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package guard is the grounding gate between the fact graph and any
// generated text. A field passes only when every sentence traces to a stored
// evidence span of the claims it cites; anything else is replaced with the
// unknown sentinel. The guard fails closed: partial or edited text never
// passes through.
package guard

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// UnknownSentinel is the exact replacement value for rejected fields.
const UnknownSentinel = "unknown"

// GuardedField is the outcome of grounding one generated field.
type GuardedField struct {
	// Name identifies the field in the consumer's output.
	Name string `json:"name" yaml:"name"`

	// Text is the approved text, or the unknown sentinel on rejection.
	Text string `json:"text" yaml:"text"`

	// Grounded reports whether the original text passed.
	Grounded bool `json:"grounded" yaml:"grounded"`

	// ClaimIDs lists the claims the field cited.
	ClaimIDs []string `json:"claim_ids,omitempty" yaml:"claim_ids,omitempty"`

	// Rejected lists the sentences that failed the check, kept for audit.
	Rejected []string `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// Checker validates generated text against the evidence spans of a run.
type Checker struct {
	minRatio float64
	spans    map[string][]string
}

// NewChecker indexes evidence spans by claim id. The checker reads the
// fact graph only; it never mutates stored claims.
func NewChecker(cfg types.GuardConfig, evidence []types.Evidence) *Checker {
	minRatio := cfg.MinRatio
	if minRatio <= 0 {
		minRatio = 0.82
	}

	spans := make(map[string][]string)
	for _, ev := range evidence {
		spans[ev.ClaimID] = append(spans[ev.ClaimID], ev.Quote)
	}
	return &Checker{minRatio: minRatio, spans: spans}
}

// Ground validates a generated field against the evidence of the claims it
// cites. Every sentence must be contained in some span or sit within the
// edit-similarity threshold of one, and every number and capitalized term
// in the field must appear in some span. A field that is exactly the
// unknown sentinel passes untouched. Any failure replaces the whole field
// with the sentinel.
func (c *Checker) Ground(name, text string, claimIDs []string) GuardedField {
	field := GuardedField{Name: name, ClaimIDs: claimIDs}

	trimmed := strings.TrimSpace(text)
	if trimmed == UnknownSentinel {
		field.Text = UnknownSentinel
		field.Grounded = true
		return field
	}

	var spans []string
	for _, id := range claimIDs {
		spans = append(spans, c.spans[id]...)
	}

	if trimmed == "" || len(spans) == 0 {
		field.Text = UnknownSentinel
		if trimmed != "" {
			field.Rejected = splitSentences(trimmed)
		}
		return field
	}

	normSpans := make([]string, len(spans))
	for i, span := range spans {
		normSpans[i] = normalize(span)
	}

	var rejected []string
	for _, sentence := range splitSentences(trimmed) {
		// The trailing period would block containment inside a longer span.
		norm := strings.TrimRight(normalize(sentence), ". ")
		if !c.sentenceGrounded(norm, normSpans) {
			rejected = append(rejected, sentence)
		}
	}

	if len(rejected) == 0 &&
		(!numbersCovered(normalize(trimmed), normSpans) ||
			!properCovered(splitSentences(trimmed), normSpans)) {
		rejected = append(rejected, trimmed)
	}

	if len(rejected) > 0 {
		field.Text = UnknownSentinel
		field.Rejected = rejected
		return field
	}

	field.Text = trimmed
	field.Grounded = true
	return field
}

// sentenceGrounded reports whether a normalized sentence is contained in
// some span or within the edit-similarity threshold of one.
func (c *Checker) sentenceGrounded(sentence string, normSpans []string) bool {
	if sentence == "" {
		return true
	}
	for _, span := range normSpans {
		if strings.Contains(span, sentence) {
			return true
		}
		if similarity(sentence, span) >= c.minRatio {
			return true
		}
	}
	return false
}

// similarity is the normalized edit similarity of two strings: 1 minus the
// Levenshtein distance over the longer length.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(longest)
}

// numbersCovered reports whether every number in the normalized text appears
// in some span. Edit distance alone lets a single swapped digit through on a
// long sentence; years and amounts must match exactly.
func numbersCovered(text string, normSpans []string) bool {
	wanted := numericTokens(text)
	if len(wanted) == 0 {
		return true
	}

	available := make(map[string]bool)
	for _, span := range normSpans {
		for _, tok := range numericTokens(span) {
			available[tok] = true
		}
	}

	for _, tok := range wanted {
		if !available[tok] {
			return false
		}
	}
	return true
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// numericTokens extracts the numbers of a normalized string with leading
// zeros stripped, so "04" and "4" compare equal.
func numericTokens(s string) []string {
	matches := numberPattern.FindAllString(s, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		trimmed := strings.TrimLeft(m, "0")
		if trimmed == "" || strings.HasPrefix(trimmed, ".") {
			trimmed = "0" + trimmed
		}
		tokens = append(tokens, trimmed)
	}
	return tokens
}

// properCovered reports whether every capitalized term of the text appears
// in some span. Sentence-leading words are skipped; mid-sentence capitals
// are names, and the edit threshold alone would let a swapped name through
// on a long sentence.
func properCovered(sentences []string, normSpans []string) bool {
	wanted := properTokens(sentences)
	if len(wanted) == 0 {
		return true
	}
	available := make(map[string]bool)
	for _, span := range normSpans {
		for _, f := range strings.Fields(span) {
			available[strings.Trim(f, ".")] = true
		}
	}
	for _, tok := range wanted {
		if !available[tok] {
			return false
		}
	}
	return true
}

// properTokens extracts the mid-sentence capitalized words, lowercased and
// stripped of surrounding punctuation.
func properTokens(sentences []string) []string {
	var tokens []string
	for _, sentence := range sentences {
		for i, word := range strings.Fields(sentence) {
			if i == 0 {
				continue
			}
			w := strings.Trim(word, `.,;:!?"'()[]`)
			runes := []rune(w)
			if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
				continue
			}
			for _, part := range strings.Fields(normalize(w)) {
				tokens = append(tokens, strings.Trim(part, "."))
			}
		}
	}
	return tokens
}

// normalize lowercases text and strips punctuation, keeping letters, digits,
// and currency markers.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '$', r == '%', r == '.':
			b.WriteRune(r)
		case r == ',':
			// dropped so "50,000" reads as one number
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

func splitSentences(text string) []string {
	var sentences []string
	for _, match := range sentencePattern.FindAllString(text, -1) {
		trimmed := strings.TrimSpace(match)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}
