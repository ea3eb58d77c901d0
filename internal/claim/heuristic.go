package claim

import (
	"context"
	"regexp"
	"strings"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// HeuristicProposer proposes candidates from pattern rules alone. It keeps
// the pipeline usable offline and is the default backend; the rules favor
// precision over recall.
type HeuristicProposer struct{}

// Name returns the proposer identifier.
func (p *HeuristicProposer) Name() string { return "heuristic" }

// heuristicConfidence is the fixed extraction certainty for rule matches.
const heuristicConfidence = 0.6

// patternRule maps a sentence pattern to a predicate. The first capture
// group is the object.
type patternRule struct {
	pattern   *regexp.Regexp
	predicate string
}

var patternRules = []patternRule{
	{regexp.MustCompile(`(?i)\bfounded\b.{0,20}?\bin\s+(\d{4})`), "founded_in"},
	{regexp.MustCompile(`(?i)\braised\s+(?:a\s+)?(\$[\d.,]+\s*(?:million|billion|[MBK])?)`), "raised"},
	{regexp.MustCompile(`(?i)\bacquired\s+([A-Z][A-Za-z0-9&.\- ]{2,40}?)(?:\s+(?:for|in|from)\b|[,.]|$)`), "acquired"},
	{regexp.MustCompile(`(?i)\blaunched\s+([A-Z][A-Za-z0-9&.\- ]{2,40}?)(?:\s+(?:in|on|at)\b|[,.]|$)`), "launched"},
	{regexp.MustCompile(`(?i)\bsued\s+by\s+([A-Z][A-Za-z0-9&.\- ]{2,40}?)(?:\s+(?:for|in|over)\b|[,.]|$)`), "sued_by"},
	{regexp.MustCompile(`(?i)\blawsuit\s+against\s+([A-Z][A-Za-z0-9&.\- ]{2,40}?)(?:\s+(?:for|in|over)\b|[,.]|$)`), "sued"},
	{regexp.MustCompile(`(?i)\bpivoted\s+to\s+([a-zA-Z][A-Za-z0-9\- ]{2,40}?)(?:\s+(?:in|after)\b|[,.]|$)`), "pivoted_to"},
}

// datePatterns find an explicit date mention inside a sentence, most
// specific first.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}\b`),
	regexp.MustCompile(`\b(?:19|20)\d{2}\b`),
}

// Propose runs the pattern rules over every sentence. The quote is the
// matched sentence verbatim, so validation always finds the span.
func (p *HeuristicProposer) Propose(_ context.Context, company string, src types.Source) ([]Proposal, error) {
	var proposals []Proposal
	for _, sentence := range splitSentences(src.Text) {
		for _, rule := range patternRules {
			m := rule.pattern.FindStringSubmatch(sentence)
			if m == nil {
				continue
			}
			object := strings.TrimSpace(m[1])
			if object == "" {
				continue
			}
			proposals = append(proposals, Proposal{
				Subject:    company,
				Predicate:  rule.predicate,
				Object:     object,
				Date:       dateMention(sentence),
				Quote:      sentence,
				Confidence: heuristicConfidence,
			})
		}
	}
	return proposals, nil
}

// dateMention returns the first explicit date mention in the sentence.
func dateMention(sentence string) string {
	for _, re := range datePatterns {
		if m := re.FindString(sentence); m != "" {
			return m
		}
	}
	return ""
}

// sentencePattern grabs runs of text up to sentence punctuation. Line
// breaks also terminate a sentence, so list items match on their own.
var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

// splitSentences cuts text into sentences without altering their bytes:
// each returned string is a contiguous substring of the input.
func splitSentences(text string) []string {
	var sentences []string
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		s := strings.TrimSpace(raw)
		if len(s) >= 15 {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
