// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/fact-engine/pkg/types"
)

func testCfg() types.ExtractConfig {
	return types.DefaultConfig().Extract
}

func okPage(url, contentType, body string) types.PageResult {
	return types.PageResult{
		URL:         url,
		StatusCode:  200,
		ContentType: contentType,
		Body:        []byte(body),
	}
}

// --- Kind detection ---

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		page types.PageResult
		want types.DocKind
	}{
		{"pdf by magic bytes", okPage("https://x.net/file", "", "%PDF-1.7 rest"), types.DocPDF},
		{"pdf by content type", okPage("https://x.net/file", "application/pdf", "binary"), types.DocPDF},
		{"pdf by extension", okPage("https://x.net/annual.pdf", "", "binary"), types.DocPDF},
		{"vtt by magic", okPage("https://x.net/t", "", "WEBVTT\n\n00:01.000 --> 00:04.000\nhi"), types.DocTranscript},
		{"vtt by extension", okPage("https://x.net/talk.vtt", "", "cues"), types.DocTranscript},
		{"bracket transcript", okPage("https://x.net/t", "text/plain", "[00:01] a\n[00:02] b\n[00:03] c\n"), types.DocTranscript},
		{"html by content type", okPage("https://x.net/p", "text/html; charset=utf-8", "plain words"), types.DocHTML},
		{"html by doctype", okPage("https://x.net/p", "", "<!DOCTYPE html><p>hi</p>"), types.DocHTML},
		{"plain fallback", okPage("https://x.net/notes.txt", "text/plain", "just words"), types.DocPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectKind(tt.page); got != tt.want {
				t.Errorf("detectKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- HTML extraction ---

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Acme Corp raises $50M</title>
  <meta name="author" content="Jane Reporter">
  <meta property="article:published_time" content="2024-03-15T09:30:00Z">
</head>
<body>
  <nav>Home | About | Contact</nav>
  <script>trackVisitor();</script>
  <article>
    <h1>Acme Corp raises $50M</h1>
    <p>Acme Corp announced a $50 million Series B on Friday.</p>
    <blockquote>We plan to double headcount this year.</blockquote>
    <p>The round was led by Example Ventures.</p>
  </article>
  <footer>Copyright Example News</footer>
</body>
</html>`

func TestExtractHTMLDocument(t *testing.T) {
	doc := extractHTML([]byte(samplePage), testCfg())

	if doc.Empty {
		t.Fatalf("document marked empty: %s", doc.Reason)
	}
	if doc.Title != "Acme Corp raises $50M" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.Author != "Jane Reporter" {
		t.Errorf("Author = %q", doc.Author)
	}
	if doc.Published == nil || doc.Published.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("Published = %v, want 2024-03-15", doc.Published)
	}

	for _, want := range []string{
		"Acme Corp announced a $50 million Series B on Friday.",
		"The round was led by Example Ventures.",
	} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("Text missing %q", want)
		}
	}
	for _, banned := range []string{"trackVisitor", "Home | About", "Copyright Example News"} {
		if strings.Contains(doc.Text, banned) {
			t.Errorf("Text contains boilerplate %q", banned)
		}
	}

	if len(doc.Headings) != 1 || doc.Headings[0] != "Acme Corp raises $50M" {
		t.Errorf("Headings = %v", doc.Headings)
	}
	if len(doc.Quotes) != 1 || doc.Quotes[0] != "We plan to double headcount this year." {
		t.Errorf("Quotes = %v", doc.Quotes)
	}
	// Quotes stay part of the body text so evidence spans can point at them.
	if !strings.Contains(doc.Text, "We plan to double headcount this year.") {
		t.Error("Text missing the blockquote content")
	}
}

func TestExtractHTMLQuoteCap(t *testing.T) {
	page := `<html><body>
	<blockquote>one</blockquote>
	<blockquote>two</blockquote>
	<blockquote>three</blockquote>
	</body></html>`

	cfg := testCfg()
	cfg.MaxQuotes = 2
	doc := extractHTML([]byte(page), cfg)

	if len(doc.Quotes) != 2 {
		t.Errorf("len(Quotes) = %d, want 2", len(doc.Quotes))
	}
	// The cap limits the quote list, not the body text.
	if !strings.Contains(doc.Text, "three") {
		t.Error("Text missing uncapped quote content")
	}
}

func TestExtractHTMLTolerantOfMalformedMarkup(t *testing.T) {
	page := `<html><body><p>First point<p>Second point<div>Third`
	doc := extractHTML([]byte(page), testCfg())

	if doc.Empty {
		t.Fatalf("document marked empty: %s", doc.Reason)
	}
	for _, want := range []string{"First point", "Second point", "Third"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("Text missing %q", want)
		}
	}
}

func TestExtractHTMLTimeElementDate(t *testing.T) {
	page := `<html><body><time datetime="2023-11-02">Nov 2</time><p>body</p></body></html>`
	doc := extractHTML([]byte(page), testCfg())
	if doc.Published == nil || doc.Published.Format("2006-01-02") != "2023-11-02" {
		t.Errorf("Published = %v, want 2023-11-02", doc.Published)
	}
}

func TestExtractEmptyBodyMarked(t *testing.T) {
	out := Extract([]types.PageResult{okPage("https://x.net/blank", "text/html", "<html><body></body></html>")}, testCfg())
	if len(out.Documents) != 1 {
		t.Fatalf("len(Documents) = %d, want 1", len(out.Documents))
	}
	doc := out.Documents[0]
	if !doc.Empty {
		t.Error("expected empty-content marker")
	}
	if doc.Reason == "" {
		t.Error("empty marker missing reason")
	}
}

// --- Transcript extraction ---

func TestExtractTranscriptWebVTT(t *testing.T) {
	vtt := `WEBVTT

00:00:01.000 --> 00:00:04.000
Welcome to the founder interview.

00:01:30.500 --> 00:01:35.000
We pivoted the company in 2019.
`
	doc := extractTranscript([]byte(vtt))
	if doc.Empty {
		t.Fatalf("document marked empty: %s", doc.Reason)
	}
	if len(doc.Units) != 2 {
		t.Fatalf("len(Units) = %d, want 2", len(doc.Units))
	}
	if doc.Units[0].Offset != 1.0 {
		t.Errorf("Units[0].Offset = %f, want 1.0", doc.Units[0].Offset)
	}
	if doc.Units[1].Offset != 90.5 {
		t.Errorf("Units[1].Offset = %f, want 90.5", doc.Units[1].Offset)
	}
	if doc.Units[1].Text != "We pivoted the company in 2019." {
		t.Errorf("Units[1].Text = %q", doc.Units[1].Text)
	}
	if !strings.Contains(doc.Text, "We pivoted the company in 2019.") {
		t.Error("Text missing unit content")
	}
}

func TestExtractTranscriptBracketFormat(t *testing.T) {
	raw := `[00:00:05] Host: Tell us about the early days.
[00:00:12] Founder: We started in a garage in 2015.
[00:01:02] Founder: Our first product failed completely.
`
	doc := extractTranscript([]byte(raw))
	if len(doc.Units) != 3 {
		t.Fatalf("len(Units) = %d, want 3", len(doc.Units))
	}
	if doc.Units[1].Offset != 12 {
		t.Errorf("Units[1].Offset = %f, want 12", doc.Units[1].Offset)
	}
	if doc.Units[1].Text != "Founder: We started in a garage in 2015." {
		t.Errorf("Units[1].Text = %q", doc.Units[1].Text)
	}
}

func TestExtractTranscriptSRT(t *testing.T) {
	srt := `1
00:00:01,000 --> 00:00:03,000
First line.

2
00:00:04,000 --> 00:00:06,000
Second line
continues here.
`
	doc := extractTranscript([]byte(srt))
	if len(doc.Units) != 2 {
		t.Fatalf("len(Units) = %d, want 2", len(doc.Units))
	}
	if doc.Units[1].Text != "Second line continues here." {
		t.Errorf("Units[1].Text = %q", doc.Units[1].Text)
	}
}

func TestExtractTranscriptNoCues(t *testing.T) {
	doc := extractTranscript([]byte("WEBVTT\n\njust prose with no cue timings\n"))
	if !doc.Empty {
		t.Error("expected empty-content marker for cueless transcript")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"00:00:01.000", 1.0, true},
		{"00:01:30.500", 90.5, true},
		{"01:00:00", 3600, true},
		{"02:15", 135, true},
		{"00:00:01,250", 1.25, true},
		{"nonsense", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseTimestamp(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseTimestamp(%q) = %f,%v, want %f,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// --- PDF extraction ---

func TestExtractPDFMalformed(t *testing.T) {
	doc := extractPDF([]byte("%PDF-1.7 but the rest is garbage"))
	if !doc.Empty {
		t.Error("expected empty-content marker for malformed PDF")
	}
	if doc.Reason == "" {
		t.Error("empty marker missing reason")
	}
}

// --- Batch behavior ---

func TestExtractSkipsFailedPages(t *testing.T) {
	pages := []types.PageResult{
		okPage("https://x.net/good", "text/html", "<html><body><p>usable text</p></body></html>"),
		{URL: "https://x.net/blocked", Blocked: true, Error: "policy_blocked: disallowed by robots.txt"},
		{URL: "https://x.net/dead", Error: "transient: connection refused"},
	}

	out := Extract(pages, testCfg())
	if len(out.Documents) != 1 {
		t.Fatalf("len(Documents) = %d, want 1", len(out.Documents))
	}
	if out.Documents[0].URL != "https://x.net/good" {
		t.Errorf("Documents[0].URL = %s", out.Documents[0].URL)
	}
}

func TestExtractDeterministic(t *testing.T) {
	pages := []types.PageResult{
		okPage("https://x.net/a", "text/html", samplePage),
		okPage("https://x.net/b", "text/plain", "plain body text"),
		okPage("https://x.net/c", "", "[00:01] a\n[00:02] b\n[00:03] c\n"),
	}

	first := Extract(pages, testCfg())
	second := Extract(pages, testCfg())
	if !reflect.DeepEqual(first, second) {
		t.Error("extraction output differs between identical runs")
	}
}

// --- Helpers ---

func TestNormalizeWhitespace(t *testing.T) {
	in := "  first line  \n\n\n\nsecond line\t\n\n"
	want := "first line\n\nsecond line"
	if got := normalizeWhitespace(in); got != want {
		t.Errorf("normalizeWhitespace() = %q, want %q", got, want)
	}
}

func TestParseDocDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-15T09:30:00Z", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
		{"03/15/2024", "2024-03-15"},
		{"March 15, 2024", "2024-03-15"},
		{"15 March 2024", "2024-03-15"},
		{"2024", "2024-01-01"},
		{"sometime last spring", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := parseDocDate(tt.in)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("parseDocDate(%q) = %v, want nil", tt.in, got)
		case tt.want != "" && got == nil:
			t.Errorf("parseDocDate(%q) = nil, want %s", tt.in, tt.want)
		case tt.want != "" && got.Format("2006-01-02") != tt.want:
			t.Errorf("parseDocDate(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}
