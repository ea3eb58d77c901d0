// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// skipTags are elements whose subtrees carry no article content.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"button":   true,
}

// blockTags are elements that terminate a text block when walked.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"li": true, "blockquote": true, "pre": true, "td": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"br": true, "tr": true, "ul": true, "ol": true, "table": true,
}

// extractHTML parses an HTML body and pulls out the cleaned text plus
// metadata. The tokenizer is tolerant, so a malformed page degrades to
// whatever text survives rather than an error.
func extractHTML(body []byte, cfg types.ExtractConfig) types.Document {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return types.Document{Empty: true, Reason: "html parse: " + err.Error()}
	}

	w := &htmlWalker{maxQuotes: cfg.MaxQuotes}
	w.walk(root)
	w.flush()

	doc := types.Document{
		Title:    w.title,
		Author:   w.author,
		Text:     normalizeWhitespace(strings.Join(w.blocks, "\n\n")),
		Headings: w.headings,
		Quotes:   w.quotes,
	}
	if w.published != "" {
		doc.Published = parseDocDate(w.published)
	}
	return doc
}

// htmlWalker accumulates document state while traversing the parse tree.
type htmlWalker struct {
	blocks    []string
	headings  []string
	quotes    []string
	title     string
	author    string
	published string
	maxQuotes int

	current strings.Builder
}

func (w *htmlWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)

		if skipTags[tag] {
			return
		}

		switch tag {
		case "title":
			if w.title == "" {
				w.title = strings.TrimSpace(textContent(n))
			}
			return
		case "meta":
			w.meta(n)
			return
		case "time":
			if w.published == "" {
				if dt := attr(n, "datetime"); dt != "" {
					w.published = dt
				}
			}
		case "blockquote", "q":
			w.flush()
			quote := strings.TrimSpace(collapseSpaces(textContent(n)))
			if quote != "" {
				if w.maxQuotes <= 0 || len(w.quotes) < w.maxQuotes {
					w.quotes = append(w.quotes, quote)
				}
				w.blocks = append(w.blocks, quote)
			}
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			w.flush()
			heading := strings.TrimSpace(collapseSpaces(textContent(n)))
			if heading != "" {
				w.headings = append(w.headings, heading)
				w.blocks = append(w.blocks, heading)
			}
			return
		}

		if blockTags[tag] {
			w.flush()
		}
	}

	if n.Type == html.TextNode {
		w.current.WriteString(n.Data)
		w.current.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.Type == html.ElementNode && blockTags[strings.ToLower(n.Data)] {
		w.flush()
	}
}

// flush closes the current text block.
func (w *htmlWalker) flush() {
	text := strings.TrimSpace(collapseSpaces(w.current.String()))
	w.current.Reset()
	if text != "" {
		w.blocks = append(w.blocks, text)
	}
}

// meta records author, published date, and title metadata.
func (w *htmlWalker) meta(n *html.Node) {
	name := strings.ToLower(attr(n, "name"))
	property := strings.ToLower(attr(n, "property"))
	content := strings.TrimSpace(attr(n, "content"))
	if content == "" {
		return
	}

	switch {
	case name == "author", property == "article:author":
		if w.author == "" {
			w.author = content
		}
	case property == "article:published_time", name == "date", name == "publish-date", name == "publication_date":
		if w.published == "" {
			w.published = content
		}
	case property == "og:title":
		if w.title == "" {
			w.title = content
		}
	}
}

// textContent returns the concatenated text beneath a node.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// collapseSpaces squeezes whitespace runs to single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
