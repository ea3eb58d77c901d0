// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// extractPDF pulls the text layer out of a PDF body in memory. The parser
// panics on some malformed files, so the whole call runs under recover and
// degrades to an empty-content marker.
func extractPDF(body []byte) (doc types.Document) {
	defer func() {
		if r := recover(); r != nil {
			doc = types.Document{Empty: true, Reason: fmt.Sprintf("pdf parse panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return types.Document{Empty: true, Reason: "pdf open: " + err.Error()}
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return types.Document{Empty: true, Reason: "pdf text: " + err.Error()}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return types.Document{Empty: true, Reason: "pdf read: " + err.Error()}
	}

	text := normalizeWhitespace(buf.String())
	if strings.TrimSpace(text) == "" {
		return types.Document{Empty: true, Reason: "pdf has no text layer"}
	}
	return types.Document{Text: text}
}
