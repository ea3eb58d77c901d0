package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const imagePandoc = "pandoc/latex:latest"

// pandocArgs tells pandoc to read Markdown on stdin and write PDF to stdout.
var pandocArgs = []string{"-f", "markdown", "-t", "pdf", "-o", "-"}

// Renderer turns Markdown bytes into PDF bytes.
type Renderer interface {
	RenderPDF(markdown []byte) ([]byte, error)
}

// PandocRenderer renders Markdown by piping it through the pandoc container
// image. It depends on a Runtime (docker or podman) injected at construction
// time.
type PandocRenderer struct {
	runtime Runtime
}

// NewPandocRenderer creates a renderer backed by the given container
// runtime. It verifies that the pandoc image exists locally before
// returning.
func NewPandocRenderer(rt Runtime) (*PandocRenderer, error) {
	if err := rt.ImageExists(imagePandoc); err != nil {
		return nil, fmt.Errorf("pandoc image not available in %s: %w", rt.Name(), err)
	}
	return &PandocRenderer{runtime: rt}, nil
}

// RenderPDF pipes the Markdown through the pandoc container and returns the
// PDF bytes.
func (p *PandocRenderer) RenderPDF(markdown []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := p.runtime.Run(imagePandoc, pandocArgs, bytes.NewReader(markdown), &out); err != nil {
		return nil, fmt.Errorf("rendering with pandoc: %w", err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("pandoc produced empty output")
	}
	return out.Bytes(), nil
}

// ReportPDF renders the Markdown report at mdPath into a sibling .pdf file
// and returns its path.
func ReportPDF(r Renderer, mdPath string) (string, error) {
	markdown, err := os.ReadFile(mdPath)
	if err != nil {
		return "", fmt.Errorf("reading report %s: %w", mdPath, err)
	}

	pdf, err := r.RenderPDF(markdown)
	if err != nil {
		return "", err
	}

	pdfPath := strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".pdf"
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", pdfPath, err)
	}
	return pdfPath, nil
}
