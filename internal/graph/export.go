// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds one claim with its evidence spans for export. Evidence
// carries the source URL so exported claims stay auditable outside the
// database.
type ExportEntry struct {
	ID            string           `json:"id" yaml:"id"`
	Subject       string           `json:"subject" yaml:"subject"`
	Predicate     string           `json:"predicate" yaml:"predicate"`
	Object        string           `json:"object" yaml:"object"`
	Date          string           `json:"date,omitempty" yaml:"date,omitempty"`
	Confidence    float64          `json:"confidence" yaml:"confidence"`
	Corroboration int              `json:"corroboration" yaml:"corroboration"`
	Class         string           `json:"class" yaml:"class"`
	Flagged       bool             `json:"flagged,omitempty" yaml:"flagged,omitempty"`
	Evidence      []ExportEvidence `json:"evidence" yaml:"evidence"`
}

// ExportEvidence is one quoted span in an export entry.
type ExportEvidence struct {
	SourceURL string `json:"source_url" yaml:"source_url"`
	Quote     string `json:"quote" yaml:"quote"`
	Start     int    `json:"start" yaml:"start"`
	End       int    `json:"end" yaml:"end"`
}

const exportLimit = 100000

// ExportYAML writes a run's claims to index/export.yaml. It supports the
// same filters as GetClaims.
func (s *Store) ExportYAML(ctx context.Context, runID string, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, runID, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes a run's claims to index/export.json. It supports the
// same filters as GetClaims.
func (s *Store) ExportJSON(ctx context.Context, runID string, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, runID, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, runID string, opts QueryOptions) ([]ExportEntry, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = exportLimit
	}
	claims, err := s.GetClaims(ctx, runID, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	sources, err := s.GetSources(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("loading sources for export: %w", err)
	}
	urlByID := make(map[string]string, len(sources))
	for _, src := range sources {
		urlByID[src.ID] = src.URL
	}

	entries := make([]ExportEntry, len(claims))
	for i, c := range claims {
		entry := ExportEntry{
			ID:            c.ID,
			Subject:       c.Triple.Subject,
			Predicate:     c.Triple.Predicate,
			Object:        c.Triple.Object,
			Confidence:    c.Confidence,
			Corroboration: c.Corroboration,
			Class:         string(c.Class),
			Flagged:       c.Flagged,
		}
		if c.Date != nil {
			entry.Date = c.Date.UTC().Format("2006-01-02")
		}

		evidence, err := s.GetEvidence(ctx, runID, c.ID)
		if err != nil {
			return nil, fmt.Errorf("loading evidence for %s: %w", c.ID, err)
		}
		for _, ev := range evidence {
			entry.Evidence = append(entry.Evidence, ExportEvidence{
				SourceURL: urlByID[ev.SourceID],
				Quote:     ev.Quote,
				Start:     ev.Start,
				End:       ev.End,
			})
		}
		entries[i] = entry
	}

	return entries, nil
}
