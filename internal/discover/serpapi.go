// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/fact-engine/internal/httputil"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// serpAPIBase is the SerpAPI search endpoint. Declared as a var so tests can
// substitute an httptest server.
var serpAPIBase = "https://serpapi.com/search.json"

// SerpAPIProvider queries Google results through SerpAPI.
type SerpAPIProvider struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the provider identifier.
func (p *SerpAPIProvider) Name() string { return "serpapi" }

// Search queries SerpAPI and returns raw candidates.
func (p *SerpAPIProvider) Search(ctx context.Context, query string, count int) ([]types.Candidate, error) {
	if count <= 0 {
		count = perQueryCount
	}

	params := url.Values{
		"engine":  {"google"},
		"q":       {query},
		"num":     {fmt.Sprintf("%d", count)},
		"api_key": {p.APIKey},
	}
	reqURL := serpAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI returned HTTP %d", resp.StatusCode)
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SerpAPI response: %w", err)
	}

	total := len(sr.OrganicResults)
	var candidates []types.Candidate
	for i, r := range sr.OrganicResults {
		c := types.Candidate{
			URL:       r.Link,
			Title:     r.Title,
			Snippet:   r.Snippet,
			Relevance: positionRelevance(i, total),
		}
		if t := parseSerpDate(r.Date); t != nil {
			c.Published = t
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// parseSerpDate parses SerpAPI's human-readable result date ("Jan 2, 2006").
func parseSerpDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"Jan 2, 2006", "2 Jan 2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// SerpAPI JSON structures.
type serpResponse struct {
	OrganicResults []serpResult `json:"organic_results"`
}

type serpResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}
