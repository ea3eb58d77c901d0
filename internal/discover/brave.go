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

// braveAPIBase is the Brave web search endpoint. Declared as a var so tests
// can substitute an httptest server.
var braveAPIBase = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider queries the Brave Search API.
type BraveProvider struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the provider identifier.
func (p *BraveProvider) Name() string { return "brave" }

// Search queries Brave and returns raw candidates.
func (p *BraveProvider) Search(ctx context.Context, query string, count int) ([]types.Candidate, error) {
	if count <= 0 {
		count = perQueryCount
	}

	params := url.Values{
		"q":     {query},
		"count": {fmt.Sprintf("%d", count)},
	}
	reqURL := braveAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("X-Subscription-Token", p.APIKey)

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Brave API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Brave API returned HTTP %d", resp.StatusCode)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing Brave response: %w", err)
	}

	total := len(br.Web.Results)
	var candidates []types.Candidate
	for i, r := range br.Web.Results {
		c := types.Candidate{
			URL:       r.URL,
			Title:     r.Title,
			Snippet:   r.Description,
			Relevance: positionRelevance(i, total),
		}
		if t := parsePageAge(r.PageAge); t != nil {
			c.Published = t
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// parsePageAge parses Brave's page_age timestamp, which comes with or
// without a time component.
func parsePageAge(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Brave API JSON structures.
type braveResponse struct {
	Web braveWeb `json:"web"`
}

type braveWeb struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PageAge     string `json:"page_age"`
}
