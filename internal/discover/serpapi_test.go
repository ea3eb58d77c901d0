// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSerpAPISearchRequestParams(t *testing.T) {
	var capturedReq *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"organic_results":[]}`)
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	p := &SerpAPIProvider{Client: ts.Client(), APIKey: "serp-key-456"}
	_, err := p.Search(context.Background(), `"Acme" lawsuit`, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := capturedReq.URL.Query()
	if got := q.Get("engine"); got != "google" {
		t.Errorf("engine param = %q, want %q", got, "google")
	}
	if got := q.Get("q"); got != `"Acme" lawsuit` {
		t.Errorf("q param = %q, want the raw query", got)
	}
	if got := q.Get("api_key"); got != "serp-key-456" {
		t.Errorf("api_key param = %q, want %q", got, "serp-key-456")
	}
}

func TestSerpAPISearchParsesResults(t *testing.T) {
	resp := `{"organic_results":[
		{"title":"Acme sued over patents","link":"https://reuters.com/acme-suit","snippet":"Filed Tuesday","date":"Mar 15, 2024"},
		{"title":"Acme profile","link":"https://crunchbase.com/org/acme","snippet":"Startup"}
	]}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, resp)
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	p := &SerpAPIProvider{Client: ts.Client()}
	results, err := p.Search(context.Background(), "acme", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	first := results[0]
	if first.Title != "Acme sued over patents" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != "https://reuters.com/acme-suit" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Published == nil {
		t.Fatal("Published = nil, want parsed date")
	}
	if got := first.Published.Format("2006-01-02"); got != "2024-03-15" {
		t.Errorf("Published = %s, want 2024-03-15", got)
	}

	if results[1].Published != nil {
		t.Errorf("undated result Published = %v, want nil", results[1].Published)
	}

	if results[0].Relevance != 1.0 {
		t.Errorf("first result relevance = %f, want 1.0", results[0].Relevance)
	}
	if results[0].Relevance <= results[1].Relevance {
		t.Error("relevance should fall with result position")
	}
}

func TestSerpAPISearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	p := &SerpAPIProvider{Client: ts.Client()}
	_, err := p.Search(context.Background(), "acme", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "HTTP 403") {
		t.Errorf("error = %q, want substring %q", err.Error(), "HTTP 403")
	}
}

func TestParseSerpDateFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mar 15, 2024", "2024-03-15"},
		{"15 Mar 2024", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
		{"3 days ago", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := parseSerpDate(tt.in)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("parseSerpDate(%q) = %v, want nil", tt.in, got)
		case tt.want != "" && got == nil:
			t.Errorf("parseSerpDate(%q) = nil, want %s", tt.in, tt.want)
		case tt.want != "" && got.Format("2006-01-02") != tt.want:
			t.Errorf("parseSerpDate(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSerpAPIProviderName(t *testing.T) {
	if got := (&SerpAPIProvider{}).Name(); got != "serpapi" {
		t.Errorf("Name() = %q, want %q", got, "serpapi")
	}
}
