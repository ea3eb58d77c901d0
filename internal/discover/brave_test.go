// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBraveSearchRequestParams(t *testing.T) {
	var capturedReq *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"web":{"results":[]}}`)
	}))
	defer ts.Close()

	old := braveAPIBase
	braveAPIBase = ts.URL
	defer func() { braveAPIBase = old }()

	p := &BraveProvider{Client: ts.Client(), APIKey: "brave-key-123", UserAgent: "fact-engine/test"}
	_, err := p.Search(context.Background(), `"Acme" funding round`, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := capturedReq.URL.Query()
	if got := q.Get("q"); got != `"Acme" funding round` {
		t.Errorf("q param = %q, want the raw query", got)
	}
	if got := q.Get("count"); got != "10" {
		t.Errorf("count param = %q, want %q", got, "10")
	}
	if got := capturedReq.Header.Get("X-Subscription-Token"); got != "brave-key-123" {
		t.Errorf("X-Subscription-Token = %q, want %q", got, "brave-key-123")
	}
}

func TestBraveSearchParsesResults(t *testing.T) {
	resp := `{"web":{"results":[
		{"title":"Acme raises $50M","url":"https://techcrunch.com/acme","description":"Series B","page_age":"2024-03-15T09:30:00"},
		{"title":"Acme wiki","url":"https://en.wikipedia.org/wiki/Acme","description":"Company"}
	]}}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, resp)
	}))
	defer ts.Close()

	old := braveAPIBase
	braveAPIBase = ts.URL
	defer func() { braveAPIBase = old }()

	p := &BraveProvider{Client: ts.Client()}
	results, err := p.Search(context.Background(), "acme", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	first := results[0]
	if first.Title != "Acme raises $50M" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != "https://techcrunch.com/acme" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Snippet != "Series B" {
		t.Errorf("Snippet = %q", first.Snippet)
	}
	if first.Published == nil {
		t.Fatal("Published = nil, want parsed page_age")
	}
	want := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Errorf("Published = %v, want %v", first.Published, want)
	}

	if results[1].Published != nil {
		t.Errorf("undated result Published = %v, want nil", results[1].Published)
	}

	if results[0].Relevance != 1.0 {
		t.Errorf("first result relevance = %f, want 1.0", results[0].Relevance)
	}
	// Last of two results: 1.0 - 1/1*0.9 = 0.1.
	if math.Abs(results[1].Relevance-0.1) > 0.001 {
		t.Errorf("last result relevance = %f, want ~0.1", results[1].Relevance)
	}
}

func TestBraveSearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	old := braveAPIBase
	braveAPIBase = ts.URL
	defer func() { braveAPIBase = old }()

	p := &BraveProvider{Client: ts.Client()}
	_, err := p.Search(context.Background(), "acme", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("error = %q, want substring %q", err.Error(), "HTTP 401")
	}
}

func TestBraveSearchMalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{broken`)
	}))
	defer ts.Close()

	old := braveAPIBase
	braveAPIBase = ts.URL
	defer func() { braveAPIBase = old }()

	p := &BraveProvider{Client: ts.Client()}
	_, err := p.Search(context.Background(), "acme", 10)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if !strings.Contains(err.Error(), "parsing") {
		t.Errorf("error = %q, want substring 'parsing'", err.Error())
	}
}

func TestParsePageAge(t *testing.T) {
	tests := []struct {
		in   string
		want string // "" means nil
	}{
		{"2024-03-15T09:30:00", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
		{"", ""},
		{"last week", ""},
	}
	for _, tt := range tests {
		got := parsePageAge(tt.in)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("parsePageAge(%q) = %v, want nil", tt.in, got)
		case tt.want != "" && got == nil:
			t.Errorf("parsePageAge(%q) = nil, want %s", tt.in, tt.want)
		case tt.want != "" && got.Format("2006-01-02") != tt.want:
			t.Errorf("parsePageAge(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBraveProviderName(t *testing.T) {
	if got := (&BraveProvider{}).Name(); got != "brave" {
		t.Errorf("Name() = %q, want %q", got, "brave")
	}
}
