// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/fact-engine/internal/httputil"
	"github.com/pdiddy/fact-engine/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func testConfig() types.FetchConfig {
	cfg := types.DefaultConfig().Fetch
	cfg.Concurrency = 4
	cfg.DomainInterval = 0
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestFetchAllReturnsPagesInInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "page:%s", r.URL.Path)
	}))
	defer server.Close()

	urls := []string{server.URL + "/a", server.URL + "/b", server.URL + "/c"}
	fetcher := NewFetcher(testConfig())

	pages, err := fetcher.FetchAll(context.Background(), urls)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(pages) != len(urls) {
		t.Fatalf("expected %d pages, got %d", len(urls), len(pages))
	}
	for i, page := range pages {
		if page.URL != urls[i] {
			t.Errorf("page %d out of order: got %s want %s", i, page.URL, urls[i])
		}
		if !page.OK() {
			t.Errorf("page %d not OK: %s", i, page.Error)
		}
		want := "page:" + strings.TrimPrefix(urls[i], server.URL)
		if string(page.Body) != want {
			t.Errorf("page %d body = %q, want %q", i, page.Body, want)
		}
	}
}

func TestRobotsDisallowBlocksWithoutRequest(t *testing.T) {
	var secretHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /secret\n")
		case "/secret":
			secretHits.Add(1)
			fmt.Fprint(w, "should never be served")
		default:
			fmt.Fprint(w, "open")
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	page := fetcher.Fetch(context.Background(), server.URL+"/secret")

	if !page.Blocked {
		t.Fatal("expected page to be blocked")
	}
	if !strings.Contains(page.Error, "policy_blocked") {
		t.Errorf("error %q does not carry policy_blocked", page.Error)
	}
	if hits := secretHits.Load(); hits != 0 {
		t.Errorf("blocked URL was requested %d times", hits)
	}

	open := fetcher.Fetch(context.Background(), server.URL+"/open")
	if !open.OK() {
		t.Errorf("allowed URL failed: %s", open.Error)
	}
}

func TestMissingRobotsAllowsFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "content")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	page := fetcher.Fetch(context.Background(), server.URL+"/page")
	if !page.OK() {
		t.Fatalf("expected fetch to succeed, got %s", page.Error)
	}
}

func TestClientErrorTerminalSingleRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	page := fetcher.Fetch(context.Background(), server.URL+"/gone")

	if page.Error != "http 403" {
		t.Errorf("error = %q, want %q", page.Error, "http 403")
	}
	if page.Blocked {
		t.Error("4xx must not be reported as a policy block")
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly 1 request, got %d", hits.Load())
	}
}

func TestServerErrorRecordedTransient(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxRetries = 2
	fetcher := NewFetcher(cfg)
	page := fetcher.Fetch(context.Background(), server.URL+"/flaky")
	if !strings.HasPrefix(page.Error, "transient") {
		t.Errorf("error %q not classified transient", page.Error)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 1 request + 2 retries, got %d", hits.Load())
	}
}

func TestServerErrorRetriedToSuccess(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "recovered")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	page := fetcher.Fetch(context.Background(), server.URL+"/flaky")
	if !page.OK() {
		t.Fatalf("fetch failed after transient error: %s", page.Error)
	}
	if string(page.Body) != "recovered" {
		t.Errorf("body = %q, want the recovered response", page.Body)
	}
	if hits.Load() != 2 {
		t.Errorf("expected exactly 2 requests, got %d", hits.Load())
	}
}

func TestRateLimitStatusRecordedTransient(t *testing.T) {
	if got := classifyStatus(http.StatusTooManyRequests); !strings.HasPrefix(got, "transient") {
		t.Errorf("429 classified %q, want transient", got)
	}
	if got := classifyStatus(http.StatusNotFound); got != "http 404" {
		t.Errorf("404 classified %q, want plain http 404", got)
	}
}

func TestFetchAllBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		cur := active.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Concurrency = 2
	fetcher := NewFetcher(cfg)

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/p%d", server.URL, i)
	}
	if _, err := fetcher.FetchAll(context.Background(), urls); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency %d exceeds bound 2", p)
	}
}

func TestBodyTruncatedAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, strings.Repeat("x", 4096))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 1024
	fetcher := NewFetcher(cfg)

	page := fetcher.Fetch(context.Background(), server.URL+"/big")
	if !page.OK() {
		t.Fatalf("fetch failed: %s", page.Error)
	}
	if len(page.Body) != 1024 {
		t.Errorf("body length = %d, want 1024", len(page.Body))
	}
}

func TestRedirectsFollowedToFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "landed")
	})

	fetcher := NewFetcher(testConfig())
	page := fetcher.Fetch(context.Background(), server.URL+"/start")
	if !page.OK() {
		t.Fatalf("fetch failed: %s", page.Error)
	}
	if page.FinalURL != server.URL+"/end" {
		t.Errorf("final URL = %s, want %s", page.FinalURL, server.URL+"/end")
	}
}

func TestFetchAllPartialResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/ok":
			fmt.Fprint(w, "fine")
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	pages, err := fetcher.FetchAll(context.Background(), []string{
		server.URL + "/ok",
		server.URL + "/missing",
		server.URL + "/broken",
	})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if !pages[0].OK() {
		t.Errorf("healthy URL failed: %s", pages[0].Error)
	}
	if pages[1].Error != "http 404" {
		t.Errorf("missing URL error = %q", pages[1].Error)
	}
	if !strings.HasPrefix(pages[2].Error, "transient") {
		t.Errorf("broken URL error = %q, want transient", pages[2].Error)
	}
}

func TestFetchAllCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fetcher := NewFetcher(testConfig())
	urls := []string{server.URL + "/slow1", server.URL + "/slow2"}

	start := time.Now()
	_, err := fetcher.FetchAll(ctx, urls)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, expected prompt return", elapsed)
	}
}

func TestCrawlDelaySurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nCrawl-delay: 2\n")
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	policy := NewRobotsPolicy(time.Second, types.DefaultUserAgent)
	allowed, delay, err := policy.Allowed(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Error("expected URL to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("crawl delay = %v, want 2s", delay)
	}
}
