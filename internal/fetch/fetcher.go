// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads candidate source pages politely: a shared
// concurrency bound, a per-domain pacing interval, and robots.txt
// enforcement. Failures stay per-URL so one dead link never sinks a batch.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/fact-engine/internal/fault"
	"github.com/pdiddy/fact-engine/internal/httputil"
	"github.com/pdiddy/fact-engine/internal/logging"
	"github.com/pdiddy/fact-engine/internal/worker"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// Fetcher downloads pages for a run. All batch entries share one
// concurrency bound and one per-domain limiter, so parallel stages cannot
// stack up on a single host.
type Fetcher struct {
	cfg     types.FetchConfig
	client  *http.Client
	robots  *RobotsPolicy
	limiter *worker.DomainLimiter
}

// NewFetcher builds a Fetcher from config.
func NewFetcher(cfg types.FetchConfig) *Fetcher {
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		},
	}
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		robots:  NewRobotsPolicy(cfg.Timeout, cfg.UserAgent),
		limiter: worker.NewDomainLimiter(cfg.DomainInterval),
	}
}

// FetchAll downloads every URL and returns one PageResult per input, in
// input order. Per-URL failures are recorded on the result; the returned
// error is non-nil only when the whole batch is cut short by cancellation.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]types.PageResult, error) {
	pool := worker.NewPool(ctx, f.cfg.Concurrency)
	pool.Start()

	for i, u := range urls {
		pool.Submit(&fetchJob{fetcher: f, index: i, url: u})
	}

	pages := make([]types.PageResult, len(urls))
	for i, u := range urls {
		pages[i] = types.PageResult{URL: u, Error: "not fetched"}
	}
	for _, res := range pool.Wait() {
		fr, ok := res.(*fetchResult)
		if !ok {
			continue
		}
		pages[fr.index] = fr.page
	}

	if err := ctx.Err(); err != nil {
		return pages, fault.Wrap(fault.Transient, fmt.Errorf("fetch batch interrupted: %w", err))
	}
	return pages, nil
}

// Fetch downloads a single URL, honoring robots policy and domain pacing.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) types.PageResult {
	page := types.PageResult{URL: rawURL}

	allowed, delay, err := f.robots.Allowed(ctx, rawURL)
	if err != nil {
		page.Error = fault.New(fault.Malformed, "robots check: %v", err).Error()
		return page
	}
	if !allowed {
		// Fail fast: a disallowed URL is never requested.
		page.Blocked = true
		page.Error = fault.New(fault.PolicyBlocked, "disallowed by robots.txt").Error()
		logging.L().Debugw("robots disallow", "url", rawURL)
		return page
	}
	if delay > 0 {
		if domain, derr := domainOf(rawURL); derr == nil {
			f.limiter.SetMinInterval(domain, delay)
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		page.Error = fault.Wrap(fault.Transient, err).Error()
		return page
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		page.Error = fault.New(fault.Malformed, "create request: %v", err).Error()
		return page
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	// Transient failures retry in place; what comes back here is final for
	// this URL and only ever degrades the batch, never the run.
	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.cfg.MaxRetries)
	if err != nil {
		page.Error = fault.Wrap(fault.Transient, err).Error()
		return page
	}
	defer resp.Body.Close()

	page.StatusCode = resp.StatusCode
	page.ContentType = resp.Header.Get("Content-Type")
	page.FinalURL = resp.Request.URL.String()

	if resp.StatusCode != http.StatusOK {
		page.Error = classifyStatus(resp.StatusCode)
		return page
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		page.Error = fault.Wrap(fault.Transient, fmt.Errorf("read body: %w", err)).Error()
		return page
	}

	page.Body = body
	page.FetchedAt = time.Now().UTC()
	logging.L().Debugw("fetched", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))
	return page
}

// classifyStatus maps a non-200 status to a recorded error string. A 429 or
// server error reaching this point has already exhausted its retries; other
// client errors are terminal for the URL on first sight.
func classifyStatus(code int) string {
	if code == http.StatusTooManyRequests || code >= 500 {
		return fault.New(fault.Transient, "http %d", code).Error()
	}
	return fmt.Sprintf("http %d", code)
}

func domainOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Hostname()), nil
}

// fetchJob adapts a single download to the worker pool.
type fetchJob struct {
	fetcher *Fetcher
	index   int
	url     string
}

func (j *fetchJob) Execute(ctx context.Context) worker.Result {
	return &fetchResult{index: j.index, page: j.fetcher.Fetch(ctx, j.url)}
}

type fetchResult struct {
	index int
	page  types.PageResult
}

func (r *fetchResult) Err() error {
	if r.page.Error == "" || r.page.Blocked {
		return nil
	}
	return fmt.Errorf("%s: %s", r.page.URL, r.page.Error)
}
