// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether a URL may be fetched under its host's robots
// directives. Policies are fetched once per host and cached for the run.
// A missing or unreachable robots.txt allows everything.
type RobotsPolicy struct {
	mu        sync.RWMutex
	cache     map[string]*robotstxt.RobotsData
	client    *http.Client
	userAgent string
}

// NewRobotsPolicy returns a policy checker using the given timeout and
// user agent for robots.txt lookups.
func NewRobotsPolicy(timeout time.Duration, userAgent string) *RobotsPolicy {
	return &RobotsPolicy{
		cache:     make(map[string]*robotstxt.RobotsData),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Allowed reports whether rawURL may be fetched, plus any crawl-delay the
// host declares for our agent.
func (r *RobotsPolicy) Allowed(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.robotsFor(ctx, parsed)
	if err != nil {
		// Unreachable robots.txt never blocks the crawl.
		return true, 0, nil
	}

	agent := agentToken(r.userAgent)
	allowed := data.TestAgent(parsed.Path, agent)

	var delay time.Duration
	if group := data.FindGroup(agent); group != nil {
		delay = group.CrawlDelay
	}
	return allowed, delay, nil
}

// robotsFor returns the cached policy for the URL's host, fetching it on
// first use.
func (r *RobotsPolicy) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(u.Host)

	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// 404 means no policy: everything is allowed.
	if resp.StatusCode == http.StatusNotFound {
		data, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
		r.store(host, data)
		return data, nil
	}

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	r.store(host, data)
	return data, nil
}

func (r *RobotsPolicy) store(host string, data *robotstxt.RobotsData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[host] = data
}

// agentToken reduces a User-Agent string to the product token robots.txt
// groups match against ("fact-engine/0.1" matches group "fact-engine").
func agentToken(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	return strings.Split(fields[0], "/")[0]
}
