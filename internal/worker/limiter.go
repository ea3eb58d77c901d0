// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package worker provides the bounded-concurrency pool and the per-domain
// rate limiter the fetch stage runs on. Both structures are created per run
// and shared only within it.
package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter enforces a minimum interval between requests to one domain.
// Safe for concurrent use by the fetch workers.
type DomainLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewDomainLimiter returns a limiter enforcing the given minimum interval
// per domain. A zero or negative interval disables throttling.
func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until a request to rawURL's domain is allowed, or the context
// is cancelled.
func (l *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := domainOf(rawURL)
	if err != nil {
		return err
	}
	return l.limiterFor(domain, l.interval).Wait(ctx)
}

// SetMinInterval raises the interval for one domain, typically from a
// robots.txt crawl-delay. An interval below the configured default is ignored.
func (l *DomainLimiter) SetMinInterval(domain string, interval time.Duration) {
	if interval <= l.interval {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[domain] = newIntervalLimiter(interval)
}

// limiterFor returns the limiter for a domain, creating it on first use.
func (l *DomainLimiter) limiterFor(domain string, interval time.Duration) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[domain]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock.
	if lim, ok := l.limiters[domain]; ok {
		return lim
	}
	lim = newIntervalLimiter(interval)
	l.limiters[domain] = lim
	return lim
}

func newIntervalLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// domainOf extracts the lowercase host from a URL.
func domainOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Hostname()), nil
}
