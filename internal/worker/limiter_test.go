// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiterEnforcesInterval(t *testing.T) {
	limiter := NewDomainLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "http://example.com/page"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	// First request is immediate, the next two wait one interval each.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("three same-domain requests took %v, want >= 100ms", elapsed)
	}
}

func TestDomainLimiterIsolatesDomains(t *testing.T) {
	limiter := NewDomainLimiter(200 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	urls := []string{"http://a.com/1", "http://b.com/1", "http://c.com/1"}
	for _, u := range urls {
		if err := limiter.Wait(ctx, u); err != nil {
			t.Fatalf("wait %s: %v", u, err)
		}
	}
	// Distinct domains never wait on each other.
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("distinct-domain requests took %v, want fast", elapsed)
	}
}

func TestDomainLimiterZeroIntervalDisablesThrottle(t *testing.T) {
	limiter := NewDomainLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := limiter.Wait(ctx, "http://example.com"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unthrottled requests took %v", elapsed)
	}
}

func TestDomainLimiterSetMinInterval(t *testing.T) {
	limiter := NewDomainLimiter(time.Millisecond)
	limiter.SetMinInterval("slow.com", 150*time.Millisecond)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx, "https://slow.com/x"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 140*time.Millisecond {
		t.Errorf("crawl-delay floor not honored: %v", elapsed)
	}

	// Shorter overrides are ignored.
	limiter.SetMinInterval("slow.com", time.Nanosecond)
	start = time.Now()
	if err := limiter.Wait(ctx, "https://slow.com/y"); err != nil {
		t.Fatal(err)
	}
	_ = start
}

func TestDomainLimiterWaitCancellation(t *testing.T) {
	limiter := NewDomainLimiter(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Consume the first token, then the second Wait must observe cancellation.
	if err := limiter.Wait(ctx, "http://example.com"); err != nil {
		t.Fatal(err)
	}
	if err := limiter.Wait(ctx, "http://example.com"); err == nil {
		t.Error("expected cancellation error while waiting for interval")
	}
}

func TestDomainOf(t *testing.T) {
	domain, err := domainOf("https://Example.com:443/foo")
	if err != nil {
		t.Fatal(err)
	}
	if domain != "example.com" {
		t.Errorf("domainOf = %q, want example.com", domain)
	}

	if _, err := domainOf("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
