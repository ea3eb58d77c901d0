// Package discover queries web search providers for company coverage and
// returns a ranked, deduplicated candidate list. Ranking depends only on
// provider responses, never on response arrival order.
package discover

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/fact-engine/internal/logging"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// Provider queries a single web search API. Each provider (Brave, SerpAPI)
// implements this interface.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]types.Candidate, error)
}

// perQueryCount is how many results each provider query requests.
const perQueryCount = 10

// Categories are the research angles every company is searched under, in
// ranking order.
var Categories = []string{
	"founding history",
	"funding rounds",
	"founder interviews",
	"company crises",
	"product launches",
	"acquisitions",
	"lawsuits",
	"pivots",
	"competition",
}

// categoryTerms maps each category to its query terms: the category phrase
// first, synonym expansions after.
var categoryTerms = map[string][]string{
	"founding history":   {"founding history", "origin story"},
	"funding rounds":     {"funding round", "raised series"},
	"founder interviews": {"founder interview", "CEO interview"},
	"company crises":     {"crisis", "controversy"},
	"product launches":   {"product launch", "announces product"},
	"acquisitions":       {"acquisition", "acquires"},
	"lawsuits":           {"lawsuit", "sued"},
	"pivots":             {"pivot", "changes business model"},
	"competition":        {"competitors", "versus"},
}

// query pairs a provider search string with the category it serves.
type query struct {
	category string
	text     string
}

// queriesFor expands a company name into the templated query set in fixed
// category order.
func queriesFor(company string) []query {
	var queries []query
	for _, cat := range Categories {
		for _, term := range categoryTerms[cat] {
			queries = append(queries, query{
				category: cat,
				text:     fmt.Sprintf("%q %s", company, term),
			})
		}
	}
	return queries
}

// Discover fans the query set out to all providers with bounded concurrency,
// deduplicates by normalized URL, ranks, and caps the list. Provider failures
// become warnings; only an empty provider set or cancellation is fatal.
func Discover(ctx context.Context, company string, providers []Provider, cfg types.DiscoverConfig, now time.Time) (types.DiscoverOutput, error) {
	if strings.TrimSpace(company) == "" {
		return types.DiscoverOutput{}, fmt.Errorf("company name is empty")
	}
	if len(providers) == 0 {
		return types.DiscoverOutput{}, fmt.Errorf("no search providers configured")
	}

	queries := queriesFor(company)

	type slot struct {
		candidates []types.Candidate
		warning    string
	}
	// One slot per (provider, query) pair so the merged order is a pure
	// function of the inputs.
	slots := make([]slot, len(providers)*len(queries))

	concurrency := cfg.QueryConcurrency
	if concurrency <= 0 {
		concurrency = 6
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for pi, p := range providers {
		for qi, q := range queries {
			idx := pi*len(queries) + qi
			p, q := p, q
			g.Go(func() error {
				candidates, err := p.Search(gctx, q.text, perQueryCount)
				if err != nil {
					mu.Lock()
					slots[idx].warning = fmt.Sprintf("%s: %q: %v", p.Name(), q.text, err)
					mu.Unlock()
					logging.L().Warnw("provider query failed", "provider", p.Name(), "query", q.text, "error", err)
					return nil
				}
				for i := range candidates {
					candidates[i].Category = q.category
					candidates[i].Provider = p.Name()
				}
				mu.Lock()
				slots[idx].candidates = candidates
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return types.DiscoverOutput{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.DiscoverOutput{}, err
	}

	var all []types.Candidate
	var warnings []string
	for _, s := range slots {
		all = append(all, s.candidates...)
		if s.warning != "" {
			warnings = append(warnings, s.warning)
		}
	}

	deduped := deduplicate(all)
	ranked := rank(deduped, company, cfg, now)

	if cfg.MaxCandidates > 0 && len(ranked) > cfg.MaxCandidates {
		ranked = ranked[:cfg.MaxCandidates]
	}

	return types.DiscoverOutput{
		Company:    company,
		Candidates: ranked,
		Warnings:   warnings,
	}, nil
}

// deduplicate keeps the first occurrence of each normalized URL and folds
// later duplicates into it.
func deduplicate(candidates []types.Candidate) []types.Candidate {
	seen := make(map[string]int)
	var deduped []types.Candidate

	for _, c := range candidates {
		key := NormalizeURL(c.URL)
		if key == "" {
			continue
		}
		if idx, ok := seen[key]; ok {
			mergeInto(&deduped[idx], c)
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, c)
	}
	return deduped
}

// mergeInto fills empty fields of dst from src and records the extra provider.
func mergeInto(dst *types.Candidate, src types.Candidate) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if dst.Snippet == "" && src.Snippet != "" {
		dst.Snippet = src.Snippet
	}
	if dst.Published == nil && src.Published != nil {
		dst.Published = src.Published
	}
	if src.Relevance > dst.Relevance {
		dst.Relevance = src.Relevance
	}
	if dst.Provider != src.Provider && !strings.Contains(dst.Provider, src.Provider) {
		dst.Provider = dst.Provider + "," + src.Provider
	}
}

// NormalizeURL maps URL variants of the same page to one key: scheme and
// "www." stripped, host lowercased, tracking parameters and fragments
// dropped, trailing slash removed.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(parsed.Path, "/")

	q := parsed.Query()
	for param := range q {
		if strings.HasPrefix(param, "utm_") || param == "ref" || param == "fbclid" || param == "gclid" {
			q.Del(param)
		}
	}

	key := host + path
	if encoded := q.Encode(); encoded != "" {
		key += "?" + encoded
	}
	return key
}

// Domain returns the lowercased registrable host of a URL, without "www.".
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// rank scores every candidate and sorts by score descending, URL ascending
// on ties. The first candidate covering an otherwise uncovered category gets
// the coverage bonus, decided on the pre-bonus ordering so the result is
// stable.
func rank(candidates []types.Candidate, company string, cfg types.DiscoverConfig, now time.Time) []types.Candidate {
	companyLower := strings.ToLower(company)
	for i := range candidates {
		c := &candidates[i]
		c.Tier = AuthorityTier(Domain(c.URL))
		recency := recencyBoost(c.Published, now, cfg.RecencyHalfLife)
		if c.Published == nil {
			// No date from any provider: the result position stands in,
			// worth at most a one-half-life-old date.
			recency = c.Relevance
		}
		c.Score = float64(c.Tier) + recency
		if c.Title != "" && strings.Contains(strings.ToLower(c.Title), companyLower) {
			c.Score += 0.5
		}
	}

	sortCandidates(candidates)

	covered := make(map[string]bool)
	for i := range candidates {
		if cat := candidates[i].Category; cat != "" && !covered[cat] {
			covered[cat] = true
			candidates[i].Score += cfg.CategoryBonus
		}
	}

	sortCandidates(candidates)
	return candidates
}

func sortCandidates(candidates []types.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].URL < candidates[j].URL
	})
}

// recencyBoost decays from 2.0 for a just-published page by half per
// half-life. Undated pages get no boost; rank substitutes their
// position-derived relevance instead.
func recencyBoost(published *time.Time, now time.Time, halfLife time.Duration) float64 {
	if published == nil || halfLife <= 0 {
		return 0
	}
	age := now.Sub(*published)
	if age < 0 {
		age = 0
	}
	return 2.0 * math.Exp2(-float64(age)/float64(halfLife))
}

// positionRelevance converts a provider result position into a relevance
// score: 1.0 for the first result, falling linearly to 0.1 for the last.
func positionRelevance(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// authorityTiers maps known domains to tiers 2-4; anything else is tier 1.
var authorityTiers = map[string]int{
	"wikipedia.org": 4,
	"sec.gov":       4,

	"wsj.com":        3,
	"nytimes.com":    3,
	"bloomberg.com":  3,
	"ft.com":         3,
	"reuters.com":    3,
	"crunchbase.com": 3,

	"techcrunch.com":       2,
	"forbes.com":           2,
	"businessinsider.com":  2,
	"theverge.com":         2,
	"wired.com":            2,
	"cnbc.com":             2,
}

// AuthorityTier returns the 1-4 authority tier for a domain. Subdomains
// inherit their parent's tier.
func AuthorityTier(domain string) int {
	for d, tier := range authorityTiers {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return tier
		}
	}
	return 1
}
