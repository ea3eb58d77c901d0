// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package claim turns extracted documents into claim candidates: atomic
// (subject, predicate, object) triples, each pinned to a verbatim quote
// from its source. A proposal without a literal evidence span is rejected,
// whatever proposed it.
package claim

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/fact-engine/internal/fault"
	"github.com/pdiddy/fact-engine/internal/logging"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// Proposer suggests claim candidates for one source. Implementations are
// free to hallucinate; validation only keeps proposals whose quote is a
// byte-for-byte span of the source text.
type Proposer interface {
	Name() string
	Propose(ctx context.Context, company string, source types.Source) ([]Proposal, error)
}

// Proposal is a raw candidate as returned by a proposer, before validation.
type Proposal struct {
	Subject    string  `json:"subject" yaml:"subject"`
	Predicate  string  `json:"predicate" yaml:"predicate"`
	Object     string  `json:"object" yaml:"object"`
	Date       string  `json:"date,omitempty" yaml:"date,omitempty"`
	Quote      string  `json:"quote" yaml:"quote"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// BuildAll proposes and validates claim candidates for every source. One
// failing source is logged and skipped; the call fails only when every
// source fails, so the stage can be retried as a unit.
func BuildAll(ctx context.Context, proposer Proposer, company string, sources []types.Source, cfg types.ClaimsConfig) (types.ClaimsOutput, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	type slot struct {
		candidates []types.ClaimCandidate
		rejected   int
		err        error
	}
	slots := make([]slot, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		i := i
		g.Go(func() error {
			src := sources[i]
			proposals, err := proposeWithRetry(gctx, proposer, company, src, maxRetries)
			if err != nil {
				slots[i].err = err
				logging.L().Warnw("claim proposal failed", "source", src.URL, "error", err)
				return nil
			}
			slots[i].candidates, slots[i].rejected = validate(proposals, src, cfg.MaxPerSource)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.ClaimsOutput{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.ClaimsOutput{}, fault.Wrap(fault.Transient, err)
	}

	out := types.ClaimsOutput{}
	failed := 0
	for _, s := range slots {
		if s.err != nil {
			failed++
			continue
		}
		out.Candidates = append(out.Candidates, s.candidates...)
		out.Rejected += s.rejected
	}

	if len(sources) > 0 && failed == len(sources) {
		return types.ClaimsOutput{}, fault.New(fault.Transient, "claim building failed for all %d sources", len(sources))
	}
	return out, nil
}

// proposalBackoffBase controls the base duration for proposer retries.
// Tests override this to avoid real sleeps.
var proposalBackoffBase = time.Second

// proposeWithRetry calls the proposer with exponential backoff.
func proposeWithRetry(ctx context.Context, proposer Proposer, company string, src types.Source, maxRetries int) ([]Proposal, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * proposalBackoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		proposals, err := proposer.Propose(ctx, company, src)
		if err == nil {
			return proposals, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// validate keeps proposals whose quote occurs literally in the source text
// and whose triple is complete, up to maxPerSource candidates. It returns
// the accepted candidates and the rejected count.
func validate(proposals []Proposal, src types.Source, maxPerSource int) ([]types.ClaimCandidate, int) {
	var candidates []types.ClaimCandidate
	seen := make(map[string]bool)
	rejected := 0

	for _, p := range proposals {
		c, err := convert(p, src)
		if err != nil {
			rejected++
			logging.L().Debugw("proposal rejected", "source", src.URL, "reason", err)
			continue
		}
		if seen[c.ID] {
			continue
		}
		if maxPerSource > 0 && len(candidates) >= maxPerSource {
			break
		}
		seen[c.ID] = true
		candidates = append(candidates, c)
	}
	return candidates, rejected
}

// convert validates a single proposal against its source.
func convert(p Proposal, src types.Source) (types.ClaimCandidate, error) {
	subject := strings.TrimSpace(p.Subject)
	predicate := strings.TrimSpace(p.Predicate)
	object := strings.TrimSpace(p.Object)
	if subject == "" || predicate == "" || object == "" {
		return types.ClaimCandidate{}, fmt.Errorf("incomplete triple (%q, %q, %q)", subject, predicate, object)
	}

	if p.Quote == "" {
		return types.ClaimCandidate{}, fmt.Errorf("proposal has no evidence quote")
	}
	start := strings.Index(src.Text, p.Quote)
	if start < 0 {
		return types.ClaimCandidate{}, fmt.Errorf("quote is not a literal span of the source")
	}

	confidence := p.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}

	c := types.ClaimCandidate{
		SourceID: src.ID,
		Triple: types.Triple{
			Subject:   subject,
			Predicate: predicate,
			Object:    object,
		},
		Date:       ParseClaimDate(p.Date, src.Published),
		Quote:      p.Quote,
		Start:      start,
		End:        start + len(p.Quote),
		Confidence: confidence,
	}
	c.ID = candidateID(c)
	return c, nil
}

// candidateID derives a deterministic id from the candidate's content: the
// first 12 hex characters of SHA-256 over source, triple, and quote.
func candidateID(c types.ClaimCandidate) string {
	h := sha256.New()
	h.Write([]byte(c.SourceID))
	h.Write([]byte(c.Triple.Subject))
	h.Write([]byte(c.Triple.Predicate))
	h.Write([]byte(c.Triple.Object))
	h.Write([]byte(c.Quote))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
