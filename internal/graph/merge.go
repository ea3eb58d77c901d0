// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/fact-engine/internal/discover"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// Build merges resolved claim candidates into deduplicated claims with
// evidence rows. Candidates merge when their canonical triples are equal and
// their dates fall inside the tolerance window or are both absent. The result
// is a pure function of the inputs: same candidates and sources, same graph.
func Build(resolved types.ResolveOutput, sources []types.Source, cfg types.GraphConfig) ([]types.Claim, []types.Evidence) {
	srcByID := make(map[string]types.Source, len(sources))
	for _, src := range sources {
		srcByID[src.ID] = src
	}

	groups := make(map[string][]types.ClaimCandidate)
	var keys []string
	for _, cand := range resolved.Candidates {
		key := mergeKey(cand)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], cand)
	}
	sort.Strings(keys)

	var claims []types.Claim
	var evidence []types.Evidence
	for _, key := range keys {
		for _, cluster := range clusterByDate(groups[key], cfg.DateToleranceDays) {
			claim, rows := buildClaim(cluster, srcByID, cfg)
			claims = append(claims, claim)
			evidence = append(evidence, rows...)
		}
	}

	sort.Slice(claims, func(i, j int) bool {
		if claims[i].Confidence != claims[j].Confidence {
			return claims[i].Confidence > claims[j].Confidence
		}
		return claims[i].ID < claims[j].ID
	})
	sort.Slice(evidence, func(i, j int) bool {
		if evidence[i].ClaimID != evidence[j].ClaimID {
			return evidence[i].ClaimID < evidence[j].ClaimID
		}
		if evidence[i].SourceID != evidence[j].SourceID {
			return evidence[i].SourceID < evidence[j].SourceID
		}
		return evidence[i].Start < evidence[j].Start
	})

	return claims, evidence
}

// mergeKey identifies the merge group of a candidate. Subjects and objects
// compare by canonical entity id; predicates by normalized form.
func mergeKey(cand types.ClaimCandidate) string {
	return cand.CanonSubject + "\x00" + NormalizePredicate(cand.Triple.Predicate) + "\x00" + cand.CanonObject
}

// NormalizePredicate lowercases a predicate and joins its words with
// underscores, so "Founded In" and "founded_in" compare equal.
func NormalizePredicate(predicate string) string {
	fields := strings.FieldsFunc(strings.ToLower(predicate), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}

// clusterByDate splits one merge group into date clusters. Candidates sort by
// date, and a candidate joins the open cluster while its date stays within
// the tolerance of the cluster anchor (the earliest date). Undated candidates
// form their own cluster; a date never merges with its absence.
func clusterByDate(cands []types.ClaimCandidate, toleranceDays int) [][]types.ClaimCandidate {
	sorted := make([]types.ClaimCandidate, len(cands))
	copy(sorted, cands)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := sorted[i].Date, sorted[j].Date
		switch {
		case di == nil && dj == nil:
			return sorted[i].ID < sorted[j].ID
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.Before(*dj)
		default:
			return sorted[i].ID < sorted[j].ID
		}
	})

	tolerance := time.Duration(toleranceDays) * 24 * time.Hour
	var clusters [][]types.ClaimCandidate
	var current []types.ClaimCandidate
	var anchor *time.Time
	var undated []types.ClaimCandidate

	for _, cand := range sorted {
		if cand.Date == nil {
			undated = append(undated, cand)
			continue
		}
		if anchor != nil && cand.Date.Sub(*anchor) <= tolerance {
			current = append(current, cand)
			continue
		}
		if current != nil {
			clusters = append(clusters, current)
		}
		current = []types.ClaimCandidate{cand}
		anchor = cand.Date
	}
	if current != nil {
		clusters = append(clusters, current)
	}
	if undated != nil {
		clusters = append(clusters, undated)
	}
	return clusters
}

// buildClaim condenses one date cluster into a claim plus its evidence rows.
func buildClaim(cluster []types.ClaimCandidate, srcByID map[string]types.Source, cfg types.GraphConfig) (types.Claim, []types.Evidence) {
	rep := representative(cluster)

	var earliest, latest *time.Time
	domains := make(map[string]bool)
	minTier := 0
	for _, cand := range cluster {
		if cand.Date != nil {
			if earliest == nil || cand.Date.Before(*earliest) {
				earliest = cand.Date
			}
			if latest == nil || cand.Date.After(*latest) {
				latest = cand.Date
			}
		}
		src, ok := srcByID[cand.SourceID]
		tier := 1
		if ok {
			domains[src.Domain] = true
			if src.Tier > 0 {
				tier = src.Tier
			}
		} else {
			domains[cand.SourceID] = true
		}
		if minTier == 0 || tier < minTier {
			minTier = tier
		}
	}

	spreadDays := 0
	if earliest != nil && latest != nil {
		spreadDays = int(latest.Sub(*earliest).Hours() / 24)
	}

	corroboration := len(domains)
	confidence := score(corroboration, minTier, spreadDays, earliest != nil, cfg)
	class := types.ClassLow
	if corroboration >= minSources(cfg) {
		class = types.ClassHigh
	}

	predicate := NormalizePredicate(rep.Triple.Predicate)
	dateKey := ""
	if earliest != nil {
		dateKey = earliest.UTC().Format("2006-01-02")
	}
	claimID := stableID("claim:" + rep.CanonSubject + "|" + predicate + "|" + rep.CanonObject + "|" + dateKey)

	// Subjects and objects keep the representative's surface forms;
	// predicates are slugs and store normalized.
	triple := rep.Triple
	triple.Predicate = predicate

	claim := types.Claim{
		ID:             claimID,
		Triple:         triple,
		CanonSubject:   rep.CanonSubject,
		CanonObject:    rep.CanonObject,
		Date:           earliest,
		DateSpreadDays: spreadDays,
		Confidence:     confidence,
		Corroboration:  corroboration,
		Class:          class,
		Flagged:        class == types.ClassLow,
	}

	seen := make(map[string]bool)
	var rows []types.Evidence
	for _, cand := range cluster {
		spanKey := fmt.Sprintf("%s|%d|%d", cand.SourceID, cand.Start, cand.End)
		if seen[spanKey] {
			continue
		}
		seen[spanKey] = true
		rows = append(rows, types.Evidence{
			ID:       stableID("evidence:" + claimID + "|" + spanKey),
			ClaimID:  claimID,
			SourceID: cand.SourceID,
			Start:    cand.Start,
			End:      cand.End,
			Quote:    cand.Quote,
		})
	}

	return claim, rows
}

// representative picks the cluster member whose surface forms the claim
// displays: highest proposer confidence, ties broken by id.
func representative(cluster []types.ClaimCandidate) types.ClaimCandidate {
	rep := cluster[0]
	for _, cand := range cluster[1:] {
		if cand.Confidence > rep.Confidence ||
			(cand.Confidence == rep.Confidence && cand.ID < rep.ID) {
			rep = cand
		}
	}
	return rep
}

// SourcesFromDocuments converts extracted documents into graph sources,
// skipping documents that yielded no text. Fetch timestamps are joined in
// from the page results by URL.
func SourcesFromDocuments(docs []types.Document, pages []types.PageResult) []types.Source {
	fetchedAt := make(map[string]time.Time, len(pages))
	for _, page := range pages {
		fetchedAt[page.URL] = page.FetchedAt
	}

	var sources []types.Source
	for _, doc := range docs {
		if doc.Empty || doc.Text == "" {
			continue
		}
		domain := discover.Domain(doc.URL)
		sources = append(sources, types.Source{
			ID:        SourceID(doc.URL),
			URL:       doc.URL,
			Domain:    domain,
			Title:     doc.Title,
			Author:    doc.Author,
			Published: doc.Published,
			Text:      doc.Text,
			Tier:      discover.AuthorityTier(domain),
			FetchedAt: fetchedAt[doc.URL],
		})
	}
	return sources
}

// SourceID derives a stable source identifier from the normalized URL, so
// re-runs assign the same id to the same source.
func SourceID(rawURL string) string {
	normalized := discover.NormalizeURL(rawURL)
	if normalized == "" {
		normalized = rawURL
	}
	return stableID("source:" + normalized)
}

// Summarize condenses graph results into the stage output counts.
func Summarize(claims []types.Claim, sources []types.Source, evidence []types.Evidence) types.GraphOutput {
	out := types.GraphOutput{
		Claims:   len(claims),
		Sources:  len(sources),
		Evidence: len(evidence),
	}
	for _, c := range claims {
		if c.Class == types.ClassHigh {
			out.High++
		} else {
			out.Low++
		}
		if c.Flagged {
			out.Flagged++
		}
	}
	return out
}

func stableID(input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum)[:12]
}
