// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// QueryOptions holds parameters for claim queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over subject, predicate,
	// and object.
	Query string

	// Class filters by confidence class (HIGH or LOW).
	Class types.ConfidenceClass

	// Predicate filters by normalized predicate.
	Predicate string

	// Subject filters by canonical subject id.
	Subject string

	// MinConfidence drops claims scored below the floor. Zero keeps all.
	MinConfidence float64

	// FlaggedOnly restricts results to claims awaiting review.
	FlaggedOnly bool

	// IncludeSuperseded also returns claims a later correction superseded.
	// They are excluded by default and retained for audit.
	IncludeSuperseded bool

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Class == "" && q.Predicate == "" && q.Subject == "" &&
		q.MinConfidence == 0 && !q.FlaggedOnly
}

// GetClaims queries a run's claims with optional full-text search and
// structured filters. Full-text queries rank by relevance; structured
// queries sort by confidence, then id, so equal inputs list equally.
func (s *Store) GetClaims(ctx context.Context, runID string, opts QueryOptions) ([]types.Claim, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT c.id, c.subject, c.predicate, c.object, c.canon_subject, c.canon_object,
				c.date, c.date_spread_days, c.confidence, c.corroboration, c.class,
				c.flagged, c.supersedes
			FROM claims_fts
			JOIN claims c ON c.rowid = claims_fts.rowid
			WHERE claims_fts MATCH ? AND c.run_id = ?`)
		args = append(args, opts.Query, runID)
	} else {
		qb.WriteString(
			`SELECT c.id, c.subject, c.predicate, c.object, c.canon_subject, c.canon_object,
				c.date, c.date_spread_days, c.confidence, c.corroboration, c.class,
				c.flagged, c.supersedes
			FROM claims c
			WHERE c.run_id = ?`)
		args = append(args, runID)
	}

	if opts.Class != "" {
		qb.WriteString(` AND c.class = ?`)
		args = append(args, string(opts.Class))
	}

	if opts.Predicate != "" {
		qb.WriteString(` AND c.predicate = ?`)
		args = append(args, NormalizePredicate(opts.Predicate))
	}

	if opts.Subject != "" {
		qb.WriteString(` AND c.canon_subject = ?`)
		args = append(args, opts.Subject)
	}

	if opts.MinConfidence > 0 {
		qb.WriteString(` AND c.confidence >= ?`)
		args = append(args, opts.MinConfidence)
	}

	if opts.FlaggedOnly {
		qb.WriteString(` AND c.flagged = 1`)
	}

	if !opts.IncludeSuperseded {
		qb.WriteString(` AND c.id NOT IN (SELECT supersedes FROM claims WHERE run_id = ? AND supersedes != '')`)
		args = append(args, runID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY claims_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY c.confidence DESC, c.id`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying claims: %w", err)
	}
	defer rows.Close()

	var claims []types.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func scanClaim(row rowScanner) (types.Claim, error) {
	var (
		c          types.Claim
		date       sql.NullString
		class      string
		supersedes sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Triple.Subject, &c.Triple.Predicate, &c.Triple.Object,
		&c.CanonSubject, &c.CanonObject, &date, &c.DateSpreadDays,
		&c.Confidence, &c.Corroboration, &class, &c.Flagged, &supersedes); err != nil {
		return types.Claim{}, fmt.Errorf("scanning claim: %w", err)
	}
	c.Class = types.ConfidenceClass(class)
	c.Supersedes = supersedes.String
	if date.Valid && date.String != "" {
		if t, err := time.Parse("2006-01-02", date.String); err == nil {
			t = t.UTC()
			c.Date = &t
		}
	}
	return c, nil
}

// AllClaims returns every claim of a run ordered by confidence, then id.
// The report stage reads the full graph through this rather than the capped
// query path.
func (s *Store) AllClaims(ctx context.Context, runID string) ([]types.Claim, error) {
	return s.GetClaims(ctx, runID, QueryOptions{MaxResults: exportLimit})
}

// GetClaim returns one claim by id, superseded or not.
func (s *Store) GetClaim(ctx context.Context, runID, claimID string) (types.Claim, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, predicate, object, canon_subject, canon_object,
			date, date_spread_days, confidence, corroboration, class,
			flagged, supersedes
		FROM claims WHERE run_id = ? AND id = ?`, runID, claimID)
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Claim{}, fmt.Errorf("claim %s not found in run %s", claimID, runID)
		}
		return types.Claim{}, err
	}
	return c, nil
}

// GetEvidence returns the evidence rows backing one claim, ordered by source
// and span position.
func (s *Store) GetEvidence(ctx context.Context, runID, claimID string) ([]types.Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, source_id, start, end, quote FROM evidence
		 WHERE run_id = ? AND claim_id = ?
		 ORDER BY source_id, start`, runID, claimID)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()
	return collectEvidence(rows)
}

// AllEvidence returns every evidence row of a run, ordered by claim.
func (s *Store) AllEvidence(ctx context.Context, runID string) ([]types.Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, source_id, start, end, quote FROM evidence
		 WHERE run_id = ?
		 ORDER BY claim_id, source_id, start`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()
	return collectEvidence(rows)
}

func collectEvidence(rows *sql.Rows) ([]types.Evidence, error) {
	var evidence []types.Evidence
	for rows.Next() {
		var ev types.Evidence
		if err := rows.Scan(&ev.ID, &ev.ClaimID, &ev.SourceID, &ev.Start, &ev.End, &ev.Quote); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		evidence = append(evidence, ev)
	}
	return evidence, rows.Err()
}

// GetSources returns a run's sources ordered by id.
func (s *Store) GetSources(ctx context.Context, runID string) ([]types.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, domain, title, author, published, text, tier, fetched_at
		 FROM sources WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []types.Source
	for rows.Next() {
		var (
			src       types.Source
			title     sql.NullString
			author    sql.NullString
			published sql.NullString
			text      sql.NullString
			fetchedAt sql.NullString
		)
		if err := rows.Scan(&src.ID, &src.URL, &src.Domain, &title, &author,
			&published, &text, &src.Tier, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.Title = title.String
		src.Author = author.String
		src.Text = text.String
		if published.Valid && published.String != "" {
			if t, err := time.Parse(time.RFC3339, published.String); err == nil {
				t = t.UTC()
				src.Published = &t
			}
		}
		if fetchedAt.Valid && fetchedAt.String != "" {
			if t, err := time.Parse(time.RFC3339, fetchedAt.String); err == nil {
				src.FetchedAt = t.UTC()
			}
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// GetAliases returns a run's entity alias table in insertion order.
func (s *Store) GetAliases(ctx context.Context, runID string) ([]types.EntityAlias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT surface, canonical_id FROM aliases
		 WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying aliases: %w", err)
	}
	defer rows.Close()

	var aliases []types.EntityAlias
	for rows.Next() {
		var a types.EntityAlias
		if err := rows.Scan(&a.Surface, &a.CanonicalID); err != nil {
			return nil, fmt.Errorf("scanning alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}
