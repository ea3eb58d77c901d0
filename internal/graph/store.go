// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph merges claim candidates into a deduplicated fact graph,
// scores them by corroboration, and persists runs, sources, claims, and
// evidence in a SQLite database with a full-text claim index.
package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/fact-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "facts.db"
)

// Store manages the fact graph SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the fact database at workDir/index/facts.db and
// migrates the schema.
func NewStore(workDir string, cfg types.GraphConfig) (*Store, error) {
	dbDir := filepath.Join(workDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, dir: dbDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			company TEXT NOT NULL,
			slug TEXT NOT NULL,
			status TEXT NOT NULL,
			current_stage TEXT,
			stages TEXT NOT NULL,
			failure_cause TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_slug ON runs(slug, created_at)`,
		`CREATE TABLE IF NOT EXISTS sources (
			run_id TEXT NOT NULL REFERENCES runs(id),
			id TEXT NOT NULL,
			url TEXT NOT NULL,
			domain TEXT NOT NULL,
			title TEXT,
			author TEXT,
			published TEXT,
			text TEXT,
			tier INTEGER NOT NULL DEFAULT 1,
			fetched_at TEXT,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS claims (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			id TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			canon_subject TEXT NOT NULL,
			canon_object TEXT NOT NULL,
			date TEXT,
			date_spread_days INTEGER NOT NULL DEFAULT 0,
			confidence REAL NOT NULL,
			corroboration INTEGER NOT NULL,
			class TEXT NOT NULL,
			flagged INTEGER NOT NULL DEFAULT 0,
			supersedes TEXT,
			UNIQUE (run_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_run ON claims(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_class ON claims(run_id, class)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			run_id TEXT NOT NULL,
			id TEXT NOT NULL,
			claim_id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			start INTEGER NOT NULL,
			end INTEGER NOT NULL,
			quote TEXT NOT NULL,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_claim ON evidence(run_id, claim_id)`,
		`CREATE TABLE IF NOT EXISTS aliases (
			run_id TEXT NOT NULL,
			surface TEXT NOT NULL,
			canonical_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (run_id, surface)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='claims_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE claims_fts USING fts5(subject, predicate, object, content=claims, content_rowid=rowid)`,
			`CREATE TRIGGER claims_ai AFTER INSERT ON claims BEGIN
				INSERT INTO claims_fts(rowid, subject, predicate, object)
				VALUES (new.rowid, new.subject, new.predicate, new.object);
			END`,
			`CREATE TRIGGER claims_ad AFTER DELETE ON claims BEGIN
				INSERT INTO claims_fts(claims_fts, rowid, subject, predicate, object)
				VALUES('delete', old.rowid, old.subject, old.predicate, old.object);
			END`,
			`CREATE TRIGGER claims_au AFTER UPDATE ON claims BEGIN
				INSERT INTO claims_fts(claims_fts, rowid, subject, predicate, object)
				VALUES('delete', old.rowid, old.subject, old.predicate, old.object);
				INSERT INTO claims_fts(rowid, subject, predicate, object)
				VALUES (new.rowid, new.subject, new.predicate, new.object);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveRun upserts a run record.
func (s *Store) SaveRun(ctx context.Context, run types.Run) error {
	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("marshaling stage statuses: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, company, slug, status, current_stage, stages, failure_cause, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, current_stage=excluded.current_stage,
			stages=excluded.stages, failure_cause=excluded.failure_cause,
			updated_at=excluded.updated_at`,
		run.ID, run.Company, run.Slug, string(run.Status), run.CurrentStage,
		string(stagesJSON), run.FailureCause,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (types.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company, slug, status, current_stage, stages, failure_cause, created_at, updated_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return types.Run{}, fmt.Errorf("run %s not found", id)
	}
	return run, err
}

// LatestRun returns the most recently created run for a company slug.
func (s *Store) LatestRun(ctx context.Context, slug string) (types.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company, slug, status, current_stage, stages, failure_cause, created_at, updated_at
		 FROM runs WHERE slug = ? ORDER BY julianday(created_at) DESC LIMIT 1`, slug)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return types.Run{}, fmt.Errorf("no runs for %s", slug)
	}
	return run, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]types.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company, slug, status, current_stage, stages, failure_cause, created_at, updated_at
		 FROM runs ORDER BY julianday(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (types.Run, error) {
	var (
		run          types.Run
		status       string
		currentStage sql.NullString
		stagesJSON   string
		failureCause sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(&run.ID, &run.Company, &run.Slug, &status, &currentStage,
		&stagesJSON, &failureCause, &createdAt, &updatedAt); err != nil {
		return types.Run{}, err
	}

	run.Status = types.RunStatus(status)
	run.CurrentStage = currentStage.String
	run.FailureCause = failureCause.String
	if err := json.Unmarshal([]byte(stagesJSON), &run.Stages); err != nil {
		return types.Run{}, fmt.Errorf("parsing stage statuses: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		run.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		run.UpdatedAt = t
	}
	return run, nil
}

// SaveGraph replaces a run's graph data in one transaction. The graph stage
// rebuilds from candidates each time it runs, so replacement keeps the
// stored state consistent with the stage output.
func (s *Store) SaveGraph(ctx context.Context, runID string, sources []types.Source, claims []types.Claim, evidence []types.Evidence, aliases []types.EntityAlias) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"evidence", "claims", "sources", "aliases"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	srcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (run_id, id, url, domain, title, author, published, text, tier, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing source insert: %w", err)
	}
	defer srcStmt.Close()
	for _, src := range sources {
		published := ""
		if src.Published != nil {
			published = src.Published.UTC().Format(time.RFC3339)
		}
		fetchedAt := ""
		if !src.FetchedAt.IsZero() {
			fetchedAt = src.FetchedAt.UTC().Format(time.RFC3339)
		}
		if _, err := srcStmt.ExecContext(ctx, runID, src.ID, src.URL, src.Domain,
			src.Title, src.Author, published, src.Text, src.Tier, fetchedAt); err != nil {
			return fmt.Errorf("inserting source %s: %w", src.ID, err)
		}
	}

	claimStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO claims (run_id, id, subject, predicate, object, canon_subject, canon_object,
			date, date_spread_days, confidence, corroboration, class, flagged, supersedes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing claim insert: %w", err)
	}
	defer claimStmt.Close()
	for _, c := range claims {
		date := ""
		if c.Date != nil {
			date = c.Date.UTC().Format("2006-01-02")
		}
		if _, err := claimStmt.ExecContext(ctx, runID, c.ID,
			c.Triple.Subject, c.Triple.Predicate, c.Triple.Object,
			c.CanonSubject, c.CanonObject, date, c.DateSpreadDays,
			c.Confidence, c.Corroboration, string(c.Class), c.Flagged, c.Supersedes); err != nil {
			return fmt.Errorf("inserting claim %s: %w", c.ID, err)
		}
	}

	evStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence (run_id, id, claim_id, source_id, start, end, quote)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing evidence insert: %w", err)
	}
	defer evStmt.Close()
	for _, ev := range evidence {
		if _, err := evStmt.ExecContext(ctx, runID, ev.ID, ev.ClaimID, ev.SourceID,
			ev.Start, ev.End, ev.Quote); err != nil {
			return fmt.Errorf("inserting evidence %s: %w", ev.ID, err)
		}
	}

	aliasStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO aliases (run_id, surface, canonical_id, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing alias insert: %w", err)
	}
	defer aliasStmt.Close()
	for i, a := range aliases {
		if _, err := aliasStmt.ExecContext(ctx, runID, a.Surface, a.CanonicalID, i); err != nil {
			return fmt.Errorf("inserting alias %q: %w", a.Surface, err)
		}
	}

	return tx.Commit()
}
