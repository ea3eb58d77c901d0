// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package run orchestrates the research pipeline: stage sequencing, the
// per-stage retry envelope, and the durable stage cache that makes re-runs
// idempotent. A stage executes only when no cached output exists for its
// (run, stage, input fingerprint) key; everything downstream of a cache hit
// replays without touching the network.
package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const stageDirName = "stages"

// cacheEntry is the on-disk envelope around one stage's output. The
// fingerprint binds the entry to the exact input it was computed from;
// a mismatch on read is treated as a miss.
type cacheEntry struct {
	Stage       string          `json:"stage"`
	Fingerprint string          `json:"fingerprint"`
	Output      json.RawMessage `json:"output"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StageCache stores stage outputs in memory with a JSON file per stage
// underneath the run directory. Disk is the source of truth: the memory
// layer only skips re-reading files within one process, so a fresh process
// resumes from disk alone.
type StageCache struct {
	memory *gocache.Cache
	dir    string
}

// NewStageCache returns a cache rooted at workDir/runs.
func NewStageCache(workDir string) *StageCache {
	return &StageCache{
		memory: gocache.New(gocache.NoExpiration, 10*time.Minute),
		dir:    filepath.Join(workDir, "runs"),
	}
}

// RunDir returns the artifact directory for a run.
func (c *StageCache) RunDir(runID string) string {
	return filepath.Join(c.dir, runID)
}

func (c *StageCache) stagePath(runID, stage string) string {
	return filepath.Join(c.dir, runID, stageDirName, stage+".json")
}

func cacheKey(runID, stage string) string { return runID + "/" + stage }

// Get returns the cached output for (runID, stage) when one exists and its
// fingerprint matches. Disk hits are promoted into memory.
func (c *StageCache) Get(runID, stage, fingerprint string) ([]byte, bool) {
	key := cacheKey(runID, stage)
	if v, ok := c.memory.Get(key); ok {
		entry := v.(cacheEntry)
		if entry.Fingerprint == fingerprint {
			return entry.Output, true
		}
		c.memory.Delete(key)
	}

	data, err := os.ReadFile(c.stagePath(runID, stage))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Stage != stage || entry.Fingerprint != fingerprint {
		return nil, false
	}
	c.memory.Set(key, entry, gocache.NoExpiration)
	return entry.Output, true
}

// Load reads a stage's stored output without a fingerprint check. Commands
// inspecting past runs use this; the pipeline itself always goes through Get.
func (c *StageCache) Load(runID, stage string) ([]byte, error) {
	data, err := os.ReadFile(c.stagePath(runID, stage))
	if err != nil {
		return nil, fmt.Errorf("reading %s cache entry: %w", stage, err)
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding %s cache entry: %w", stage, err)
	}
	return entry.Output, nil
}

// Put durably stores a stage output. The file is written to a temp name and
// renamed so a crash mid-write never leaves a truncated entry behind.
func (c *StageCache) Put(runID, stage, fingerprint string, output []byte) error {
	entry := cacheEntry{
		Stage:       stage,
		Fingerprint: fingerprint,
		Output:      json.RawMessage(output),
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s cache entry: %w", stage, err)
	}

	dir := filepath.Join(c.dir, runID, stageDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating stage cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, stage+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating stage cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s cache entry: %w", stage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s cache entry: %w", stage, err)
	}
	if err := os.Rename(tmp.Name(), c.stagePath(runID, stage)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("committing %s cache entry: %w", stage, err)
	}

	c.memory.Set(cacheKey(runID, stage), entry, gocache.NoExpiration)
	return nil
}
