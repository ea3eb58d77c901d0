// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the API keys the pipeline's outward calls need:
// search provider keys for discovery and the model key for claim proposal.
// A key resolves from the first non-empty of the config file value, the
// key's environment variable, and a .secrets/ directory where each plain
// file holds one key (filename is the key name, trimmed contents the value).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key names the pipeline resolves, matching the .secrets/ filenames.
const (
	BraveKey  = "brave-api-key"
	SerpKey   = "serpapi-api-key"
	OpenAIKey = "openai-api-key"
)

// envVars maps each key name to its environment override.
var envVars = map[string]string{
	BraveKey:  "BRAVE_API_KEY",
	SerpKey:   "SERPAPI_API_KEY",
	OpenAIKey: "OPENAI_API_KEY",
}

// Store holds the key files read from a secrets directory.
type Store struct {
	values map[string]string
}

// Load reads every plain file of dir into a Store. A missing directory
// yields an empty store; that is the common case for env-only setups.
// Unreadable files produce a warning on stderr but do not abort, and
// dotfiles, subdirectories, and empty files are skipped.
func Load(dir string) (*Store, error) {
	s := &Store{values: make(map[string]string)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", entry.Name(), err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s.values[entry.Name()] = value
		}
	}

	return s, nil
}

// Resolve returns the key value for name: the configured value when set,
// otherwise the key's environment variable, otherwise the loaded key file.
// An unresolvable key returns the empty string; the caller decides whether
// the feature it gates degrades or halts.
func (s *Store) Resolve(name, configured string) string {
	if configured != "" {
		return configured
	}
	if env := envVars[name]; env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return s.values[name]
}

// Names returns the loaded key names in sorted order. Values stay inside
// the store; status output lists names only.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
