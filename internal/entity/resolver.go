// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entity assigns canonical ids to entity name variants within one
// run. Matching is case- and punctuation-insensitive and ignores trailing
// corporate suffixes, the alias table only ever grows, and raw surface forms
// are never rewritten.
package entity

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// Resolver maps surface forms to canonical entity ids. It does no locking
// of its own: a single writer owns the table for the length of a run, which
// keeps the alias order reproducible.
type Resolver struct {
	byKey   map[string]string // normalized key → canonical id
	byForm  map[string]bool   // exact surface forms already recorded
	aliases []types.EntityAlias
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		byKey:  make(map[string]string),
		byForm: make(map[string]bool),
	}
}

// FromAliases rebuilds a resolver from a stored alias table, preserving its
// existing assignments.
func FromAliases(aliases []types.EntityAlias) *Resolver {
	r := NewResolver()
	for _, a := range aliases {
		key := matchKey(Normalize(a.Surface))
		if key == "" {
			continue
		}
		if _, ok := r.byKey[key]; !ok {
			r.byKey[key] = a.CanonicalID
		}
		if !r.byForm[a.Surface] {
			r.byForm[a.Surface] = true
			r.aliases = append(r.aliases, a)
		}
	}
	return r
}

// Resolve returns the canonical id for a surface form, assigning one on
// first sight. Variants differing only in case, punctuation, or a trailing
// corporate suffix share an id.
func (r *Resolver) Resolve(surface string) string {
	key := matchKey(Normalize(surface))
	if key == "" {
		return ""
	}

	id, ok := r.byKey[key]
	if !ok {
		id = entityID(key)
		r.byKey[key] = id
	}

	if !r.byForm[surface] {
		r.byForm[surface] = true
		r.aliases = append(r.aliases, types.EntityAlias{Surface: surface, CanonicalID: id})
	}
	return id
}

// Aliases returns the alias table in first-seen order.
func (r *Resolver) Aliases() []types.EntityAlias {
	return append([]types.EntityAlias(nil), r.aliases...)
}

// ResolveAll fills canonical subject and object keys on every candidate,
// growing the alias table from the seed as new forms appear.
func ResolveAll(candidates []types.ClaimCandidate, seed []types.EntityAlias) types.ResolveOutput {
	r := FromAliases(seed)

	resolved := make([]types.ClaimCandidate, len(candidates))
	for i, c := range candidates {
		c.CanonSubject = r.Resolve(c.Triple.Subject)
		c.CanonObject = r.Resolve(c.Triple.Object)
		resolved[i] = c
	}

	return types.ResolveOutput{
		Aliases:    r.Aliases(),
		Candidates: resolved,
	}
}

// Normalize reduces a surface form to its matching key: lowercased, letters
// and digits only, single spaces.
func Normalize(surface string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(surface) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ',':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// corporateSuffixes are dropped from the end of a matching key, so
// "Netflix Inc" and "Netflix" resolve to one entity.
var corporateSuffixes = map[string]bool{
	"inc":  true,
	"corp": true,
	"co":   true,
	"llc":  true,
	"ltd":  true,
}

// matchKey strips trailing corporate suffixes from a normalized key. A key
// that is nothing but a suffix keeps its last token.
func matchKey(key string) string {
	fields := strings.Fields(key)
	for len(fields) > 1 && corporateSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// entityID derives the canonical id from the normalized key, so the same
// entity gets the same id in every run.
func entityID(key string) string {
	h := sha256.New()
	h.Write([]byte("entity:"))
	h.Write([]byte(key))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
