// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"math"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// corroborationCeiling is the domain count past which more sources stop
// raising the corroboration term.
const corroborationCeiling = 4

// score computes claim confidence from corroboration, the weakest backing
// source tier, and date agreement. The score is monotone: more distinct
// domains, a higher minimum tier, or tighter date agreement never lower it.
// The date term only applies to dated claims; an undated cluster earns no
// agreement bonus. Claims backed by a single domain are capped below
// certainty no matter how many syndicated copies repeat them.
func score(corroboration, minTier, spreadDays int, dated bool, cfg types.GraphConfig) float64 {
	n := corroboration
	if n > corroborationCeiling {
		n = corroborationCeiling
	}
	conf := cfg.CorroborationBase + cfg.CorroborationStep*float64(n)

	if minTier > 1 {
		conf += cfg.TierStep * float64(minTier-1)
	}

	if dated {
		tolerance := cfg.DateToleranceDays
		if tolerance <= 0 {
			tolerance = 30
		}
		agreement := 1.0 - float64(spreadDays)/float64(tolerance)
		if agreement < 0 {
			agreement = 0
		}
		conf += cfg.DateWeight * agreement
	}

	if corroboration < 2 && conf > cfg.SingleSourceCap {
		conf = cfg.SingleSourceCap
	}
	if conf > 1.0 {
		conf = 1.0
	}
	if conf < 0 {
		conf = 0
	}
	return math.Round(conf*10000) / 10000
}

func minSources(cfg types.GraphConfig) int {
	if cfg.MinSources <= 0 {
		return 2
	}
	return cfg.MinSources
}
