// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// bracketCue matches transcript lines like "[00:01:23] Host: welcome back".
var bracketCue = regexp.MustCompile(`^\[(\d{1,2}:\d{2}(?::\d{2})?(?:[.,]\d{1,3})?)\]\s*(.*)$`)

// rangeCue matches WebVTT/SRT cue timing lines like
// "00:00:01.000 --> 00:00:04.000".
var rangeCue = regexp.MustCompile(`^(\d{1,2}:\d{2}(?::\d{2})?(?:[.,]\d{1,3})?)\s+-->\s+\d`)

// looksLikeTranscript reports whether the body reads as a timestamped
// transcript: several early lines starting with a bracketed offset.
func looksLikeTranscript(body []byte) bool {
	lines := strings.Split(string(body), "\n")
	if len(lines) > 40 {
		lines = lines[:40]
	}
	hits := 0
	for _, line := range lines {
		if bracketCue.MatchString(strings.TrimSpace(line)) {
			hits++
			if hits >= 3 {
				return true
			}
		}
	}
	return false
}

// extractTranscript parses a transcript into timestamped units. Each unit
// keeps its offset in seconds so claim evidence can point back into the
// recording.
func extractTranscript(body []byte) types.Document {
	lines := strings.Split(string(body), "\n")

	var units []types.DocumentUnit
	var pending *types.DocumentUnit

	flush := func() {
		if pending != nil && strings.TrimSpace(pending.Text) != "" {
			pending.Text = strings.TrimSpace(pending.Text)
			units = append(units, *pending)
		}
		pending = nil
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if line == "" || line == "WEBVTT" || strings.HasPrefix(line, "NOTE") {
			flush()
			continue
		}
		// SRT sequence numbers stand alone before the cue timing.
		if _, err := strconv.Atoi(line); err == nil && pending == nil {
			continue
		}

		if m := rangeCue.FindStringSubmatch(line); m != nil {
			flush()
			offset, ok := parseTimestamp(m[1])
			if !ok {
				continue
			}
			pending = &types.DocumentUnit{Offset: offset}
			continue
		}

		if m := bracketCue.FindStringSubmatch(line); m != nil {
			flush()
			offset, ok := parseTimestamp(m[1])
			if !ok {
				continue
			}
			pending = &types.DocumentUnit{Offset: offset, Text: m[2]}
			continue
		}

		if pending != nil {
			if pending.Text != "" {
				pending.Text += " "
			}
			pending.Text += line
		}
	}
	flush()

	if len(units) == 0 {
		return types.Document{Empty: true, Reason: "no transcript cues found"}
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}
	return types.Document{
		Text:  strings.Join(texts, "\n"),
		Units: units,
	}
}

// parseTimestamp converts "hh:mm:ss.mmm", "mm:ss", and comma-millisecond
// variants to seconds.
func parseTimestamp(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ":")

	var h, m int
	var sec float64
	var err error
	switch len(parts) {
	case 3:
		if h, err = strconv.Atoi(parts[0]); err != nil {
			return 0, false
		}
		if m, err = strconv.Atoi(parts[1]); err != nil {
			return 0, false
		}
		if sec, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, false
		}
	case 2:
		if m, err = strconv.Atoi(parts[0]); err != nil {
			return 0, false
		}
		if sec, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + sec, true
}
