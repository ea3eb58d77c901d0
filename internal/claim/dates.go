// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claim

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// absoluteLayouts are the formats tried for absolute date mentions, most
// specific first. Coarser mentions resolve to the start of their period.
var absoluteLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

// ParseClaimDate resolves a date mention to a concrete date. Absolute
// mentions parse on their own. Relative mentions ("last year", "two months
// ago") resolve against the source's published date; when that is unknown
// the claim stays undated rather than guessing.
func ParseClaimDate(mention string, published *time.Time) *time.Time {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, mention); err == nil {
			t = t.UTC()
			return &t
		}
	}

	if published == nil {
		return nil
	}
	return resolveRelative(strings.ToLower(mention), published.UTC())
}

// agoPattern matches mentions like "3 years ago" or "two months ago".
var agoPattern = regexp.MustCompile(`^(?:about |around |some )?(\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s+(day|week|month|year)s?\s+(?:ago|earlier|before)$`)

var wordNumbers = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12,
}

// resolveRelative maps a lowercased relative mention to a date anchored at
// the published date. Unrecognized mentions return nil.
func resolveRelative(mention string, anchor time.Time) *time.Time {
	switch mention {
	case "today":
		return &anchor
	case "yesterday":
		t := anchor.AddDate(0, 0, -1)
		return &t
	case "last week", "a week ago":
		t := anchor.AddDate(0, 0, -7)
		return &t
	case "last month", "a month ago":
		t := anchor.AddDate(0, -1, 0)
		return &t
	case "last year", "a year ago":
		t := anchor.AddDate(-1, 0, 0)
		return &t
	case "this year", "earlier this year":
		t := time.Date(anchor.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return &t
	case "this month", "earlier this month":
		t := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		return &t
	}

	if m := agoPattern.FindStringSubmatch(mention); m != nil {
		n, ok := wordNumbers[m[1]]
		if !ok {
			var err error
			n, err = strconv.Atoi(m[1])
			if err != nil {
				return nil
			}
		}
		var t time.Time
		switch m[2] {
		case "day":
			t = anchor.AddDate(0, 0, -n)
		case "week":
			t = anchor.AddDate(0, 0, -7*n)
		case "month":
			t = anchor.AddDate(0, -n, 0)
		case "year":
			t = anchor.AddDate(-n, 0, 0)
		}
		return &t
	}

	if month, ok := parseBareMonth(mention); ok {
		year := anchor.Year()
		// A bare month mention refers to the most recent such month.
		if month > anchor.Month() {
			year--
		}
		t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}

	return nil
}

// parseBareMonth recognizes "in march", "last march", or a bare month name.
func parseBareMonth(mention string) (time.Month, bool) {
	mention = strings.TrimPrefix(mention, "in ")
	mention = strings.TrimPrefix(mention, "last ")
	mention = strings.TrimSpace(mention)

	for m := time.January; m <= time.December; m++ {
		if mention == strings.ToLower(m.String()) {
			return m, true
		}
	}
	return 0, false
}
