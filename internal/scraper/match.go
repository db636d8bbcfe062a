// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/moistari/rls"

	"github.com/cometstream/comet/internal/titles"
)

// MatchesTitle reports whether a release title is plausibly the wanted media.
// The release name is parsed out of the raw title, then compared fuzzily so
// dot notation, dropped apostrophes and minor spelling differences still
// match. When the metadata supplies a year, a year parsed from the release
// must agree; releases without a parsed year are given the benefit of the
// doubt.
func MatchesTitle(rawTitle, wantedName string, year int) bool {
	release := rls.ParseString(rawTitle)

	got := normalizeForComparison(release.Title)
	want := normalizeForComparison(wantedName)
	if got == "" || want == "" {
		return false
	}

	if year > 0 && release.Year > 0 && release.Year != year {
		return false
	}

	if got == want {
		return true
	}

	dist := fuzzy.LevenshteinDistance(got, want)
	longest := len(got)
	if len(want) > longest {
		longest = len(want)
	}
	ratio := 1 - float64(dist)/float64(longest)

	return ratio >= 0.85
}

func normalizeForComparison(title string) string {
	title = titles.Normalize(strings.ToLower(strings.TrimSpace(title)))

	title = strings.ReplaceAll(title, "'", "")
	title = strings.ReplaceAll(title, "’", "")
	title = strings.ReplaceAll(title, "`", "")
	title = strings.ReplaceAll(title, ":", "")
	title = strings.ReplaceAll(title, "-", " ")
	title = strings.ReplaceAll(title, ".", " ")

	return strings.Join(strings.Fields(title), " ")
}
