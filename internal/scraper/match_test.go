// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesTitle(t *testing.T) {
	tests := []struct {
		name     string
		rawTitle string
		wanted   string
		year     int
		expected bool
	}{
		{
			name:     "exact title with matching year",
			rawTitle: "The.Matrix.1999.1080p.BluRay.x264-GROUP",
			wanted:   "The Matrix",
			year:     1999,
			expected: true,
		},
		{
			name:     "year mismatch rejected",
			rawTitle: "The.Matrix.1999.1080p.BluRay.x264-GROUP",
			wanted:   "The Matrix",
			year:     2003,
			expected: false,
		},
		{
			name:     "release without year passes year check",
			rawTitle: "The Matrix 1080p WEB-DL",
			wanted:   "The Matrix",
			year:     1999,
			expected: true,
		},
		{
			name:     "no wanted year disables year check",
			rawTitle: "The.Matrix.1999.1080p",
			wanted:   "The Matrix",
			year:     0,
			expected: true,
		},
		{
			name:     "apostrophe dropped in release name",
			rawTitle: "Dont.Look.Up.2021.2160p.WEB.H265-GROUP",
			wanted:   "Don't Look Up",
			year:     2021,
			expected: true,
		},
		{
			name:     "minor misspelling within fuzzy threshold",
			rawTitle: "The.Matrx.1999.1080p.BluRay",
			wanted:   "The Matrix",
			year:     1999,
			expected: true,
		},
		{
			name:     "different title rejected",
			rawTitle: "Inception.2010.720p.BluRay.x264",
			wanted:   "Interstellar",
			year:     0,
			expected: false,
		},
		{
			name:     "empty wanted name never matches",
			rawTitle: "The.Matrix.1999.1080p",
			wanted:   "",
			year:     0,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchesTitle(tt.rawTitle, tt.wanted, tt.year))
		})
	}
}

func TestNormalizeForComparison(t *testing.T) {
	assert.Equal(t, "dont look up", normalizeForComparison("Don't.Look-Up"))
	assert.Equal(t, "amelie", normalizeForComparison("Amélie"))
	assert.Equal(t, "blade runner 2049", normalizeForComparison("  Blade   Runner:  2049 "))
}
