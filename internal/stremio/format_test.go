// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stremio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cometstream/comet/internal/ranker"
	"github.com/cometstream/comet/internal/userconfig"
)

func sampleFile() ranker.RankedFile {
	return ranker.RankedFile{
		InfoHash:   "abcdef0123456789abcdef0123456789abcdef01",
		RawTitle:   "The.Matrix.1999.1080p.BluRay.x264-GROUP",
		Title:      "The Matrix",
		Resolution: "1080p",
		Quality:    "BluRay",
		Codec:      "x264",
		Group:      "GROUP",
		Size:       1600000000,
		Tracker:    "SomeTracker",
		Languages:  []string{"en", "fr"},
	}
}

func TestFormatTitleAllSections(t *testing.T) {
	cfg := userconfig.Default()

	out := FormatTitle(sampleFile(), cfg)

	assert.Contains(t, out, "The.Matrix.1999.1080p.BluRay.x264-GROUP\n")
	assert.Contains(t, out, "💿 BluRay|x264|GROUP")
	assert.Contains(t, out, "💾 1.49 GB")
	assert.Contains(t, out, "🔎 SomeTracker")
	assert.Contains(t, out, "🇬🇧/🇫🇷")
}

func TestFormatTitleSelectedSections(t *testing.T) {
	cfg := userconfig.Default()
	cfg.ResultFormat = []string{"Size", "Tracker"}

	out := FormatTitle(sampleFile(), cfg)

	assert.NotContains(t, out, "The.Matrix")
	assert.NotContains(t, out, "💿")
	assert.Contains(t, out, "💾 1.49 GB")
	assert.Contains(t, out, "🔎 SomeTracker")
}

func TestFormatTitleDubbedPrependsMulti(t *testing.T) {
	f := sampleFile()
	f.Dubbed = true

	out := FormatTitle(f, userconfig.Default())

	assert.Contains(t, out, "🌎/🇬🇧/🇫🇷")
}

func TestFormatTitleUnknownTracker(t *testing.T) {
	f := sampleFile()
	f.Tracker = ""

	out := FormatTitle(f, userconfig.Default())

	assert.Contains(t, out, "🔎 ?")
}

func TestFormatTitleEmptyFormat(t *testing.T) {
	cfg := userconfig.Default()
	cfg.ResultFormat = nil

	out := FormatTitle(sampleFile(), cfg)

	assert.Equal(t, "Empty result format configuration", out)
}

func TestLanguageEmoji(t *testing.T) {
	assert.Equal(t, "🇯🇵", LanguageEmoji("ja"))
	assert.Equal(t, "🇯🇵", LanguageEmoji("JA"))
	assert.Equal(t, "🌎", LanguageEmoji("multi"))
	assert.Equal(t, "xx", LanguageEmoji("xx"), "unmapped codes fall through")
}

func TestErrorStream(t *testing.T) {
	s := ErrorStream("No streams found!")

	assert.Equal(t, "[⚠️] Comet", s.Name)
	assert.Equal(t, "No streams found!", s.Title)
	assert.Equal(t, "https://comet.fast", s.URL)

	resp := ErrorResponse("No streams found!")
	assert.Len(t, resp.Streams, 1)
}

func TestGetManifest(t *testing.T) {
	m := GetManifest()

	assert.Equal(t, "stremio.comet.fast", m.ID)
	assert.Equal(t, []string{"stream"}, m.Resources)
	assert.Equal(t, []string{"movie", "series"}, m.Types)
	assert.Equal(t, []string{"tt", "kitsu"}, m.IDPrefixes)
	assert.True(t, m.BehaviorHints.Configurable)
	assert.False(t, m.BehaviorHints.ConfigurationRequired)
	assert.NotEmpty(t, m.Version)
	assert.False(t, strings.Contains(m.Version, "dev"))
}
