// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTorrentioSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream/series/tt1254207:1:5.json", r.URL.Path)
		w.Write([]byte(`{"streams":[
			{"title":"The.Show.S01E05.1080p.WEB-DL\n👤 42 💾 1.5 GB ⚙️ TorrentGalaxy","infoHash":"ABCDEF0123456789ABCDEF0123456789ABCDEF01"},
			{"title":"Bare title without metadata","infoHash":"abcdef0123456789abcdef0123456789abcdef02"}
		]}`))
	}))
	defer srv.Close()

	s := NewTorrentioScraper(srv.URL, "")
	results, err := s.Search(context.Background(), Request{
		MediaType: "series",
		MediaID:   "tt1254207:1:5",
	}, "")

	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "The.Show.S01E05.1080p.WEB-DL", results[0].Title)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", results[0].InfoHash)
	assert.Equal(t, "Torrentio|TorrentGalaxy", results[0].Tracker)

	assert.Equal(t, "Bare title without metadata", results[1].Title)
	assert.Equal(t, "Torrentio|?", results[1].Tracker)
}

func TestTorrentioSearchBlockedWithoutProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewTorrentioScraper(srv.URL, "")
	_, err := s.Search(context.Background(), Request{MediaType: "movie", MediaID: "tt0133093"}, "")
	assert.Error(t, err)
}

func TestSplitTorrentioTitle(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		expectedTitle   string
		expectedTracker string
	}{
		{
			name:            "full metadata",
			raw:             "Release.Name.1080p\n👤 10 💾 2 GB ⚙️ RARBG",
			expectedTitle:   "Release.Name.1080p",
			expectedTracker: "RARBG",
		},
		{
			name:            "tracker followed by newline",
			raw:             "Release.Name\n👤 10 ⚙️ YTS\nextra",
			expectedTitle:   "Release.Name",
			expectedTracker: "YTS",
		},
		{
			name:            "no metadata at all",
			raw:             "Just a title",
			expectedTitle:   "Just a title",
			expectedTracker: "?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, tracker := splitTorrentioTitle(tt.raw)
			assert.Equal(t, tt.expectedTitle, title)
			assert.Equal(t, tt.expectedTracker, tracker)
		})
	}
}
