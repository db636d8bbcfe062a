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

func TestZileanSearchMovie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dmm/filtered", r.URL.Path)
		assert.Equal(t, "The Matrix", r.URL.Query().Get("query"))
		assert.False(t, r.URL.Query().Has("season"))
		assert.False(t, r.URL.Query().Has("episode"))

		// size has been seen both as a number and as a string.
		w.Write([]byte(`[
			{"raw_title":"The.Matrix.1999.2160p","info_hash":"ABCDEF0123456789ABCDEF0123456789ABCDEF01","size":2000000000},
			{"raw_title":"The.Matrix.1999.1080p","info_hash":"abcdef0123456789abcdef0123456789abcdef02","size":"1500000000"}
		]`))
	}))
	defer srv.Close()

	s := NewZileanScraper(srv.URL, 500)
	results, err := s.Search(context.Background(), Request{MediaType: "movie", Name: "The Matrix"}, "")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", results[0].InfoHash)
	assert.Equal(t, "DMM", results[0].Tracker)
	assert.Equal(t, int64(2000000000), results[0].Size)
	assert.Equal(t, int64(1500000000), results[1].Size)
}

func TestZileanSearchSeriesParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("season"))
		assert.Equal(t, "4", r.URL.Query().Get("episode"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	s := NewZileanScraper(srv.URL, 500)
	_, err := s.Search(context.Background(), Request{MediaType: "series", Name: "Severance", Season: 2, Episode: 4}, "")
	require.NoError(t, err)
}

func TestZileanSearchTakeFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"raw_title":"a","info_hash":"aaa","size":1},
			{"raw_title":"b","info_hash":"bbb","size":1},
			{"raw_title":"c","info_hash":"ccc","size":1}
		]`))
	}))
	defer srv.Close()

	s := NewZileanScraper(srv.URL, 2)
	results, err := s.Search(context.Background(), Request{Name: "x"}, "")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Title)
	assert.Equal(t, "b", results[1].Title)
}
