// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJackettSearch(t *testing.T) {
	var (
		mu       sync.Mutex
		trackers []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2.0/indexers/all/results", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "The Matrix", r.URL.Query().Get("Query"))

		mu.Lock()
		trackers = append(trackers, r.URL.Query().Get("Tracker[]"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Results":[{"Title":"The.Matrix.1999.1080p","InfoHash":"ABCDEF0123456789ABCDEF0123456789ABCDEF01","Tracker":"SomeTracker","Size":2000000000,"Link":"http://jackett/dl/1"}]}`))
	}))
	defer srv.Close()

	s := NewJackettScraper(srv.URL, "secret", 5)
	results, err := s.Search(context.Background(), Request{
		Name:     "The Matrix",
		Indexers: []string{"some_tracker", "other_tracker"},
	}, "The Matrix")

	require.NoError(t, err)
	require.Len(t, results, 2, "one result per indexer")

	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", results[0].InfoHash)
	assert.Equal(t, "SomeTracker", results[0].Tracker)
	assert.Equal(t, int64(2000000000), results[0].Size)
	assert.Equal(t, "http://jackett/dl/1", results[0].Link)

	// underscores in user-selected indexer names become spaces.
	assert.ElementsMatch(t, []string{"some tracker", "other tracker"}, trackers)
}

func TestJackettSearchSkipsFailingIndexer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Tracker[]") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"Results":[{"Title":"ok","InfoHash":"aaa"}]}`))
	}))
	defer srv.Close()

	s := NewJackettScraper(srv.URL, "secret", 5)
	results, err := s.Search(context.Background(), Request{
		Indexers: []string{"broken", "healthy"},
	}, "query")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Title)
}
