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

func TestProwlarrSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		switch r.URL.Path {
		case "/api/v1/indexer":
			w.Write([]byte(`[
				{"id":1,"name":"Some Tracker","definitionName":"sometracker"},
				{"id":2,"name":"Unselected","definitionName":"unselected"},
				{"id":3,"name":"ByDefinition","definitionName":"other tracker"}
			]`))
		case "/api/v1/search":
			assert.Equal(t, "The Matrix", r.URL.Query().Get("query"))
			assert.Equal(t, "search", r.URL.Query().Get("type"))
			assert.ElementsMatch(t, []string{"1", "3"}, r.URL.Query()["indexerIds"])
			w.Write([]byte(`[{"title":"The.Matrix.1999.1080p","infoHash":"ABCDEF0123456789ABCDEF0123456789ABCDEF01","indexer":"Some Tracker","size":2000000000,"downloadUrl":"http://prowlarr/dl/1"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s := NewProwlarrScraper(srv.URL, "secret", 5)
	results, err := s.Search(context.Background(), Request{
		Indexers: []string{"some_tracker", "other_tracker"},
	}, "The Matrix")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", results[0].InfoHash)
	assert.Equal(t, "Some Tracker", results[0].Tracker)
	assert.Equal(t, "http://prowlarr/dl/1", results[0].Link)
}

func TestProwlarrSearchNoMatchingIndexers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/indexer", r.URL.Path, "search should not run without indexer ids")
		w.Write([]byte(`[{"id":1,"name":"Other","definitionName":"other"}]`))
	}))
	defer srv.Close()

	s := NewProwlarrScraper(srv.URL, "secret", 5)
	results, err := s.Search(context.Background(), Request{
		Indexers: []string{"nonexistent"},
	}, "query")

	require.NoError(t, err)
	assert.Empty(t, results)
}
