// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometstream/comet/internal/database"
	"github.com/cometstream/comet/internal/debrid"
	"github.com/cometstream/comet/internal/domain"
	"github.com/cometstream/comet/internal/metadata"
	"github.com/cometstream/comet/internal/models"
	"github.com/cometstream/comet/internal/scraper"
	"github.com/cometstream/comet/internal/stremio"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewServer(&Dependencies{
		Config:            &domain.Config{Host: "localhost", Port: 0},
		SearchCache:       models.NewSearchCacheStore(db.Conn(), time.Hour),
		DownloadLinks:     models.NewDownloadLinkStore(db.Conn()),
		ActiveConnections: models.NewActiveConnectionStore(db.Conn()),
		Aggregator:        scraper.NewAggregator(nil, nil),
		HashResolver:      scraper.NewHashResolver(1),
		MetadataClient:    metadata.NewClient(),
		DebridFactory:     debrid.New,
	})
}

func TestRouterRegistersAllRoutes(t *testing.T) {
	handler := newTestServer(t).Handler()

	expected := map[string][]string{
		"/health":                                    {http.MethodGet},
		"/manifest.json":                             {http.MethodGet},
		"/{b64config}/manifest.json":                 {http.MethodGet},
		"/stream/{mediaType}/{mediaID}":              {http.MethodGet},
		"/{b64config}/stream/{mediaType}/{mediaID}":  {http.MethodGet},
		"/active-connections":                        {http.MethodGet},
		"/{b64config}/playback/{hash}/{index}":       {http.MethodHead, http.MethodGet},
	}

	found := make(map[string]map[string]bool)
	err := chi.Walk(handler, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if found[route] == nil {
			found[route] = make(map[string]bool)
		}
		found[route][method] = true
		return nil
	})
	require.NoError(t, err)

	for route, methods := range expected {
		require.Contains(t, found, route)
		for _, method := range methods {
			assert.True(t, found[route][method], "%s %s not registered", method, route)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestManifestEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var m stremio.Manifest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	assert.Equal(t, "stremio.comet.fast", m.ID)
	assert.Equal(t, []string{"movie", "series"}, m.Types)
}

func TestCORSHeaders(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/manifest.json", nil)
	req.Header.Set("Origin", "https://app.strem.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.strem.io", rec.Header().Get("Access-Control-Allow-Origin"))
}
