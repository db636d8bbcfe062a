// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/base64"
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
	"github.com/cometstream/comet/internal/userconfig"
)

const testHash = "abcdef0123456789abcdef0123456789abcdef01"

type stubSource struct {
	results []scraper.SearchResult
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Search(context.Context, scraper.Request, string) ([]scraper.SearchResult, error) {
	return s.results, nil
}

type fakeDebridClient struct {
	premium bool
	files   map[string]debrid.File
	link    string
	linkErr error
}

func (c *fakeDebridClient) CheckPremium(context.Context) bool { return c.premium }

func (c *fakeDebridClient) GetFiles(context.Context, []string, string, int, int, bool) map[string]debrid.File {
	return c.files
}

func (c *fakeDebridClient) GenerateDownloadLink(context.Context, string, string) (string, error) {
	return c.link, c.linkErr
}

func fakeFactory(client debrid.Client) DebridFactory {
	return func(service, apiKey, clientIP string) (debrid.Client, error) {
		return client, nil
	}
}

func encodeConfig(t *testing.T, cfg *userconfig.UserConfig) string {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func newTestStores(t *testing.T) (*models.SearchCacheStore, *models.DownloadLinkStore, *models.ActiveConnectionStore) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return models.NewSearchCacheStore(db.Conn(), time.Hour),
		models.NewDownloadLinkStore(db.Conn()),
		models.NewActiveConnectionStore(db.Conn())
}

func newMetadataStub(t *testing.T) *metadata.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"d":[{"id":"tt0133093","l":"The Matrix","y":1999}]}`))
	}))
	t.Cleanup(srv.Close)
	return metadata.NewClientWithEndpoints(srv.URL, srv.URL)
}

func streamRouter(h *StreamHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/{b64config}/stream/{mediaType}/{mediaID}", h.Get)
	return r
}

func getStreams(t *testing.T, router http.Handler, path string) stremio.StreamResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp stremio.StreamResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestStreamInvalidConfig(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, nil), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(nil))

	resp := getStreams(t, streamRouter(h), "/!!!/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "Invalid Comet config.", resp.Streams[0].Title)
	assert.Equal(t, "[⚠️] Comet", resp.Streams[0].Name)
}

func TestStreamNoDebridConfigured(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, nil), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(nil))

	b64 := encodeConfig(t, userconfig.Default())
	resp := getStreams(t, streamRouter(h), "/"+b64+"/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "No debrid service configured.", resp.Streams[0].Title)
}

func TestStreamInvalidAccount(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	client := &fakeDebridClient{premium: false}
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, nil), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(client))

	cfg := userconfig.Default()
	cfg.DebridService = "alldebrid"
	cfg.DebridAPIKey = "key"

	resp := getStreams(t, streamRouter(h), "/"+encodeConfig(t, cfg)+"/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "Invalid alldebrid account.\nCheck your email!", resp.Streams[0].Title)
}

func TestStreamNoResults(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	client := &fakeDebridClient{premium: true}
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, nil), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(client))

	cfg := userconfig.Default()
	cfg.DebridService = "realdebrid"
	cfg.DebridAPIKey = "key"

	resp := getStreams(t, streamRouter(h), "/"+encodeConfig(t, cfg)+"/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "No streams found!", resp.Streams[0].Title)
}

func TestStreamNoCachedFiles(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	source := &stubSource{results: []scraper.SearchResult{
		{Title: "The.Matrix.1999.1080p.BluRay.x264-GROUP", InfoHash: testHash, Tracker: "Test"},
	}}
	client := &fakeDebridClient{premium: true}
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, []scraper.Scraper{source}), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(client))

	cfg := userconfig.Default()
	cfg.DebridService = "realdebrid"
	cfg.DebridAPIKey = "key"

	resp := getStreams(t, streamRouter(h), "/"+encodeConfig(t, cfg)+"/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "No cached files found on realdebrid.", resp.Streams[0].Title)
}

func TestStreamHappyPath(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	source := &stubSource{results: []scraper.SearchResult{
		{Title: "The.Matrix.1999.1080p.BluRay.x264-GROUP", InfoHash: testHash, Tracker: "Test", Size: 2000000000},
	}}
	client := &fakeDebridClient{
		premium: true,
		files: map[string]debrid.File{
			testHash: {Title: "The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv", Size: 1600000000, Index: "1"},
		},
	}
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, []scraper.Scraper{source}), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(client))

	cfg := userconfig.Default()
	cfg.DebridService = "realdebrid"
	cfg.DebridAPIKey = "key"
	b64 := encodeConfig(t, cfg)

	resp := getStreams(t, streamRouter(h), "/"+b64+"/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	s := resp.Streams[0]
	assert.Equal(t, "[RD⚡] Comet 1080p", s.Name)
	assert.Contains(t, s.Title, "The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv")
	assert.Equal(t, "http://example.com/"+b64+"/playback/"+testHash+"/1", s.URL)
	require.NotNil(t, s.BehaviorHints)
	assert.Equal(t, "comet|"+testHash, s.BehaviorHints.BingeGroup)
	assert.Equal(t, int64(2000000000), s.TorrentSize)
}

func TestStreamNameMatchingFailedWarning(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	source := &stubSource{results: []scraper.SearchResult{
		{Title: "Completely.Unrelated.2005.1080p.WEB", InfoHash: testHash, Tracker: "Test"},
	}}
	client := &fakeDebridClient{
		premium: true,
		files: map[string]debrid.File{
			testHash: {Title: "Completely.Unrelated.2005.1080p.WEB.mkv", Size: 1000, Index: "0"},
		},
	}
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, []scraper.Scraper{source}), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(client))

	cfg := userconfig.Default()
	cfg.DebridService = "realdebrid"
	cfg.DebridAPIKey = "key"

	resp := getStreams(t, streamRouter(h), "/"+encodeConfig(t, cfg)+"/stream/movie/tt0133093.json")

	require.GreaterOrEqual(t, len(resp.Streams), 2)
	assert.Equal(t, "Name matching failed! Results may not be correct.", resp.Streams[0].Title)
}

func TestStreamServedFromCache(t *testing.T) {
	searchCache, _, _ := newTestStores(t)

	cfg := userconfig.Default()
	cfg.DebridService = "realdebrid"
	cfg.DebridAPIKey = "key"

	cached, err := json.Marshal([]map[string]any{{
		"infoHash":   testHash,
		"rawTitle":   "The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv",
		"title":      "The Matrix",
		"resolution": "1080p",
		"size":       int64(1600000000),
		"fileIndex":  "1",
	}})
	require.NoError(t, err)

	key := models.SearchCacheKey("realdebrid", "The Matrix", 0, 0, cfg.Indexers)
	require.NoError(t, searchCache.Put(context.Background(), key, cached))

	// the factory must never run on a cache hit
	factory := func(service, apiKey, clientIP string) (debrid.Client, error) {
		t.Fatal("debrid factory called on cache hit")
		return nil, nil
	}
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, nil), scraper.NewHashResolver(1), newMetadataStub(t), factory)

	resp := getStreams(t, streamRouter(h), "/"+encodeConfig(t, cfg)+"/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "[RD⚡] Comet 1080p", resp.Streams[0].Name)
}

func TestStreamCorruptCacheEntryFallsThroughToSearch(t *testing.T) {
	searchCache, _, _ := newTestStores(t)

	cfg := userconfig.Default()
	cfg.DebridService = "realdebrid"
	cfg.DebridAPIKey = "key"

	key := models.SearchCacheKey("realdebrid", "The Matrix", 0, 0, cfg.Indexers)
	require.NoError(t, searchCache.Put(context.Background(), key, []byte("{corrupt")))

	source := &stubSource{results: []scraper.SearchResult{
		{Title: "The.Matrix.1999.1080p.BluRay.x264-GROUP", InfoHash: testHash, Tracker: "Test"},
	}}
	client := &fakeDebridClient{
		premium: true,
		files: map[string]debrid.File{
			testHash: {Title: "The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv", Size: 1600000000, Index: "1"},
		},
	}
	h := NewStreamHandler(&domain.Config{}, searchCache, scraper.NewAggregator(nil, []scraper.Scraper{source}), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(client))

	resp := getStreams(t, streamRouter(h), "/"+encodeConfig(t, cfg)+"/stream/movie/tt0133093.json")

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "[RD⚡] Comet 1080p", resp.Streams[0].Name)
}

func TestStreamProxyPasswordWarning(t *testing.T) {
	searchCache, _, _ := newTestStores(t)
	source := &stubSource{results: []scraper.SearchResult{
		{Title: "The.Matrix.1999.1080p.BluRay.x264-GROUP", InfoHash: testHash, Tracker: "Test"},
	}}
	client := &fakeDebridClient{
		premium: true,
		files: map[string]debrid.File{
			testHash: {Title: "The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv", Size: 1000, Index: "1"},
		},
	}
	serverCfg := &domain.Config{
		ProxyDebridStream:         true,
		ProxyDebridStreamPassword: "right",
	}
	h := NewStreamHandler(serverCfg, searchCache, scraper.NewAggregator(nil, []scraper.Scraper{source}), scraper.NewHashResolver(1), newMetadataStub(t), fakeFactory(client))

	cfg := userconfig.Default()
	cfg.DebridService = "realdebrid"
	cfg.DebridAPIKey = "key"
	cfg.DebridStreamProxyPassword = "wrong"

	resp := getStreams(t, streamRouter(h), "/"+encodeConfig(t, cfg)+"/stream/movie/tt0133093.json")

	require.GreaterOrEqual(t, len(resp.Streams), 2)
	assert.Equal(t, "Debrid Stream Proxy Password incorrect.\nStreams will not be proxied.", resp.Streams[0].Title)
}
