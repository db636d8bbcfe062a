// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/debrid"
	"github.com/cometstream/comet/internal/domain"
	"github.com/cometstream/comet/internal/metadata"
	"github.com/cometstream/comet/internal/models"
	"github.com/cometstream/comet/internal/ranker"
	"github.com/cometstream/comet/internal/scraper"
	"github.com/cometstream/comet/internal/stremio"
	"github.com/cometstream/comet/internal/userconfig"
)

// DebridFactory builds a provider client for a user's service and key.
// clientIP is empty when the server will proxy the stream itself.
type DebridFactory func(service, apiKey, clientIP string) (debrid.Client, error)

type StreamHandler struct {
	config         *domain.Config
	searchCache    *models.SearchCacheStore
	aggregator     *scraper.Aggregator
	hashResolver   *scraper.HashResolver
	metadataClient *metadata.Client
	debridFactory  DebridFactory
}

func NewStreamHandler(
	config *domain.Config,
	searchCache *models.SearchCacheStore,
	aggregator *scraper.Aggregator,
	hashResolver *scraper.HashResolver,
	metadataClient *metadata.Client,
	debridFactory DebridFactory,
) *StreamHandler {
	return &StreamHandler{
		config:         config,
		searchCache:    searchCache,
		aggregator:     aggregator,
		hashResolver:   hashResolver,
		metadataClient: metadataClient,
		debridFactory:  debridFactory,
	}
}

// Get resolves a media id into ranked stream descriptors. Every user-facing
// failure is a 200 with a single synthetic stream entry carrying the message,
// because that is the only error channel Stremio clients render.
func (h *StreamHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := userconfig.Decode(chi.URLParam(r, "b64config"))
	if err != nil {
		writeJSON(w, http.StatusOK, stremio.ErrorResponse("Invalid Comet config."))
		return
	}

	mediaType := chi.URLParam(r, "mediaType")
	mediaID := strings.TrimSuffix(chi.URLParam(r, "mediaID"), ".json")

	req, err := h.buildRequest(ctx, mediaType, mediaID, cfg)
	if err != nil {
		log.Warn().Err(err).Str("id", mediaID).Msg("Metadata lookup failed")
		writeJSON(w, http.StatusOK, stremio.ErrorResponse(fmt.Sprintf("Can't get metadata for %s", mediaID)))
		return
	}

	// Users of the stream proxy can omit their own debrid account and ride
	// on the server's default one.
	if h.config.ProxyDebridStream &&
		h.config.ProxyDebridStreamPassword == cfg.DebridStreamProxyPassword &&
		cfg.DebridAPIKey == "" {
		cfg.DebridService = h.config.ProxyDebridStreamDefaultService
		cfg.DebridAPIKey = h.config.ProxyDebridStreamDefaultAPIKey
	}

	cacheKey := models.SearchCacheKey(cfg.DebridService, req.Name, req.Season, req.Episode, cfg.Indexers)

	if cached, ok, err := h.searchCache.Get(ctx, cacheKey); err == nil && ok {
		var sorted []ranker.RankedFile
		if err := json.Unmarshal(cached, &sorted); err != nil {
			log.Warn().Err(err).Str("cacheKey", cacheKey).Msg("Discarding undecodable cache entry")
		} else {
			log.Info().Str("media", req.LogName()).Msg("Serving cached results")
			writeJSON(w, http.StatusOK, h.buildResponse(r, cfg, sorted, true))
			return
		}
	}

	if !cfg.UsesDebrid() {
		writeJSON(w, http.StatusOK, stremio.ErrorResponse("No debrid service configured."))
		return
	}

	client, err := h.debridFactory(cfg.DebridService, cfg.DebridAPIKey, clientIP(r))
	if err != nil {
		writeJSON(w, http.StatusOK, stremio.ErrorResponse(fmt.Sprintf("Unsupported debrid service %s.", cfg.DebridService)))
		return
	}

	if !client.CheckPremium(ctx) {
		msg := fmt.Sprintf("Invalid %s account.", cfg.DebridService)
		if cfg.DebridService == "alldebrid" {
			msg += "\nCheck your email!"
		}
		writeJSON(w, http.StatusOK, stremio.ErrorResponse(msg))
		return
	}

	results := h.aggregator.Scrape(ctx, req)
	all, matched := scraper.Match(results, req.Name, req.Year)

	log.Info().
		Int("found", len(all)).
		Int("matched", len(matched)).
		Str("media", req.LogName()).
		Strs("sources", h.aggregator.Sources()).
		Msg("Search complete")

	nameMatchingSucceeded := len(matched) > 0
	candidates := matched
	if !nameMatchingSucceeded {
		candidates = all
	}
	if len(candidates) == 0 {
		writeJSON(w, http.StatusOK, stremio.ErrorResponse("No streams found!"))
		return
	}

	// Hash resolution means one HTTP round trip per torrent; skip it
	// entirely when any source already supplied hashes.
	withHashes := scraper.WithHashes(candidates)
	if len(withHashes) == 0 {
		withHashes = scraper.WithHashes(h.hashResolver.Resolve(ctx, candidates))
	}
	if len(withHashes) == 0 {
		writeJSON(w, http.StatusOK, stremio.ErrorResponse("No streams found!"))
		return
	}

	hashes := make([]string, 0, len(withHashes))
	byHash := make(map[string]scraper.SearchResult, len(withHashes))
	for _, result := range withHashes {
		if _, ok := byHash[result.InfoHash]; ok {
			continue
		}
		byHash[result.InfoHash] = result
		hashes = append(hashes, result.InfoHash)
	}

	files := client.GetFiles(ctx, hashes, mediaType, req.Season, req.Episode, req.Kitsu)
	if len(files) == 0 {
		writeJSON(w, http.StatusOK, stremio.ErrorResponse(fmt.Sprintf("No cached files found on %s.", cfg.DebridService)))
		return
	}

	var ranked []ranker.RankedFile
	for hash, file := range files {
		rf, err := ranker.Rank(file.Title, hash)
		if err != nil {
			continue
		}

		source := byHash[hash]
		rf.Size = file.Size
		rf.FileIndex = file.Index
		rf.TorrentTitle = source.Title
		rf.Tracker = source.Tracker
		rf.TorrentSize = source.Size
		if rf.TorrentSize == 0 {
			rf.TorrentSize = file.Size
		}
		ranked = append(ranked, rf)
	}

	sorted := ranker.Sort(ranked)

	log.Info().
		Int("count", len(sorted)).
		Str("service", cfg.DebridService).
		Str("media", req.LogName()).
		Msg("Cached files ranked")

	h.storeResults(cacheKey, sorted, req.LogName())

	resp := h.buildResponse(r, cfg, sorted, nameMatchingSucceeded)
	writeJSON(w, http.StatusOK, resp)
}

// storeResults writes the ranked set to the cache without blocking the
// response. First writer wins on concurrent identical requests.
func (h *StreamHandler) storeResults(cacheKey string, sorted []ranker.RankedFile, logName string) {
	if len(sorted) == 0 {
		return
	}

	blob, err := json.Marshal(sorted)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode results for caching")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := h.searchCache.Put(ctx, cacheKey, blob); err != nil {
			log.Warn().Err(err).Str("media", logName).Msg("Failed to cache results")
			return
		}
		log.Debug().Str("media", logName).Msg("Results cached")
	}()
}

func (h *StreamHandler) buildRequest(ctx context.Context, mediaType, mediaID string, cfg *userconfig.UserConfig) (scraper.Request, error) {
	req := scraper.Request{
		MediaType: mediaType,
		MediaID:   mediaID,
		Indexers:  cfg.Indexers,
	}

	id := mediaID
	if mediaType == "series" {
		parts := strings.Split(mediaID, ":")
		if len(parts) != 3 {
			return req, fmt.Errorf("malformed series id %q", mediaID)
		}
		id = parts[0]
		season, err := strconv.Atoi(parts[1])
		if err != nil {
			return req, fmt.Errorf("malformed season in %q: %w", mediaID, err)
		}
		episode, err := strconv.Atoi(parts[2])
		if err != nil {
			return req, fmt.Errorf("malformed episode in %q: %w", mediaID, err)
		}
		req.Season = season
		req.Episode = episode
	}

	if id == "kitsu" {
		// Kitsu ids look like kitsu:44042:2 where the middle part is the
		// anime id, not a season. Kitsu maps one entry per season.
		req.Kitsu = true
		meta, err := h.metadataClient.GetKitsu(ctx, strconv.Itoa(req.Season))
		if err != nil {
			return req, err
		}
		req.Name = meta.Name
		req.Season = 1
		return req, nil
	}

	meta, err := h.metadataClient.GetIMDb(ctx, id)
	if err != nil {
		return req, err
	}
	req.Name = meta.Name
	req.Year = meta.Year

	return req, nil
}

// buildResponse balances the sorted set under the user's constraints and
// renders stream descriptors, prepending warning entries where needed.
func (h *StreamHandler) buildResponse(r *http.Request, cfg *userconfig.UserConfig, sorted []ranker.RankedFile, nameMatchingSucceeded bool) stremio.StreamResponse {
	balanced := ranker.Balance(sorted, ranker.BalanceOptions{
		MaxResults:  cfg.MaxResults,
		MaxSize:     cfg.MaxSize,
		Resolutions: cfg.Resolutions,
		Languages:   cfg.Languages,
	})
	selected := ranker.Selected(balanced)

	var streams []stremio.Stream

	if cfg.DebridStreamProxyPassword != "" &&
		h.config.ProxyDebridStream &&
		h.config.ProxyDebridStreamPassword != cfg.DebridStreamProxyPassword {
		streams = append(streams, stremio.ErrorStream("Debrid Stream Proxy Password incorrect.\nStreams will not be proxied."))
	}

	if !nameMatchingSucceeded {
		streams = append(streams, stremio.ErrorStream("Name matching failed! Results may not be correct."))
	}

	extension := debrid.Extension(cfg.DebridService)
	base := requestBaseURL(r)
	b64config := chi.URLParam(r, "b64config")

	for _, f := range sorted {
		if _, ok := selected[f.InfoHash]; !ok {
			continue
		}

		streams = append(streams, stremio.Stream{
			Name:         fmt.Sprintf("[%s⚡] Comet %s", extension, f.Resolution),
			Title:        stremio.FormatTitle(f, cfg),
			TorrentTitle: f.TorrentTitle,
			TorrentSize:  f.TorrentSize,
			URL:          fmt.Sprintf("%s/%s/playback/%s/%s", base, b64config, f.InfoHash, f.FileIndex),
			BehaviorHints: &stremio.BehaviorHints{
				Filename:   f.RawTitle,
				BingeGroup: "comet|" + f.InfoHash,
			},
		})
	}

	return stremio.StreamResponse{Streams: streams}
}
