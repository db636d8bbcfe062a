// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/buildinfo"
)

// JackettScraper queries a Jackett instance, one request per user-selected
// indexer.
type JackettScraper struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewJackettScraper(baseURL, apiKey string, timeoutSeconds int) *JackettScraper {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &JackettScraper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

func (s *JackettScraper) Name() string { return "jackett" }

type jackettResponse struct {
	Results []struct {
		Title    string `json:"Title"`
		InfoHash string `json:"InfoHash"`
		Tracker  string `json:"Tracker"`
		Size     int64  `json:"Size"`
		Link     string `json:"Link"`
	} `json:"Results"`
}

// Search fans out one request per indexer. Individual indexer failures are
// logged and skipped so a dead tracker can't empty the whole result set.
func (s *JackettScraper) Search(ctx context.Context, req Request, term string) ([]SearchResult, error) {
	indexers := make([]string, 0, len(req.Indexers))
	for _, indexer := range req.Indexers {
		indexers = append(indexers, strings.ReplaceAll(indexer, "_", " "))
	}

	var (
		mu      sync.Mutex
		results []SearchResult
		wg      sync.WaitGroup
	)

	for _, indexer := range indexers {
		wg.Add(1)
		go func(indexer string) {
			defer wg.Done()

			found, err := s.searchIndexer(ctx, indexer, term)
			if err != nil {
				log.Warn().
					Err(err).
					Str("indexer", indexer).
					Str("query", term).
					Msg("Jackett indexer search failed")
				return
			}

			mu.Lock()
			results = append(results, found...)
			mu.Unlock()
		}(indexer)
	}

	wg.Wait()

	return results, nil
}

func (s *JackettScraper) searchIndexer(ctx context.Context, indexer, term string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("apikey", s.apiKey)
	params.Set("Query", term)
	params.Set("Tracker[]", indexer)

	endpoint := fmt.Sprintf("%s/api/v2.0/indexers/all/results?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jackett request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jackett returned status %d", resp.StatusCode)
	}

	var payload jackettResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode jackett response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, SearchResult{
			Title:    r.Title,
			InfoHash: strings.ToLower(r.InfoHash),
			Tracker:  r.Tracker,
			Size:     r.Size,
			Link:     r.Link,
		})
	}

	return results, nil
}
