// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cometstream/comet/internal/buildinfo"
)

// ProwlarrScraper queries a Prowlarr instance: it looks up the numeric ids of
// the user-selected indexers, then runs a single search filtered to them.
type ProwlarrScraper struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewProwlarrScraper(baseURL, apiKey string, timeoutSeconds int) *ProwlarrScraper {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &ProwlarrScraper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

func (s *ProwlarrScraper) Name() string { return "prowlarr" }

type prowlarrIndexer struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	DefinitionName string `json:"definitionName"`
}

type prowlarrResult struct {
	Title       string `json:"title"`
	InfoHash    string `json:"infoHash"`
	Indexer     string `json:"indexer"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

func (s *ProwlarrScraper) Search(ctx context.Context, req Request, term string) ([]SearchResult, error) {
	wanted := make(map[string]struct{}, len(req.Indexers))
	for _, indexer := range req.Indexers {
		wanted[strings.ToLower(strings.ReplaceAll(indexer, "_", " "))] = struct{}{}
	}

	indexerIDs, err := s.lookupIndexerIDs(ctx, wanted)
	if err != nil {
		return nil, err
	}
	if len(indexerIDs) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", term)
	params.Set("type", "search")
	for _, id := range indexerIDs {
		params.Add("indexerIds", strconv.Itoa(id))
	}

	endpoint := fmt.Sprintf("%s/api/v1/search?%s", s.baseURL, params.Encode())

	var payload []prowlarrResult
	if err := s.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(payload))
	for _, r := range payload {
		results = append(results, SearchResult{
			Title:    r.Title,
			InfoHash: strings.ToLower(r.InfoHash),
			Tracker:  r.Indexer,
			Size:     r.Size,
			Link:     r.DownloadURL,
		})
	}

	return results, nil
}

func (s *ProwlarrScraper) lookupIndexerIDs(ctx context.Context, wanted map[string]struct{}) ([]int, error) {
	var indexers []prowlarrIndexer
	if err := s.getJSON(ctx, s.baseURL+"/api/v1/indexer", &indexers); err != nil {
		return nil, err
	}

	var ids []int
	for _, indexer := range indexers {
		if _, ok := wanted[strings.ToLower(indexer.Name)]; ok {
			ids = append(ids, indexer.ID)
			continue
		}
		if _, ok := wanted[strings.ToLower(indexer.DefinitionName)]; ok {
			ids = append(ids, indexer.ID)
		}
	}

	return ids, nil
}

func (s *ProwlarrScraper) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.apiKey)
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("prowlarr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prowlarr returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode prowlarr response: %w", err)
	}

	return nil
}
