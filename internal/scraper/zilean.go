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

	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/buildinfo"
)

// ZileanScraper queries a Zilean (Debrid Media Manager) instance. Zilean
// aggregates hashes itself, so a single filtered query per request is enough
// and every result already carries its info hash.
type ZileanScraper struct {
	baseURL    string
	takeFirst  int
	httpClient *http.Client
}

func NewZileanScraper(baseURL string, takeFirst int) *ZileanScraper {
	if takeFirst <= 0 {
		takeFirst = 500
	}
	return &ZileanScraper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		takeFirst:  takeFirst,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ZileanScraper) Name() string { return "zilean" }

// Zilean has shipped size as both a JSON number and a string; json.Number
// accepts either.
type zileanResult struct {
	RawTitle string      `json:"raw_title"`
	InfoHash string      `json:"info_hash"`
	Size     json.Number `json:"size"`
}

func (s *ZileanScraper) Search(ctx context.Context, req Request, _ string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", req.Name)
	if req.Season > 0 {
		params.Set("season", strconv.Itoa(req.Season))
		params.Set("episode", strconv.Itoa(req.Episode))
	}

	endpoint := fmt.Sprintf("%s/dmm/filtered?%s", s.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("zilean request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zilean returned status %d", resp.StatusCode)
	}

	var payload []zileanResult
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode zilean response: %w", err)
	}

	if len(payload) > s.takeFirst {
		payload = payload[:s.takeFirst]
	}

	results := make([]SearchResult, 0, len(payload))
	for _, r := range payload {
		size, _ := r.Size.Int64()
		results = append(results, SearchResult{
			Title:    r.RawTitle,
			InfoHash: strings.ToLower(r.InfoHash),
			Tracker:  "DMM",
			Size:     size,
		})
	}

	log.Debug().Int("count", len(results)).Str("media", req.LogName()).Msg("Zilean results")

	return results, nil
}
