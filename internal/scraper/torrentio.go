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
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/buildinfo"
)

// TorrentioScraper queries the public Torrentio addon by media id. Torrentio
// aggressively blocks datacenter IPs, so when the direct request fails and a
// secondary proxy is configured the request is retried through it.
type TorrentioScraper struct {
	baseURL     string
	httpClient  *http.Client
	proxyClient *http.Client
}

func NewTorrentioScraper(baseURL, proxyURL string) *TorrentioScraper {
	s := &TorrentioScraper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			s.proxyClient = &http.Client{
				Timeout:   30 * time.Second,
				Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
			}
		} else {
			log.Warn().Err(err).Msg("Invalid debrid proxy URL, Torrentio retries disabled")
		}
	}

	return s
}

func (s *TorrentioScraper) Name() string { return "torrentio" }

type torrentioResponse struct {
	Streams []struct {
		Title    string `json:"title"`
		InfoHash string `json:"infoHash"`
	} `json:"streams"`
}

func (s *TorrentioScraper) Search(ctx context.Context, req Request, _ string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/stream/%s/%s.json", s.baseURL, req.MediaType, req.MediaID)

	payload, err := s.fetch(ctx, s.httpClient, endpoint)
	if err != nil && s.proxyClient != nil {
		log.Debug().Err(err).Msg("Direct Torrentio request failed, retrying through proxy")
		payload, err = s.fetch(ctx, s.proxyClient, endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("torrentio request failed (IP may be blocked): %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Streams))
	for _, stream := range payload.Streams {
		title, tracker := splitTorrentioTitle(stream.Title)
		results = append(results, SearchResult{
			Title:    title,
			InfoHash: strings.ToLower(stream.InfoHash),
			Tracker:  "Torrentio|" + tracker,
		})
	}

	return results, nil
}

func (s *TorrentioScraper) fetch(ctx context.Context, client *http.Client, endpoint string) (*torrentioResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torrentio returned status %d", resp.StatusCode)
	}

	var payload torrentioResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode torrentio response: %w", err)
	}

	return &payload, nil
}

// splitTorrentioTitle unpacks Torrentio's emoji-delimited description field:
// the release name comes before "\n👤" and the source tracker after "⚙️ ".
func splitTorrentioTitle(raw string) (title, tracker string) {
	title = raw
	if idx := strings.Index(raw, "\n👤"); idx >= 0 {
		title = raw[:idx]
	}

	tracker = "?"
	if _, after, ok := strings.Cut(raw, "⚙️ "); ok {
		tracker = after
		if idx := strings.IndexByte(tracker, '\n'); idx >= 0 {
			tracker = tracker[:idx]
		}
	}

	return title, tracker
}
