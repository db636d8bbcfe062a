// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metadata resolves media ids to canonical titles. IMDb ids go
// through the public suggestion endpoint, Kitsu ids through the Kitsu API.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/cometstream/comet/internal/buildinfo"
	"github.com/cometstream/comet/internal/titles"
)

const (
	imdbSuggestionURL = "https://v3.sg.media-imdb.com/suggestion/a"
	kitsuAnimeURL     = "https://kitsu.io/api/edge/anime"
)

// Metadata is what a lookup yields: a normalized title and, for IMDb
// entries, the release year.
type Metadata struct {
	Name string
	Year int
}

// Client fetches titles from IMDb and Kitsu. Both endpoints are flaky enough
// that lookups retry a couple of times before giving up.
type Client struct {
	httpClient *http.Client

	// overridable in tests
	imdbBaseURL  string
	kitsuBaseURL string
}

func NewClient() *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		imdbBaseURL:  imdbSuggestionURL,
		kitsuBaseURL: kitsuAnimeURL,
	}
}

// NewClientWithEndpoints builds a client against alternate endpoints.
func NewClientWithEndpoints(imdbBaseURL, kitsuBaseURL string) *Client {
	c := NewClient()
	c.imdbBaseURL = strings.TrimRight(imdbBaseURL, "/")
	c.kitsuBaseURL = strings.TrimRight(kitsuBaseURL, "/")
	return c
}

type imdbSuggestion struct {
	D []struct {
		ID    string `json:"id"`
		Title string `json:"l"`
		Year  int    `json:"y"`
	} `json:"d"`
}

// GetIMDb looks up a movie or series title by its tt id.
func (c *Client) GetIMDb(ctx context.Context, imdbID string) (*Metadata, error) {
	endpoint := fmt.Sprintf("%s/%s.json", c.imdbBaseURL, imdbID)

	var payload imdbSuggestion
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("imdb lookup for %s: %w", imdbID, err)
	}

	// The suggestion endpoint sometimes ranks editorial pages ("/emmys",
	// "/imdbpicks/...") first; real titles never contain a slash.
	for _, entry := range payload.D {
		if strings.Contains(entry.ID, "/") {
			continue
		}
		return &Metadata{
			Name: titles.Normalize(entry.Title),
			Year: entry.Year,
		}, nil
	}

	return nil, fmt.Errorf("no title entry in imdb suggestions for %s", imdbID)
}

type kitsuAnime struct {
	Data struct {
		Attributes struct {
			CanonicalTitle string `json:"canonicalTitle"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetKitsu looks up an anime title by its Kitsu id. Kitsu entries map one id
// per season, so callers treat the result as season 1 and there is no year.
func (c *Client) GetKitsu(ctx context.Context, kitsuID string) (*Metadata, error) {
	endpoint := fmt.Sprintf("%s/%s", c.kitsuBaseURL, kitsuID)

	var payload kitsuAnime
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("kitsu lookup for %s: %w", kitsuID, err)
	}

	if payload.Data.Attributes.CanonicalTitle == "" {
		return nil, fmt.Errorf("no canonical title in kitsu response for %s", kitsuID)
	}

	return &Metadata{
		Name: titles.Normalize(payload.Data.Attributes.CanonicalTitle),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", buildinfo.UserAgent)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status %d", resp.StatusCode)
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			return nil
		},
		retry.Attempts(3),
		retry.Delay(250*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
