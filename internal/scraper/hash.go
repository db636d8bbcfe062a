// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cometstream/comet/internal/buildinfo"
)

// 16 MiB safety limit for torrent blobs
const maxTorrentDownloadBytes int64 = 16 << 20

var infoHashPattern = regexp.MustCompile(`\b([a-fA-F0-9]{40})\b`)

// HashResolver fetches torrent files to compute the info hashes of results
// that only carry a download link.
type HashResolver struct {
	httpClient *http.Client
}

func NewHashResolver(timeoutSeconds int) *HashResolver {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 5
	}
	return &HashResolver{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
			// Indexer download links often redirect to magnet URIs or
			// mirrors that embed the hash; the Location header alone is
			// enough, so redirects are not followed.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Resolve fills in missing info hashes in place, fetching each result's
// torrent file concurrently. Results whose hash cannot be determined keep an
// empty InfoHash; the caller filters them out. Only called when no result in
// the set carried a hash, since it is by far the slowest step.
func (r *HashResolver) Resolve(ctx context.Context, results []SearchResult) []SearchResult {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(32)

	resolved := make([]SearchResult, len(results))
	copy(resolved, results)

	for i := range resolved {
		if resolved[i].InfoHash != "" || resolved[i].Link == "" {
			continue
		}

		i := i
		g.Go(func() error {
			hash, err := r.fetchHash(ctx, resolved[i].Link)
			if err != nil {
				log.Warn().
					Err(err).
					Str("tracker", resolved[i].Tracker).
					Str("link", resolved[i].Link).
					Msg("Failed to resolve torrent info hash")
				return nil
			}
			resolved[i].InfoHash = hash
			return nil
		})
	}

	g.Wait()

	return resolved
}

// WithHashes filters to results that carry an info hash.
func WithHashes(results []SearchResult) []SearchResult {
	var out []SearchResult
	for _, r := range results {
		if r.InfoHash != "" {
			out = append(out, r)
		}
	}
	return out
}

func (r *HashResolver) fetchHash(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("torrent download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		mi, err := metainfo.Load(io.LimitReader(resp.Body, maxTorrentDownloadBytes))
		if err != nil {
			return "", fmt.Errorf("failed to parse torrent file: %w", err)
		}
		return strings.ToLower(mi.HashInfoBytes().HexString()), nil
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if location == "" {
			return "", fmt.Errorf("redirect without location from %s", link)
		}
		match := infoHashPattern.FindStringSubmatch(location)
		if match == nil {
			return "", fmt.Errorf("no info hash in redirect location %q", location)
		}
		return strings.ToLower(match[1]), nil
	}

	return "", fmt.Errorf("torrent download returned status %d", resp.StatusCode)
}
