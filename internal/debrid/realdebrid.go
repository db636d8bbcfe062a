// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/moistari/rls"
	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/buildinfo"
	"github.com/cometstream/comet/internal/titles"
)

const realDebridAPI = "https://api.real-debrid.com/rest/1.0"

// RealDebrid implements Client against the Real-Debrid REST API.
type RealDebrid struct {
	apiKey     string
	clientIP   string
	baseURL    string
	httpClient *http.Client
}

func NewRealDebrid(apiKey, clientIP string) *RealDebrid {
	return &RealDebrid{
		apiKey:     apiKey,
		clientIP:   clientIP,
		baseURL:    realDebridAPI,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (rd *RealDebrid) CheckPremium(ctx context.Context) bool {
	var user struct {
		Type    string `json:"type"`
		Premium int    `json:"premium"`
	}

	if err := rd.getJSON(ctx, "/user", &user); err != nil {
		log.Warn().Err(err).Msg("Real-Debrid account check failed")
		return false
	}

	return user.Type == "premium" || user.Premium > 0
}

// instantAvailability payload: hash -> {"rd": [ {fileID: {filename, filesize}}, ... ]}
type rdAvailabilityFile struct {
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
}

func (rd *RealDebrid) GetFiles(ctx context.Context, hashes []string, mediaType string, season, episode int, kitsu bool) map[string]File {
	files := make(map[string]File)
	if len(hashes) == 0 {
		return files
	}

	var availability map[string]struct {
		RD []map[string]rdAvailabilityFile `json:"rd"`
	}

	endpoint := "/torrents/instantAvailability/" + strings.Join(hashes, "/")
	if err := rd.getJSON(ctx, endpoint, &availability); err != nil {
		log.Warn().Err(err).Msg("Real-Debrid availability check failed")
		return files
	}

	for hash, entry := range availability {
		hash = strings.ToLower(hash)
		for _, variant := range entry.RD {
			for index, f := range variant {
				if !titles.IsVideo(f.Filename) {
					continue
				}
				if mediaType == "series" && !matchesEpisode(f.Filename, season, episode, kitsu) {
					continue
				}

				// Prefer the largest matching file per hash.
				if existing, ok := files[hash]; ok && existing.Size >= f.Filesize {
					continue
				}
				files[hash] = File{
					Title: f.Filename,
					Size:  f.Filesize,
					Index: index,
				}
			}
		}
	}

	return files
}

func matchesEpisode(filename string, season, episode int, kitsu bool) bool {
	release := rls.ParseString(filename)
	if kitsu {
		return release.Episode == episode
	}
	return release.Series == season && release.Episode == episode
}

func (rd *RealDebrid) GenerateDownloadLink(ctx context.Context, hash, index string) (string, error) {
	torrentID, err := rd.addMagnet(ctx, hash)
	if err != nil {
		return "", err
	}

	if err := rd.postForm(ctx, "/torrents/selectFiles/"+torrentID, url.Values{"files": {index}}, nil); err != nil {
		return "", fmt.Errorf("select files: %w", err)
	}

	var info struct {
		Links []string `json:"links"`
		Files []struct {
			ID       int    `json:"id"`
			Selected int    `json:"selected"`
			Path     string `json:"path"`
		} `json:"files"`
	}
	if err := rd.getJSON(ctx, "/torrents/info/"+torrentID, &info); err != nil {
		return "", fmt.Errorf("torrent info: %w", err)
	}
	if len(info.Links) == 0 {
		return "", fmt.Errorf("torrent %s has no links (not cached)", hash)
	}

	// Links line up with selected files in id order; find the position of
	// our file among the selected ones.
	linkIndex := 0
	wanted, _ := strconv.Atoi(index)
	pos := 0
	for _, f := range info.Files {
		if f.Selected != 1 {
			continue
		}
		if f.ID == wanted {
			linkIndex = pos
			break
		}
		pos++
	}
	if linkIndex >= len(info.Links) {
		linkIndex = 0
	}

	var unrestricted struct {
		Download string `json:"download"`
	}
	form := url.Values{"link": {info.Links[linkIndex]}}
	if rd.clientIP != "" {
		form.Set("ip", rd.clientIP)
	}
	if err := rd.postForm(ctx, "/unrestrict/link", form, &unrestricted); err != nil {
		return "", fmt.Errorf("unrestrict link: %w", err)
	}
	if unrestricted.Download == "" {
		return "", fmt.Errorf("unrestrict returned no download link for %s", hash)
	}

	return unrestricted.Download, nil
}

func (rd *RealDebrid) addMagnet(ctx context.Context, hash string) (string, error) {
	magnet := fmt.Sprintf("magnet:?xt=urn:btih:%s", hash)

	var added struct {
		ID string `json:"id"`
	}
	if err := rd.postForm(ctx, "/torrents/addMagnet", url.Values{"magnet": {magnet}}, &added); err != nil {
		return "", fmt.Errorf("add magnet: %w", err)
	}
	if added.ID == "" {
		return "", fmt.Errorf("add magnet returned no torrent id for %s", hash)
	}

	return added.ID, nil
}

func (rd *RealDebrid) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rd.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	rd.setHeaders(req)

	resp, err := rd.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("real-debrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("real-debrid returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode real-debrid response: %w", err)
	}

	return nil
}

func (rd *RealDebrid) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rd.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rd.setHeaders(req)

	resp, err := rd.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("real-debrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("real-debrid returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode real-debrid response: %w", err)
	}

	return nil
}

func (rd *RealDebrid) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+rd.apiKey)
	req.Header.Set("User-Agent", buildinfo.UserAgent)
}
