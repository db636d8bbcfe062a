// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package ranker parses release titles, orders candidates deterministically
// and balances the final selection across resolution buckets.
package ranker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/moistari/rls"
)

// RankedFile is one playable candidate with everything parsed out of its
// release title plus what the debrid service knows about the file. The JSON
// form is what gets persisted in the search cache.
type RankedFile struct {
	InfoHash   string   `json:"infoHash"`
	RawTitle   string   `json:"rawTitle"`
	Title      string   `json:"title"`
	Resolution string   `json:"resolution"`
	Quality    string   `json:"quality"`
	Codec      string   `json:"codec"`
	HDR        []string `json:"hdr,omitempty"`
	Audio      []string `json:"audio,omitempty"`
	Channels   string   `json:"channels,omitempty"`
	BitDepth   string   `json:"bitDepth,omitempty"`
	Network    string   `json:"network,omitempty"`
	Group      string   `json:"group,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Dubbed     bool     `json:"dubbed"`

	Size         int64  `json:"size"`
	FileIndex    string `json:"fileIndex"`
	TorrentTitle string `json:"torrentTitle"`
	TorrentSize  int64  `json:"torrentSize"`
	Tracker      string `json:"tracker"`
}

// Resolutions ordered best-first. Anything rls doesn't recognize lands in
// "unknown" at the bottom.
var resolutionOrder = []string{"2160p", "1440p", "1080p", "720p", "576p", "480p", "360p", "unknown"}

var resolutionRank = func() map[string]int {
	m := make(map[string]int, len(resolutionOrder))
	for i, res := range resolutionOrder {
		m[res] = len(resolutionOrder) - i
	}
	return m
}()

var bitDepthPattern = regexp.MustCompile(`(?i)^(8|10|12)bit$`)

// Rank parses a release title into a RankedFile. It never fails outright;
// a title rls can't make sense of simply ranks at the bottom.
func Rank(rawTitle, infoHash string) (RankedFile, error) {
	if strings.TrimSpace(rawTitle) == "" {
		return RankedFile{}, fmt.Errorf("empty release title")
	}

	release := rls.ParseString(rawTitle)

	f := RankedFile{
		InfoHash:   strings.ToLower(infoHash),
		RawTitle:   rawTitle,
		Title:      release.Title,
		Resolution: normalizeResolution(release.Resolution),
		Quality:    release.Source,
		Codec:      strings.Join(release.Codec, " "),
		HDR:        release.HDR,
		Audio:      release.Audio,
		Channels:   release.Channels,
		Network:    release.Collection,
		Group:      release.Group,
	}

	for _, other := range release.Other {
		if bitDepthPattern.MatchString(other) {
			f.BitDepth = other
			break
		}
	}

	for _, lang := range release.Language {
		lower := strings.ToLower(lang)
		if lower == "multi" || lower == "dual" {
			f.Dubbed = true
			continue
		}
		f.Languages = append(f.Languages, lower)
	}

	return f, nil
}

func normalizeResolution(res string) string {
	res = strings.ToLower(strings.TrimSpace(res))
	if _, ok := resolutionRank[res]; !ok {
		return "unknown"
	}
	return res
}

// score is a composite quality score used to order files within the same
// resolution. The weights only need to be stable, not perfect.
func (f RankedFile) score() int {
	score := 0

	switch strings.ToLower(f.Quality) {
	case "bluray", "uhd.bluray":
		score += 100
	case "remux":
		score += 120
	case "web-dl", "webdl", "web":
		score += 90
	case "webrip":
		score += 70
	case "hdtv":
		score += 50
	case "dvdrip", "bdrip", "brrip":
		score += 40
	case "hdts", "ts", "cam", "telesync":
		score -= 100
	}

	switch strings.ToLower(f.Codec) {
	case "av1":
		score += 30
	case "x265", "h.265", "hevc", "h265":
		score += 25
	case "x264", "h.264", "avc", "h264":
		score += 15
	}

	score += 10 * len(f.HDR)

	for _, audio := range f.Audio {
		switch strings.ToLower(audio) {
		case "atmos", "truehd":
			score += 15
		case "dts-hd", "dtshd", "dts":
			score += 10
		case "dd5.1", "ac3", "eac3", "ddp":
			score += 5
		}
	}

	if f.BitDepth == "10bit" || f.BitDepth == "12bit" {
		score += 5
	}
	if f.Group != "" {
		score += 1
	}

	return score
}

// Sort orders files by resolution tier, then composite score, with the info
// hash as the final tie-break so the order is total and reproducible.
// Duplicate hashes collapse to their first (best-ranked) occurrence.
func Sort(files []RankedFile) []RankedFile {
	sorted := make([]RankedFile, len(files))
	copy(sorted, files)

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := resolutionRank[sorted[i].Resolution], resolutionRank[sorted[j].Resolution]
		if ri != rj {
			return ri > rj
		}
		si, sj := sorted[i].score(), sorted[j].score()
		if si != sj {
			return si > sj
		}
		return sorted[i].InfoHash < sorted[j].InfoHash
	})

	seen := make(map[string]struct{}, len(sorted))
	deduped := sorted[:0]
	for _, f := range sorted {
		if _, ok := seen[f.InfoHash]; ok {
			continue
		}
		seen[f.InfoHash] = struct{}{}
		deduped = append(deduped, f)
	}

	return deduped
}
