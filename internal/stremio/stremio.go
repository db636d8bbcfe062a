// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package stremio holds the addon protocol types: the manifest, stream
// descriptors and the user-facing title formatting.
package stremio

import "github.com/cometstream/comet/internal/buildinfo"

// Stream is one entry in a stream response.
type Stream struct {
	Name          string         `json:"name"`
	Title         string         `json:"title"`
	TorrentTitle  string         `json:"torrentTitle,omitempty"`
	TorrentSize   int64          `json:"torrentSize,omitempty"`
	URL           string         `json:"url"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

type BehaviorHints struct {
	Filename   string `json:"filename,omitempty"`
	BingeGroup string `json:"bingeGroup,omitempty"`
}

// StreamResponse is the body of /stream/{type}/{id}.json.
type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

// ErrorStream is the single synthetic entry returned when a lookup cannot
// produce real streams. Clients render it like any other result, which is
// the only way an addon can surface a message to the user.
func ErrorStream(message string) Stream {
	return Stream{
		Name:  "[⚠️] Comet",
		Title: message,
		URL:   "https://comet.fast",
	}
}

// ErrorResponse wraps ErrorStream in a complete response body.
func ErrorResponse(message string) StreamResponse {
	return StreamResponse{Streams: []Stream{ErrorStream(message)}}
}

// Manifest describes the addon to Stremio clients.
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Logo        string   `json:"logo,omitempty"`
	Background  string   `json:"background,omitempty"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
	IDPrefixes  []string `json:"idPrefixes"`
	Catalogs    []any    `json:"catalogs"`
	BehaviorHints struct {
		Configurable          bool `json:"configurable"`
		ConfigurationRequired bool `json:"configurationRequired"`
	} `json:"behaviorHints"`
}

// GetManifest builds the addon manifest.
func GetManifest() Manifest {
	version := buildinfo.Version
	if version == "dev" || version == "" {
		version = "0.0.0"
	}

	m := Manifest{
		ID:          "stremio.comet.fast",
		Version:     version,
		Name:        "Comet",
		Description: "Stremio's fastest torrent/debrid search add-on.",
		Resources:   []string{"stream"},
		Types:       []string{"movie", "series"},
		IDPrefixes:  []string{"tt", "kitsu"},
		Catalogs:    []any{},
	}
	m.BehaviorHints.Configurable = true

	return m
}
