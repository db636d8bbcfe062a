// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package debrid abstracts the debrid providers: checking account standing,
// filtering torrents to the ones a provider has cached, and producing
// direct download links.
package debrid

import (
	"context"
	"fmt"
	"strings"
)

// File is the playable file a provider holds for a torrent.
type File struct {
	Title string `json:"title"`
	Size  int64  `json:"size"`
	Index string `json:"index"`
}

// Client is the provider capability surface the stream pipeline depends on.
type Client interface {
	// CheckPremium reports whether the account is in good standing. A
	// false return is terminal for the request.
	CheckPremium(ctx context.Context) bool

	// GetFiles filters hashes to those instantly available on the provider
	// and returns the chosen playable file per hash. For series the file
	// must match the requested season/episode (episode only for kitsu).
	GetFiles(ctx context.Context, hashes []string, mediaType string, season, episode int, kitsu bool) map[string]File

	// GenerateDownloadLink turns (hash, fileIndex) into a direct HTTP link.
	GenerateDownloadLink(ctx context.Context, hash, index string) (string, error)
}

var extensions = map[string]string{
	"realdebrid": "RD",
	"alldebrid":  "AD",
	"premiumize": "PM",
	"torbox":     "TB",
	"debridlink": "DL",
}

// Extension returns the short provider label shown in stream names, or ""
// for unknown services.
func Extension(service string) string {
	return extensions[strings.ToLower(service)]
}

// RequiresProxyRetry reports whether a provider is known to 503 range probes
// from datacenter IPs, in which case the probe is retried through the
// configured secondary proxy.
func RequiresProxyRetry(service string) bool {
	return strings.ToLower(service) == "alldebrid"
}

// New constructs the client for a service. clientIP is forwarded to providers
// that geo-lock generated links to the requesting IP; pass "" when the server
// will fetch the stream itself.
func New(service, apiKey, clientIP string) (Client, error) {
	switch strings.ToLower(service) {
	case "realdebrid":
		return NewRealDebrid(apiKey, clientIP), nil
	default:
		return nil, fmt.Errorf("unsupported debrid service %q", service)
	}
}
