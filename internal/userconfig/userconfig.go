// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package userconfig decodes the per-user settings blob that Stremio embeds
// in the addon URL path.
package userconfig

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

var knownServices = map[string]struct{}{
	"realdebrid": {},
	"alldebrid":  {},
	"premiumize": {},
	"torbox":     {},
	"debridlink": {},
}

var knownResultFormats = map[string]struct{}{
	"All":       {},
	"Title":     {},
	"Metadata":  {},
	"Size":      {},
	"Tracker":   {},
	"Languages": {},
}

// UserConfig is the decoded per-user settings blob.
type UserConfig struct {
	DebridService             string   `json:"debridService"`
	DebridAPIKey              string   `json:"debridApiKey"`
	Indexers                  []string `json:"indexers"`
	MaxResults                int      `json:"maxResults"`
	MaxSize                   int64    `json:"maxSize"`
	Resolutions               []string `json:"resolutions"`
	Languages                 []string `json:"languages"`
	ResultFormat              []string `json:"resultFormat"`
	DebridStreamProxyPassword string   `json:"debridStreamProxyPassword"`
}

// Default returns the config used when a request carries no blob: every
// resolution and language, unbounded results, no debrid account.
func Default() *UserConfig {
	return &UserConfig{
		DebridService: "torrent",
		Indexers:      []string{},
		Resolutions:   []string{"All"},
		Languages:     []string{"All"},
		ResultFormat:  []string{"All"},
	}
}

// Decode parses and validates a base64 settings blob. Any decoding or
// validation failure returns an error; callers map that to the invalid
// configuration response.
func Decode(b64 string) (*UserConfig, error) {
	if strings.TrimSpace(b64) == "" {
		return Default(), nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		// Stremio clients occasionally produce URL-safe encoding.
		raw, err = base64.URLEncoding.DecodeString(strings.TrimSpace(b64))
		if err != nil {
			return nil, fmt.Errorf("decode user config: %w", err)
		}
	}

	cfg := Default()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse user config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *UserConfig) validate() error {
	service := strings.ToLower(strings.TrimSpace(c.DebridService))
	if service != "" && service != "torrent" {
		if _, ok := knownServices[service]; !ok {
			return fmt.Errorf("unknown debrid service %q", c.DebridService)
		}
		c.DebridService = service
	}

	if c.MaxResults < 0 {
		return fmt.Errorf("maxResults cannot be negative")
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("maxSize cannot be negative")
	}

	if len(c.Resolutions) == 0 {
		c.Resolutions = []string{"All"}
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"All"}
	}

	if len(c.ResultFormat) == 0 {
		c.ResultFormat = []string{"All"}
	}
	for _, f := range c.ResultFormat {
		if _, ok := knownResultFormats[f]; !ok {
			return fmt.Errorf("unknown result format %q", f)
		}
	}

	return nil
}

// UsesDebrid reports whether the user configured a real debrid account.
func (c *UserConfig) UsesDebrid() bool {
	return c.DebridService != "" && c.DebridService != "torrent" && c.DebridAPIKey != ""
}

// WantsFormat reports whether the given section should appear in formatted
// stream titles.
func (c *UserConfig) WantsFormat(section string) bool {
	for _, f := range c.ResultFormat {
		if f == "All" || f == section {
			return true
		}
	}
	return false
}
