// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// Config holds the application configuration unmarshaled from viper.
type Config struct {
	Version string

	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"baseUrl"`

	LogLevel      string `mapstructure:"logLevel"`
	LogPath       string `mapstructure:"logPath"`
	LogMaxSize    int    `mapstructure:"logMaxSize"`
	LogMaxBackups int    `mapstructure:"logMaxBackups"`

	DataDir string `mapstructure:"dataDir"`

	// Indexer manager (Jackett or Prowlarr) settings.
	IndexerManagerType    string `mapstructure:"indexerManagerType"`
	IndexerManagerURL     string `mapstructure:"indexerManagerUrl"`
	IndexerManagerAPIKey  string `mapstructure:"indexerManagerApiKey"`
	IndexerManagerTimeout int    `mapstructure:"indexerManagerTimeout"`

	// Timeout in seconds for fetching a torrent file to resolve its info hash.
	GetTorrentTimeout int `mapstructure:"getTorrentTimeout"`

	// Zilean (DMM) scraper settings.
	ZileanURL       string `mapstructure:"zileanUrl"`
	ZileanTakeFirst int    `mapstructure:"zileanTakeFirst"`

	// Torrentio scraper settings.
	ScrapeTorrentio bool   `mapstructure:"scrapeTorrentio"`
	TorrentioURL    string `mapstructure:"torrentioUrl"`

	// Secondary proxy used when a debrid provider blocks the server's IP.
	DebridProxyURL string `mapstructure:"debridProxyUrl"`

	// Search cache TTL in seconds.
	CacheTTL int `mapstructure:"cacheTtl"`

	// Debrid stream proxying.
	ProxyDebridStream               bool   `mapstructure:"proxyDebridStream"`
	ProxyDebridStreamPassword       string `mapstructure:"proxyDebridStreamPassword"`
	ProxyDebridStreamMaxConnections int    `mapstructure:"proxyDebridStreamMaxConnections"`
	ProxyDebridStreamDefaultService string `mapstructure:"proxyDebridStreamDefaultService"`
	ProxyDebridStreamDefaultAPIKey  string `mapstructure:"proxyDebridStreamDefaultApiKey"`

	// Base URL for the placeholder videos served on playback failures.
	PlaceholderBaseURL string `mapstructure:"placeholderBaseUrl"`

	// Shared secret guarding the active connections dashboard endpoint.
	AdminDashboardPassword string `mapstructure:"adminDashboardPassword"`
}

// IndexerManagerEnabled reports whether an indexer manager backend is configured.
func (c *Config) IndexerManagerEnabled() bool {
	return c.IndexerManagerType != "" && c.IndexerManagerURL != ""
}
