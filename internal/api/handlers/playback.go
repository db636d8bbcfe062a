// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/debrid"
	"github.com/cometstream/comet/internal/domain"
	"github.com/cometstream/comet/internal/models"
	"github.com/cometstream/comet/internal/userconfig"
)

type PlaybackHandler struct {
	config            *domain.Config
	downloadLinks     *models.DownloadLinkStore
	activeConnections *models.ActiveConnectionStore
	debridFactory     DebridFactory

	httpClient  *http.Client
	proxyClient *http.Client
}

func NewPlaybackHandler(
	config *domain.Config,
	downloadLinks *models.DownloadLinkStore,
	activeConnections *models.ActiveConnectionStore,
	debridFactory DebridFactory,
) *PlaybackHandler {
	h := &PlaybackHandler{
		config:            config,
		downloadLinks:     downloadLinks,
		activeConnections: activeConnections,
		debridFactory:     debridFactory,
		// No timeout: the GET below streams for the lifetime of playback.
		httpClient: &http.Client{},
	}

	if config.DebridProxyURL != "" {
		if parsed, err := url.Parse(config.DebridProxyURL); err == nil {
			h.proxyClient = &http.Client{
				Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
			}
		} else {
			log.Warn().Err(err).Msg("Invalid debrid proxy URL, playback proxy retries disabled")
		}
	}

	return h
}

// Head answers Stremio's probe before it issues the ranged GET. The target
// doesn't matter, only that the response is a redirect.
func (h *PlaybackHandler) Head(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "https://stremio.fast", http.StatusFound)
}

// placeholder redirects to one of the static videos that explain a playback
// failure inside the player, since at this point there is no other way to
// reach the user.
func (h *PlaybackHandler) placeholder(w http.ResponseWriter, r *http.Request, name string) {
	http.Redirect(w, r, fmt.Sprintf("%s/%s.mp4", h.config.PlaceholderBaseURL, name), http.StatusFound)
}

func (h *PlaybackHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := userconfig.Decode(chi.URLParam(r, "b64config"))
	if err != nil {
		h.placeholder(w, r, "invalidconfig")
		return
	}

	if h.config.ProxyDebridStream &&
		h.config.ProxyDebridStreamPassword == cfg.DebridStreamProxyPassword &&
		cfg.DebridAPIKey == "" {
		cfg.DebridService = h.config.ProxyDebridStreamDefaultService
		cfg.DebridAPIKey = h.config.ProxyDebridStreamDefaultAPIKey
	}

	hash := chi.URLParam(r, "hash")
	index := chi.URLParam(r, "index")
	ip := clientIP(r)

	useProxy := h.config.ProxyDebridStream &&
		h.config.ProxyDebridStreamPassword == cfg.DebridStreamProxyPassword

	downloadLink, ok, err := h.downloadLinks.Get(ctx, cfg.DebridAPIKey, hash, index)
	if err != nil {
		log.Error().Err(err).Msg("Download link cache lookup failed")
	}

	if !ok {
		// Providers geo-lock generated links to the requesting IP, so the
		// client IP is only forwarded when the client fetches the stream
		// itself.
		linkIP := ip
		if useProxy {
			linkIP = ""
		}

		client, err := h.debridFactory(cfg.DebridService, cfg.DebridAPIKey, linkIP)
		if err != nil {
			h.placeholder(w, r, "invalidconfig")
			return
		}

		downloadLink, err = client.GenerateDownloadLink(ctx, hash, index)
		if err != nil {
			log.Warn().Err(err).Str("hash", hash).Str("index", index).Msg("Failed to generate download link")
			h.placeholder(w, r, "uncached")
			return
		}

		h.storeLink(cfg.DebridAPIKey, hash, index, downloadLink)
	}

	if !useProxy {
		http.Redirect(w, r, downloadLink, http.StatusFound)
		return
	}

	h.proxyStream(w, r, cfg, downloadLink, ip)
}

// storeLink caches a generated link without delaying playback start.
func (h *PlaybackHandler) storeLink(debridKey, hash, index, link string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := h.downloadLinks.Put(ctx, debridKey, hash, index, link); err != nil {
			log.Warn().Err(err).Str("hash", hash).Msg("Failed to cache download link")
		}
	}()
}

func (h *PlaybackHandler) proxyStream(w http.ResponseWriter, r *http.Request, cfg *userconfig.UserConfig, downloadLink, ip string) {
	ctx := r.Context()

	count, err := h.activeConnections.CountForIP(ctx, ip)
	if err != nil {
		log.Error().Err(err).Msg("Active connection count failed")
	}
	if err == nil && count >= h.config.ProxyDebridStreamMaxConnections {
		h.placeholder(w, r, "proxylimit")
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		rangeHeader = "bytes=0-"
	}

	client := h.httpClient

	probe, err := h.probe(ctx, client, downloadLink, rangeHeader)
	if err == nil && probe.StatusCode == http.StatusServiceUnavailable &&
		debrid.RequiresProxyRetry(cfg.DebridService) && h.proxyClient != nil {
		// Some providers 503 range requests from datacenter IPs; the
		// secondary proxy gets around that.
		probe.Body.Close()
		client = h.proxyClient
		probe, err = h.probe(ctx, client, downloadLink, rangeHeader)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Stream probe failed")
		h.placeholder(w, r, "uncached")
		return
	}
	finalURL := probe.Request.URL.String()
	probe.Body.Close()

	if probe.StatusCode != http.StatusPartialContent {
		h.placeholder(w, r, "uncached")
		return
	}

	connID, err := h.activeConnections.Insert(ctx, ip, finalURL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to register active connection")
		h.placeholder(w, r, "uncached")
		return
	}
	// The row must go away on every exit, including client disconnects that
	// cancel the request context, so deletion runs on a fresh context.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.activeConnections.Delete(cleanupCtx, connID); err != nil {
			log.Error().Err(err).Str("id", connID).Msg("Failed to remove active connection")
		}
	}()

	upstream, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadLink, nil)
	if err != nil {
		h.placeholder(w, r, "uncached")
		return
	}
	upstream.Header.Set("Range", rangeHeader)

	resp, err := client.Do(upstream)
	if err != nil {
		log.Warn().Err(err).Msg("Upstream stream request failed")
		h.placeholder(w, r, "uncached")
		return
	}
	defer resp.Body.Close()

	for _, header := range []string{"Content-Range", "Content-Length", "Content-Type", "Accept-Ranges"} {
		if value := resp.Header.Get(header); value != "" {
			w.Header().Set(header, value)
		}
	}
	w.WriteHeader(http.StatusPartialContent)

	// Client disconnects cancel ctx, which aborts the upstream body and
	// ends this copy.
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("Stream copy ended")
	}
}

func (h *PlaybackHandler) probe(ctx context.Context, client *http.Client, link, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", rangeHeader)

	return client.Do(req)
}
