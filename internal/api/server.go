// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/api/handlers"
	"github.com/cometstream/comet/internal/domain"
	"github.com/cometstream/comet/internal/metadata"
	"github.com/cometstream/comet/internal/models"
	"github.com/cometstream/comet/internal/scraper"
)

type Server struct {
	server *http.Server
	logger zerolog.Logger
	config *domain.Config

	searchCache       *models.SearchCacheStore
	downloadLinks     *models.DownloadLinkStore
	activeConnections *models.ActiveConnectionStore
	aggregator        *scraper.Aggregator
	hashResolver      *scraper.HashResolver
	metadataClient    *metadata.Client
	debridFactory     handlers.DebridFactory
}

type Dependencies struct {
	Config            *domain.Config
	SearchCache       *models.SearchCacheStore
	DownloadLinks     *models.DownloadLinkStore
	ActiveConnections *models.ActiveConnectionStore
	Aggregator        *scraper.Aggregator
	HashResolver      *scraper.HashResolver
	MetadataClient    *metadata.Client
	DebridFactory     handlers.DebridFactory
}

func NewServer(deps *Dependencies) *Server {
	return &Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			// Proxied streams hold the response open for as long as the
			// user watches; no write timeout.
			IdleTimeout: 180 * time.Second,
		},
		logger:            log.Logger.With().Str("module", "api").Logger(),
		config:            deps.Config,
		searchCache:       deps.SearchCache,
		downloadLinks:     deps.DownloadLinks,
		activeConnections: deps.ActiveConnections,
		aggregator:        deps.Aggregator,
		hashResolver:      deps.HashResolver,
		metadataClient:    deps.MetadataClient,
		debridFactory:     deps.DebridFactory,
	}
}

func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msg("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Msgf("Starting server - Open: http://%s%s", host, s.config.BaseURL)

	s.server.Handler = s.Handler()

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	corsMiddleware := cors.New(cors.Options{
		AllowedMethods: []string{"HEAD", "OPTIONS", "GET"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range"},
		AllowOriginFunc: func(origin string) bool { return true },
		MaxAge:          300,
	})
	r.Use(corsMiddleware.Handler)

	streamHandler := handlers.NewStreamHandler(
		s.config,
		s.searchCache,
		s.aggregator,
		s.hashResolver,
		s.metadataClient,
		s.debridFactory,
	)
	playbackHandler := handlers.NewPlaybackHandler(
		s.config,
		s.downloadLinks,
		s.activeConnections,
		s.debridFactory,
	)
	connectionsHandler := handlers.NewConnectionsHandler(s.config, s.activeConnections)
	manifestHandler := handlers.NewManifestHandler()

	// JSON routes are worth compressing; the playback proxy streams raw
	// video bytes and must stay untouched.
	r.Group(func(r chi.Router) {
		compressor, err := httpcompression.DefaultAdapter(
			httpcompression.MinSize(1024),
			httpcompression.GzipCompressionLevel(2),
			httpcompression.Prefer(httpcompression.PreferServer),
		)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to create HTTP compression adapter")
		} else {
			r.Use(compressor)
		}

		r.Get("/health", handlers.Health)
		r.Get("/manifest.json", manifestHandler.Get)
		r.Get("/{b64config}/manifest.json", manifestHandler.Get)
		r.Get("/stream/{mediaType}/{mediaID}", streamHandler.Get)
		r.Get("/{b64config}/stream/{mediaType}/{mediaID}", streamHandler.Get)
		r.Get("/active-connections", connectionsHandler.List)
	})

	r.Head("/{b64config}/playback/{hash}/{index}", playbackHandler.Head)
	r.Get("/{b64config}/playback/{hash}/{index}", playbackHandler.Get)

	return r
}
