// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cometstream/comet/internal/api"
	"github.com/cometstream/comet/internal/buildinfo"
	"github.com/cometstream/comet/internal/config"
	"github.com/cometstream/comet/internal/database"
	"github.com/cometstream/comet/internal/debrid"
	"github.com/cometstream/comet/internal/metadata"
	"github.com/cometstream/comet/internal/models"
	"github.com/cometstream/comet/internal/scraper"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "comet",
		Short: "Stremio torrent/debrid search addon",
		Long: `comet - A self-hosted Stremio addon that resolves media ids into
ranked, playable debrid streams across your indexers.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/comet/ or %APPDATA%\\comet\\). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for the database (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")

	command.Run = func(cmd *cobra.Command, args []string) {
		runServer(configDir, dataDir, logPath)
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of comet",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/comet/config.toml
- Windows: %APPDATA%\comet\config.toml

You can specify either a directory path or a direct file path:
- Directory: comet generate-config --config-dir /path/to/config/
- File: comet generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				configPath = filepath.Join(config.GetDefaultConfigDir(), "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

func runServer(configDir, dataDir, logPath string) {
	cfg, err := config.New(configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	if dataDir != "" {
		cfg.SetDataDir(dataDir)
	}
	if logPath != "" {
		cfg.Config.LogPath = logPath
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", buildinfo.Version).Msg("Starting comet")

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	searchCache := models.NewSearchCacheStore(db.Conn(), time.Duration(cfg.Config.CacheTTL)*time.Second)
	downloadLinks := models.NewDownloadLinkStore(db.Conn())
	activeConnections := models.NewActiveConnectionStore(db.Conn())

	// Rows left behind by an unclean shutdown would otherwise count against
	// clients until their TTL-less entries are manually removed.
	if err := activeConnections.Flush(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to flush stale active connections")
	}

	aggregator := buildAggregator(cfg)
	hashResolver := scraper.NewHashResolver(cfg.Config.GetTorrentTimeout)
	metadataClient := metadata.NewClient()

	httpServer := api.NewServer(&api.Dependencies{
		Config:            cfg.Config,
		SearchCache:       searchCache,
		DownloadLinks:     downloadLinks,
		ActiveConnections: activeConnections,
		Aggregator:        aggregator,
		HashResolver:      hashResolver,
		MetadataClient:    metadataClient,
		DebridFactory:     debrid.New,
	})

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runCacheJanitor(cleanupCtx, searchCache, downloadLinks)

	errorChannel := make(chan error)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errorChannel:
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

func buildAggregator(cfg *config.AppConfig) *scraper.Aggregator {
	var perTerm, perID []scraper.Scraper

	switch cfg.Config.IndexerManagerType {
	case "jackett":
		if cfg.Config.IndexerManagerEnabled() {
			perTerm = append(perTerm, scraper.NewJackettScraper(
				cfg.Config.IndexerManagerURL,
				cfg.Config.IndexerManagerAPIKey,
				cfg.Config.IndexerManagerTimeout,
			))
		}
	case "prowlarr":
		if cfg.Config.IndexerManagerEnabled() {
			perTerm = append(perTerm, scraper.NewProwlarrScraper(
				cfg.Config.IndexerManagerURL,
				cfg.Config.IndexerManagerAPIKey,
				cfg.Config.IndexerManagerTimeout,
			))
		}
	case "":
		log.Info().Msg("No indexer manager configured")
	default:
		log.Warn().Str("type", cfg.Config.IndexerManagerType).Msg("Unknown indexer manager type, skipping")
	}

	if cfg.Config.ZileanURL != "" {
		perID = append(perID, scraper.NewZileanScraper(cfg.Config.ZileanURL, cfg.Config.ZileanTakeFirst))
	}

	if cfg.Config.ScrapeTorrentio {
		perID = append(perID, scraper.NewTorrentioScraper(cfg.Config.TorrentioURL, cfg.Config.DebridProxyURL))
	}

	agg := scraper.NewAggregator(perTerm, perID)
	log.Info().Strs("sources", agg.Sources()).Msg("Search sources configured")

	return agg
}

// runCacheJanitor periodically sweeps expired cache rows. The stores also
// delete lazily on read; this keeps never-read rows from accumulating.
func runCacheJanitor(ctx context.Context, searchCache *models.SearchCacheStore, downloadLinks *models.DownloadLinkStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			if n, err := searchCache.CleanupExpired(sweepCtx); err != nil {
				log.Warn().Err(err).Msg("Search cache cleanup failed")
			} else if n > 0 {
				log.Debug().Int64("deleted", n).Msg("Search cache cleanup")
			}
			if n, err := downloadLinks.CleanupExpired(sweepCtx); err != nil {
				log.Warn().Err(err).Msg("Download link cleanup failed")
			} else if n > 0 {
				log.Debug().Int64("deleted", n).Msg("Download link cleanup")
			}
			cancel()
		}
	}
}
