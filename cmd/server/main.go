// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Command server runs the Podscale HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/podscale/podscale/internal/api"
	"github.com/podscale/podscale/internal/config"
	"github.com/podscale/podscale/internal/feed"
	"github.com/podscale/podscale/internal/logging"
	"github.com/podscale/podscale/internal/podcast"
	"github.com/podscale/podscale/internal/storage"
	"github.com/podscale/podscale/internal/supervisor"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println("podscale " + Version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", Version).
		Str("addr", cfg.Server.Addr()).
		Str("storage_path", cfg.Storage.Path).
		Msg("Starting Podscale server")

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Failed to close storage")
		}
	}()

	client := feed.New(cfg.Feed)
	svc := podcast.NewService(store, client, cfg.Modeling)
	handler := api.NewRouter(svc, cfg.Server).Setup()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeConfig)
	tree.Add(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervision tree exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("Podscale server stopped")
}
