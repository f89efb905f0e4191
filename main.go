package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raine/product-price-finder/config"
	"github.com/raine/product-price-finder/internal/app"
	"github.com/raine/product-price-finder/internal/mcp"
	"github.com/raine/product-price-finder/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// stdout carries JSON-RPC only; all logging goes to stderr.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if missing := cfg.CheckRequired(); len(missing) > 0 {
		log.Fatal().Msgf("missing required config: %s", strings.Join(missing, ", "))
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", cfg.LogFile).Msg("logging to file")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}
	defer a.Close()

	server := mcp.NewServer(a.Quotes, mcp.Options{
		OwnerNumber: cfg.OwnerNumber,
		Debug:       cfg.Debug,
		CallTimeout: cfg.ToolCallTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	// Serve MCP on stdio; closing stdin stops everything else too.
	g.Go(func() error {
		defer cancel()
		log.Info().Msg("product price finder mcp server listening on stdio")
		return server.Serve(gctx, os.Stdin, os.Stdout)
	})

	if a.Store != nil {
		pruner := storage.NewPruner(a.Store, cfg.CacheMaxAge)
		g.Go(func() error {
			pruner.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
