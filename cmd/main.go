package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunescope/internal/analyzer"
	"github.com/desertthunder/tunescope/internal/auth"
	"github.com/desertthunder/tunescope/internal/gateway"
	"github.com/desertthunder/tunescope/internal/services"
	"github.com/desertthunder/tunescope/internal/shared"
	"github.com/desertthunder/tunescope/internal/tasks"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("TUNESCOPE_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("ignoring unreadable config.toml", "err", err)
		}
	}

	db, err := shared.NewDatabase(config.Storage.DatabasePath)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Storage.MaxOpenConns, config.Storage.MaxIdleConns)

	ledger, err := gateway.NewLedger(db, config.Quota.DailyBudget, config.Quota.Costs)
	if err != nil {
		logger.Fatalf("failed to initialize quota ledger: %v", err)
	}

	cache, err := gateway.NewCache(db)
	if err != nil {
		logger.Fatalf("failed to initialize response cache: %v", err)
	}

	var session *auth.Session
	var library *services.Library
	var search *services.Search
	var engine *tasks.Engine

	if config.Credentials.Google.ClientID != "" && config.Credentials.Google.ClientSecret != "" {
		store := auth.NewTokenStore(config.Storage.TokenPath, []string{auth.ScopeReadonly})
		session, err = auth.NewSession(config.Credentials.Google, store, shared.WithLogger(logger, "component", "auth"))
		if err != nil {
			logger.Fatalf("failed to initialize session: %v", err)
		}

		gw := gateway.New(gateway.Config{
			Session: session,
			Ledger:  ledger,
			Cache:   cache,
			Logger:  shared.WithLogger(logger, "component", "gateway"),
		})

		library = services.NewLibrary(gw, config.Cache, logger)
		search = services.NewSearch(gw, config.Cache, logger)
		engine = tasks.NewEngine(library, shared.WithLogger(logger, "component", "engine"), analyzer.Options{
			TrackCap:    config.Analysis.TrackCap,
			TopArtists:  config.Analysis.TopArtists,
			TopChannels: config.Analysis.TopChannels,
		})
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Session: session,
		Library: library,
		Search:  search,
		Engine:  engine,
		Ledger:  ledger,
		Cache:   cache,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "tunescope",
		Usage:    "Analyze your YouTube Music library into a taste profile",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrAuthRequired), errors.Is(err, shared.ErrAuthExpired):
			logger.Error("authentication needed", "err", err)
			logger.Info("run `tunescope auth login` to (re)authenticate")
			os.Exit(1)
		case errors.Is(err, shared.ErrQuotaExceeded):
			logger.Error("daily API quota exhausted, try again after the UTC day rolls over", "err", err)
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
