// Package app wires profrank's adapters and services together.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/profrank/internal/adapters/driven/config/file"
	"github.com/custodia-labs/profrank/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/profrank/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/profrank/internal/adapters/driving/cli"
	"github.com/custodia-labs/profrank/internal/connectors/ratings"
	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
	"github.com/custodia-labs/profrank/internal/core/services"
	"github.com/custodia-labs/profrank/internal/logger"
	normaliser "github.com/custodia-labs/profrank/internal/normalisers/ratings"
)

var _ cli.Bootstrap = Bootstrap

// Bootstrap loads configuration, opens the cache and builds every service.
func Bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	// 1. Configuration and logging
	cfg, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settings := file.LoadSettings(cfg)

	logger.Configure(settings.Log.Level, settings.Log.Format)
	if opts.Verbose {
		logger.SetVerbose(true)
	}
	logger.Debug("config: %s", cfg.Path())

	// 2. Cache store
	store, err := openStore(settings, opts.Ephemeral)
	if err != nil {
		return nil, err
	}

	// 3. Services
	built, err := Build(ctx, store, ratings.NewSource(settings.Source), settings)
	if err != nil {
		closeStore(store) //nolint:errcheck
		return nil, err
	}

	built.Close = func() error { return closeStore(store) }
	return built, nil
}

// Build assembles the services over an open store and source.
func Build(
	ctx context.Context,
	store driven.CacheStore,
	source driven.SourceAdapter,
	settings domain.Settings,
) (*cli.Services, error) {
	norm := normaliser.New()
	scoring := services.NewScoringEngine(store, settings.Query)
	refresh := services.NewRefreshController(source, norm, store, scoring, settings.Refresh)

	if err := refresh.Recover(ctx); err != nil {
		return nil, fmt.Errorf("recovering refresh state: %w", err)
	}
	if _, err := scoring.Recompute(ctx); err != nil {
		return nil, fmt.Errorf("rescoring cache: %w", err)
	}

	return &cli.Services{
		Query:      services.NewQueryService(store, norm, scoring, refresh),
		Refresh:    refresh,
		Scheduler:  services.NewScheduler(settings.Refresh.CheckInterval, refresh),
		ServerAddr: settings.Server.Addr,
	}, nil
}

func openStore(settings domain.Settings, ephemeral bool) (driven.CacheStore, error) {
	if ephemeral {
		logger.Debug("store: in-memory cache")
		return memory.NewCacheStore(), nil
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening cache in %s: %w", settings.DataDir, err)
	}
	logger.Debug("store: sqlite cache in %s", settings.DataDir)
	return store, nil
}

func closeStore(store driven.CacheStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
