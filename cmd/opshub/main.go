/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/connectors"
	"github.com/HamedShams/platform-ops-hub/internal/logger"
	"github.com/HamedShams/platform-ops-hub/internal/repo"
	"github.com/HamedShams/platform-ops-hub/internal/services"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "opshub",
	Short:         "Platform operations dashboard",
	Long:          `Serves the platform operations dashboard API and runs its nightly sync and newsletter jobs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file overlaid on the environment")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wiring shared by every subcommand.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store *repo.Store
	conns connectors.Set

	sync        *services.Syncer
	dashboard   *services.Dashboard
	newsletters *services.Newsletters
	catalog     *services.Catalog
}

// bootstrap loads config, opens and migrates the store, and builds the
// services. The caller closes the store.
func bootstrap(ctx context.Context) (*app, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	store, err := repo.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	conns := connectors.Resolve(cfg, store, log)
	a := &app{
		cfg:         cfg,
		log:         log,
		store:       store,
		conns:       conns,
		sync:        services.NewSyncer(cfg, log, store, conns),
		dashboard:   services.NewDashboard(cfg, log, store),
		newsletters: services.NewNewsletters(cfg, log, store, conns.TextGen, conns.Notifier),
		catalog:     services.NewCatalog(store),
	}
	if conns.Mock {
		a.seedIfEmpty(ctx)
	}
	return a, nil
}

// seedIfEmpty loads demo data so mock mode has something to show.
func (a *app) seedIfEmpty(ctx context.Context) {
	seeded, err := a.store.Seed(ctx, time.Now())
	if err != nil {
		a.log.Error().Err(err).Msg("seed failed")
		return
	}
	if seeded {
		a.log.Info().Msg("seeded demo data")
	}
}

func (a *app) jobContext(parent context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.JobTimeout > 0 {
		return context.WithTimeout(parent, a.cfg.JobTimeout)
	}
	return context.WithTimeout(parent, 10*time.Minute)
}
