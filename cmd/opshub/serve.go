/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	api "github.com/HamedShams/platform-ops-hub/internal/http"
	"github.com/HamedShams/platform-ops-hub/internal/jobs"
)

var noCron bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.store.Close()

		h := api.NewHandlers(a.cfg, a.log, api.Deps{
			Dashboard:   a.dashboard,
			Quality:     a.store,
			Catalog:     a.catalog,
			Newsletters: a.newsletters,
			Sync:        a.sync,
		})
		srv := &http.Server{
			Addr:              a.cfg.HTTPAddr,
			Handler:           api.NewRouter(a.cfg, a.log, h),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if !noCron {
			cr, err := jobs.NewCron(a.cfg, a.log, a.sync, a.newsletters, a.store)
			if err != nil {
				return err
			}
			cr.Start()
			defer cr.Stop()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.log.Info().Str("addr", a.cfg.HTTPAddr).Bool("mock", a.conns.Mock).Msg("http listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.log.Info().Msg("shutting down...")
			sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			err := srv.Shutdown(sctx)
			h.Wait()
			return err
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noCron, "no-cron", false, "do not schedule the nightly sync and weekly newsletter")
	rootCmd.AddCommand(serveCmd)
}
