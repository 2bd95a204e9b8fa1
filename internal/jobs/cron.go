/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/HamedShams/platform-ops-hub/internal/services"
)

const newsletterLock = "weekly-newsletter"

type syncer interface {
	Run(ctx context.Context) (*domain.SyncRun, error)
}

type publisher interface {
	PublishWeekly(ctx context.Context) (services.NewsletterDTO, error)
}

type locker interface {
	TryLock(ctx context.Context, name string) (func(), bool, error)
}

// Cron runs the nightly sync and the weekly newsletter on their schedules.
type Cron struct {
	cfg   config.Config
	log   zerolog.Logger
	sync  syncer
	news  publisher
	locks locker
	c     *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, sync syncer, news publisher, locks locker) (*Cron, error) {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithLocation(loc), cron.WithParser(parser), cron.WithChain(cron.Recover(cronLogger{log})))
	cr := &Cron{cfg: cfg, log: log, sync: sync, news: news, locks: locks, c: c}
	if _, err := c.AddFunc(cfg.SyncCron, cr.NightlySync); err != nil {
		return nil, fmt.Errorf("cron: sync spec %q: %w", cfg.SyncCron, err)
	}
	if _, err := c.AddFunc(cfg.NewsletterCron, cr.WeeklyNewsletter); err != nil {
		return nil, fmt.Errorf("cron: newsletter spec %q: %w", cfg.NewsletterCron, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop halts the schedule and waits for running jobs to return.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

func (cr *Cron) timeout() time.Duration {
	if cr.cfg.JobTimeout > 0 {
		return cr.cfg.JobTimeout
	}
	return 10 * time.Minute
}

// NightlySync runs one sync. The syncer takes its own single-flight lock.
func (cr *Cron) NightlySync() {
	ctx, cancel := context.WithTimeout(context.Background(), cr.timeout())
	defer cancel()
	cr.log.Info().Msg("cron: nightly sync")
	run, err := cr.sync.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		cr.log.Info().Msg("cron: sync already running elsewhere")
	case err != nil:
		l := cr.log.Error().Err(err)
		if run != nil {
			l = l.Str("run_id", run.RunID)
		}
		l.Msg("cron: sync failed")
	}
}

func (cr *Cron) WeeklyNewsletter() {
	ctx, cancel := context.WithTimeout(context.Background(), cr.timeout())
	defer cancel()
	release, ok, err := cr.locks.TryLock(ctx, newsletterLock)
	if err != nil {
		cr.log.Error().Err(err).Msg("cron: lock error")
		return
	}
	if !ok {
		cr.log.Info().Msg("cron: newsletter already running elsewhere")
		return
	}
	defer release()
	cr.log.Info().Msg("cron: weekly newsletter")
	if _, err := cr.news.PublishWeekly(ctx); err != nil {
		cr.log.Error().Err(err).Msg("cron: newsletter failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug().Fields(kv).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
