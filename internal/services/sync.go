/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/connectors"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// SyncLockName is the single-flight lock held for the whole run.
const SyncLockName = "nightly-sync"

const (
	SourcePipelines = "pipeline_runs"
	SourceCost      = "cost_actuals"
	SourceSonar     = "sonarqube"
	SourceCheckmarx = "checkmarx"
	SourceJira      = "jira_epics"
)

// SyncStore is the persistence the sync pipeline writes through. Each write
// is its own transaction and is idempotent on the table's natural key.
type SyncStore interface {
	TryLock(ctx context.Context, name string) (release func(), ok bool, err error)
	StartSyncRun(ctx context.Context, runID string, startedAt time.Time) (int64, error)
	FinishSyncRun(ctx context.Context, id int64, finishedAt time.Time, success bool, sources []domain.SourceStats, errText string) error
	InsertPipelineRuns(ctx context.Context, runs []domain.PipelineRun) (int, error)
	UpsertCostActuals(ctx context.Context, rows []domain.CostActual) (int, error)
	UpsertQualitySnapshots(ctx context.Context, snaps []domain.CodeQualitySnapshot) (int, error)
	UpsertEpics(ctx context.Context, epics []domain.Epic) (int, error)
	TeamIDByName(ctx context.Context, name string) (int64, error)
}

// SyncError reports the sources that failed in an otherwise completed run.
type SyncError struct {
	Sources []string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync: %s failed: %v", strings.Join(e.Sources, ", "), e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Syncer pulls the lookback window from every configured source and writes
// it as fact rows.
type Syncer struct {
	cfg   config.Config
	log   zerolog.Logger
	store SyncStore
	conns connectors.Set
	now   func() time.Time
}

func NewSyncer(cfg config.Config, log zerolog.Logger, store SyncStore, conns connectors.Set) *Syncer {
	return &Syncer{cfg: cfg, log: log, store: store, conns: conns, now: time.Now}
}

type syncStep struct {
	name string
	run  func(ctx context.Context, now time.Time) (domain.SourceStats, error)
}

func (s *Syncer) steps() []syncStep {
	steps := []syncStep{
		{SourcePipelines, s.syncPipelines},
		{SourceCost, s.syncCost},
		{SourceSonar, s.syncSonar},
	}
	if len(s.cfg.CheckmarxProjects) > 0 {
		steps = append(steps, syncStep{SourceCheckmarx, s.syncCheckmarx})
	}
	if s.cfg.EpicImportEnabled() {
		steps = append(steps, syncStep{SourceJira, s.syncEpics})
	}
	return steps
}

// Run executes one sync. It returns domain.ErrSyncInProgress without doing
// any work when another run holds the lock. A failing source does not stop
// the others; the failures come back as a *SyncError alongside the run.
func (s *Syncer) Run(ctx context.Context) (*domain.SyncRun, error) {
	release, ok, err := s.store.TryLock(ctx, SyncLockName)
	if err != nil {
		return nil, fmt.Errorf("sync: lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}
	defer release()

	run := &domain.SyncRun{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	log := s.log.With().Str("run_id", run.RunID).Logger()
	if run.ID, err = s.store.StartSyncRun(ctx, run.RunID, run.StartedAt); err != nil {
		return nil, fmt.Errorf("sync: record start: %w", err)
	}
	log.Info().Msg("sync started")

	var failed []string
	var errs []error
	for _, step := range s.steps() {
		st, err := step.run(ctx, run.StartedAt)
		st.Source = step.name
		if err != nil {
			st.Error = err.Error()
			failed = append(failed, step.name)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			log.Error().Err(err).Str("source", step.name).Msg("sync source failed")
		} else {
			log.Info().Str("source", step.name).Int("fetched", st.Fetched).Int("written", st.Written).
				Int("skipped", st.Skipped).Msg("sync source done")
		}
		run.Sources = append(run.Sources, st)
	}

	finished := s.now().UTC()
	run.FinishedAt = &finished
	run.Success = len(errs) == 0
	var runErr error
	if !run.Success {
		runErr = &SyncError{Sources: failed, Err: errors.Join(errs...)}
		run.Error = runErr.Error()
	}
	if err := s.store.FinishSyncRun(ctx, run.ID, finished, run.Success, run.Sources, run.Error); err != nil {
		log.Error().Err(err).Msg("sync: record finish failed")
		if runErr == nil {
			runErr = fmt.Errorf("sync: record finish: %w", err)
		}
	}
	log.Info().Bool("success", run.Success).Dur("took", finished.Sub(run.StartedAt)).Msg("sync finished")
	return run, runErr
}

func (s *Syncer) syncPipelines(ctx context.Context, now time.Time) (domain.SourceStats, error) {
	var st domain.SourceStats
	builds, err := s.conns.Builds.FetchRecentPipelineRuns(ctx, s.cfg.SyncLookbackDays)
	if err != nil {
		return st, err
	}
	st.Fetched = len(builds)
	runs := make([]domain.PipelineRun, 0, len(builds))
	for _, b := range builds {
		runs = append(runs, domain.PipelineRun{
			Env:             domain.EnvProd,
			PipelineName:    b.PipelineName,
			ExternalID:      b.ExternalID,
			Status:          domain.MapPipelineStatus(b.Status),
			DurationSeconds: b.DurationSeconds,
			QueuedAt:        b.QueuedAt,
			CompletedAt:     b.CompletedAt,
		})
	}
	if st.Written, err = s.store.InsertPipelineRuns(ctx, runs); err != nil {
		return st, err
	}
	st.Skipped = st.Fetched - st.Written
	return st, nil
}

func (s *Syncer) syncCost(ctx context.Context, now time.Time) (domain.SourceStats, error) {
	var st domain.SourceStats
	recs, err := s.conns.Costs.FetchCostData(ctx, now.AddDate(0, 0, -1), now, s.cfg.CostScope)
	if err != nil {
		return st, err
	}
	st.Fetched = len(recs)
	rows := make([]domain.CostActual, 0, len(recs))
	for _, r := range recs {
		scope := r.ScopeID
		if scope == "" {
			scope = s.cfg.CostScope
		}
		rows = append(rows, domain.CostActual{Date: r.Date, ScopeID: scope, Amount: r.Amount, Currency: r.Currency})
	}
	st.Written, err = s.store.UpsertCostActuals(ctx, rows)
	return st, err
}

func (s *Syncer) syncSonar(ctx context.Context, now time.Time) (domain.SourceStats, error) {
	var st domain.SourceStats
	day := domain.DateUTC(now)
	snaps := make([]domain.CodeQualitySnapshot, 0, len(s.cfg.SonarProjects))
	for _, key := range s.cfg.SonarProjects {
		m, err := s.conns.Quality.FetchProjectQualityMetrics(ctx, key)
		if err != nil {
			return st, fmt.Errorf("project %s: %w", key, err)
		}
		st.Fetched++
		snaps = append(snaps, domain.CodeQualitySnapshot{
			Source:      domain.SourceSonarQube,
			ProjectKey:  key,
			WeekStart:   day,
			Bugs:        m.Bugs,
			Vulns:       m.Vulnerabilities,
			Smells:      m.CodeSmells,
			CoveragePct: m.Coverage,
			Criticals:   m.Criticals,
			Highs:       m.Highs,
			Mediums:     m.Mediums,
			Lows:        m.Lows,
		})
	}
	var err error
	st.Written, err = s.store.UpsertQualitySnapshots(ctx, snaps)
	return st, err
}

func (s *Syncer) syncCheckmarx(ctx context.Context, now time.Time) (domain.SourceStats, error) {
	var st domain.SourceStats
	day := domain.DateUTC(now)
	snaps := make([]domain.CodeQualitySnapshot, 0, len(s.cfg.CheckmarxProjects))
	for _, project := range s.cfg.CheckmarxProjects {
		scan, err := s.conns.Scans.FetchLatestScan(ctx, project)
		if err != nil {
			return st, fmt.Errorf("project %s: %w", project, err)
		}
		st.Fetched++
		snaps = append(snaps, domain.CodeQualitySnapshot{
			Source:     domain.SourceCheckmarx,
			ProjectKey: project,
			WeekStart:  day,
			Vulns:      scan.TotalVulnerabilities,
			Criticals:  scan.Criticals,
			Highs:      scan.Highs,
			Mediums:    scan.Mediums,
			Lows:       scan.Lows,
		})
	}
	var err error
	st.Written, err = s.store.UpsertQualitySnapshots(ctx, snaps)
	return st, err
}

func (s *Syncer) syncEpics(ctx context.Context, now time.Time) (domain.SourceStats, error) {
	var st domain.SourceStats
	teamID, err := s.store.TeamIDByName(ctx, s.cfg.JiraTeam)
	if err != nil {
		return st, err
	}
	ext, err := s.conns.Epics.FetchEpics(ctx, s.cfg.JiraProjectKey)
	if err != nil {
		return st, err
	}
	st.Fetched = len(ext)
	epics := make([]domain.Epic, 0, len(ext))
	for _, e := range ext {
		if e.Key == "" {
			st.Skipped++
			continue
		}
		key := e.Key
		epics = append(epics, domain.Epic{
			Title:       e.Summary,
			Description: e.Description,
			TeamID:      teamID,
			Status:      domain.CanonicalEpicStatus(e.Status),
			JiraKey:     &key,
			CreatedBy:   "jira-sync",
		})
	}
	st.Written, err = s.store.UpsertEpics(ctx, epics)
	return st, err
}
