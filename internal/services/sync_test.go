package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/mock"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/connectors"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/HamedShams/platform-ops-hub/internal/repo"
)

func syncConfig() config.Config {
	return config.Config{
		SyncLookbackDays:  7,
		CostScope:         "DefaultScope",
		SonarProjects:     []string{"platform-web", "platform-api"},
		CheckmarxProjects: []string{"platform-web"},
		JiraProjectKey:    "PLAT",
		JiraTeam:          "Change Team",
	}
}

func okConnectors() connectors.Set {
	cov := 81.5
	done := testNow.Add(-time.Hour)
	return connectors.Set{
		Builds: buildsFunc(func(days int) ([]domain.PipelineBuild, error) {
			return []domain.PipelineBuild{
				{PipelineName: "api-ci", ExternalID: "b-1", Status: "Succeeded", DurationSeconds: 300, QueuedAt: done.Add(-5 * time.Minute), CompletedAt: &done},
				{PipelineName: "api-ci", ExternalID: "b-2", Status: "Failed", DurationSeconds: 120, QueuedAt: done, CompletedAt: &done},
				{PipelineName: "web-ci", ExternalID: "b-3", Status: "InProgress", QueuedAt: done},
			}, nil
		}),
		Costs: costsFunc(func(start, end time.Time, scope string) ([]domain.CostRecord, error) {
			return []domain.CostRecord{{Date: start, ScopeID: scope, Amount: decimal.RequireFromString("912.40"), Currency: "USD"}}, nil
		}),
		Quality: qualityFunc(func(key string) (domain.QualityMetrics, error) {
			return domain.QualityMetrics{ProjectKey: key, Bugs: 2, Vulnerabilities: 1, CodeSmells: 40, Coverage: &cov, Highs: 1}, nil
		}),
		Scans: scansFunc(func(project string) (domain.SecurityScan, error) {
			return domain.SecurityScan{ProjectName: project, TotalVulnerabilities: 6, Criticals: 1, Highs: 2, Mediums: 3}, nil
		}),
		Epics: epicsFunc(func(key string) ([]domain.ExternalEpic, error) {
			return []domain.ExternalEpic{{Key: key + "-1", Summary: "Landing zone", Status: "In Progress"}, {Summary: "keyless"}}, nil
		}),
	}
}

func TestSyncRunWritesEverySource(t *testing.T) {
	var (
		pipelines []domain.PipelineRun
		costs     []domain.CostActual
		quality   []domain.CodeQualitySnapshot
		epics     []domain.Epic
		finished  bool
		released  bool
	)
	store := &fakeStore{
		tryLock: func(name string) (func(), bool, error) {
			assert.Equal(t, SyncLockName, name)
			return func() { released = true }, true, nil
		},
		insertPipelines: func(runs []domain.PipelineRun) (int, error) { pipelines = runs; return 2, nil },
		upsertCosts:     func(rows []domain.CostActual) (int, error) { costs = rows; return len(rows), nil },
		upsertQuality: func(snaps []domain.CodeQualitySnapshot) (int, error) {
			quality = append(quality, snaps...)
			return len(snaps), nil
		},
		upsertEpics: func(e []domain.Epic) (int, error) { epics = e; return len(e), nil },
		teamIDByName: func(name string) (int64, error) {
			assert.Equal(t, "Change Team", name)
			return 7, nil
		},
		finishSyncRun: func(id int64, _ time.Time, success bool, sources []domain.SourceStats, errText string) error {
			finished = true
			assert.True(t, success)
			assert.Empty(t, errText)
			assert.Len(t, sources, 5)
			return nil
		},
	}
	s := NewSyncer(syncConfig(), zerolog.Nop(), store, okConnectors())
	s.now = fixedClock

	run, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, finished)
	assert.True(t, released)
	assert.True(t, run.Success)
	assert.NotEmpty(t, run.RunID)

	require.Len(t, pipelines, 3)
	assert.Equal(t, domain.PipelineSucceeded, pipelines[0].Status)
	assert.Equal(t, domain.PipelineFailed, pipelines[1].Status)
	assert.Equal(t, domain.PipelineRunning, pipelines[2].Status)
	for _, p := range pipelines {
		assert.Equal(t, domain.EnvProd, p.Env)
	}
	assert.Equal(t, domain.SourceStats{Source: SourcePipelines, Fetched: 3, Written: 2, Skipped: 1}, run.Sources[0])

	require.Len(t, costs, 1)
	assert.Equal(t, testNow.AddDate(0, 0, -1), costs[0].Date)
	assert.Equal(t, "DefaultScope", costs[0].ScopeID)

	require.Len(t, quality, 3)
	day := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, domain.SourceSonarQube, quality[0].Source)
	assert.Equal(t, day, quality[0].WeekStart)
	assert.Equal(t, 2, quality[0].Bugs)
	cx := quality[2]
	assert.Equal(t, domain.SourceCheckmarx, cx.Source)
	assert.Equal(t, 6, cx.Vulns)
	assert.Zero(t, cx.Bugs)
	assert.Nil(t, cx.CoveragePct)

	require.Len(t, epics, 1)
	assert.Equal(t, int64(7), epics[0].TeamID)
	assert.Equal(t, domain.StatusInProgress, epics[0].Status)
	assert.Equal(t, "PLAT-1", *epics[0].JiraKey)
	assert.Equal(t, 1, run.Sources[4].Skipped)
}

func TestSyncRunRefusesWhenLockHeld(t *testing.T) {
	started := false
	store := &fakeStore{
		tryLock:      func(string) (func(), bool, error) { return nil, false, nil },
		startSyncRun: func(string, time.Time) (int64, error) { started = true; return 1, nil },
	}
	s := NewSyncer(syncConfig(), zerolog.Nop(), store, okConnectors())
	run, err := s.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	assert.Nil(t, run)
	assert.False(t, started)
}

func TestSyncRunIsolatesFailingSource(t *testing.T) {
	conns := okConnectors()
	boom := errors.New("cost api down")
	conns.Costs = costsFunc(func(time.Time, time.Time, string) ([]domain.CostRecord, error) { return nil, boom })
	var qualityWrites int
	var recorded string
	store := &fakeStore{
		upsertQuality: func(snaps []domain.CodeQualitySnapshot) (int, error) { qualityWrites += len(snaps); return len(snaps), nil },
		finishSyncRun: func(_ int64, _ time.Time, success bool, _ []domain.SourceStats, errText string) error {
			assert.False(t, success)
			recorded = errText
			return nil
		},
	}
	s := NewSyncer(syncConfig(), zerolog.Nop(), store, conns)
	s.now = fixedClock

	run, err := s.Run(context.Background())
	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{SourceCost}, se.Sources)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, qualityWrites, "sources after the failure still run")
	assert.Contains(t, recorded, "cost api down")
	require.NotNil(t, run)
	assert.Equal(t, "cost api down", run.Sources[1].Error)
}

func TestSyncRunSkipsOptionalSources(t *testing.T) {
	cfg := syncConfig()
	cfg.CheckmarxProjects = nil
	cfg.JiraProjectKey = ""
	conns := okConnectors()
	conns.Scans = scansFunc(func(string) (domain.SecurityScan, error) {
		t.Fatal("checkmarx should not be called")
		return domain.SecurityScan{}, nil
	})
	s := NewSyncer(cfg, zerolog.Nop(), &fakeStore{}, conns)
	run, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Sources, 3)
	assert.Equal(t, SourceSonar, run.Sources[2].Source)
}

func TestSyncRunMissingJiraTeamFailsOnlyEpics(t *testing.T) {
	store := &fakeStore{
		teamIDByName: func(name string) (int64, error) { return 0, domain.ErrNotFound },
	}
	s := NewSyncer(syncConfig(), zerolog.Nop(), store, okConnectors())
	_, err := s.Run(context.Background())
	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{SourceJira}, se.Sources)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncRerunIsIdempotentOnSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := repo.OpenSQLite(ctx, ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))

	cfg := syncConfig()
	cfg.JiraProjectKey = ""
	conns := connectors.Mocks(zerolog.Nop())
	conns.Builds = mock.Builds{Now: fixedClock}
	s := NewSyncer(cfg, zerolog.Nop(), store, conns)
	s.now = fixedClock

	first, err := s.Run(ctx)
	require.NoError(t, err)
	costAfterFirst, err := store.SumCostActuals(ctx, testNow.AddDate(0, 0, -2), testNow.AddDate(0, 0, 1))
	require.NoError(t, err)

	second, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Sources[0].Fetched, first.Sources[0].Written)
	assert.Zero(t, second.Sources[0].Written)
	assert.Equal(t, second.Sources[0].Fetched, second.Sources[0].Skipped)

	costAfterSecond, err := store.SumCostActuals(ctx, testNow.AddDate(0, 0, -2), testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, costAfterFirst.Equal(costAfterSecond), "%s != %s", costAfterFirst, costAfterSecond)

	snaps, err := store.ListQualitySnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 3, "two sonar projects and one checkmarx project, one row each")

	last, err := store.LastSyncRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, second.RunID, last.RunID)
	assert.True(t, last.Success)
}
