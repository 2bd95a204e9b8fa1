package repo

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

var seedNow = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	ok, err := s.Seed(context.Background(), seedNow)
	require.NoError(t, err)
	require.True(t, ok)
	return s
}

func TestMigrateTwice(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	assert.Equal(t, "sqlite", s.Driver())
}

func TestSeedOnlyOnce(t *testing.T) {
	s := seededStore(t)
	ok, err := s.Seed(context.Background(), seedNow)
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := s.CountTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDashboardAggregates(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	byStatus, err := s.CountEpicsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, byStatus[domain.StatusInProgress])
	assert.Equal(t, 1, byStatus[domain.StatusBacklog])
	assert.Zero(t, byStatus[domain.StatusDone])

	run, err := s.LatestRegressionRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 250, run.Total)
	assert.Equal(t, 230, run.Passed)
	assert.InDelta(t, 92.0, domain.PassRate(run), 1e-9)

	target, err := s.CostTargetForYear(ctx, 2026)
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.True(t, target.AnnualTarget.Equal(decimal.NewFromInt(350000)))
	assert.Equal(t, "29166.67", target.MonthlyTarget.StringFixed(2))

	missing, err := s.CostTargetForYear(ctx, 2031)
	require.NoError(t, err)
	assert.Nil(t, missing)

	from, to := domain.YearRange(2026)
	sum, err := s.SumCostActuals(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, "86401.11", sum.StringFixed(2))

	deployed, err := s.CountDeploymentsSince(ctx, seedNow.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 4, deployed)

	genai, err := s.CountTaggedActivities(ctx, domain.TeamChange, "genai")
	require.NoError(t, err)
	assert.Equal(t, 1, genai)

	retries, err := s.CountCompletedActivitiesMatching(ctx, seedNow.AddDate(0, 0, -7), "RETRY")
	require.NoError(t, err)
	assert.Equal(t, 1, retries)

	snaps, err := s.ListQualitySnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 6)
	latest := domain.LatestPerProject(snaps)
	require.Len(t, latest, 2)
	assert.Equal(t, "platform-api", latest[0].ProjectKey)
	require.NotNil(t, latest[0].CoveragePct)
	assert.InDelta(t, 76.8, *latest[0].CoveragePct, 1e-9)
	assert.Nil(t, latest[1].CoveragePct)
}

func TestCompleteDbaMaintenance(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	n, err := s.CountOutstandingDba(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	tasks, err := s.ListDbaMaintenance(ctx)
	require.NoError(t, err)
	var open int64
	for _, tk := range tasks {
		if tk.CompletedAt == nil {
			open = tk.ID
			break
		}
	}
	require.NotZero(t, open)

	first := seedNow.Add(time.Hour)
	require.NoError(t, s.CompleteDbaMaintenance(ctx, open, first))
	require.NoError(t, s.CompleteDbaMaintenance(ctx, open, first.Add(time.Hour)))

	n, err = s.CountOutstandingDba(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks, err = s.ListDbaMaintenance(ctx)
	require.NoError(t, err)
	for _, tk := range tasks {
		if tk.ID == open {
			require.NotNil(t, tk.CompletedAt)
			assert.True(t, tk.CompletedAt.Equal(first))
		}
	}

	err = s.CompleteDbaMaintenance(ctx, 9999, first)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogQueries(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	epics, err := s.ListEpics(ctx)
	require.NoError(t, err)
	require.Len(t, epics, 3)
	counts := map[string]int{}
	for _, e := range epics {
		counts[e.Title] = e.ActivityCount
	}
	assert.Equal(t, 3, counts["2026 Cost Optimization"])
	assert.Equal(t, 1, counts["Database Performance Tuning"])

	epic, err := s.GetEpic(ctx, epics[0].ID)
	require.NoError(t, err)
	require.NotNil(t, epic)
	assert.Equal(t, epics[0].Title, epic.Title)

	none, err := s.GetEpic(ctx, 4242)
	require.NoError(t, err)
	assert.Nil(t, none)

	acts, err := s.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 6)
	var tagged *domain.ActivityView
	for i := range acts {
		if acts[i].Title == "Release notes summarizer" {
			tagged = &acts[i]
		}
	}
	require.NotNil(t, tagged)
	assert.Equal(t, []string{"GenAI"}, tagged.Tags)
	assert.Equal(t, "Jordan Lee", tagged.OwnerName)
	assert.Equal(t, domain.TeamChange, tagged.TeamType)

	got, err := s.GetActivity(ctx, tagged.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tagged.EpicTitle, got.EpicTitle)

	byEpic, err := s.ListActivitiesByEpic(ctx, tagged.EpicID)
	require.NoError(t, err)
	assert.Len(t, byEpic, 3)

	costWork, err := s.CostOptimizationActivities(ctx, domain.TeamChange, "Cost")
	require.NoError(t, err)
	assert.Len(t, costWork, 3)

	recent, err := s.ActivitiesTouchedSince(ctx, seedNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Len(t, recent, 6)

	board, err := s.Leaderboard(ctx, 20)
	require.NoError(t, err)
	require.Len(t, board, 5)
	assert.Equal(t, "Jordan Lee", board[0].DisplayName)
	assert.Equal(t, "Change Team", board[0].TeamName)
	assert.Equal(t, 2, board[0].KudosReceived)
	assert.Equal(t, "", board[4].TeamName)

	teams, err := s.ListTeamsWithMembers(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Equal(t, "Change Team", teams[0].Name)
	assert.Equal(t, "Service Team", teams[2].Name)
	assert.Len(t, teams[2].Members, 2)

	tpl, err := s.ActiveTemplate(ctx, "Newsletter", domain.ChannelTeams)
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.Contains(t, tpl.Content, "New Newsletter Published")
}

func TestFactWritesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	done := seedNow.Add(-time.Hour)
	runs := []domain.PipelineRun{
		{Env: domain.EnvDev, PipelineName: "api-ci", ExternalID: "ado-101", Status: domain.PipelineSucceeded, DurationSeconds: 300, QueuedAt: seedNow.Add(-2 * time.Hour), CompletedAt: &done},
		{Env: domain.EnvDev, PipelineName: "web-ci", ExternalID: "ado-102", Status: domain.PipelineRunning, QueuedAt: seedNow.Add(-time.Hour)},
	}
	n, err := s.InsertPipelineRuns(ctx, runs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.InsertPipelineRuns(ctx, runs)
	require.NoError(t, err)
	assert.Zero(t, n)

	day := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	from, to := domain.YearRange(2026)
	before, err := s.SumCostActuals(ctx, from, to)
	require.NoError(t, err)

	_, err = s.UpsertCostActuals(ctx, []domain.CostActual{{Date: day, ScopeID: "DefaultScope", Amount: decimal.RequireFromString("100.25"), Currency: "GBP"}})
	require.NoError(t, err)
	_, err = s.UpsertCostActuals(ctx, []domain.CostActual{{Date: day.Add(5 * time.Hour), ScopeID: "DefaultScope", Amount: decimal.RequireFromString("120.50"), Currency: "GBP"}})
	require.NoError(t, err)
	after, err := s.SumCostActuals(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, "120.50", after.Sub(before).StringFixed(2))

	cov := 81.0
	snap := domain.CodeQualitySnapshot{Source: domain.SourceSonarQube, ProjectKey: "platform-ops", WeekStart: day, Bugs: 4, CoveragePct: &cov}
	_, err = s.UpsertQualitySnapshots(ctx, []domain.CodeQualitySnapshot{snap})
	require.NoError(t, err)
	snap.Bugs = 2
	_, err = s.UpsertQualitySnapshots(ctx, []domain.CodeQualitySnapshot{snap})
	require.NoError(t, err)
	snaps, err := s.ListQualitySnapshots(ctx)
	require.NoError(t, err)
	var ops []domain.CodeQualitySnapshot
	for _, x := range snaps {
		if x.ProjectKey == "platform-ops" {
			ops = append(ops, x)
		}
	}
	require.Len(t, ops, 1)
	assert.Equal(t, 2, ops[0].Bugs)
	assert.True(t, ops[0].WeekStart.Equal(day))

	teamID, err := s.TeamIDByName(ctx, "Change Team")
	require.NoError(t, err)
	key := "OPS-7"
	epic := domain.Epic{Title: "Spot instances", TeamID: teamID, Status: domain.StatusBacklog, JiraKey: &key, CreatedBy: "Jira"}
	_, err = s.UpsertEpics(ctx, []domain.Epic{epic})
	require.NoError(t, err)
	epic.Status = domain.StatusDone
	_, err = s.UpsertEpics(ctx, []domain.Epic{epic})
	require.NoError(t, err)
	total, err := s.CountEpics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	byStatus, err := s.CountEpicsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, byStatus[domain.StatusDone])

	_, err = s.UpsertEpics(ctx, []domain.Epic{{Title: "no key", TeamID: teamID}})
	assert.Error(t, err)

	_, err = s.TeamIDByName(ctx, "Nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTryLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	release, ok, err := s.TryLock(ctx, "nightly-sync")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.TryLock(ctx, "nightly-sync")
	require.NoError(t, err)
	assert.False(t, ok)

	other, ok, err := s.TryLock(ctx, "weekly-newsletter")
	require.NoError(t, err)
	require.True(t, ok)
	other()

	release()
	again, ok, err := s.TryLock(ctx, "nightly-sync")
	require.NoError(t, err)
	require.True(t, ok)
	again()
}

func TestNewslettersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	older := &domain.Newsletter{Period: domain.PeriodWeekly, RangeStart: seedNow.AddDate(0, 0, -14), RangeEnd: seedNow.AddDate(0, 0, -7),
		Markdown: "old", HTML: "old", CreatedAt: seedNow.AddDate(0, 0, -7)}
	newer := &domain.Newsletter{Period: domain.PeriodMonthly, RangeStart: seedNow.AddDate(0, 0, -30), RangeEnd: seedNow,
		Markdown: "a\nb", HTML: "a<br/>b", CreatedAt: seedNow}
	require.NoError(t, s.InsertNewsletter(ctx, older))
	require.NoError(t, s.InsertNewsletter(ctx, newer))
	assert.NotZero(t, newer.ID)

	list, err := s.ListNewsletters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, domain.PeriodMonthly, list[0].Period)
	assert.True(t, list[0].RangeEnd.Equal(seedNow))
	assert.Equal(t, "old", list[1].Markdown)
}

func TestSyncRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	last, err := s.LastSyncRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	id, err := s.StartSyncRun(ctx, "run-1", seedNow)
	require.NoError(t, err)
	stats := []domain.SourceStats{
		{Source: "pipeline_runs", Fetched: 3, Written: 2, Skipped: 1},
		{Source: "cost", Error: "upstream 503"},
	}
	require.NoError(t, s.FinishSyncRun(ctx, id, seedNow.Add(time.Minute), false, stats, "cost: upstream 503"))

	last, err = s.LastSyncRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.RunID)
	assert.False(t, last.Success)
	require.NotNil(t, last.FinishedAt)
	assert.Equal(t, stats, last.Sources)
	assert.Equal(t, "cost: upstream 503", last.Error)
}
