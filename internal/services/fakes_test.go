package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// fakeStore satisfies every store contract; unset functions return zero values.
type fakeStore struct {
	tryLock          func(name string) (func(), bool, error)
	startSyncRun     func(runID string, startedAt time.Time) (int64, error)
	finishSyncRun    func(id int64, finishedAt time.Time, success bool, sources []domain.SourceStats, errText string) error
	insertPipelines  func(runs []domain.PipelineRun) (int, error)
	upsertCosts      func(rows []domain.CostActual) (int, error)
	upsertQuality    func(snaps []domain.CodeQualitySnapshot) (int, error)
	upsertEpics      func(epics []domain.Epic) (int, error)
	teamIDByName     func(name string) (int64, error)
	epicsByStatus    func() (map[domain.EpicStatus]int, error)
	deploymentsSince func(since time.Time) (int, error)
	latestRegression func() (*domain.RegressionRun, error)
	costTarget       func(year int) (*domain.CostTarget, error)
	sumCosts         func(from, to time.Time) (decimal.Decimal, error)
	qualitySnapshots func() ([]domain.CodeQualitySnapshot, error)
	taggedActivities func(teamType domain.TeamType, tag string) (int, error)
	outstandingDba   func() (int, error)
	touchedSince     func(since time.Time) ([]domain.ActivityView, error)
	completedMatch   func(since time.Time, fragment string) (int, error)
	insertNewsletter func(n *domain.Newsletter) error
	listNewsletters  func() ([]domain.Newsletter, error)
	listEpics        func() ([]domain.EpicView, error)
	getEpic          func(id int64) (*domain.EpicView, error)
	listActivities   func() ([]domain.ActivityView, error)
	activitiesByEpic func(epicID int64) ([]domain.ActivityView, error)
	getActivity      func(id int64) (*domain.ActivityView, error)
	costActivities   func(teamType domain.TeamType, keyword string) ([]domain.ActivityView, error)
	listDba          func() ([]domain.DbaMaintenance, error)
	completeDba      func(id int64, at time.Time) error
	leaderboard      func(limit int) ([]domain.LeaderboardEntry, error)
	teams            func() ([]domain.TeamWithMembers, error)
	lastSyncRun      func() (*domain.SyncRun, error)
}

func (f *fakeStore) TryLock(_ context.Context, name string) (func(), bool, error) {
	if f.tryLock == nil {
		return func() {}, true, nil
	}
	return f.tryLock(name)
}

func (f *fakeStore) StartSyncRun(_ context.Context, runID string, startedAt time.Time) (int64, error) {
	if f.startSyncRun == nil {
		return 1, nil
	}
	return f.startSyncRun(runID, startedAt)
}

func (f *fakeStore) FinishSyncRun(_ context.Context, id int64, finishedAt time.Time, success bool, sources []domain.SourceStats, errText string) error {
	if f.finishSyncRun == nil {
		return nil
	}
	return f.finishSyncRun(id, finishedAt, success, sources, errText)
}

func (f *fakeStore) InsertPipelineRuns(_ context.Context, runs []domain.PipelineRun) (int, error) {
	if f.insertPipelines == nil {
		return len(runs), nil
	}
	return f.insertPipelines(runs)
}

func (f *fakeStore) UpsertCostActuals(_ context.Context, rows []domain.CostActual) (int, error) {
	if f.upsertCosts == nil {
		return len(rows), nil
	}
	return f.upsertCosts(rows)
}

func (f *fakeStore) UpsertQualitySnapshots(_ context.Context, snaps []domain.CodeQualitySnapshot) (int, error) {
	if f.upsertQuality == nil {
		return len(snaps), nil
	}
	return f.upsertQuality(snaps)
}

func (f *fakeStore) UpsertEpics(_ context.Context, epics []domain.Epic) (int, error) {
	if f.upsertEpics == nil {
		return len(epics), nil
	}
	return f.upsertEpics(epics)
}

func (f *fakeStore) TeamIDByName(_ context.Context, name string) (int64, error) {
	if f.teamIDByName == nil {
		return 1, nil
	}
	return f.teamIDByName(name)
}

func (f *fakeStore) CountEpicsByStatus(context.Context) (map[domain.EpicStatus]int, error) {
	if f.epicsByStatus == nil {
		return map[domain.EpicStatus]int{}, nil
	}
	return f.epicsByStatus()
}

func (f *fakeStore) CountDeploymentsSince(_ context.Context, since time.Time) (int, error) {
	if f.deploymentsSince == nil {
		return 0, nil
	}
	return f.deploymentsSince(since)
}

func (f *fakeStore) LatestRegressionRun(context.Context) (*domain.RegressionRun, error) {
	if f.latestRegression == nil {
		return nil, nil
	}
	return f.latestRegression()
}

func (f *fakeStore) CostTargetForYear(_ context.Context, year int) (*domain.CostTarget, error) {
	if f.costTarget == nil {
		return nil, nil
	}
	return f.costTarget(year)
}

func (f *fakeStore) SumCostActuals(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	if f.sumCosts == nil {
		return decimal.Zero, nil
	}
	return f.sumCosts(from, to)
}

func (f *fakeStore) ListQualitySnapshots(context.Context) ([]domain.CodeQualitySnapshot, error) {
	if f.qualitySnapshots == nil {
		return nil, nil
	}
	return f.qualitySnapshots()
}

func (f *fakeStore) CountTaggedActivities(_ context.Context, teamType domain.TeamType, tag string) (int, error) {
	if f.taggedActivities == nil {
		return 0, nil
	}
	return f.taggedActivities(teamType, tag)
}

func (f *fakeStore) CountOutstandingDba(context.Context) (int, error) {
	if f.outstandingDba == nil {
		return 0, nil
	}
	return f.outstandingDba()
}

func (f *fakeStore) ActivitiesTouchedSince(_ context.Context, since time.Time) ([]domain.ActivityView, error) {
	if f.touchedSince == nil {
		return nil, nil
	}
	return f.touchedSince(since)
}

func (f *fakeStore) CountCompletedActivitiesMatching(_ context.Context, since time.Time, fragment string) (int, error) {
	if f.completedMatch == nil {
		return 0, nil
	}
	return f.completedMatch(since, fragment)
}

func (f *fakeStore) InsertNewsletter(_ context.Context, n *domain.Newsletter) error {
	if f.insertNewsletter == nil {
		n.ID = 1
		return nil
	}
	return f.insertNewsletter(n)
}

func (f *fakeStore) ListNewsletters(context.Context) ([]domain.Newsletter, error) {
	if f.listNewsletters == nil {
		return nil, nil
	}
	return f.listNewsletters()
}

func (f *fakeStore) ListEpics(context.Context) ([]domain.EpicView, error) {
	if f.listEpics == nil {
		return nil, nil
	}
	return f.listEpics()
}

func (f *fakeStore) GetEpic(_ context.Context, id int64) (*domain.EpicView, error) {
	if f.getEpic == nil {
		return nil, nil
	}
	return f.getEpic(id)
}

func (f *fakeStore) ListActivities(context.Context) ([]domain.ActivityView, error) {
	if f.listActivities == nil {
		return nil, nil
	}
	return f.listActivities()
}

func (f *fakeStore) ListActivitiesByEpic(_ context.Context, epicID int64) ([]domain.ActivityView, error) {
	if f.activitiesByEpic == nil {
		return nil, nil
	}
	return f.activitiesByEpic(epicID)
}

func (f *fakeStore) GetActivity(_ context.Context, id int64) (*domain.ActivityView, error) {
	if f.getActivity == nil {
		return nil, nil
	}
	return f.getActivity(id)
}

func (f *fakeStore) CostOptimizationActivities(_ context.Context, teamType domain.TeamType, keyword string) ([]domain.ActivityView, error) {
	if f.costActivities == nil {
		return nil, nil
	}
	return f.costActivities(teamType, keyword)
}

func (f *fakeStore) ListDbaMaintenance(context.Context) ([]domain.DbaMaintenance, error) {
	if f.listDba == nil {
		return nil, nil
	}
	return f.listDba()
}

func (f *fakeStore) CompleteDbaMaintenance(_ context.Context, id int64, at time.Time) error {
	if f.completeDba == nil {
		return nil
	}
	return f.completeDba(id, at)
}

func (f *fakeStore) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if f.leaderboard == nil {
		return nil, nil
	}
	return f.leaderboard(limit)
}

func (f *fakeStore) ListTeamsWithMembers(context.Context) ([]domain.TeamWithMembers, error) {
	if f.teams == nil {
		return nil, nil
	}
	return f.teams()
}

func (f *fakeStore) LastSyncRun(context.Context) (*domain.SyncRun, error) {
	if f.lastSyncRun == nil {
		return nil, nil
	}
	return f.lastSyncRun()
}

// Connector fakes.

type buildsFunc func(lookbackDays int) ([]domain.PipelineBuild, error)

func (f buildsFunc) FetchRecentPipelineRuns(_ context.Context, lookbackDays int) ([]domain.PipelineBuild, error) {
	return f(lookbackDays)
}

type costsFunc func(start, end time.Time, scope string) ([]domain.CostRecord, error)

func (f costsFunc) FetchCostData(_ context.Context, start, end time.Time, scope string) ([]domain.CostRecord, error) {
	return f(start, end, scope)
}

type qualityFunc func(key string) (domain.QualityMetrics, error)

func (f qualityFunc) FetchProjectQualityMetrics(_ context.Context, key string) (domain.QualityMetrics, error) {
	return f(key)
}

type scansFunc func(project string) (domain.SecurityScan, error)

func (f scansFunc) FetchLatestScan(_ context.Context, project string) (domain.SecurityScan, error) {
	return f(project)
}

type epicsFunc func(projectKey string) ([]domain.ExternalEpic, error)

func (f epicsFunc) FetchEpics(_ context.Context, projectKey string) ([]domain.ExternalEpic, error) {
	return f(projectKey)
}

type textGenFunc func(period string, start, end time.Time, data string) (string, error)

func (f textGenFunc) GenerateNewsletterText(_ context.Context, period string, start, end time.Time, data string) (string, error) {
	return f(period, start, end, data)
}

type notifierFunc func(title, url string) error

func (f notifierFunc) SendNotification(_ context.Context, title, url string) error {
	return f(title, url)
}

var testNow = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }
