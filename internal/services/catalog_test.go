package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

func TestEpicDetail(t *testing.T) {
	owner := int64(4)
	store := &fakeStore{
		getEpic: func(id int64) (*domain.EpicView, error) {
			if id != 1 {
				return nil, nil
			}
			return &domain.EpicView{Epic: domain.Epic{ID: 1, Title: "Landing zone", Status: domain.StatusInProgress}, TeamName: "Change Team", ActivityCount: 2}, nil
		},
		activitiesByEpic: func(epicID int64) ([]domain.ActivityView, error) {
			return []domain.ActivityView{
				{Activity: domain.Activity{ID: 10, EpicID: epicID, Title: "Hub network", OwnerUserID: &owner}, OwnerName: "Sam"},
				{Activity: domain.Activity{ID: 11, EpicID: epicID, Title: "Policies"}},
			}, nil
		},
	}
	c := NewCatalog(store)

	got, err := c.EpicDetail(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Change Team", got.TeamName)
	require.Len(t, got.Activities, 2)
	assert.Equal(t, "Sam", got.Activities[0].OwnerName)
	assert.Equal(t, "Unassigned", got.Activities[1].OwnerName)
	assert.Equal(t, []string{}, got.Activities[1].Tags)

	missing, err := c.EpicDetail(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestActivityDetailMissing(t *testing.T) {
	got, err := NewCatalog(&fakeStore{}).ActivityDetail(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompleteDbaMaintenanceUsesClock(t *testing.T) {
	var gotAt time.Time
	store := &fakeStore{completeDba: func(id int64, at time.Time) error {
		assert.Equal(t, int64(3), id)
		gotAt = at
		return nil
	}}
	c := NewCatalog(store)
	c.now = fixedClock
	require.NoError(t, c.CompleteDbaMaintenance(context.Background(), 3))
	assert.Equal(t, testNow, gotAt)
}

func TestListDbaMaintenanceCompletedFlag(t *testing.T) {
	done := testNow
	store := &fakeStore{listDba: func() ([]domain.DbaMaintenance, error) {
		return []domain.DbaMaintenance{{ID: 1}, {ID: 2, CompletedAt: &done}}, nil
	}}
	got, err := NewCatalog(store).ListDbaMaintenance(context.Background())
	require.NoError(t, err)
	assert.False(t, got[0].IsCompleted)
	assert.True(t, got[1].IsCompleted)
}

func TestLeaderboardRanksAndDefaultsTeam(t *testing.T) {
	store := &fakeStore{leaderboard: func(limit int) ([]domain.LeaderboardEntry, error) {
		assert.Equal(t, 20, limit)
		return []domain.LeaderboardEntry{
			{UserID: 4, DisplayName: "Jordan", TeamName: "DBA Team", TotalPoints: 410, KudosReceived: 2},
			{UserID: 1, DisplayName: "Admin"},
		}, nil
	}}
	got, err := NewCatalog(store).Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[0].KudosReceived)
	assert.Equal(t, 2, got[1].Rank)
	assert.Equal(t, "Platform", got[1].TeamName)
}

func TestWhoWeAre(t *testing.T) {
	store := &fakeStore{teams: func() ([]domain.TeamWithMembers, error) {
		return []domain.TeamWithMembers{{
			Team:    domain.Team{ID: 1, Name: "Change Team", Type: domain.TeamChange},
			Members: []domain.User{{ID: 2, DisplayName: "Alex", Role: "Engineer"}},
		}}, nil
	}}
	got, err := NewCatalog(store).WhoWeAre(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alex", got[0].Members[0].DisplayName)
}

func TestCostOptimizationWork(t *testing.T) {
	store := &fakeStore{costActivities: func(teamType domain.TeamType, keyword string) ([]domain.ActivityView, error) {
		assert.Equal(t, domain.TeamChange, teamType)
		assert.Equal(t, "Cost", keyword)
		return []domain.ActivityView{{Activity: domain.Activity{ID: 7, Title: "Cost review", Status: domain.StatusBacklog}}}, nil
	}}
	got, err := NewCatalog(store).CostOptimizationWork(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "No description provided.", got[0].Description)
	assert.Equal(t, "Unassigned", got[0].OwnerName)
	assert.True(t, got[0].EstimatedSavings.IsZero())
}
