/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

const (
	unassignedOwner   = "Unassigned"
	defaultTeamName   = "Platform"
	leaderboardSize   = 20
	costKeyword       = "Cost"
	noDescriptionText = "No description provided."
)

type CatalogStore interface {
	ListEpics(ctx context.Context) ([]domain.EpicView, error)
	GetEpic(ctx context.Context, id int64) (*domain.EpicView, error)
	ListActivities(ctx context.Context) ([]domain.ActivityView, error)
	ListActivitiesByEpic(ctx context.Context, epicID int64) ([]domain.ActivityView, error)
	GetActivity(ctx context.Context, id int64) (*domain.ActivityView, error)
	CostOptimizationActivities(ctx context.Context, teamType domain.TeamType, keyword string) ([]domain.ActivityView, error)
	ListDbaMaintenance(ctx context.Context) ([]domain.DbaMaintenance, error)
	CompleteDbaMaintenance(ctx context.Context, id int64, at time.Time) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	ListTeamsWithMembers(ctx context.Context) ([]domain.TeamWithMembers, error)
	LastSyncRun(ctx context.Context) (*domain.SyncRun, error)
}

type EpicDTO struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	TeamName      string            `json:"teamName"`
	Status        domain.EpicStatus `json:"status"`
	JiraKey       *string           `json:"jiraKey"`
	ActivityCount int               `json:"activityCount"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type EpicDetail struct {
	EpicDTO
	Activities []ActivityDTO `json:"activities"`
}

type ActivityDTO struct {
	ID          int64             `json:"id"`
	EpicID      int64             `json:"epicId"`
	EpicTitle   string            `json:"epicTitle"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	TeamName    string            `json:"teamName"`
	Status      domain.EpicStatus `json:"status"`
	OwnerName   string            `json:"ownerName"`
	DueAt       *time.Time        `json:"dueAt"`
	CompletedAt *time.Time        `json:"completedAt"`
	Tags        []string          `json:"tags"`
}

type DbaMaintenanceDTO struct {
	ID          int64                `json:"id"`
	Env         domain.DbEnvironment `json:"env"`
	Instance    string               `json:"instance"`
	Database    string               `json:"database"`
	TaskType    string               `json:"taskType"`
	PlannedAt   time.Time            `json:"plannedAt"`
	CompletedAt *time.Time           `json:"completedAt"`
	IsCompleted bool                 `json:"isCompleted"`
	Notes       string               `json:"notes"`
	Impact      string               `json:"impact"`
}

type LeaderboardEntryDTO struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"userId"`
	DisplayName   string `json:"displayName"`
	TeamName      string `json:"teamName"`
	TotalPoints   int    `json:"totalPoints"`
	KudosReceived int    `json:"kudosReceived"`
}

type MemberDTO struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

type TeamDTO struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        domain.TeamType `json:"type"`
	Description string          `json:"description"`
	Members     []MemberDTO     `json:"members"`
}

type CostOptimizationDTO struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.EpicStatus `json:"status"`
	OwnerName   string            `json:"ownerName"`
	// EstimatedSavings has no source yet and is always zero.
	EstimatedSavings decimal.Decimal `json:"estimatedSavings"`
}

// Catalog serves the read pages: epics, activities, DBA work, people.
type Catalog struct {
	store CatalogStore
	now   func() time.Time
}

func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

func epicDTO(v domain.EpicView) EpicDTO {
	return EpicDTO{
		ID:            v.ID,
		Title:         v.Title,
		Description:   v.Description,
		TeamName:      v.TeamName,
		Status:        v.Status,
		JiraKey:       v.JiraKey,
		ActivityCount: v.ActivityCount,
		UpdatedAt:     v.UpdatedAt,
	}
}

func activityDTO(v domain.ActivityView) ActivityDTO {
	owner := v.OwnerName
	if owner == "" {
		owner = unassignedOwner
	}
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return ActivityDTO{
		ID:          v.ID,
		EpicID:      v.EpicID,
		EpicTitle:   v.EpicTitle,
		Title:       v.Title,
		Description: v.Description,
		TeamName:    v.TeamName,
		Status:      v.Status,
		OwnerName:   owner,
		DueAt:       v.DueAt,
		CompletedAt: v.CompletedAt,
		Tags:        tags,
	}
}

func activityDTOs(vs []domain.ActivityView) []ActivityDTO {
	out := make([]ActivityDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, activityDTO(v))
	}
	return out
}

func (c *Catalog) ListEpics(ctx context.Context) ([]EpicDTO, error) {
	rows, err := c.store.ListEpics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	out := make([]EpicDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, epicDTO(r))
	}
	return out, nil
}

// EpicDetail returns nil when the epic does not exist.
func (c *Catalog) EpicDetail(ctx context.Context, id int64) (*EpicDetail, error) {
	e, err := c.store.GetEpic(ctx, id)
	if err != nil || e == nil {
		return nil, err
	}
	acts, err := c.store.ListActivitiesByEpic(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("epic %d activities: %w", id, err)
	}
	return &EpicDetail{EpicDTO: epicDTO(*e), Activities: activityDTOs(acts)}, nil
}

func (c *Catalog) ListActivities(ctx context.Context) ([]ActivityDTO, error) {
	rows, err := c.store.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activityDTOs(rows), nil
}

// ActivityDetail returns nil when the activity does not exist.
func (c *Catalog) ActivityDetail(ctx context.Context, id int64) (*ActivityDTO, error) {
	v, err := c.store.GetActivity(ctx, id)
	if err != nil || v == nil {
		return nil, err
	}
	dto := activityDTO(*v)
	return &dto, nil
}

func (c *Catalog) ListDbaMaintenance(ctx context.Context) ([]DbaMaintenanceDTO, error) {
	rows, err := c.store.ListDbaMaintenance(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dba maintenance: %w", err)
	}
	out := make([]DbaMaintenanceDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, DbaMaintenanceDTO{
			ID:          r.ID,
			Env:         r.Env,
			Instance:    r.Instance,
			Database:    r.Database,
			TaskType:    r.TaskType,
			PlannedAt:   r.PlannedAt,
			CompletedAt: r.CompletedAt,
			IsCompleted: r.CompletedAt != nil,
			Notes:       r.Notes,
			Impact:      r.Impact,
		})
	}
	return out, nil
}

// CompleteDbaMaintenance marks a task done now. Completing a finished task
// keeps its first completion time; a missing id yields domain.ErrNotFound.
func (c *Catalog) CompleteDbaMaintenance(ctx context.Context, id int64) error {
	return c.store.CompleteDbaMaintenance(ctx, id, c.now().UTC())
}

func (c *Catalog) Leaderboard(ctx context.Context) ([]LeaderboardEntryDTO, error) {
	rows, err := c.store.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	out := make([]LeaderboardEntryDTO, 0, len(rows))
	for i, r := range rows {
		team := r.TeamName
		if team == "" {
			team = defaultTeamName
		}
		out = append(out, LeaderboardEntryDTO{
			Rank:          i + 1,
			UserID:        r.UserID,
			DisplayName:   r.DisplayName,
			TeamName:      team,
			TotalPoints:   r.TotalPoints,
			KudosReceived: r.KudosReceived,
		})
	}
	return out, nil
}

func (c *Catalog) WhoWeAre(ctx context.Context) ([]TeamDTO, error) {
	teams, err := c.store.ListTeamsWithMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("teams: %w", err)
	}
	out := make([]TeamDTO, 0, len(teams))
	for _, t := range teams {
		members := make([]MemberDTO, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, MemberDTO{ID: m.ID, DisplayName: m.DisplayName, Email: m.Email, Role: m.Role})
		}
		out = append(out, TeamDTO{ID: t.ID, Name: t.Name, Type: t.Type, Description: t.Description, Members: members})
	}
	return out, nil
}

// CostOptimizationWork lists Change-team activities and anything mentioning
// cost in its title or description.
func (c *Catalog) CostOptimizationWork(ctx context.Context) ([]CostOptimizationDTO, error) {
	rows, err := c.store.CostOptimizationActivities(ctx, domain.TeamChange, costKeyword)
	if err != nil {
		return nil, fmt.Errorf("cost optimization: %w", err)
	}
	out := make([]CostOptimizationDTO, 0, len(rows))
	for _, r := range rows {
		desc := r.Description
		if desc == "" {
			desc = noDescriptionText
		}
		owner := r.OwnerName
		if owner == "" {
			owner = unassignedOwner
		}
		out = append(out, CostOptimizationDTO{
			ID:               r.ID,
			Title:            r.Title,
			Description:      desc,
			Status:           r.Status,
			OwnerName:        owner,
			EstimatedSavings: decimal.Zero,
		})
	}
	return out, nil
}

// LastSyncRun returns nil before the first sync.
func (c *Catalog) LastSyncRun(ctx context.Context) (*domain.SyncRun, error) {
	return c.store.LastSyncRun(ctx)
}
