/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

func (s *Store) activitySelect() string {
	return `SELECT a.id, a.epic_id, a.team_id, a.title, a.description, a.status, a.owner_user_id,
            a.start_at, a.due_at, a.completed_at, ` + s.d.tagsJSON + `, a.created_at, a.updated_at,
            t.name, t.type, e.title, COALESCE(u.display_name, '')
        FROM activities a
        JOIN teams t ON t.id = a.team_id
        JOIN epics e ON e.id = a.epic_id
        LEFT JOIN users u ON u.id = a.owner_user_id`
}

func scanActivity(row rowScanner) (domain.ActivityView, error) {
	var v domain.ActivityView
	var status, tags, teamType string
	err := row.Scan(&v.ID, &v.EpicID, &v.TeamID, &v.Title, &v.Description, &status, &v.OwnerUserID,
		&v.StartAt, &v.DueAt, &v.CompletedAt, &tags, &v.CreatedAt, &v.UpdatedAt,
		&v.TeamName, &teamType, &v.EpicTitle, &v.OwnerName)
	if err != nil {
		return v, err
	}
	v.Status = domain.EpicStatus(status)
	v.TeamType = domain.TeamType(teamType)
	v.StartAt, v.DueAt, v.CompletedAt = utcPtr(v.StartAt), utcPtr(v.DueAt), utcPtr(v.CompletedAt)
	v.CreatedAt, v.UpdatedAt = v.CreatedAt.UTC(), v.UpdatedAt.UTC()
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
			return v, fmt.Errorf("activity %d tags: %w", v.ID, err)
		}
	}
	return v, nil
}

func (s *Store) queryActivities(ctx context.Context, where, order string, args ...any) ([]domain.ActivityView, error) {
	q := s.activitySelect()
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY " + order
	rs, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []domain.ActivityView
	for rs.Next() {
		v, err := scanActivity(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rs.Err()
}

// ListActivities returns every activity, most recently updated first.
func (s *Store) ListActivities(ctx context.Context) ([]domain.ActivityView, error) {
	return s.queryActivities(ctx, "", "a.updated_at DESC, a.id DESC")
}

func (s *Store) ListActivitiesByEpic(ctx context.Context, epicID int64) ([]domain.ActivityView, error) {
	return s.queryActivities(ctx, "a.epic_id = $1", "a.updated_at DESC, a.id DESC", epicID)
}

// ActivitiesTouchedSince returns activities completed, created or updated at
// or after since, most recently updated first.
func (s *Store) ActivitiesTouchedSince(ctx context.Context, since time.Time) ([]domain.ActivityView, error) {
	return s.queryActivities(ctx, "(a.completed_at >= $1 OR a.created_at >= $1 OR a.updated_at >= $1)",
		"a.updated_at DESC, a.id DESC", since.UTC())
}

// CostOptimizationActivities returns activities of teams of teamType, plus
// any activity whose title or description mentions keyword.
func (s *Store) CostOptimizationActivities(ctx context.Context, teamType domain.TeamType, keyword string) ([]domain.ActivityView, error) {
	where := fmt.Sprintf("(t.type = $1 OR a.title %[1]s $2 OR a.description %[1]s $2)", s.d.like)
	return s.queryActivities(ctx, where, "a.updated_at DESC, a.id DESC", string(teamType), "%"+keyword+"%")
}

// GetActivity returns nil when id does not exist.
func (s *Store) GetActivity(ctx context.Context, id int64) (*domain.ActivityView, error) {
	v, err := scanActivity(s.db.QueryRow(ctx, s.activitySelect()+" WHERE a.id = $1", id))
	return optional(&v, err)
}

const epicSelect = `SELECT e.id, e.title, e.description, e.team_id, e.status, e.jira_key, e.created_by,
        e.created_at, e.updated_at, t.name,
        (SELECT COUNT(*) FROM activities a WHERE a.epic_id = e.id)
    FROM epics e JOIN teams t ON t.id = e.team_id`

func scanEpic(row rowScanner) (domain.EpicView, error) {
	var v domain.EpicView
	var status string
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.TeamID, &status, &v.JiraKey, &v.CreatedBy,
		&v.CreatedAt, &v.UpdatedAt, &v.TeamName, &v.ActivityCount)
	v.Status = domain.EpicStatus(status)
	v.CreatedAt, v.UpdatedAt = v.CreatedAt.UTC(), v.UpdatedAt.UTC()
	return v, err
}

// ListEpics returns every epic, most recently updated first.
func (s *Store) ListEpics(ctx context.Context) ([]domain.EpicView, error) {
	rs, err := s.db.Query(ctx, epicSelect+" ORDER BY e.updated_at DESC, e.id DESC")
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []domain.EpicView
	for rs.Next() {
		v, err := scanEpic(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rs.Err()
}

// GetEpic returns nil when id does not exist.
func (s *Store) GetEpic(ctx context.Context, id int64) (*domain.EpicView, error) {
	v, err := scanEpic(s.db.QueryRow(ctx, epicSelect+" WHERE e.id = $1", id))
	return optional(&v, err)
}

// ListDbaMaintenance returns tasks with the latest planned first.
func (s *Store) ListDbaMaintenance(ctx context.Context) ([]domain.DbaMaintenance, error) {
	rs, err := s.db.Query(ctx, `SELECT id, env, instance, db_name, task_type, planned_at, completed_at, notes, impact
        FROM dba_maintenance ORDER BY planned_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []domain.DbaMaintenance
	for rs.Next() {
		var m domain.DbaMaintenance
		var env string
		if err := rs.Scan(&m.ID, &env, &m.Instance, &m.Database, &m.TaskType, &m.PlannedAt, &m.CompletedAt, &m.Notes, &m.Impact); err != nil {
			return nil, err
		}
		m.Env = domain.DbEnvironment(env)
		m.PlannedAt = m.PlannedAt.UTC()
		m.CompletedAt = utcPtr(m.CompletedAt)
		out = append(out, m)
	}
	return out, rs.Err()
}

// CompleteDbaMaintenance records the terminal transition for a task. A task
// already completed keeps its original completion time.
func (s *Store) CompleteDbaMaintenance(ctx context.Context, id int64, at time.Time) error {
	n, err := s.db.Exec(ctx, `UPDATE dba_maintenance SET completed_at = $2 WHERE id = $1 AND completed_at IS NULL`, id, at.UTC())
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	err = s.db.QueryRow(ctx, `SELECT true FROM dba_maintenance WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, errNoRows) {
		return fmt.Errorf("dba maintenance %d: %w", id, domain.ErrNotFound)
	}
	return err
}

// Leaderboard ranks users by points and counts the kudos each received.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rs, err := s.db.Query(ctx, `SELECT u.id, u.display_name, COALESCE(t.name, ''), u.total_points,
            (SELECT COUNT(*) FROM kudos k WHERE k.to_user_id = u.id)
        FROM users u LEFT JOIN teams t ON t.id = u.team_id
        ORDER BY u.total_points DESC, u.id
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []domain.LeaderboardEntry
	for rs.Next() {
		var e domain.LeaderboardEntry
		if err := rs.Scan(&e.UserID, &e.DisplayName, &e.TeamName, &e.TotalPoints, &e.KudosReceived); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rs.Err()
}

// ListTeamsWithMembers returns teams by name, members ordered by display name.
func (s *Store) ListTeamsWithMembers(ctx context.Context) ([]domain.TeamWithMembers, error) {
	teams, err := s.listTeams(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := s.db.Query(ctx, `SELECT id, display_name, email, team_id, role, total_points, created_at
        FROM users WHERE team_id IS NOT NULL ORDER BY display_name, id`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	byTeam := map[int64][]domain.User{}
	for rs.Next() {
		var u domain.User
		if err := rs.Scan(&u.ID, &u.DisplayName, &u.Email, &u.TeamID, &u.Role, &u.TotalPoints, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		byTeam[*u.TeamID] = append(byTeam[*u.TeamID], u)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.TeamWithMembers, 0, len(teams))
	for _, t := range teams {
		out = append(out, domain.TeamWithMembers{Team: t, Members: byTeam[t.ID]})
	}
	return out, nil
}

func (s *Store) listTeams(ctx context.Context) ([]domain.Team, error) {
	rs, err := s.db.Query(ctx, `SELECT id, name, type, description, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []domain.Team
	for rs.Next() {
		var t domain.Team
		var typ string
		if err := rs.Scan(&t.ID, &t.Name, &typ, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = domain.TeamType(typ)
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rs.Err()
}
