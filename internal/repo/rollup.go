/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/shopspring/decimal"
)

// Dashboard aggregates. Each method is one independent query with no shared
// snapshot across calls.

func (s *Store) CountEpicsByStatus(ctx context.Context) (map[domain.EpicStatus]int, error) {
	rs, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM epics GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	out := map[domain.EpicStatus]int{}
	for rs.Next() {
		var st string
		var n int
		if err := rs.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[domain.EpicStatus(st)] = n
	}
	return out, rs.Err()
}

func (s *Store) CountEpics(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM epics`).Scan(&n)
	return n, err
}

// CountDeploymentsSince counts deployments with DeployedAt >= since.
func (s *Store) CountDeploymentsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM deployments WHERE deployed_at IS NOT NULL AND deployed_at >= $1`, since.UTC()).Scan(&n)
	return n, err
}

// LatestRegressionRun returns the run with the greatest RunAt, or nil.
func (s *Store) LatestRegressionRun(ctx context.Context) (*domain.RegressionRun, error) {
	var r domain.RegressionRun
	var env string
	err := s.db.QueryRow(ctx, `SELECT id, env, run_at, total, passed, failed, duration_seconds
        FROM regression_runs ORDER BY run_at DESC, id DESC LIMIT 1`).
		Scan(&r.ID, &env, &r.RunAt, &r.Total, &r.Passed, &r.Failed, &r.DurationSeconds)
	r.Env = domain.Environment(env)
	r.RunAt = r.RunAt.UTC()
	return optional(&r, err)
}

// CostTargetForYear returns the first target row for year, or nil.
func (s *Store) CostTargetForYear(ctx context.Context, year int) (*domain.CostTarget, error) {
	q := fmt.Sprintf(`SELECT id, year, scope_type, scope_id, %s, %s FROM cost_targets WHERE year = $1 ORDER BY id LIMIT 1`,
		s.d.num("monthly_target"), s.d.num("annual_target"))
	var t domain.CostTarget
	var scopeType, monthly, annual string
	err := s.db.QueryRow(ctx, q, year).Scan(&t.ID, &t.Year, &scopeType, &t.ScopeID, &monthly, &annual)
	if err != nil {
		return optional(&t, err)
	}
	t.ScopeType = domain.ScopeType(scopeType)
	if t.MonthlyTarget, err = parseDecimal(monthly); err != nil {
		return nil, err
	}
	if t.AnnualTarget, err = parseDecimal(annual); err != nil {
		return nil, err
	}
	return &t, nil
}

// SumCostActuals adds every CostActual amount with from <= date < to.
// Amounts are summed as decimals so the result is exact.
func (s *Store) SumCostActuals(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	q := fmt.Sprintf(`SELECT %s FROM cost_actuals WHERE date >= $1 AND date < $2`, s.d.num("amount"))
	rs, err := s.db.Query(ctx, q, domain.DateUTC(from), domain.DateUTC(to))
	if err != nil {
		return decimal.Zero, err
	}
	defer rs.Close()
	sum := decimal.Zero
	for rs.Next() {
		var raw string
		if err := rs.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		amount, err := parseDecimal(raw)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(amount)
	}
	return sum, rs.Err()
}

func (s *Store) ListQualitySnapshots(ctx context.Context) ([]domain.CodeQualitySnapshot, error) {
	rs, err := s.db.Query(ctx, `SELECT id, source, project_key, week_start, bugs, vulns, smells, coverage_pct,
            criticals, highs, mediums, lows, created_at
        FROM code_quality_snapshots ORDER BY project_key, week_start, id`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []domain.CodeQualitySnapshot
	for rs.Next() {
		var x domain.CodeQualitySnapshot
		var src string
		if err := rs.Scan(&x.ID, &src, &x.ProjectKey, &x.WeekStart, &x.Bugs, &x.Vulns, &x.Smells, &x.CoveragePct,
			&x.Criticals, &x.Highs, &x.Mediums, &x.Lows, &x.CreatedAt); err != nil {
			return nil, err
		}
		x.Source = domain.QualitySource(src)
		x.WeekStart = x.WeekStart.UTC()
		x.CreatedAt = x.CreatedAt.UTC()
		out = append(out, x)
	}
	return out, rs.Err()
}

// CountTaggedActivities counts activities owned by a team of teamType that
// carry tag, compared case-insensitively.
func (s *Store) CountTaggedActivities(ctx context.Context, teamType domain.TeamType, tag string) (int, error) {
	q := `SELECT COUNT(*) FROM activities a JOIN teams t ON t.id = a.team_id
        WHERE t.type = $1 AND ` + fmt.Sprintf(s.d.tagMatch, "$2")
	var n int
	err := s.db.QueryRow(ctx, q, string(teamType), tag).Scan(&n)
	return n, err
}

// CountOutstandingDba counts maintenance tasks with no completion time.
func (s *Store) CountOutstandingDba(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM dba_maintenance WHERE completed_at IS NULL`).Scan(&n)
	return n, err
}

// CountCompletedActivitiesMatching counts activities completed at or after
// since whose title contains fragment, ignoring case.
func (s *Store) CountCompletedActivitiesMatching(ctx context.Context, since time.Time, fragment string) (int, error) {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM activities WHERE completed_at IS NOT NULL AND completed_at >= $1 AND title %s $2`, s.d.like)
	var n int
	err := s.db.QueryRow(ctx, q, since.UTC(), "%"+fragment+"%").Scan(&n)
	return n, err
}
