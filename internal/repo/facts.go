/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// Fact writes used by the nightly sync. Each call is its own transaction and
// is idempotent on the table's natural key.

// InsertPipelineRuns inserts runs whose external id is not stored yet and
// leaves existing rows untouched. It returns the number of rows inserted.
func (s *Store) InsertPipelineRuns(ctx context.Context, runs []domain.PipelineRun) (int, error) {
	if len(runs) == 0 {
		return 0, nil
	}
	const q = `INSERT INTO pipeline_runs(env, pipeline_name, external_id, status, duration_seconds, queued_at, completed_at, created_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (external_id) DO NOTHING`
	now := time.Now().UTC()
	argSets := make([][]any, 0, len(runs))
	for _, r := range runs {
		argSets = append(argSets, []any{string(r.Env), r.PipelineName, r.ExternalID, string(r.Status),
			r.DurationSeconds, r.QueuedAt.UTC(), utcPtr(r.CompletedAt), now})
	}
	return s.batchInTx(ctx, "pipeline_runs", q, argSets)
}

// UpsertCostActuals writes one row per (date, scope); a re-fetched day
// replaces the stored amount.
func (s *Store) UpsertCostActuals(ctx context.Context, rows []domain.CostActual) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	const q = `INSERT INTO cost_actuals(date, scope_id, amount, currency, created_at)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (date, scope_id) DO UPDATE SET amount = excluded.amount, currency = excluded.currency`
	now := time.Now().UTC()
	argSets := make([][]any, 0, len(rows))
	for _, r := range rows {
		argSets = append(argSets, []any{domain.DateUTC(r.Date), r.ScopeID, r.Amount.StringFixed(2), r.Currency, now})
	}
	return s.batchInTx(ctx, "cost_actuals", q, argSets)
}

// UpsertQualitySnapshots writes one row per (source, project, week start).
func (s *Store) UpsertQualitySnapshots(ctx context.Context, snaps []domain.CodeQualitySnapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}
	const q = `INSERT INTO code_quality_snapshots(source, project_key, week_start, bugs, vulns, smells, coverage_pct,
            criticals, highs, mediums, lows, created_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (source, project_key, week_start) DO UPDATE SET
            bugs = excluded.bugs,
            vulns = excluded.vulns,
            smells = excluded.smells,
            coverage_pct = excluded.coverage_pct,
            criticals = excluded.criticals,
            highs = excluded.highs,
            mediums = excluded.mediums,
            lows = excluded.lows`
	now := time.Now().UTC()
	argSets := make([][]any, 0, len(snaps))
	for _, x := range snaps {
		argSets = append(argSets, []any{string(x.Source), x.ProjectKey, domain.DateUTC(x.WeekStart), x.Bugs, x.Vulns, x.Smells,
			x.CoveragePct, x.Criticals, x.Highs, x.Mediums, x.Lows, now})
	}
	return s.batchInTx(ctx, "code_quality_snapshots", q, argSets)
}

// UpsertEpics writes tracker epics keyed by JiraKey. Title, description and
// status follow the tracker; the owning team is kept once assigned.
func (s *Store) UpsertEpics(ctx context.Context, epics []domain.Epic) (int, error) {
	if len(epics) == 0 {
		return 0, nil
	}
	const q = `INSERT INTO epics(title, description, team_id, status, jira_key, created_by, created_at, updated_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$7)
        ON CONFLICT (jira_key) DO UPDATE SET
            title = excluded.title,
            description = excluded.description,
            status = excluded.status,
            updated_at = excluded.updated_at`
	now := time.Now().UTC()
	argSets := make([][]any, 0, len(epics))
	for _, e := range epics {
		if e.JiraKey == nil || *e.JiraKey == "" {
			return 0, fmt.Errorf("upsert epics: %q has no tracker key", e.Title)
		}
		argSets = append(argSets, []any{e.Title, e.Description, e.TeamID, string(e.Status), *e.JiraKey, e.CreatedBy, now})
	}
	return s.batchInTx(ctx, "epics", q, argSets)
}

// TeamIDByName returns domain.ErrNotFound when no team has that name.
func (s *Store) TeamIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `SELECT id FROM teams WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, errNoRows) {
		return 0, fmt.Errorf("team %q: %w", name, domain.ErrNotFound)
	}
	return id, err
}

func (s *Store) batchInTx(ctx context.Context, table, q string, argSets [][]any) (int, error) {
	var written int
	err := s.db.InTx(ctx, func(tx querier) error {
		affected, err := tx.ExecBatch(ctx, q, argSets)
		if err != nil {
			return err
		}
		for _, n := range affected {
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", table, err)
	}
	return written, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
