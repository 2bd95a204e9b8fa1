/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// StartSyncRun records a run as started and returns its row id.
func (s *Store) StartSyncRun(ctx context.Context, runID string, startedAt time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `INSERT INTO sync_runs(run_id, started_at, success) VALUES($1,$2,$3) RETURNING id`,
		runID, startedAt.UTC(), false).Scan(&id)
	return id, err
}

// FinishSyncRun stores the outcome and per-source stats of run id.
func (s *Store) FinishSyncRun(ctx context.Context, id int64, finishedAt time.Time, success bool, sources []domain.SourceStats, errText string) error {
	if sources == nil {
		sources = []domain.SourceStats{}
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("sync run %d: encode sources: %w", id, err)
	}
	q := fmt.Sprintf(`UPDATE sync_runs SET finished_at = $2, success = $3, sources = $4%s, error = $5 WHERE id = $1`, s.d.jsonCast)
	_, err = s.db.Exec(ctx, q, id, finishedAt.UTC(), success, string(raw), errText)
	return err
}

// LastSyncRun returns the most recently started run, or nil before the first.
func (s *Store) LastSyncRun(ctx context.Context) (*domain.SyncRun, error) {
	q := `SELECT id, run_id, started_at, finished_at, success, ` + s.d.jsonText("sources") + `, error
        FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1`
	var r domain.SyncRun
	var raw string
	err := s.db.QueryRow(ctx, q).Scan(&r.ID, &r.RunID, &r.StartedAt, &r.FinishedAt, &r.Success, &raw, &r.Error)
	if err != nil {
		return optional(&r, err)
	}
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = utcPtr(r.FinishedAt)
	if err := json.Unmarshal([]byte(raw), &r.Sources); err != nil {
		return nil, fmt.Errorf("sync run %d: decode sources: %w", r.ID, err)
	}
	return &r, nil
}
