/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

type QualityStore interface {
	ListQualitySnapshots(ctx context.Context) ([]domain.CodeQualitySnapshot, error)
}

type CodeQualitySummary struct {
	ProjectKey      string               `json:"projectKey"`
	Source          domain.QualitySource `json:"source"`
	WeekStart       time.Time            `json:"weekStart"`
	Bugs            int                  `json:"bugs"`
	Vulnerabilities int                  `json:"vulnerabilities"`
	CodeSmells      int                  `json:"codeSmells"`
	CoveragePct     *float64             `json:"coveragePct"`
	Status          string               `json:"status"`
}

// CodeQualitySummaries returns the latest snapshot of every project, ordered
// by project key.
func CodeQualitySummaries(ctx context.Context, store QualityStore) ([]CodeQualitySummary, error) {
	snaps, err := store.ListQualitySnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("code quality: %w", err)
	}
	latest := domain.LatestPerProject(snaps)
	out := make([]CodeQualitySummary, 0, len(latest))
	for _, s := range latest {
		out = append(out, CodeQualitySummary{
			ProjectKey:      s.ProjectKey,
			Source:          s.Source,
			WeekStart:       s.WeekStart,
			Bugs:            s.Bugs,
			Vulnerabilities: s.Vulns,
			CodeSmells:      s.Smells,
			CoveragePct:     s.CoveragePct,
			Status:          domain.QualityStatus(s),
		})
	}
	return out, nil
}
