/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// DORA figures have no data source yet and are reported as fixed values.
const (
	placeholderPipelineHealth = 95.5
	placeholderMTTRHours      = 2.4
	placeholderLeadTimeDays   = 5.2
	placeholderChangeFailure  = 8.5
)

var dashboardPlaceholders = []string{
	"pipelineHealthPercentage",
	"meanTimeToRecoverHours",
	"leadTimeDays",
	"changeFailureRatePercentage",
}

type DashboardStore interface {
	CountEpicsByStatus(ctx context.Context) (map[domain.EpicStatus]int, error)
	CountDeploymentsSince(ctx context.Context, since time.Time) (int, error)
	LatestRegressionRun(ctx context.Context) (*domain.RegressionRun, error)
	CostTargetForYear(ctx context.Context, year int) (*domain.CostTarget, error)
	SumCostActuals(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	ListQualitySnapshots(ctx context.Context) ([]domain.CodeQualitySnapshot, error)
	CountTaggedActivities(ctx context.Context, teamType domain.TeamType, tag string) (int, error)
	CountOutstandingDba(ctx context.Context) (int, error)
}

type DashboardStats struct {
	BacklogEpics                int             `json:"backlogEpics"`
	InProgressEpics             int             `json:"inProgressEpics"`
	BlockedEpics                int             `json:"blockedEpics"`
	DoneEpics                   int             `json:"doneEpics"`
	DeploymentsThisWeek         int             `json:"deploymentsThisWeek"`
	NightlyRegressionPassRate   float64         `json:"nightlyRegressionPassRate"`
	PipelineHealthPercentage    float64         `json:"pipelineHealthPercentage"`
	CostYear                    int             `json:"costYear"`
	AnnualCostTarget            decimal.Decimal `json:"annualCostTarget"`
	CostYTD                     decimal.Decimal `json:"costYtd"`
	CostVariance                decimal.Decimal `json:"costVariance"`
	NewBugsCount                int             `json:"newBugsCount"`
	NewVulnerabilitiesCount     int             `json:"newVulnerabilitiesCount"`
	AverageCodeCoverage         float64         `json:"averageCodeCoverage"`
	MeanTimeToRecoverHours      float64         `json:"meanTimeToRecoverHours"`
	LeadTimeDays                float64         `json:"leadTimeDays"`
	ChangeFailureRatePercentage float64         `json:"changeFailureRatePercentage"`
	GenAIInitiativesCount       int             `json:"genAiInitiativesCount"`
	DbaMaintenanceBacklogCount  int             `json:"dbaMaintenanceBacklogCount"`
	// Placeholders names the fields that carry fixed values.
	Placeholders []string  `json:"placeholders"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// Dashboard recomputes the consolidated statistics on every call. Each
// figure is its own query, so the result is not a consistent snapshot when
// writes land mid-computation.
type Dashboard struct {
	cfg   config.Config
	log   zerolog.Logger
	store DashboardStore
	now   func() time.Time
}

func NewDashboard(cfg config.Config, log zerolog.Logger, store DashboardStore) *Dashboard {
	return &Dashboard{cfg: cfg, log: log, store: store, now: time.Now}
}

func (d *Dashboard) Stats(ctx context.Context) (DashboardStats, error) {
	now := d.now().UTC()
	out := DashboardStats{
		PipelineHealthPercentage:    placeholderPipelineHealth,
		MeanTimeToRecoverHours:      placeholderMTTRHours,
		LeadTimeDays:                placeholderLeadTimeDays,
		ChangeFailureRatePercentage: placeholderChangeFailure,
		Placeholders:                dashboardPlaceholders,
		GeneratedAt:                 now,
	}

	byStatus, err := d.store.CountEpicsByStatus(ctx)
	if err != nil {
		return out, fmt.Errorf("dashboard: epics: %w", err)
	}
	out.BacklogEpics = byStatus[domain.StatusBacklog]
	out.InProgressEpics = byStatus[domain.StatusInProgress]
	out.BlockedEpics = byStatus[domain.StatusBlocked]
	out.DoneEpics = byStatus[domain.StatusDone]

	if out.DeploymentsThisWeek, err = d.store.CountDeploymentsSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return out, fmt.Errorf("dashboard: deployments: %w", err)
	}

	run, err := d.store.LatestRegressionRun(ctx)
	if err != nil {
		return out, fmt.Errorf("dashboard: regression: %w", err)
	}
	out.NightlyRegressionPassRate = domain.PassRate(run)

	if err := d.cost(ctx, now, &out); err != nil {
		return out, err
	}

	snaps, err := d.store.ListQualitySnapshots(ctx)
	if err != nil {
		return out, fmt.Errorf("dashboard: quality: %w", err)
	}
	out.NewBugsCount, out.NewVulnerabilitiesCount, out.AverageCodeCoverage = qualityRollup(domain.LatestPerProject(snaps))

	if out.GenAIInitiativesCount, err = d.store.CountTaggedActivities(ctx, domain.TeamChange, d.cfg.GenAITag); err != nil {
		return out, fmt.Errorf("dashboard: genai: %w", err)
	}
	if out.DbaMaintenanceBacklogCount, err = d.store.CountOutstandingDba(ctx); err != nil {
		return out, fmt.Errorf("dashboard: dba: %w", err)
	}
	return out, nil
}

func (d *Dashboard) cost(ctx context.Context, now time.Time, out *DashboardStats) error {
	year := d.cfg.EffectiveCostYear(now)
	out.CostYear = year
	target, err := d.store.CostTargetForYear(ctx, year)
	if err != nil {
		return fmt.Errorf("dashboard: cost target: %w", err)
	}
	if target != nil {
		out.AnnualCostTarget = target.AnnualTarget
	} else {
		fallback, err := decimal.NewFromString(d.cfg.CostFallbackTarget)
		if err != nil {
			return fmt.Errorf("dashboard: fallback cost target %q: %w", d.cfg.CostFallbackTarget, err)
		}
		d.log.Debug().Int("year", year).Msg("no cost target, using fallback")
		out.AnnualCostTarget = fallback
	}
	from, to := domain.YearRange(year)
	if out.CostYTD, err = d.store.SumCostActuals(ctx, from, to); err != nil {
		return fmt.Errorf("dashboard: cost actuals: %w", err)
	}
	out.CostVariance = out.AnnualCostTarget.Sub(out.CostYTD)
	return nil
}

// qualityRollup sums bugs and vulnerabilities and averages coverage, with a
// missing coverage counted as zero.
func qualityRollup(latest []domain.CodeQualitySnapshot) (bugs, vulns int, coverage float64) {
	if len(latest) == 0 {
		return 0, 0, 0
	}
	var total float64
	for _, s := range latest {
		bugs += s.Bugs
		vulns += s.Vulns
		if s.CoveragePct != nil {
			total += *s.CoveragePct
		}
	}
	return bugs, vulns, total / float64(len(latest))
}
