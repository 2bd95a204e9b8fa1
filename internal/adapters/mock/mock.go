/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package mock provides in-process connectors that return deterministic
// data. They back the demo mode and every source without a real client.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// seed derives stable pseudo-random numbers from a key.
func seed(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

var pipelines = []string{"platform-api-ci", "platform-web-ci", "platform-ops-release"}

// Builds serves one build per pipeline per day of the lookback window.
// External ids are keyed by day so repeated syncs see the same builds.
type Builds struct {
	Now func() time.Time
}

func (b Builds) FetchRecentPipelineRuns(ctx context.Context, lookbackDays int) ([]domain.PipelineBuild, error) {
	now := clock(b.Now)
	today := domain.DateUTC(now)
	var out []domain.PipelineBuild
	for d := lookbackDays - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		for i, name := range pipelines {
			id := fmt.Sprintf("mock-%s-%d", day.Format("20060102"), i+1)
			s := seed(id)
			queued := day.Add(time.Duration(2+i) * time.Hour)
			dur := 180 + int(s%600)
			done := queued.Add(time.Duration(dur) * time.Second)
			status := "Succeeded"
			if s%7 == 0 {
				status = "Failed"
			}
			if done.After(now) {
				status = "InProgress"
				out = append(out, domain.PipelineBuild{PipelineName: name, ExternalID: id, Status: status, QueuedAt: queued})
				continue
			}
			out = append(out, domain.PipelineBuild{
				PipelineName:    name,
				ExternalID:      id,
				Status:          status,
				DurationSeconds: dur,
				QueuedAt:        queued,
				CompletedAt:     &done,
			})
		}
	}
	return out, nil
}

// Costs serves one record per UTC day in [start, end].
type Costs struct{}

func (Costs) FetchCostData(ctx context.Context, start, end time.Time, scope string) ([]domain.CostRecord, error) {
	var out []domain.CostRecord
	for d := domain.DateUTC(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		cents := 85000 + int64(seed(scope+d.Format("20060102"))%20000)
		out = append(out, domain.CostRecord{
			Date:     d,
			ScopeID:  scope,
			Amount:   decimal.New(cents, -2),
			Currency: "USD",
		})
	}
	return out, nil
}

// Quality serves SonarQube-shaped metrics.
type Quality struct{}

func (Quality) FetchProjectQualityMetrics(ctx context.Context, projectKey string) (domain.QualityMetrics, error) {
	s := seed("sonar:" + projectKey)
	cov := 60 + float64(s%350)/10
	return domain.QualityMetrics{
		ProjectKey:      projectKey,
		Bugs:            int(s % 5),
		Vulnerabilities: int(s>>4) % 3,
		CodeSmells:      20 + int(s>>8)%80,
		Coverage:        &cov,
		Criticals:       int(s>>12) % 2,
		Highs:           int(s>>14) % 4,
		Mediums:         int(s>>16) % 8,
		Lows:            int(s>>18) % 12,
	}, nil
}

// Scans serves Checkmarx-shaped scan summaries.
type Scans struct {
	Now func() time.Time
}

func (sc Scans) FetchLatestScan(ctx context.Context, project string) (domain.SecurityScan, error) {
	s := seed("cx:" + project)
	crit, high, med, low := int(s%2), int(s>>3)%4, int(s>>6)%9, int(s>>10)%15
	return domain.SecurityScan{
		ProjectName:          project,
		ScanDate:             clock(sc.Now).Add(-6 * time.Hour),
		TotalVulnerabilities: crit + high + med + low,
		Criticals:            crit,
		Highs:                high,
		Mediums:              med,
		Lows:                 low,
	}, nil
}

// Epics serves a fixed epic list for any project key.
type Epics struct{}

func (Epics) FetchEpics(ctx context.Context, projectKey string) ([]domain.ExternalEpic, error) {
	key := strings.ToUpper(projectKey)
	if key == "" {
		key = "PLAT"
	}
	return []domain.ExternalEpic{
		{Key: key + "-101", Summary: "Self-service environments", Status: "In Progress", Description: "Namespace vending for product teams."},
		{Key: key + "-102", Summary: "Observability baseline", Status: "To Do", Description: "Golden signals dashboards per service."},
		{Key: key + "-103", Summary: "Secrets rotation", Status: "Done", Description: "Automated rotation for service principals."},
	}, nil
}

// TextGenerator renders the data context as a short markdown digest.
type TextGenerator struct{}

func (TextGenerator) GenerateNewsletterText(ctx context.Context, period string, start, end time.Time, dataContext string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s PlatformOps Newsletter\n", period)
	fmt.Fprintf(&b, "_%s to %s_\n\n", start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"))
	b.WriteString("## Highlights\n")
	b.WriteString(strings.TrimSpace(dataContext))
	b.WriteString("\n\nThanks to everyone who shipped this period.")
	return b.String(), nil
}

// Notification is one message accepted by Notifier.
type Notification struct {
	Title string
	URL   string
}

// Notifier logs notifications and keeps them for inspection.
type Notifier struct {
	Log zerolog.Logger

	mu   sync.Mutex
	sent []Notification
}

func (n *Notifier) SendNotification(ctx context.Context, title, url string) error {
	n.mu.Lock()
	n.sent = append(n.sent, Notification{Title: title, URL: url})
	n.mu.Unlock()
	n.Log.Info().Str("title", title).Str("url", url).Msg("mock notification")
	return nil
}

func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}
