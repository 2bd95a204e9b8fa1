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

// CountTeams is used to decide whether a store still needs demo data.
func (s *Store) CountTeams(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&n)
	return n, err
}

// Seed loads the demo data set into an empty store. It reports false and
// writes nothing when teams already exist. Every value is derived from now so
// repeated seeds of fresh stores are identical.
func (s *Store) Seed(ctx context.Context, now time.Time) (bool, error) {
	n, err := s.CountTeams(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	now = now.UTC()
	err = s.db.InTx(ctx, func(q querier) error {
		sd := seeder{q: q, d: s.d, now: now}
		return sd.run(ctx)
	})
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	s.log.Info().Time("as_of", now).Msg("demo data seeded")
	return true, nil
}

type seeder struct {
	q   querier
	d   dialect
	now time.Time
}

func (sd seeder) id(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := sd.q.QueryRow(ctx, query+" RETURNING id", args...).Scan(&id)
	return id, err
}

func (sd seeder) daysAgo(n int) time.Time { return sd.now.AddDate(0, 0, -n) }

func (sd seeder) run(ctx context.Context) error {
	type team struct {
		name string
		typ  domain.TeamType
		desc string
	}
	teams := []team{
		{"Service Team", domain.TeamService, "Manages service operations and deployments"},
		{"Change Team", domain.TeamChange, "Drives platform improvements and cost optimization"},
		{"DBA Team", domain.TeamDBA, "Database administration and optimization"},
	}
	teamIDs := make([]int64, len(teams))
	for i, t := range teams {
		id, err := sd.id(ctx, `INSERT INTO teams(name, type, description, created_at) VALUES($1,$2,$3,$4)`, t.name, string(t.typ), t.desc, sd.now)
		if err != nil {
			return fmt.Errorf("team %s: %w", t.name, err)
		}
		teamIDs[i] = id
	}
	service, change, dba := teamIDs[0], teamIDs[1], teamIDs[2]

	type user struct {
		name, email, role string
		team              *int64
		points            int
	}
	users := []user{
		{"Platform Admin", "admin@platformops.local", "Admin", nil, 0},
		{"Alex Morgan", "alex.morgan@platformops.local", "Manager", &service, 320},
		{"Sam Patel", "sam.patel@platformops.local", "Member", &service, 180},
		{"Jordan Lee", "jordan.lee@platformops.local", "Member", &change, 410},
		{"Riley Chen", "riley.chen@platformops.local", "Member", &dba, 95},
	}
	userIDs := make([]int64, len(users))
	for i, u := range users {
		id, err := sd.id(ctx, `INSERT INTO users(display_name, email, team_id, role, total_points, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
			u.name, u.email, u.team, u.role, u.points, sd.now)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.email, err)
		}
		userIDs[i] = id
	}

	type epic struct {
		title, desc string
		team        int64
		status      domain.EpicStatus
	}
	epics := []epic{
		{"Nightly Regression Stability", "Improve nightly regression pass rate to 95%", service, domain.StatusInProgress},
		{"2026 Cost Optimization", "Achieve £350K annual cost target", change, domain.StatusInProgress},
		{"Database Performance Tuning", "Optimize top 10 slow queries", dba, domain.StatusBacklog},
	}
	epicIDs := make([]int64, len(epics))
	for i, e := range epics {
		id, err := sd.id(ctx, `INSERT INTO epics(title, description, team_id, status, created_by, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$6)`,
			e.title, e.desc, e.team, string(e.status), "Platform Admin", sd.now)
		if err != nil {
			return fmt.Errorf("epic %s: %w", e.title, err)
		}
		epicIDs[i] = id
	}

	type activity struct {
		title, desc      string
		epic, team       int64
		status           domain.EpicStatus
		owner            *int64
		start, completed *time.Time
		tags             []string
	}
	activities := []activity{
		{"Fix flaky UI tests", "Stabilize Selenium tests", epicIDs[0], service, domain.StatusInProgress, &userIDs[2], ptrTime(sd.daysAgo(7)), nil, nil},
		{"Implement retry logic", "Add retry for transient failures", epicIDs[0], service, domain.StatusDone, &userIDs[1], ptrTime(sd.daysAgo(14)), ptrTime(sd.daysAgo(2)), nil},
		{"Right-size Azure VMs", "Downsize over-provisioned VMs", epicIDs[1], change, domain.StatusInProgress, &userIDs[3], ptrTime(sd.daysAgo(10)), nil, nil},
		{"Implement auto-shutdown", "Auto-shutdown non-prod resources", epicIDs[1], change, domain.StatusDone, &userIDs[3], ptrTime(sd.daysAgo(20)), ptrTime(sd.daysAgo(5)), nil},
		{"Release notes summarizer", "Draft release notes with an LLM", epicIDs[1], change, domain.StatusInProgress, &userIDs[3], ptrTime(sd.daysAgo(3)), nil, []string{"GenAI"}},
		{"Index optimization", "Rebuild fragmented indexes", epicIDs[2], dba, domain.StatusBacklog, nil, nil, nil, nil},
	}
	for _, a := range activities {
		tags, err := sd.d.encTags(a.tags)
		if err != nil {
			return err
		}
		if _, err := sd.q.Exec(ctx, `INSERT INTO activities(epic_id, team_id, title, description, status, owner_user_id, start_at, completed_at, tags, created_at, updated_at)
            VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)`,
			a.epic, a.team, a.title, a.desc, string(a.status), a.owner, a.start, a.completed, tags, sd.now); err != nil {
			return fmt.Errorf("activity %s: %w", a.title, err)
		}
	}

	kudos := []struct {
		from, to int64
		msg      string
	}{
		{userIDs[1], userIDs[2], "Thanks for chasing down the flaky suite"},
		{userIDs[2], userIDs[3], "Auto-shutdown saved us a fortune"},
		{userIDs[1], userIDs[3], "Great work on the VM sizing review"},
	}
	for _, k := range kudos {
		if _, err := sd.q.Exec(ctx, `INSERT INTO kudos(from_user_id, to_user_id, message, created_at) VALUES($1,$2,$3,$4)`, k.from, k.to, k.msg, sd.now); err != nil {
			return fmt.Errorf("kudos: %w", err)
		}
	}

	if err := sd.costs(ctx); err != nil {
		return err
	}
	if err := sd.quality(ctx); err != nil {
		return err
	}
	if err := sd.delivery(ctx); err != nil {
		return err
	}
	return sd.operations(ctx)
}

// costs seeds the current year's target and one actual per elapsed month,
// each slightly under the monthly target.
func (sd seeder) costs(ctx context.Context) error {
	year := sd.now.Year()
	annual := decimal.NewFromInt(350000)
	monthly := annual.Div(decimal.NewFromInt(12)).Round(2)
	if _, err := sd.q.Exec(ctx, `INSERT INTO cost_targets(year, scope_type, scope_id, monthly_target, annual_target, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		year, string(domain.ScopeSubscription), "prod-subscription-001", monthly.StringFixed(2), annual.StringFixed(2), sd.now); err != nil {
		return fmt.Errorf("cost target: %w", err)
	}
	for m := 1; m <= int(sd.now.Month()); m++ {
		amount := decimal.NewFromInt(27500).Add(decimal.NewFromInt(int64(m%4) * 650)).Add(decimal.RequireFromString("0.37"))
		date := time.Date(year, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		if _, err := sd.q.Exec(ctx, `INSERT INTO cost_actuals(date, scope_id, amount, currency, created_at) VALUES($1,$2,$3,$4,$5)`,
			date, "prod-subscription-001", amount.StringFixed(2), "GBP", sd.now); err != nil {
			return fmt.Errorf("cost actual %d: %w", m, err)
		}
	}
	return nil
}

func (sd seeder) quality(ctx context.Context) error {
	today := domain.DateUTC(sd.now)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	cov := func(v float64) *float64 { return &v }
	snaps := []domain.CodeQualitySnapshot{
		{Source: domain.SourceSonarQube, ProjectKey: "platform-api", WeekStart: weekStart.AddDate(0, 0, -14), Bugs: 15, Vulns: 8, Smells: 120, CoveragePct: cov(72.5), Criticals: 2, Highs: 6, Mediums: 10, Lows: 15},
		{Source: domain.SourceSonarQube, ProjectKey: "platform-api", WeekStart: weekStart.AddDate(0, 0, -7), Bugs: 12, Vulns: 6, Smells: 110, CoveragePct: cov(74.2), Criticals: 1, Highs: 5, Mediums: 8, Lows: 12},
		{Source: domain.SourceSonarQube, ProjectKey: "platform-api", WeekStart: weekStart, Bugs: 10, Vulns: 4, Smells: 105, CoveragePct: cov(76.8), Criticals: 0, Highs: 4, Mediums: 6, Lows: 10},
		{Source: domain.SourceCheckmarx, ProjectKey: "platform-web", WeekStart: weekStart.AddDate(0, 0, -14), Vulns: 22, Criticals: 5, Highs: 10, Mediums: 7},
		{Source: domain.SourceCheckmarx, ProjectKey: "platform-web", WeekStart: weekStart.AddDate(0, 0, -7), Vulns: 18, Criticals: 3, Highs: 8, Mediums: 7},
		{Source: domain.SourceCheckmarx, ProjectKey: "platform-web", WeekStart: weekStart, Vulns: 14, Criticals: 2, Highs: 6, Mediums: 6},
	}
	for _, x := range snaps {
		if _, err := sd.q.Exec(ctx, `INSERT INTO code_quality_snapshots(source, project_key, week_start, bugs, vulns, smells, coverage_pct, criticals, highs, mediums, lows, created_at)
            VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			string(x.Source), x.ProjectKey, x.WeekStart, x.Bugs, x.Vulns, x.Smells, x.CoveragePct, x.Criticals, x.Highs, x.Mediums, x.Lows, sd.now); err != nil {
			return fmt.Errorf("quality %s: %w", x.ProjectKey, err)
		}
	}
	return nil
}

// delivery seeds deployments and fourteen nightly regression runs.
func (sd seeder) delivery(ctx context.Context) error {
	res := func(r domain.DeploymentResult) *string { v := string(r); return &v }
	deployments := []struct {
		env      domain.Environment
		planned  time.Time
		deployed *time.Time
		result   *string
		release  string
		notes    string
	}{
		{domain.EnvDev, sd.daysAgo(7), ptrTime(sd.daysAgo(7)), res(domain.DeploySuccess), "R-2026-001", ""},
		{domain.EnvStaging, sd.daysAgo(5), ptrTime(sd.daysAgo(5)), res(domain.DeploySuccess), "R-2026-001", ""},
		{domain.EnvProd, sd.daysAgo(3), ptrTime(sd.daysAgo(3)), res(domain.DeploySuccess), "R-2026-001", ""},
		{domain.EnvDev, sd.daysAgo(2), ptrTime(sd.daysAgo(2)), res(domain.DeployFail), "R-2026-002", "Database migration failed"},
		{domain.EnvProd, sd.now.AddDate(0, 0, 2), nil, nil, "R-2026-003", ""},
	}
	for _, d := range deployments {
		if _, err := sd.q.Exec(ctx, `INSERT INTO deployments(env, planned_at, deployed_at, result, release_id, notes, created_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
			string(d.env), d.planned, d.deployed, d.result, d.release, d.notes, sd.now); err != nil {
			return fmt.Errorf("deployment %s: %w", d.release, err)
		}
	}

	const total = 250
	today := domain.DateUTC(sd.now)
	for i := 0; i < 14; i++ {
		// 85% to 96% in a repeating pattern; the most recent run passes 230.
		passed := total * (85 + (i*5+7)%12) / 100
		runAt := today.AddDate(0, 0, -i).Add(2 * time.Hour)
		if _, err := sd.q.Exec(ctx, `INSERT INTO regression_runs(env, run_at, total, passed, failed, duration_seconds, created_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
			string(domain.EnvDev), runAt, total, passed, total-passed, 1800+(i%5)*60-120, sd.now); err != nil {
			return fmt.Errorf("regression run %d: %w", i, err)
		}
	}
	return nil
}

// operations seeds DBA maintenance tasks and the notification templates.
func (sd seeder) operations(ctx context.Context) error {
	tasks := []struct {
		env       domain.DbEnvironment
		instance  string
		db        string
		task      string
		planned   time.Time
		completed *time.Time
		impact    string
	}{
		{domain.DbProd, "sql-prod-01", "orders", "Index rebuild", sd.now.AddDate(0, 0, 3), nil, "Read latency during rebuild"},
		{domain.DbProd, "sql-prod-01", "billing", "Statistics update", sd.now.AddDate(0, 0, 5), nil, "None expected"},
		{domain.DbNonProd, "sql-nonprod-02", "orders", "Version upgrade", sd.daysAgo(4), ptrTime(sd.daysAgo(4)), "Two hour outage"},
	}
	for _, t := range tasks {
		if _, err := sd.q.Exec(ctx, `INSERT INTO dba_maintenance(env, instance, db_name, task_type, planned_at, completed_at, notes, impact, created_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			string(t.env), t.instance, t.db, t.task, t.planned, t.completed, "", t.impact, sd.now); err != nil {
			return fmt.Errorf("dba task %s: %w", t.task, err)
		}
	}

	card := func(text string) string {
		return `{"type":"AdaptiveCard","body":[{"type":"TextBlock","text":"` + text + `","size":"Large","weight":"Bolder"}]}`
	}
	templates := []domain.NotificationTemplate{
		{Key: "Birthday", Channel: domain.ChannelTeams, Content: card("🎉 Happy Birthday {{DisplayName}}!"), IsActive: true},
		{Key: "Anniversary", Channel: domain.ChannelTeams, Content: card("🎊 Happy Work Anniversary {{DisplayName}}!"), IsActive: true},
		{Key: "Newsletter", Channel: domain.ChannelTeams, Content: card("📰 New Newsletter Published"), IsActive: true},
	}
	for _, t := range templates {
		if _, err := sd.q.Exec(ctx, `INSERT INTO notification_templates(template_key, channel, content, is_active, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$5)`,
			t.Key, string(t.Channel), t.Content, t.IsActive, sd.now); err != nil {
			return fmt.Errorf("template %s: %w", t.Key, err)
		}
	}
	return nil
}

func ptrTime(t time.Time) *time.Time { return &t }
