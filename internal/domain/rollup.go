/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	QualityFailing = "Failing"
	QualityPassing = "Passing"
)

// PassRate returns Passed/Total*100 for the run, or 0 when there is no run or
// the run has no tests. The result is clamped to [0,100].
func PassRate(r *RegressionRun) float64 {
	if r == nil || r.Total <= 0 {
		return 0
	}
	rate := float64(r.Passed) * 100 / float64(r.Total)
	switch {
	case rate < 0:
		return 0
	case rate > 100:
		return 100
	}
	return rate
}

// LatestPerProject reduces snapshots to one per project key: the greatest
// WeekStart wins, equal week starts resolve to the highest ID. Output is
// ordered by project key.
func LatestPerProject(snaps []CodeQualitySnapshot) []CodeQualitySnapshot {
	byKey := make(map[string]int, len(snaps))
	out := make([]CodeQualitySnapshot, 0, len(snaps))
	for _, s := range snaps {
		i, ok := byKey[s.ProjectKey]
		if !ok {
			byKey[s.ProjectKey] = len(out)
			out = append(out, s)
			continue
		}
		if newerSnapshot(s, out[i]) {
			out[i] = s
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ProjectKey < out[b].ProjectKey })
	return out
}

func newerSnapshot(a, b CodeQualitySnapshot) bool {
	if !a.WeekStart.Equal(b.WeekStart) {
		return a.WeekStart.After(b.WeekStart)
	}
	return a.ID > b.ID
}

func QualityStatus(s CodeQualitySnapshot) string {
	if s.Bugs > 0 || s.Vulns > 0 {
		return QualityFailing
	}
	return QualityPassing
}

// MapPipelineStatus converts an external build status string.
func MapPipelineStatus(ext string) PipelineStatus {
	switch ext {
	case "Succeeded":
		return PipelineSucceeded
	case "Failed":
		return PipelineFailed
	default:
		return PipelineRunning
	}
}

// CanonicalEpicStatus maps a tracker workflow status onto the epic lifecycle.
func CanonicalEpicStatus(status string) EpicStatus {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "backlog" || strings.Contains(s, "to do") || s == "todo" || s == "open" || s == "new":
		return StatusBacklog
	case strings.Contains(s, "block") || s == "pending" || strings.Contains(s, "hold"):
		return StatusBlocked
	case strings.Contains(s, "done") || strings.Contains(s, "resolve") || strings.Contains(s, "closed"):
		return StatusDone
	case strings.Contains(s, "progress") || s == "doing" || strings.Contains(s, "review") ||
		strings.Contains(s, "test") || strings.Contains(s, "deploy"):
		return StatusInProgress
	default:
		return StatusBacklog
	}
}

// HasTag reports whether any tag equals marker, ignoring case.
func HasTag(tags []string, marker string) bool {
	for _, t := range tags {
		if strings.EqualFold(strings.TrimSpace(t), marker) {
			return true
		}
	}
	return false
}

// NewsletterHTML is the naive markdown rendering stored alongside a newsletter.
func NewsletterHTML(markdown string) string {
	return strings.ReplaceAll(markdown, "\n", "<br/>")
}

func ParsePeriod(s string) (NewsletterPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return PeriodWeekly, nil
	case "monthly":
		return PeriodMonthly, nil
	}
	return "", ErrInvalidPeriod
}

// Window returns the lookback range ending at now.
func (p NewsletterPeriod) Window(now time.Time) (time.Time, time.Time, error) {
	switch p {
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), now, nil
	case PeriodMonthly:
		return now.AddDate(0, 0, -30), now, nil
	}
	return time.Time{}, time.Time{}, ErrInvalidPeriod
}

// DateUTC truncates t to midnight UTC of its UTC calendar date.
func DateUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// YearRange is [Jan 1 of year, Jan 1 of year+1) in UTC.
func YearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

const newsletterSystemPrompt = "You write the internal PlatformOps newsletter. Use Markdown with a short headline, " +
	"a highlights section and a closing line. Stay factual and only use the figures you are given."

// NewsletterPrompt returns the system and user messages for a text generator.
func NewsletterPrompt(period string, start, end time.Time, dataContext string) (string, string) {
	user := "Write the " + strings.ToLower(period) + " newsletter covering " +
		start.UTC().Format("2006-01-02") + " to " + end.UTC().Format("2006-01-02") + ".\n\n" + dataContext
	return newsletterSystemPrompt, user
}
