package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassRate(t *testing.T) {
	cases := []struct {
		name string
		run  *RegressionRun
		want float64
	}{
		{"nil run", nil, 0},
		{"zero total", &RegressionRun{Total: 0, Passed: 0}, 0},
		{"typical", &RegressionRun{Total: 250, Passed: 230, Failed: 20}, 92.0},
		{"all passed", &RegressionRun{Total: 10, Passed: 10}, 100},
		{"corrupt passed above total", &RegressionRun{Total: 10, Passed: 12}, 100},
		{"negative", &RegressionRun{Total: 10, Passed: -1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PassRate(tc.run)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestLatestPerProject(t *testing.T) {
	w1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	w2 := w1.AddDate(0, 0, 7)
	snaps := []CodeQualitySnapshot{
		{ID: 1, ProjectKey: "platform-web", WeekStart: w1, Bugs: 3},
		{ID: 2, ProjectKey: "platform-api", WeekStart: w2, Bugs: 0},
		{ID: 3, ProjectKey: "platform-web", WeekStart: w2, Bugs: 1},
		{ID: 4, ProjectKey: "platform-api", WeekStart: w1, Bugs: 9},
		{ID: 5, ProjectKey: "platform-web", WeekStart: w2, Bugs: 0},
	}
	got := LatestPerProject(snaps)
	want := []CodeQualitySnapshot{
		{ID: 2, ProjectKey: "platform-api", WeekStart: w2, Bugs: 0},
		{ID: 5, ProjectKey: "platform-web", WeekStart: w2, Bugs: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LatestPerProject mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestPerProject_OrderIndependent(t *testing.T) {
	w1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	a := CodeQualitySnapshot{ID: 7, ProjectKey: "p", WeekStart: w1}
	b := CodeQualitySnapshot{ID: 8, ProjectKey: "p", WeekStart: w1}
	assert.Equal(t, int64(8), LatestPerProject([]CodeQualitySnapshot{a, b})[0].ID)
	assert.Equal(t, int64(8), LatestPerProject([]CodeQualitySnapshot{b, a})[0].ID)
	assert.Empty(t, LatestPerProject(nil))
}

func TestQualityStatus(t *testing.T) {
	assert.Equal(t, QualityPassing, QualityStatus(CodeQualitySnapshot{}))
	assert.Equal(t, QualityFailing, QualityStatus(CodeQualitySnapshot{Bugs: 1}))
	assert.Equal(t, QualityFailing, QualityStatus(CodeQualitySnapshot{Vulns: 1}))
	assert.Equal(t, QualityPassing, QualityStatus(CodeQualitySnapshot{Smells: 40}))
}

func TestMapPipelineStatus(t *testing.T) {
	assert.Equal(t, PipelineSucceeded, MapPipelineStatus("Succeeded"))
	assert.Equal(t, PipelineFailed, MapPipelineStatus("Failed"))
	assert.Equal(t, PipelineRunning, MapPipelineStatus("succeeded"))
	assert.Equal(t, PipelineRunning, MapPipelineStatus("Canceled"))
	assert.Equal(t, PipelineRunning, MapPipelineStatus(""))
}

func TestCanonicalEpicStatus(t *testing.T) {
	cases := map[string]EpicStatus{
		"Backlog":     StatusBacklog,
		"To Do":       StatusBacklog,
		"In Progress": StatusInProgress,
		"In Review":   StatusInProgress,
		"Blocked":     StatusBlocked,
		"On Hold":     StatusBlocked,
		"Done":        StatusDone,
		"Resolved":    StatusDone,
		"whatever":    StatusBacklog,
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalEpicStatus(in), in)
	}
}

func TestHasTag(t *testing.T) {
	assert.True(t, HasTag([]string{"infra", "genai"}, "GenAI"))
	assert.False(t, HasTag([]string{"GenAI-adjacent"}, "GenAI"))
	assert.False(t, HasTag(nil, "GenAI"))
}

func TestNewsletterHTML(t *testing.T) {
	assert.Equal(t, "# Title<br/><br/>- one<br/>- two", NewsletterHTML("# Title\n\n- one\n- two"))
}

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2026, 5, 31, 12, 0, 0, 0, time.UTC)
	start, end, err := PeriodWeekly.Window(now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), start)
	assert.Equal(t, now, end)

	start, _, err = PeriodMonthly.Window(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), start)

	_, _, err = NewsletterPeriod("Daily").Window(now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	p, err := ParsePeriod(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonthly, p)
	_, err = ParsePeriod("yearly")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestYearRange(t *testing.T) {
	from, to := YearRange(2026)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), to)
}
