/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrSyncInProgress = errors.New("sync already running")
	ErrInvalidPeriod  = errors.New("invalid newsletter period")
)

type TeamType string

const (
	TeamService TeamType = "Service"
	TeamChange  TeamType = "Change"
	TeamDBA     TeamType = "DBA"
)

// EpicStatus is shared by epics and activities.
type EpicStatus string

const (
	StatusBacklog    EpicStatus = "Backlog"
	StatusInProgress EpicStatus = "InProgress"
	StatusBlocked    EpicStatus = "Blocked"
	StatusDone       EpicStatus = "Done"
)

type Environment string

const (
	EnvDev     Environment = "Dev"
	EnvSys     Environment = "Sys"
	EnvRwy     Environment = "Rwy"
	EnvStaging Environment = "Staging"
	EnvPreprod Environment = "Preprod"
	EnvProd    Environment = "Prod"
)

type PipelineStatus string

const (
	PipelineQueued    PipelineStatus = "Queued"
	PipelineRunning   PipelineStatus = "Running"
	PipelineSucceeded PipelineStatus = "Succeeded"
	PipelineFailed    PipelineStatus = "Failed"
	PipelineCanceled  PipelineStatus = "Canceled"
)

type DeploymentResult string

const (
	DeploySuccess DeploymentResult = "Success"
	DeployFail    DeploymentResult = "Fail"
	DeployPartial DeploymentResult = "Partial"
)

type QualitySource string

const (
	SourceSonarQube QualitySource = "SonarQube"
	SourceCheckmarx QualitySource = "Checkmarx"
)

type DbEnvironment string

const (
	DbNonProd DbEnvironment = "NonProd"
	DbProd    DbEnvironment = "Prod"
)

type ScopeType string

const (
	ScopeSubscription  ScopeType = "Subscription"
	ScopeResourceGroup ScopeType = "ResourceGroup"
	ScopeService       ScopeType = "Service"
)

type NewsletterPeriod string

const (
	PeriodWeekly  NewsletterPeriod = "Weekly"
	PeriodMonthly NewsletterPeriod = "Monthly"
)

type NotificationChannel string

const (
	ChannelTeams NotificationChannel = "Teams"
	ChannelEmail NotificationChannel = "Email"
)

type Team struct {
	ID          int64
	Name        string
	Type        TeamType
	Description string
	CreatedAt   time.Time
}

type User struct {
	ID          int64
	DisplayName string
	Email       string
	TeamID      *int64
	Role        string
	TotalPoints int
	CreatedAt   time.Time
}

type Epic struct {
	ID          int64
	Title       string
	Description string
	TeamID      int64
	Status      EpicStatus
	JiraKey     *string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Activity struct {
	ID          int64
	EpicID      int64
	TeamID      int64
	Title       string
	Description string
	Status      EpicStatus
	OwnerUserID *int64
	StartAt     *time.Time
	DueAt       *time.Time
	CompletedAt *time.Time
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Kudos struct {
	ID         int64
	FromUserID int64
	ToUserID   int64
	Message    string
	CreatedAt  time.Time
}

type Deployment struct {
	ID         int64
	Env        Environment
	PlannedAt  time.Time
	DeployedAt *time.Time
	// Result is nil exactly when DeployedAt is nil.
	Result    *DeploymentResult
	ReleaseID string
	Notes     string
	CreatedAt time.Time
}

type RegressionRun struct {
	ID              int64
	Env             Environment
	RunAt           time.Time
	Total           int
	Passed          int
	Failed          int
	DurationSeconds int
	CreatedAt       time.Time
}

type PipelineRun struct {
	ID              int64
	Env             Environment
	PipelineName    string
	ExternalID      string
	Status          PipelineStatus
	DurationSeconds int
	QueuedAt        time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

type CostTarget struct {
	ID            int64
	Year          int
	ScopeType     ScopeType
	ScopeID       string
	MonthlyTarget decimal.Decimal
	AnnualTarget  decimal.Decimal
}

type CostActual struct {
	ID       int64
	Date     time.Time
	ScopeID  string
	Amount   decimal.Decimal
	Currency string
}

type CodeQualitySnapshot struct {
	ID          int64
	Source      QualitySource
	ProjectKey  string
	WeekStart   time.Time
	Bugs        int
	Vulns       int
	Smells      int
	CoveragePct *float64
	Criticals   int
	Highs       int
	Mediums     int
	Lows        int
	CreatedAt   time.Time
}

type DbaMaintenance struct {
	ID          int64
	Env         DbEnvironment
	Instance    string
	Database    string
	TaskType    string
	PlannedAt   time.Time
	CompletedAt *time.Time
	Notes       string
	Impact      string
}

type Newsletter struct {
	ID         int64
	Period     NewsletterPeriod
	RangeStart time.Time
	RangeEnd   time.Time
	Markdown   string
	HTML       string
	CreatedAt  time.Time
}

type NotificationTemplate struct {
	ID       int64
	Key      string
	Channel  NotificationChannel
	Content  string
	IsActive bool
}

// SyncRun is one execution of the nightly sync pipeline.
type SyncRun struct {
	ID         int64         `json:"id"`
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at"`
	Success    bool          `json:"success"`
	Sources    []SourceStats `json:"sources"`
	Error      string        `json:"error"`
}

type SourceStats struct {
	Source  string `json:"source"`
	Fetched int    `json:"fetched"`
	Written int    `json:"written"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}
