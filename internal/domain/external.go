/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payloads returned by source connectors, before they are mapped to facts.

type PipelineBuild struct {
	PipelineName string
	ExternalID   string
	// Status is the source's own string; see MapPipelineStatus.
	Status          string
	DurationSeconds int
	QueuedAt        time.Time
	CompletedAt     *time.Time
}

type CostRecord struct {
	Date     time.Time
	ScopeID  string
	Amount   decimal.Decimal
	Currency string
}

type QualityMetrics struct {
	ProjectKey      string
	Bugs            int
	Vulnerabilities int
	CodeSmells      int
	Coverage        *float64
	Criticals       int
	Highs           int
	Mediums         int
	Lows            int
}

type SecurityScan struct {
	ProjectName          string
	ScanDate             time.Time
	TotalVulnerabilities int
	Criticals            int
	Highs                int
	Mediums              int
	Lows                 int
}

type ExternalEpic struct {
	Key         string
	Summary     string
	Status      string
	Description string
}
