/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package connectors declares the external sources the hub consumes and
// picks concrete clients for them from configuration.
package connectors

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/anthropic"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/azurecost"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/azuredevops"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/gemini"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/jira"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/mock"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/openai"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/sonarqube"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/teams"
	"github.com/HamedShams/platform-ops-hub/internal/adapters/telegram"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

type BuildSource interface {
	FetchRecentPipelineRuns(ctx context.Context, lookbackDays int) ([]domain.PipelineBuild, error)
}

type CostSource interface {
	FetchCostData(ctx context.Context, start, end time.Time, scope string) ([]domain.CostRecord, error)
}

type QualitySource interface {
	FetchProjectQualityMetrics(ctx context.Context, projectKey string) (domain.QualityMetrics, error)
}

// ScanSource yields security scan summaries (Checkmarx).
type ScanSource interface {
	FetchLatestScan(ctx context.Context, project string) (domain.SecurityScan, error)
}

type EpicSource interface {
	FetchEpics(ctx context.Context, projectKey string) ([]domain.ExternalEpic, error)
}

// TextGenerator turns a data context into newsletter markdown.
type TextGenerator interface {
	GenerateNewsletterText(ctx context.Context, period string, start, end time.Time, dataContext string) (string, error)
}

type Notifier interface {
	SendNotification(ctx context.Context, title, url string) error
}

// Set is the resolved connector wiring handed to the services.
type Set struct {
	Builds   BuildSource
	Costs    CostSource
	Quality  QualitySource
	Scans    ScanSource
	Epics    EpicSource
	TextGen  TextGenerator
	Notifier Notifier
	// Mock reports whether the sources are the in-process fakes.
	Mock bool
}

// Resolve builds the connector set for cfg. templates feeds the Teams card
// layout and may be nil.
func Resolve(cfg config.Config, templates teams.Templates, log zerolog.Logger) Set {
	if cfg.UseMockData {
		log.Info().Msg("using mock connectors")
		return Mocks(log)
	}
	log.Warn().Msg("checkmarx has no live client; scans come from the mock")
	return Set{
		Builds:   azuredevops.NewClient(cfg, log),
		Costs:    azurecost.NewClient(cfg, log),
		Quality:  sonarqube.NewClient(cfg, log),
		Scans:    mock.Scans{},
		Epics:    jira.NewClient(cfg, log),
		TextGen:  textGenerator(cfg, log),
		Notifier: notifier(cfg, templates, log),
	}
}

// Mocks returns the deterministic in-process connectors.
func Mocks(log zerolog.Logger) Set {
	return Set{
		Builds:   mock.Builds{},
		Costs:    mock.Costs{},
		Quality:  mock.Quality{},
		Scans:    mock.Scans{},
		Epics:    mock.Epics{},
		TextGen:  mock.TextGenerator{},
		Notifier: &mock.Notifier{Log: log},
		Mock:     true,
	}
}

func textGenerator(cfg config.Config, log zerolog.Logger) TextGenerator {
	switch cfg.TextGenProvider {
	case "anthropic":
		return anthropic.NewClient(cfg, log)
	case "gemini":
		return gemini.NewClient(cfg, log)
	default:
		return openai.NewClient(cfg, log)
	}
}

func notifier(cfg config.Config, templates teams.Templates, log zerolog.Logger) Notifier {
	if cfg.NotifyChannel == "telegram" {
		return telegram.NewClient(cfg, log)
	}
	return teams.NewClient(cfg, templates, log)
}
