/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package azuredevops

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/httpx"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/rs/zerolog"
)

const apiVersion = "7.1"

// Client reads build history from the Azure DevOps Builds REST API.
type Client struct {
	api     *httpx.Client
	project string
	now     func() time.Time
	log     zerolog.Logger
}

// NewClient authenticates with the PAT as the basic-auth password.
func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	base := strings.TrimRight(cfg.AzureDevOpsOrg, "/")
	if base != "" && !strings.HasPrefix(base, "http") {
		base = "https://dev.azure.com/" + base
	}
	return &Client{
		api:     httpx.New("azuredevops", base, cfg.HTTPTimeout, cfg.ConnectorRPS, log, httpx.WithBasic("", cfg.AzureDevOpsPAT)),
		project: cfg.AzureDevOpsProject,
		now:     time.Now,
		log:     log,
	}
}

type buildList struct {
	Count int     `json:"count"`
	Value []build `json:"value"`
}

type build struct {
	ID         int64      `json:"id"`
	Status     string     `json:"status"`
	Result     string     `json:"result"`
	QueueTime  time.Time  `json:"queueTime"`
	StartTime  *time.Time `json:"startTime"`
	FinishTime *time.Time `json:"finishTime"`
	Definition struct {
		Name string `json:"name"`
	} `json:"definition"`
}

// FetchRecentPipelineRuns lists builds queued in the last lookbackDays.
func (c *Client) FetchRecentPipelineRuns(ctx context.Context, lookbackDays int) ([]domain.PipelineBuild, error) {
	if c.project == "" {
		return nil, errors.New("azuredevops: empty project")
	}
	q := url.Values{}
	q.Set("minTime", c.now().UTC().AddDate(0, 0, -lookbackDays).Format(time.RFC3339))
	q.Set("queryOrder", "queueTimeDescending")
	q.Set("api-version", apiVersion)
	var out buildList
	if err := c.api.DoJSON(ctx, http.MethodGet, "/"+url.PathEscape(c.project)+"/_apis/build/builds", q, nil, &out); err != nil {
		return nil, err
	}
	builds := make([]domain.PipelineBuild, 0, len(out.Value))
	for _, b := range out.Value {
		pb := domain.PipelineBuild{
			PipelineName: b.Definition.Name,
			ExternalID:   strconv.FormatInt(b.ID, 10),
			Status:       buildStatus(b),
			QueuedAt:     b.QueueTime.UTC(),
		}
		if b.FinishTime != nil {
			done := b.FinishTime.UTC()
			pb.CompletedAt = &done
			if b.StartTime != nil {
				pb.DurationSeconds = int(done.Sub(*b.StartTime).Seconds())
			}
		}
		builds = append(builds, pb)
	}
	c.log.Debug().Int("builds", len(builds)).Int("lookback_days", lookbackDays).Msg("azure devops builds fetched")
	return builds, nil
}

// buildStatus folds the API's status/result pair into the names the sync
// understands. Anything unfinished stays as its raw status.
func buildStatus(b build) string {
	if b.Status != "completed" {
		return b.Status
	}
	switch b.Result {
	case "succeeded":
		return "Succeeded"
	case "failed":
		return "Failed"
	case "canceled":
		return "Canceled"
	}
	return b.Result
}
