/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package sonarqube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/httpx"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/rs/zerolog"
)

// Client reads project measures and open-issue severities from SonarQube.
type Client struct {
	api *httpx.Client
	log zerolog.Logger
}

// NewClient sends the user token as the basic-auth login, as SonarQube expects.
func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		api: httpx.New("sonarqube", cfg.SonarBaseURL, cfg.HTTPTimeout, cfg.ConnectorRPS, log, httpx.WithBasic(cfg.SonarToken, "")),
		log: log,
	}
}

type measuresResponse struct {
	Component struct {
		Key      string `json:"key"`
		Measures []struct {
			Metric string `json:"metric"`
			Value  string `json:"value"`
		} `json:"measures"`
	} `json:"component"`
}

type issuesResponse struct {
	Facets []struct {
		Property string `json:"property"`
		Values   []struct {
			Val   string `json:"val"`
			Count int    `json:"count"`
		} `json:"values"`
	} `json:"facets"`
}

// FetchProjectQualityMetrics returns current measures for projectKey.
// Coverage is nil when the project reports none.
func (c *Client) FetchProjectQualityMetrics(ctx context.Context, projectKey string) (domain.QualityMetrics, error) {
	m := domain.QualityMetrics{ProjectKey: projectKey}
	if projectKey == "" {
		return m, errors.New("sonarqube: empty project key")
	}
	var mr measuresResponse
	q := url.Values{"component": {projectKey}, "metricKeys": {"bugs,vulnerabilities,code_smells,coverage"}}
	if err := c.api.DoJSON(ctx, http.MethodGet, "/api/measures/component", q, nil, &mr); err != nil {
		return m, err
	}
	for _, ms := range mr.Component.Measures {
		switch ms.Metric {
		case "bugs":
			m.Bugs, _ = strconv.Atoi(ms.Value)
		case "vulnerabilities":
			m.Vulnerabilities, _ = strconv.Atoi(ms.Value)
		case "code_smells":
			m.CodeSmells, _ = strconv.Atoi(ms.Value)
		case "coverage":
			v, err := strconv.ParseFloat(ms.Value, 64)
			if err != nil {
				return m, fmt.Errorf("sonarqube: %s coverage %q: %w", projectKey, ms.Value, err)
			}
			m.Coverage = &v
		}
	}

	var ir issuesResponse
	q = url.Values{"componentKeys": {projectKey}, "resolved": {"false"}, "facets": {"severities"}, "ps": {"1"}}
	if err := c.api.DoJSON(ctx, http.MethodGet, "/api/issues/search", q, nil, &ir); err != nil {
		return m, err
	}
	for _, f := range ir.Facets {
		if f.Property != "severities" {
			continue
		}
		for _, v := range f.Values {
			switch v.Val {
			case "BLOCKER", "CRITICAL":
				m.Criticals += v.Count
			case "MAJOR":
				m.Highs += v.Count
			case "MINOR":
				m.Mediums += v.Count
			case "INFO":
				m.Lows += v.Count
			}
		}
	}
	return m, nil
}
