/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/httpx"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/rs/zerolog"
)

const pageSize = 50

type Client struct {
	api    *httpx.Client
	apiVer string
	jql    string
	log    zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		api:    httpx.New("jira", cfg.JiraBaseURL, cfg.HTTPTimeout, cfg.ConnectorRPS, log, httpx.WithAuth(authFor(cfg))),
		apiVer: cfg.JiraAPIVersion,
		jql:    cfg.JiraEpicJQL,
		log:    log,
	}
}

// authFor prefers a PAT, then username/password, then JIRA_BASIC_AUTH
// (already base64 encoded "user:pass").
func authFor(cfg config.Config) func(*http.Request) {
	basic := strings.TrimSpace(os.Getenv("JIRA_BASIC_AUTH"))
	return func(r *http.Request) {
		switch {
		case cfg.JiraPAT != "":
			r.Header.Set("Authorization", "Bearer "+cfg.JiraPAT)
		case cfg.JiraUsername != "" && cfg.JiraPassword != "":
			r.SetBasicAuth(cfg.JiraUsername, cfg.JiraPassword)
		case basic != "":
			r.Header.Set("Authorization", "Basic "+basic)
		}
	}
}

type searchPage struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []issue `json:"issues"`
}

type issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		// Description is a plain string on v2 and an ADF document on v3.
		Description json.RawMessage `json:"description"`
	} `json:"fields"`
}

// EpicQuery is the JQL used for projectKey. A configured query may carry one
// %s for the project key.
func (c *Client) EpicQuery(projectKey string) string {
	if strings.Contains(c.jql, "%s") {
		return fmt.Sprintf(c.jql, projectKey)
	}
	if c.jql != "" {
		return c.jql
	}
	return fmt.Sprintf("project = %q AND issuetype = Epic ORDER BY updated DESC", projectKey)
}

// FetchEpics pages through every epic matched by EpicQuery(projectKey).
func (c *Client) FetchEpics(ctx context.Context, projectKey string) ([]domain.ExternalEpic, error) {
	jql := c.EpicQuery(projectKey)
	if strings.TrimSpace(jql) == "" {
		return nil, errors.New("jira: empty jql")
	}
	var out []domain.ExternalEpic
	for start := 0; ; {
		page, err := c.search(ctx, jql, start, pageSize)
		if err != nil {
			return nil, err
		}
		for _, is := range page.Issues {
			out = append(out, domain.ExternalEpic{
				Key:         is.Key,
				Summary:     is.Fields.Summary,
				Status:      is.Fields.Status.Name,
				Description: descriptionText(is.Fields.Description),
			})
		}
		start += len(page.Issues)
		if len(page.Issues) == 0 || start >= page.Total {
			break
		}
	}
	c.log.Debug().Str("project", projectKey).Int("epics", len(out)).Msg("jira epics fetched")
	return out, nil
}

func (c *Client) search(ctx context.Context, jql string, startAt, max int) (searchPage, error) {
	var page searchPage
	fields := "summary,status,description"
	if c.apiVer == "2" {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", fmt.Sprint(startAt))
		q.Set("maxResults", fmt.Sprint(max))
		q.Set("fields", fields)
		err := c.api.DoJSON(ctx, http.MethodGet, "/rest/api/2/search", q, nil, &page)
		return page, err
	}
	body := map[string]any{"jql": jql, "startAt": startAt, "maxResults": max, "fields": strings.Split(fields, ",")}
	err := c.api.DoJSON(ctx, http.MethodPost, "/rest/api/3/search", nil, body, &page)
	return page, err
}

// descriptionText flattens a description into plain text.
func descriptionText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var doc adfNode
	if json.Unmarshal(raw, &doc) != nil {
		return ""
	}
	var b strings.Builder
	doc.text(&b)
	return strings.TrimSpace(b.String())
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func (n adfNode) text(b *strings.Builder) {
	b.WriteString(n.Text)
	for _, c := range n.Content {
		c.text(b)
	}
	if n.Type == "paragraph" || n.Type == "heading" {
		b.WriteString("\n")
	}
}
