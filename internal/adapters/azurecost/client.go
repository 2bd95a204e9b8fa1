/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package azurecost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/httpx"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	managementURL = "https://management.azure.com"
	apiVersion    = "2023-03-01"
)

// Client queries Azure Cost Management for daily actual cost. Tokens come
// from the tenant's client-credentials flow and are cached by oauth2.
type Client struct {
	api            *httpx.Client
	subscriptionID string
	log            zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	tokenURL := "https://login.microsoftonline.com/" + url.PathEscape(cfg.AzureTenantID) + "/oauth2/v2.0/token"
	return newClient(cfg, managementURL, tokenURL, log)
}

func newClient(cfg config.Config, baseURL, tokenURL string, log zerolog.Logger) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.AzureClientID,
		ClientSecret: cfg.AzureClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{managementURL + "/.default"},
	}
	hc := cc.Client(context.Background())
	hc.Timeout = cfg.HTTPTimeout
	return &Client{
		api:            httpx.New("azurecost", baseURL, cfg.HTTPTimeout, cfg.ConnectorRPS, log, httpx.WithHTTPClient(hc)),
		subscriptionID: cfg.AzureSubscriptionID,
		log:            log,
	}
}

type queryRequest struct {
	Type       string     `json:"type"`
	Timeframe  string     `json:"timeframe"`
	TimePeriod timePeriod `json:"timePeriod"`
	Dataset    dataset    `json:"dataset"`
}

type timePeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type dataset struct {
	Granularity string                 `json:"granularity"`
	Aggregation map[string]aggregation `json:"aggregation"`
}

type aggregation struct {
	Name     string `json:"name"`
	Function string `json:"function"`
}

type queryResult struct {
	Properties struct {
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows [][]json.RawMessage `json:"rows"`
	} `json:"properties"`
}

// scopePath resolves the configured scope to an ARM path. Bare names are
// read as the configured subscription.
func (c *Client) scopePath(scope string) string {
	if strings.HasPrefix(scope, "/") {
		return strings.TrimRight(scope, "/")
	}
	return "/subscriptions/" + c.subscriptionID
}

// FetchCostData returns one record per day in [start, end] for scope.
func (c *Client) FetchCostData(ctx context.Context, start, end time.Time, scope string) ([]domain.CostRecord, error) {
	req := queryRequest{
		Type:      "ActualCost",
		Timeframe: "Custom",
		TimePeriod: timePeriod{
			From: start.UTC().Format(time.RFC3339),
			To:   end.UTC().Format(time.RFC3339),
		},
		Dataset: dataset{
			Granularity: "Daily",
			Aggregation: map[string]aggregation{"totalCost": {Name: "Cost", Function: "Sum"}},
		},
	}
	q := url.Values{"api-version": {apiVersion}}
	var res queryResult
	path := c.scopePath(scope) + "/providers/Microsoft.CostManagement/query"
	if err := c.api.DoJSON(ctx, http.MethodPost, path, q, req, &res); err != nil {
		return nil, err
	}
	return decodeRows(res, scope)
}

func decodeRows(res queryResult, scope string) ([]domain.CostRecord, error) {
	costCol, dateCol, curCol := -1, -1, -1
	for i, col := range res.Properties.Columns {
		switch col.Name {
		case "Cost", "PreTaxCost", "CostUSD":
			if costCol < 0 {
				costCol = i
			}
		case "UsageDate":
			dateCol = i
		case "Currency":
			curCol = i
		}
	}
	if costCol < 0 || dateCol < 0 {
		return nil, fmt.Errorf("azurecost: result lacks cost or date column")
	}
	out := make([]domain.CostRecord, 0, len(res.Properties.Rows))
	for n, row := range res.Properties.Rows {
		if costCol >= len(row) || dateCol >= len(row) {
			return nil, fmt.Errorf("azurecost: row %d is short", n)
		}
		var amount decimal.Decimal
		if err := amount.UnmarshalJSON(row[costCol]); err != nil {
			return nil, fmt.Errorf("azurecost: row %d cost: %w", n, err)
		}
		date, err := usageDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("azurecost: row %d date: %w", n, err)
		}
		rec := domain.CostRecord{Date: date, ScopeID: scope, Amount: amount}
		if curCol >= 0 && curCol < len(row) {
			_ = json.Unmarshal(row[curCol], &rec.Currency)
		}
		out = append(out, rec)
	}
	return out, nil
}

// usageDate parses the yyyymmdd number the query API returns.
func usageDate(raw json.RawMessage) (time.Time, error) {
	s := strings.Trim(string(raw), `"`)
	if _, err := strconv.Atoi(s); err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", s)
}
