/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package teams

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/httpx"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
	"github.com/rs/zerolog"
)

// TemplateKey is the notification template used for newsletter announcements.
const TemplateKey = "Newsletter"

// Templates looks up an active notification template.
type Templates interface {
	ActiveTemplate(ctx context.Context, key string, channel domain.NotificationChannel) (*domain.NotificationTemplate, error)
}

// Client posts adaptive cards to a Teams incoming webhook.
type Client struct {
	api       *httpx.Client
	templates Templates
	log       zerolog.Logger
}

// NewClient builds a webhook client. templates may be nil.
func NewClient(cfg config.Config, templates Templates, log zerolog.Logger) *Client {
	return &Client{
		api:       httpx.New("teams", cfg.TeamsWebhook, cfg.HTTPTimeout, 0, log),
		templates: templates,
		log:       log,
	}
}

// SendNotification announces title with a link. The active Newsletter
// template supplies the card header when one is stored.
func (c *Client) SendNotification(ctx context.Context, title, link string) error {
	card, err := c.card(ctx, title, link)
	if err != nil {
		return err
	}
	msg := map[string]any{
		"type": "message",
		"attachments": []map[string]any{{
			"contentType": "application/vnd.microsoft.card.adaptive",
			"content":     card,
		}},
	}
	if err := c.api.DoJSON(ctx, http.MethodPost, "", nil, msg, nil); err != nil {
		return err
	}
	c.log.Info().Str("title", title).Msg("teams notification sent")
	return nil
}

func (c *Client) card(ctx context.Context, title, link string) (map[string]any, error) {
	card := map[string]any{"type": "AdaptiveCard"}
	var body []any
	if c.templates != nil {
		tpl, err := c.templates.ActiveTemplate(ctx, TemplateKey, domain.ChannelTeams)
		if err != nil {
			return nil, err
		}
		if tpl != nil {
			if err := json.Unmarshal([]byte(tpl.Content), &card); err != nil {
				return nil, errors.Join(errors.New("teams: template is not a card"), err)
			}
			body, _ = card["body"].([]any)
		}
	}
	body = append(body, map[string]any{"type": "TextBlock", "text": title, "wrap": true, "weight": "Bolder"})
	card["body"] = body
	card["actions"] = []any{map[string]any{"type": "Action.OpenUrl", "title": "Read it", "url": link}}
	if _, ok := card["version"]; !ok {
		card["version"] = "1.4"
	}
	card["$schema"] = "http://adaptivecards.io/schemas/adaptive-card.json"
	return card, nil
}
