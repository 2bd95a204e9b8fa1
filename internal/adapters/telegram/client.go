/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/HamedShams/platform-ops-hub/internal/adapters/httpx"
	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/rs/zerolog"
)

const apiBase = "https://api.telegram.org"

// Client announces newsletters to the configured Telegram chats.
type Client struct {
	token   string
	chatIDs []int64
	api     *httpx.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return newClient(cfg, apiBase, log)
}

func newClient(cfg config.Config, base string, log zerolog.Logger) *Client {
	return &Client{
		token:   cfg.TelegramToken,
		chatIDs: cfg.TelegramChatIDs,
		api:     httpx.New("telegram", base, cfg.HTTPTimeout, 0, log),
		log:     log,
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c.token == "" || chatID == 0 {
		return fmt.Errorf("telegram: missing token or chat id")
	}
	body := map[string]any{"chat_id": chatID, "text": text, "parse_mode": "Markdown", "disable_web_page_preview": true}
	var r struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := c.api.DoJSON(ctx, http.MethodPost, "/bot"+c.token+"/sendMessage", nil, body, &r); err != nil {
		return err
	}
	if !r.OK {
		return fmt.Errorf("telegram sendMessage: %s", r.Description)
	}
	return nil
}

// SendNotification posts title and link to every configured chat. Chats that
// fail do not stop delivery to the others.
func (c *Client) SendNotification(ctx context.Context, title, link string) error {
	if len(c.chatIDs) == 0 {
		return errors.New("telegram: no chat ids configured")
	}
	text := fmt.Sprintf("*%s*\n%s", title, link)
	var errs []error
	for _, id := range c.chatIDs {
		if err := c.SendMessage(ctx, id, text); err != nil {
			c.log.Warn().Err(err).Int64("chat_id", id).Msg("telegram notification failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
