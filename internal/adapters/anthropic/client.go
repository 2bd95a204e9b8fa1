/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

const maxTokens = 2048

// Client generates newsletter text with the Anthropic Messages API.
type Client struct {
	key    string
	model  string
	client *anthropic.Client
	log    zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.AnthropicKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &Client{key: cfg.AnthropicKey, model: cfg.AnthropicModel, client: &client, log: log}
}

func (c *Client) GenerateNewsletterText(ctx context.Context, period string, start, end time.Time, dataContext string) (string, error) {
	if strings.TrimSpace(c.key) == "" {
		return "", errors.New("anthropic: missing key")
	}
	system, user := domain.NewsletterPrompt(period, start, end, dataContext)
	c.log.Info().Str("model", c.model).Str("period", period).Msg("anthropic newsletter call")
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(system + "\n\n" + user)),
		},
	})
	if err != nil {
		return "", err
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", errors.New("anthropic: empty response")
	}
	return text, nil
}
