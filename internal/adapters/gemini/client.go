/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// Client generates newsletter text with the Gemini API. The SDK client is
// created on first use because construction needs a context.
type Client struct {
	key     string
	model   string
	baseURL string
	log     zerolog.Logger

	once   sync.Once
	client *genai.Client
	err    error
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	model := cfg.GeminiModel
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Client{key: cfg.GeminiKey, model: model, log: log}
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		cc := &genai.ClientConfig{APIKey: c.key, Backend: genai.BackendGeminiAPI}
		if c.baseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
		}
		c.client, c.err = genai.NewClient(ctx, cc)
		if c.err != nil {
			c.err = fmt.Errorf("gemini: create client: %w", c.err)
		}
	})
	return c.client, c.err
}

func (c *Client) GenerateNewsletterText(ctx context.Context, period string, start, end time.Time, dataContext string) (string, error) {
	if strings.TrimSpace(c.key) == "" {
		return "", errors.New("gemini: missing key")
	}
	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}
	system, user := domain.NewsletterPrompt(period, start, end, dataContext)
	c.log.Info().Str("model", c.model).Str("period", period).Msg("gemini newsletter call")
	gc := &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(user), gc)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
