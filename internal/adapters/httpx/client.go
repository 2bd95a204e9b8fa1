/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// StatusError is a non-2xx answer from an upstream API.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api status=%d body=%s", e.Service, e.Code, e.Body)
}

// Retryable reports 429 and 5xx answers.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client is the JSON transport shared by the REST connectors. Requests are
// paced by a token bucket and 429/5xx answers are retried with backoff.
type Client struct {
	service  string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	auth     func(*http.Request)
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client, e.g. with an oauth2 client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithAuth installs a request decorator for schemes the other options miss.
func WithAuth(fn func(*http.Request)) Option { return func(c *Client) { c.auth = fn } }

func WithBearer(token string) Option {
	return func(c *Client) {
		c.auth = func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}
}

func WithBasic(user, pass string) Option {
	return func(c *Client) { c.auth = func(r *http.Request) { r.SetBasicAuth(user, pass) } }
}

// WithRetry sets the attempt count and the first backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) { c.attempts, c.backoff = attempts, backoff }
}

// New builds a client for baseURL. rps <= 0 disables pacing.
func New(service, baseURL string, timeout time.Duration, rps float64, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		service:  service,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Inf, 1),
		attempts: 3,
		backoff:  300 * time.Millisecond,
		log:      log.With().Str("service", service).Logger(),
	}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	for _, o := range opts {
		o(c)
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	return c
}

// URL joins path onto the base URL. An empty path addresses the base itself.
func (c *Client) URL(path string, q url.Values) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// DoJSON sends body (when non-nil) as JSON and decodes the answer into out
// (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, q url.Values, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%s: empty base url", c.service)
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.service, err)
		}
		payload = b
	}
	u := c.URL(path, q)
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			c.log.Warn().Err(lastErr).Int("attempt", attempt+1).Dur("wait", wait).Msg("retrying upstream call")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := c.once(ctx, method, u, payload, out)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, u string, payload []byte, out any) error {
	var r io.Reader
	if payload != nil {
		r = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth(req)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Service: c.service, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}
