/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/HamedShams/platform-ops-hub/internal/connectors"
	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

const (
	WeeklyNewsletterTitle = "Weekly PlatformOps Newsletter"
	highlightLimit        = 5
)

type NewsletterStore interface {
	CountDeploymentsSince(ctx context.Context, since time.Time) (int, error)
	ActivitiesTouchedSince(ctx context.Context, since time.Time) ([]domain.ActivityView, error)
	CountCompletedActivitiesMatching(ctx context.Context, since time.Time, fragment string) (int, error)
	InsertNewsletter(ctx context.Context, n *domain.Newsletter) error
	ListNewsletters(ctx context.Context) ([]domain.Newsletter, error)
}

type NewsletterDTO struct {
	ID         int64                   `json:"id"`
	Period     domain.NewsletterPeriod `json:"period"`
	RangeStart time.Time               `json:"rangeStart"`
	RangeEnd   time.Time               `json:"rangeEnd"`
	Markdown   string                  `json:"markdown"`
	HTML       string                  `json:"html"`
	CreatedAt  time.Time               `json:"createdAt"`
}

func newsletterDTO(n domain.Newsletter) NewsletterDTO {
	return NewsletterDTO{
		ID:         n.ID,
		Period:     n.Period,
		RangeStart: n.RangeStart,
		RangeEnd:   n.RangeEnd,
		Markdown:   n.Markdown,
		HTML:       n.HTML,
		CreatedAt:  n.CreatedAt,
	}
}

type Newsletters struct {
	cfg      config.Config
	log      zerolog.Logger
	store    NewsletterStore
	textGen  connectors.TextGenerator
	notifier connectors.Notifier
	now      func() time.Time
}

func NewNewsletters(cfg config.Config, log zerolog.Logger, store NewsletterStore, textGen connectors.TextGenerator, notifier connectors.Notifier) *Newsletters {
	return &Newsletters{cfg: cfg, log: log, store: store, textGen: textGen, notifier: notifier, now: time.Now}
}

// Generate builds a newsletter for period from the deployments and
// activities in its window. A generator failure persists nothing.
func (n *Newsletters) Generate(ctx context.Context, period domain.NewsletterPeriod, prompt string) (NewsletterDTO, error) {
	now := n.now().UTC()
	start, end, err := period.Window(now)
	if err != nil {
		return NewsletterDTO{}, err
	}
	deployments, err := n.store.CountDeploymentsSince(ctx, start)
	if err != nil {
		return NewsletterDTO{}, fmt.Errorf("newsletter: deployments: %w", err)
	}
	acts, err := n.store.ActivitiesTouchedSince(ctx, start)
	if err != nil {
		return NewsletterDTO{}, fmt.Errorf("newsletter: activities: %w", err)
	}
	data := newsletterContext(period, start, end, deployments, acts, prompt)

	md, err := n.textGen.GenerateNewsletterText(ctx, string(period), start, end, data)
	if err != nil {
		return NewsletterDTO{}, fmt.Errorf("newsletter: generate: %w", err)
	}
	rec := domain.Newsletter{
		Period:     period,
		RangeStart: start,
		RangeEnd:   end,
		Markdown:   md,
		HTML:       domain.NewsletterHTML(md),
		CreatedAt:  now,
	}
	if err := n.store.InsertNewsletter(ctx, &rec); err != nil {
		return NewsletterDTO{}, fmt.Errorf("newsletter: save: %w", err)
	}
	n.log.Info().Int64("id", rec.ID).Str("period", string(period)).Int("deployments", deployments).Msg("newsletter generated")
	return newsletterDTO(rec), nil
}

func newsletterContext(period domain.NewsletterPeriod, start, end time.Time, deployments int, acts []domain.ActivityView, prompt string) string {
	var done []string
	for _, a := range acts {
		if a.Status != domain.StatusDone {
			continue
		}
		owner := a.OwnerName
		if owner == "" {
			owner = "System"
		}
		done = append(done, fmt.Sprintf("- %s (Completed by %s)", a.Title, owner))
	}
	highlights := done
	if len(highlights) > highlightLimit {
		highlights = highlights[:highlightLimit]
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = "None provided"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s\n", period)
	fmt.Fprintf(&b, "Date Range: %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Fprintf(&b, "Deployments: %d\n", deployments)
	fmt.Fprintf(&b, "Completed Activities: %d\n", len(done))
	fmt.Fprintf(&b, "Highlights:\n%s\n", strings.Join(highlights, "\n"))
	fmt.Fprintf(&b, "Custom Context: %s\n", prompt)
	return b.String()
}

func (n *Newsletters) List(ctx context.Context) ([]NewsletterDTO, error) {
	rows, err := n.store.ListNewsletters(ctx)
	if err != nil {
		return nil, fmt.Errorf("newsletter: list: %w", err)
	}
	out := make([]NewsletterDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, newsletterDTO(r))
	}
	return out, nil
}

// PublishWeekly is the scheduled weekly newsletter. The newsletter is saved
// before the announcement goes out, so a notification error still leaves
// it stored.
func (n *Newsletters) PublishWeekly(ctx context.Context) (NewsletterDTO, error) {
	now := n.now().UTC()
	start := now.AddDate(0, 0, -7)
	deployments, err := n.store.CountDeploymentsSince(ctx, start)
	if err != nil {
		return NewsletterDTO{}, fmt.Errorf("weekly newsletter: deployments: %w", err)
	}
	bugs, err := n.store.CountCompletedActivitiesMatching(ctx, start, "Bug")
	if err != nil {
		return NewsletterDTO{}, fmt.Errorf("weekly newsletter: bugs: %w", err)
	}
	data := fmt.Sprintf("Stats: %d deployments, %d bugs resolved.", deployments, bugs)
	md, err := n.textGen.GenerateNewsletterText(ctx, string(domain.PeriodWeekly), start, now, data)
	if err != nil {
		return NewsletterDTO{}, fmt.Errorf("weekly newsletter: generate: %w", err)
	}
	rec := domain.Newsletter{
		Period:     domain.PeriodWeekly,
		RangeStart: start,
		RangeEnd:   now,
		Markdown:   md,
		HTML:       "<div>" + domain.NewsletterHTML(md) + "</div>",
		CreatedAt:  now,
	}
	if err := n.store.InsertNewsletter(ctx, &rec); err != nil {
		return NewsletterDTO{}, fmt.Errorf("weekly newsletter: save: %w", err)
	}
	dto := newsletterDTO(rec)
	link := strings.TrimRight(n.cfg.PublicBaseURL, "/") + "/newsletters"
	if err := n.notifier.SendNotification(ctx, WeeklyNewsletterTitle, link); err != nil {
		return dto, fmt.Errorf("weekly newsletter %d saved, notify: %w", rec.ID, err)
	}
	n.log.Info().Int64("id", rec.ID).Int("deployments", deployments).Int("bugs", bugs).Msg("weekly newsletter published")
	return dto, nil
}
