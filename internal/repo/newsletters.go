/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"time"

	"github.com/HamedShams/platform-ops-hub/internal/domain"
)

// InsertNewsletter stores n and fills in its ID and CreatedAt.
func (s *Store) InsertNewsletter(ctx context.Context, n *domain.Newsletter) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return s.db.QueryRow(ctx, `INSERT INTO newsletters(period, range_start, range_end, markdown, html, created_at)
        VALUES($1,$2,$3,$4,$5,$6) RETURNING id`,
		string(n.Period), n.RangeStart.UTC(), n.RangeEnd.UTC(), n.Markdown, n.HTML, n.CreatedAt.UTC()).Scan(&n.ID)
}

// ListNewsletters returns newsletters newest first.
func (s *Store) ListNewsletters(ctx context.Context) ([]domain.Newsletter, error) {
	rs, err := s.db.Query(ctx, `SELECT id, period, range_start, range_end, markdown, html, created_at
        FROM newsletters ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []domain.Newsletter
	for rs.Next() {
		var n domain.Newsletter
		var period string
		if err := rs.Scan(&n.ID, &period, &n.RangeStart, &n.RangeEnd, &n.Markdown, &n.HTML, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Period = domain.NewsletterPeriod(period)
		n.RangeStart, n.RangeEnd, n.CreatedAt = n.RangeStart.UTC(), n.RangeEnd.UTC(), n.CreatedAt.UTC()
		out = append(out, n)
	}
	return out, rs.Err()
}

// ActiveTemplate returns the active template for key on channel, or nil.
func (s *Store) ActiveTemplate(ctx context.Context, key string, channel domain.NotificationChannel) (*domain.NotificationTemplate, error) {
	var t domain.NotificationTemplate
	var ch string
	err := s.db.QueryRow(ctx, `SELECT id, template_key, channel, content, is_active FROM notification_templates
        WHERE template_key = $1 AND channel = $2 AND is_active = $3`, key, string(channel), true).
		Scan(&t.ID, &t.Key, &ch, &t.Content, &t.IsActive)
	t.Channel = domain.NotificationChannel(ch)
	return optional(&t, err)
}

// UpsertTemplate writes a template keyed by (key, channel).
func (s *Store) UpsertTemplate(ctx context.Context, t domain.NotificationTemplate) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO notification_templates(template_key, channel, content, is_active, created_at, updated_at)
        VALUES($1,$2,$3,$4,$5,$5)
        ON CONFLICT (template_key, channel) DO UPDATE SET
            content = excluded.content,
            is_active = excluded.is_active,
            updated_at = excluded.updated_at`,
		t.Key, string(t.Channel), t.Content, t.IsActive, now)
	return err
}
