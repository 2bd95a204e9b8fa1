/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var postgresDialect = dialect{
	name:     "postgres",
	tagsJSON: "array_to_json(a.tags)::text",
	tagMatch: "EXISTS (SELECT 1 FROM unnest(a.tags) tg WHERE lower(tg) = lower(%s))",
	like:     "ILIKE",
	jsonCast: "::jsonb",
	encTags: func(tags []string) (any, error) {
		if tags == nil {
			tags = []string{}
		}
		return tags, nil
	},
}

func OpenPostgres(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{db: &pgBackend{pool: pool, log: log}, d: postgresDialect, log: log}, nil
}

type pgExecutor interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type pgQuerier struct{ x pgExecutor }

type pgRows struct{ pgx.Rows }

func (r pgRows) Close() { r.Rows.Close() }

type pgRow struct{ row pgx.Row }

func (r pgRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return errNoRows
	}
	return err
}

func (q pgQuerier) Query(ctx context.Context, sql string, args ...any) (rows, error) {
	rs, err := q.x.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

func (q pgQuerier) QueryRow(ctx context.Context, sql string, args ...any) rowScanner {
	return pgRow{q.x.QueryRow(ctx, sql, args...)}
}

func (q pgQuerier) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := q.x.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q pgQuerier) ExecBatch(ctx context.Context, sql string, argSets [][]any) ([]int64, error) {
	if len(argSets) == 0 {
		return nil, nil
	}
	batch := &pgx.Batch{}
	for _, args := range argSets {
		batch.Queue(sql, args...)
	}
	br := q.x.SendBatch(ctx, batch)
	defer br.Close()
	out := make([]int64, 0, len(argSets))
	for range argSets {
		tag, err := br.Exec()
		if err != nil {
			return nil, err
		}
		out = append(out, tag.RowsAffected())
	}
	return out, nil
}

type pgBackend struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func (b *pgBackend) q() pgQuerier { return pgQuerier{x: b.pool} }

func (b *pgBackend) Query(ctx context.Context, sql string, args ...any) (rows, error) {
	return b.q().Query(ctx, sql, args...)
}

func (b *pgBackend) QueryRow(ctx context.Context, sql string, args ...any) rowScanner {
	return b.q().QueryRow(ctx, sql, args...)
}

func (b *pgBackend) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return b.q().Exec(ctx, sql, args...)
}

func (b *pgBackend) ExecBatch(ctx context.Context, sql string, argSets [][]any) ([]int64, error) {
	return b.q().ExecBatch(ctx, sql, argSets)
}

func (b *pgBackend) InTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(pgQuerier{x: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// TryLock takes a session advisory lock on a dedicated connection so the
// unlock runs on the same session that acquired it.
func (b *pgBackend) TryLock(ctx context.Context, name string) (func(), bool, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", name).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var unlocked bool
		if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock(hashtext($1))", name).Scan(&unlocked); err != nil || !unlocked {
			b.log.Error().Err(err).Str("lock", name).Msg("advisory unlock failed")
			// a session that failed to unlock must not go back to the pool
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}
	return release, true, nil
}

func (b *pgBackend) Ping(ctx context.Context) error { return b.pool.Ping(ctx) }

func (b *pgBackend) Close() { b.pool.Close() }
