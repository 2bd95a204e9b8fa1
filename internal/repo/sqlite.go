/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed width so stored timestamps compare correctly as text.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000-07:00"

// staleLockAfter frees a job lock left behind by a crashed process.
const staleLockAfter = 6 * time.Hour

var sqliteDialect = dialect{
	name:     "sqlite",
	tagsJSON: "a.tags",
	tagMatch: "EXISTS (SELECT 1 FROM json_each(a.tags) tg WHERE lower(tg.value) = lower(%s))",
	like:     "LIKE",
	jsonCast: "",
	encTags: func(tags []string) (any, error) {
		if tags == nil {
			tags = []string{}
		}
		b, err := json.Marshal(tags)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	},
}

// OpenSQLite opens a modernc SQLite database. A single connection is used so
// ":memory:" databases survive between calls and writes never contend.
func OpenSQLite(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return &Store{db: &sqliteBackend{db: db, log: log}, d: sqliteDialect, log: log}, nil
}

type sqlExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqliteQuerier struct{ x sqlExecutor }

type sqlRows struct{ *sql.Rows }

func (r sqlRows) Close() { _ = r.Rows.Close() }

type sqlRow struct{ row *sql.Row }

func (r sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoRows
	}
	return err
}

// bindArgs rewrites time values into the fixed-width text layout.
func bindArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case time.Time:
			out[i] = v.UTC().Format(sqliteTimeLayout)
		case *time.Time:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = v.UTC().Format(sqliteTimeLayout)
			}
		default:
			out[i] = a
		}
	}
	return out
}

func (q sqliteQuerier) Query(ctx context.Context, query string, args ...any) (rows, error) {
	rs, err := q.x.QueryContext(ctx, query, bindArgs(args)...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rs}, nil
}

func (q sqliteQuerier) QueryRow(ctx context.Context, query string, args ...any) rowScanner {
	return sqlRow{q.x.QueryRowContext(ctx, query, bindArgs(args)...)}
}

func (q sqliteQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.x.ExecContext(ctx, query, bindArgs(args)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q sqliteQuerier) ExecBatch(ctx context.Context, query string, argSets [][]any) ([]int64, error) {
	out := make([]int64, 0, len(argSets))
	for _, args := range argSets {
		n, err := q.Exec(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

type sqliteBackend struct {
	db  *sql.DB
	log zerolog.Logger
}

func (b *sqliteBackend) q() sqliteQuerier { return sqliteQuerier{x: b.db} }

func (b *sqliteBackend) Query(ctx context.Context, query string, args ...any) (rows, error) {
	return b.q().Query(ctx, query, args...)
}

func (b *sqliteBackend) QueryRow(ctx context.Context, query string, args ...any) rowScanner {
	return b.q().QueryRow(ctx, query, args...)
}

func (b *sqliteBackend) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return b.q().Exec(ctx, query, args...)
}

func (b *sqliteBackend) ExecBatch(ctx context.Context, query string, argSets [][]any) ([]int64, error) {
	if len(argSets) == 0 {
		return nil, nil
	}
	var out []int64
	err := b.InTx(ctx, func(q querier) error {
		var err error
		out, err = q.ExecBatch(ctx, query, argSets)
		return err
	})
	return out, err
}

func (b *sqliteBackend) InTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(sqliteQuerier{x: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// TryLock claims a row in job_locks. Rows older than staleLockAfter are
// treated as abandoned.
func (b *sqliteBackend) TryLock(ctx context.Context, name string) (func(), bool, error) {
	now := time.Now().UTC()
	var acquired bool
	err := b.InTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM job_locks WHERE name = $1 AND acquired_at < $2`, name, now.Add(-staleLockAfter)); err != nil {
			return err
		}
		n, err := q.Exec(ctx, `INSERT INTO job_locks(name, acquired_at) VALUES($1, $2) ON CONFLICT(name) DO NOTHING`, name, now)
		acquired = n == 1
		return err
	})
	if err != nil || !acquired {
		return nil, false, err
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := b.Exec(ctx, `DELETE FROM job_locks WHERE name = $1`, name); err != nil {
			b.log.Error().Err(err).Str("lock", name).Msg("job lock release failed")
		}
	}
	return release, true, nil
}

func (b *sqliteBackend) Ping(ctx context.Context) error { return b.db.PingContext(ctx) }

func (b *sqliteBackend) Close() { _ = b.db.Close() }
