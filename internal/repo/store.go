/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HamedShams/platform-ops-hub/internal/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// errNoRows is what backend rows report when a single-row query matches nothing.
var errNoRows = errors.New("repo: no rows")

type rowScanner interface {
	Scan(dest ...any) error
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type querier interface {
	Query(ctx context.Context, q string, args ...any) (rows, error)
	QueryRow(ctx context.Context, q string, args ...any) rowScanner
	Exec(ctx context.Context, q string, args ...any) (int64, error)
	// ExecBatch runs q once per argument set and returns rows affected for each.
	ExecBatch(ctx context.Context, q string, argSets [][]any) ([]int64, error)
}

type backend interface {
	querier
	InTx(ctx context.Context, fn func(q querier) error) error
	TryLock(ctx context.Context, name string) (release func(), ok bool, err error)
	Ping(ctx context.Context) error
	Close()
}

// dialect holds the SQL fragments that differ between Postgres and SQLite.
type dialect struct {
	name string
	// tagsJSON renders activities.tags (alias a) as a JSON array string.
	tagsJSON string
	// tagMatch is a predicate over activities a; %s is the placeholder for the tag.
	tagMatch string
	like     string
	jsonCast string
	encTags  func([]string) (any, error)
}

// num renders a NUMERIC column as text so it can be parsed into a decimal.
func (d dialect) num(col string) string {
	if d.name == "postgres" {
		return col + "::text"
	}
	return col
}

// jsonText renders a JSON column as text.
func (d dialect) jsonText(col string) string {
	if d.name == "postgres" {
		return col + "::text"
	}
	return col
}

// Store is the aggregate store shared by the sync pipeline and the read side.
// All timestamps are written and compared in UTC.
type Store struct {
	db  backend
	d   dialect
	log zerolog.Logger
}

// Open connects to the backend named by cfg.DBDriver.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		return OpenPostgres(ctx, cfg.DBDSN, log)
	case "sqlite":
		return OpenSQLite(ctx, cfg.DBDSN, log)
	}
	return nil, fmt.Errorf("repo: unknown driver %q", cfg.DBDriver)
}

func (s *Store) Driver() string { return s.d.name }

func (s *Store) Close() { s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// TryLock takes the named single-flight lock. ok is false when another holder
// has it; release must be called once when ok is true.
func (s *Store) TryLock(ctx context.Context, name string) (func(), bool, error) {
	return s.db.TryLock(ctx, name)
}

func parseDecimal(v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("repo: parse decimal %q: %w", v, err)
	}
	return d, nil
}

// optional maps errNoRows to a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, errNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
