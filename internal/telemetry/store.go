// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("telemetry store closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

// Schema creates the usage table. Times are Unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS usage (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	at           INTEGER NOT NULL,
	model        TEXT    NOT NULL,
	latency_ms   INTEGER NOT NULL,
	prompt_chars INTEGER NOT NULL,
	reply_chars  INTEGER NOT NULL,
	outcome      TEXT    NOT NULL,
	error_kind   TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_usage_at ON usage(at);
`

// =============================================================================
// STORE
// =============================================================================

// Store persists usage rows in SQLite. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the usage database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrDatabaseError)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create telemetry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrDatabaseError, pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", ErrDatabaseError, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one usage row. A zero At is replaced by the current time.
func (s *Store) Record(ctx context.Context, u Usage) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if u.At.IsZero() {
		u.At = time.Now()
	}
	if u.Outcome == "" {
		u.Outcome = OutcomeOK
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage (at, model, latency_ms, prompt_chars, reply_chars, outcome, error_kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.At.UnixMilli(), u.Model, u.Latency.Milliseconds(),
		u.PromptChars, u.ReplyChars, u.Outcome, u.ErrorKind)
	if err != nil {
		return fmt.Errorf("%w: record usage: %v", ErrDatabaseError, err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Usage, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, model, latency_ms, prompt_chars, reply_chars, outcome, error_kind
		 FROM usage ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var (
			u         Usage
			at        int64
			latencyMS int64
		)
		if err := rows.Scan(&u.ID, &at, &u.Model, &latencyMS, &u.PromptChars, &u.ReplyChars, &u.Outcome, &u.ErrorKind); err != nil {
			return nil, fmt.Errorf("%w: scan usage: %v", ErrDatabaseError, err)
		}
		u.At = time.UnixMilli(at)
		u.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, u)
	}
	return out, rows.Err()
}

// Summary aggregates every row at or after since.
func (s *Store) Summary(ctx context.Context, since time.Time) (Summary, error) {
	sum := Summary{
		Since:       since,
		ByModel:     make(map[string]int),
		ByErrorKind: make(map[string]int),
	}
	if s == nil || s.db == nil {
		return sum, ErrClosed
	}

	var (
		avgMS  sql.NullFloat64
		maxMS  sql.NullInt64
		prompt sql.NullInt64
		reply  sql.NullInt64
		last   sql.NullInt64
		ok     sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(outcome = 'ok'), AVG(latency_ms), MAX(latency_ms),
		        SUM(prompt_chars), SUM(reply_chars), MAX(at)
		 FROM usage WHERE at >= ?`, since.UnixMilli()).
		Scan(&sum.Requests, &ok, &avgMS, &maxMS, &prompt, &reply, &last)
	if err != nil {
		return sum, fmt.Errorf("%w: summarize: %v", ErrDatabaseError, err)
	}

	sum.Succeeded = int(ok.Int64)
	sum.Failed = sum.Requests - sum.Succeeded
	sum.AvgLatency = time.Duration(avgMS.Float64 * float64(time.Millisecond))
	sum.MaxLatency = time.Duration(maxMS.Int64) * time.Millisecond
	sum.PromptChars = prompt.Int64
	sum.ReplyChars = reply.Int64
	if last.Valid {
		sum.LastActivity = time.UnixMilli(last.Int64)
	}

	if err := s.countBy(ctx, "model", since, sum.ByModel); err != nil {
		return sum, err
	}
	if err := s.countBy(ctx, "error_kind", since, sum.ByErrorKind); err != nil {
		return sum, err
	}
	delete(sum.ByErrorKind, "")
	return sum, nil
}

// countBy fills into with row counts grouped by column. column is always a
// constant from this file.
func (s *Store) countBy(ctx context.Context, column string, since time.Time, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM usage WHERE at >= ? GROUP BY `+column, since.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: group by %s: %v", ErrDatabaseError, column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("%w: scan %s: %v", ErrDatabaseError, column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Prune deletes rows older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM usage WHERE at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %v", ErrDatabaseError, err)
	}
	return res.RowsAffected()
}
