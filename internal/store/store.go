// Package store keeps an optional sqlite archive of exported jobs so repeated
// exports can tell new saves from old ones.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobexport/internal/jobs"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

type DB struct {
	Pool *sql.DB
}

// Open opens (creating if needed) the archive at path and migrates it.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", path)
	}
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, errors.Wrapf(err, "ping archive %s", path)
	}

	db := &DB{Pool: pool}
	if err := db.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return errors.Wrap(err, "read schema version")
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  job_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS saved_jobs (
  url TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT '',
  first_seen_run INTEGER NOT NULL REFERENCES runs(id),
  last_seen_run INTEGER NOT NULL REFERENCES runs(id),
  first_seen_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL
);
PRAGMA user_version = 1;`); err != nil {
		return errors.Wrap(err, "create schema v1")
	}
	return tx.Commit()
}

// SaveRun records one completed run and upserts its records by URL.
// Records without a URL are skipped. It returns how many URLs were new.
func (d *DB) SaveRun(ctx context.Context, source string, started time.Time, records []jobs.Record) (added int, err error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin save")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (source, started_at, finished_at, job_count) VALUES (?, ?, ?, ?);`,
		source, started.UTC().Format(time.RFC3339), now, len(records))
	if err != nil {
		return 0, errors.Wrap(err, "insert run")
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "run id")
	}

	for _, r := range records {
		if r.URL == "" {
			continue
		}
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM saved_jobs WHERE url = ?;`, r.URL).Scan(&exists)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			added++
		case err != nil:
			return 0, errors.Wrapf(err, "look up %s", r.URL)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO saved_jobs (url, title, company, location, status, first_seen_run, last_seen_run, first_seen_at, last_seen_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
  title = excluded.title,
  company = excluded.company,
  location = excluded.location,
  status = excluded.status,
  last_seen_run = excluded.last_seen_run,
  last_seen_at = excluded.last_seen_at;`,
			r.URL, r.Title, r.Company, r.Location, string(r.Status), runID, runID, now, now); err != nil {
			return 0, errors.Wrapf(err, "upsert %s", r.URL)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit save")
	}
	return added, nil
}

// Count returns the number of distinct archived jobs.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_jobs;`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count jobs")
	}
	return n, nil
}
