// Package storage is the sqlite persistence layer. The schema is
// created on Open so a fresh database file is immediately usable.
package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound means the row does not exist or is owned by someone else.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateAlert means an alert for this (user, item, observation)
	// tuple already exists.
	ErrDuplicateAlert = errors.New("storage: duplicate alert")
)

const timeLayout = "2006-01-02 15:04:05"

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience. Observation ids must never be
	// reused, the alert dedup key depends on it, hence AUTOINCREMENT.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS items (
  id             INTEGER PRIMARY KEY,
  media_kind     TEXT NOT NULL CHECK (media_kind IN ('book','music')),
  title          TEXT NOT NULL,
  isbn           TEXT,
  barcode        TEXT,
  catalog_number TEXT,
  owned          INTEGER NOT NULL DEFAULT 0 CHECK (owned IN (0,1)),
  condition      TEXT,
  created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS targets (
  id           INTEGER PRIMARY KEY,
  user_id      INTEGER NOT NULL,
  item_id      INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  target_price NUMERIC,
  priority     INTEGER NOT NULL DEFAULT 0,
  created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(user_id, item_id)
);
CREATE TABLE IF NOT EXISTS observations (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  item_id         INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  source          TEXT NOT NULL,
  title           TEXT NOT NULL,
  author          TEXT,
  identifier      TEXT,
  price           NUMERIC NOT NULL,
  shipping_cost   NUMERIC NOT NULL DEFAULT 0,
  total_cost      NUMERIC NOT NULL,
  condition       TEXT NOT NULL,
  seller_name     TEXT,
  seller_location TEXT,
  description     TEXT,
  url             TEXT,
  currency        TEXT NOT NULL DEFAULT 'EUR',
  is_available    INTEGER NOT NULL DEFAULT 1 CHECK (is_available IN (0,1)),
  checked_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_obs_item_time ON observations(item_id, checked_at);
CREATE INDEX IF NOT EXISTS idx_obs_time ON observations(checked_at);
CREATE TABLE IF NOT EXISTS alerts (
  id              INTEGER PRIMARY KEY,
  user_id         INTEGER NOT NULL,
  item_id         INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  observation_id  INTEGER NOT NULL,
  target_price    NUMERIC NOT NULL,
  triggered_price NUMERIC NOT NULL,
  source          TEXT NOT NULL,
  triggered_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  notified_at     DATETIME,
  is_read         INTEGER NOT NULL DEFAULT 0 CHECK (is_read IN (0,1)),
  UNIQUE(user_id, item_id, observation_id)
);
CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id, triggered_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// isUniqueViolation matches sqlite's constraint error text; modernc
// renders both plain and extended UNIQUE codes this way.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// parseTime handles both sqlite's CURRENT_TIMESTAMP format and RFC3339.
func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseAmount reads a NUMERIC column back into a decimal. sqlite may
// hand the value back as an integer, float or text rendering.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}
