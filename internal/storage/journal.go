// Package storage persists an append-only journal of announcements
// and trade outcomes in SQLite. The journal is an audit trail for
// post-hoc review; nothing in the trading path reads it back, and a
// journal write failure never interrupts execution.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Journal is the SQLite-backed outcome log, WAL mode enabled.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the journal database at dbPath.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS announcements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			catalog_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			received_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			announcement_id INTEGER NOT NULL REFERENCES announcements(id),
			base TEXT NOT NULL,
			venue TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			take_profit TEXT,
			stop_loss TEXT,
			error TEXT,
			elapsed_ms INTEGER NOT NULL,
			traded_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Journal{db: db}, nil
}

// RecordAnnouncement stores one decided announcement and returns its
// journal row id for outcome linkage.
func (j *Journal) RecordAnnouncement(ctx context.Context, eventID int64, title string, catalogID int, kind string, receivedAt time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		"INSERT INTO announcements (event_id, title, catalog_id, kind, received_at) VALUES (?, ?, ?, ?, ?)",
		eventID, title, catalogID, kind, receivedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert announcement: %w", err)
	}
	return res.LastInsertId()
}

// Outcome is one finished (base, venue) execution attempt.
type Outcome struct {
	AnnouncementID int64
	Base           string
	Venue          string
	Symbol         string
	Side           string
	TakeProfit     string
	StopLoss       string
	Err            string
	Elapsed        time.Duration
	TradedAt       time.Time
}

// RecordOutcome appends one execution outcome.
func (j *Journal) RecordOutcome(ctx context.Context, o Outcome) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes
		 (announcement_id, base, venue, symbol, side, take_profit, stop_loss, error, elapsed_ms, traded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.AnnouncementID, o.Base, o.Venue, o.Symbol, o.Side,
		o.TakeProfit, o.StopLoss, o.Err, o.Elapsed.Milliseconds(), o.TradedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (j *Journal) UpsertMetadata(ctx context.Context, key, value string) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now().UnixMilli(),
	)
	return err
}

// GetMetadata retrieves a value from the metadata table. A missing key
// returns an empty string without error.
func (j *Journal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// CountOutcomes reports how many outcomes are stored for one
// announcement. Used by tests and by the shutdown summary.
func (j *Journal) CountOutcomes(ctx context.Context, announcementID int64) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM outcomes WHERE announcement_id = ?", announcementID).Scan(&n)
	return n, err
}

// Close flushes and closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
