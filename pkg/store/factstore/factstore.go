// Package factstore implements the structured key-value fact contract
// on SQLite.
package factstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/model"
)

// Config holds fact store configuration.
type Config struct {
	DBPath string
	Logger zerolog.Logger
}

// Store is a SQLite-backed fact store. Facts are keyed by
// (owner_id, key); upserting overwrites.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New opens the database and initializes the schema.
func New(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	// The busy timeout makes concurrent writers queue instead of
	// failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, logger: cfg.Logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS facts (
			owner_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence REAL NOT NULL,
			source TEXT NOT NULL,
			ts INTEGER NOT NULL,
			PRIMARY KEY (owner_id, key)
		);
		CREATE INDEX IF NOT EXISTS idx_facts_owner_conf ON facts(owner_id, confidence);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertFact inserts or replaces the fact keyed by (owner, key).
func (s *Store) UpsertFact(ctx context.Context, fact model.Fact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO facts (owner_id, key, value, confidence, source, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, fact.OwnerID, fact.Key, fact.Value, fact.Confidence, fact.Source, fact.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert fact %s:%s: %w", fact.OwnerID, fact.Key, err)
	}
	return nil
}

// GetFacts returns the owner's facts at or above minConfidence, ordered
// by confidence descending then timestamp descending.
func (s *Store) GetFacts(ctx context.Context, ownerID string, minConfidence float64) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, confidence, source, ts
		FROM facts
		WHERE owner_id = ? AND confidence >= ?
		ORDER BY confidence DESC, ts DESC
	`, ownerID, minConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var f model.Fact
		var ts int64
		if err := rows.Scan(&f.Key, &f.Value, &f.Confidence, &f.Source, &ts); err != nil {
			return nil, err
		}
		f.OwnerID = ownerID
		f.Timestamp = time.Unix(ts, 0).UTC()
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// DeleteFact removes one fact and reports whether a row was removed.
func (s *Store) DeleteFact(ctx context.Context, ownerID, key string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM facts WHERE owner_id = ? AND key = ?", ownerID, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete fact %s:%s: %w", ownerID, key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of facts stored for an owner.
func (s *Store) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM facts WHERE owner_id = ?", ownerID).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
