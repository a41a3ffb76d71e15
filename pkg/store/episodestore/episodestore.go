// Package episodestore implements the embedded-episode contract on
// SQLite with the sqlite-vec extension.
package episodestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/model"
	"github.com/harun/engram/pkg/store"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// Config holds episode store configuration.
type Config struct {
	DBPath    string
	Dimension int
	Logger    zerolog.Logger
}

// Store is a SQLite-backed episode store with a vec0 virtual table for
// cosine similarity search. Episode text is immutable; only the
// redaction flag changes after creation.
type Store struct {
	db        *sql.DB
	dimension int
	logger    zerolog.Logger
}

// New opens the database and initializes the schema.
func New(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("embedding dimension is required")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, dimension: cfg.Dimension, logger: cfg.Logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			text TEXT NOT NULL,
			channel TEXT NOT NULL,
			thread_id TEXT,
			importance REAL NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium',
			tags TEXT NOT NULL DEFAULT '[]',
			redacted INTEGER NOT NULL DEFAULT 0,
			ts INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_episodes_owner ON episodes(owner_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	vectorSchema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS episode_vectors USING vec0(
			episode_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, s.dimension)
	_, err := s.db.Exec(vectorSchema)
	return err
}

// UpsertEpisode stores a new episode row and its embedding.
func (s *Store) UpsertEpisode(ctx context.Context, ep model.Episode) error {
	tagsJSON, err := json.Marshal(ep.Metadata.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	priority := ep.Metadata.Priority
	if priority == "" {
		priority = "medium"
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO episodes (id, owner_id, text, channel, thread_id, importance, priority, tags, redacted, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ep.ID, ep.OwnerID, ep.Text, ep.Metadata.Channel, ep.Metadata.ThreadID,
		ep.Metadata.Importance, priority, string(tagsJSON), boolToInt(ep.Metadata.Redacted),
		ep.Metadata.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert episode %s: %w", ep.ID, err)
	}

	embeddingJSON, err := json.Marshal(ep.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO episode_vectors (episode_id, embedding) VALUES (?, ?)
	`, ep.ID, string(embeddingJSON))
	if err != nil {
		return fmt.Errorf("failed to store embedding for %s: %w", ep.ID, err)
	}

	return tx.Commit()
}

// QuerySimilar returns up to K episodes ordered by cosine similarity,
// excluding redacted rows and rows older than SinceDays when set.
func (s *Store) QuerySimilar(ctx context.Context, q store.EpisodeQuery) ([]model.Episode, error) {
	embeddingJSON, err := json.Marshal(q.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query embedding: %w", err)
	}

	// Scan the vector table for distances, then filter candidates
	// against the metadata table. The vec0 scan is owner-agnostic so
	// over-fetch before filtering.
	rows, err := s.db.QueryContext(ctx, `
		SELECT episode_id, vec_distance_cosine(embedding, ?) AS distance
		FROM episode_vectors
		ORDER BY distance ASC
	`, string(embeddingJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var sinceUnix int64
	if q.SinceDays > 0 {
		sinceUnix = time.Now().AddDate(0, 0, -q.SinceDays).Unix()
	}

	var episodes []model.Episode
	for rows.Next() {
		if q.K > 0 && len(episodes) >= q.K {
			break
		}

		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, err
		}

		ep, ok, err := s.fetchEpisode(ctx, id, q.OwnerID, sinceUnix)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ep.Similarity = 1.0 - distance
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func (s *Store) fetchEpisode(ctx context.Context, id, ownerID string, sinceUnix int64) (model.Episode, bool, error) {
	var ep model.Episode
	var threadID sql.NullString
	var tagsJSON string
	var redacted int
	var ts int64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, text, channel, thread_id, importance, priority, tags, redacted, ts
		FROM episodes
		WHERE id = ? AND owner_id = ? AND redacted = 0 AND ts >= ?
	`, id, ownerID, sinceUnix).Scan(&ep.ID, &ep.OwnerID, &ep.Text, &ep.Metadata.Channel,
		&threadID, &ep.Metadata.Importance, &ep.Metadata.Priority, &tagsJSON, &redacted, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Episode{}, false, nil
	}
	if err != nil {
		return model.Episode{}, false, err
	}

	ep.Metadata.ThreadID = threadID.String
	ep.Metadata.Timestamp = time.Unix(ts, 0).UTC()
	if err := json.Unmarshal([]byte(tagsJSON), &ep.Metadata.Tags); err != nil {
		s.logger.Warn().Err(err).Str("episode_id", id).Msg("Failed to decode episode tags")
	}
	return ep, true, nil
}

// ListIDs returns every episode id for an owner, redacted included.
func (s *Store) ListIDs(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM episodes WHERE owner_id = ?", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkRedacted flags the owner's episodes so similarity search skips
// them. Returns the number of rows flagged.
func (s *Store) MarkRedacted(ctx context.Context, ownerID string) (int, error) {
	result, err := s.db.ExecContext(ctx, "UPDATE episodes SET redacted = 1 WHERE owner_id = ? AND redacted = 0", ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to redact episodes for %s: %w", ownerID, err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// DeleteByIDs hard-deletes episodes and their vectors.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM episodes WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete episode %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM episode_vectors WHERE episode_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete vector for %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of non-redacted episodes for an owner.
func (s *Store) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM episodes WHERE owner_id = ? AND redacted = 0", ownerID).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
