// Package store declares the persistence contracts the engine fans out
// to. Adapters return explicit errors so callers can distinguish empty
// results from failed queries; the engine decides how to degrade.
package store

import (
	"context"
	"time"

	"github.com/harun/engram/pkg/model"
)

// FactStore persists structured key-value facts per owner.
type FactStore interface {
	// UpsertFact inserts or overwrites the fact keyed by (ownerID, key).
	UpsertFact(ctx context.Context, fact model.Fact) error

	// GetFacts returns facts for an owner at or above minConfidence,
	// ordered by confidence descending then timestamp descending.
	GetFacts(ctx context.Context, ownerID string, minConfidence float64) ([]model.Fact, error)

	// DeleteFact removes one fact. The bool reports whether a row was
	// actually removed.
	DeleteFact(ctx context.Context, ownerID, key string) (bool, error)

	// Count returns the number of facts stored for an owner.
	Count(ctx context.Context, ownerID string) (int, error)
}

// EpisodeQuery filters a similarity search.
type EpisodeQuery struct {
	OwnerID   string
	Embedding []float32
	K         int
	SinceDays int // 0 means no recency filter
}

// EpisodeStore persists embedded episodes and serves similarity queries.
type EpisodeStore interface {
	// UpsertEpisode stores a new episode. IDs are unique at creation
	// time; the store never merges episode text.
	UpsertEpisode(ctx context.Context, ep model.Episode) error

	// QuerySimilar returns up to K episodes for the owner ordered by
	// similarity, excluding redacted rows and rows older than
	// SinceDays when set.
	QuerySimilar(ctx context.Context, q EpisodeQuery) ([]model.Episode, error)

	// ListIDs returns all episode ids for an owner, redacted included.
	ListIDs(ctx context.Context, ownerID string) ([]string, error)

	// MarkRedacted flags the owner's episodes so QuerySimilar skips
	// them. Returns the number of rows flagged.
	MarkRedacted(ctx context.Context, ownerID string) (int, error)

	// DeleteByIDs hard-deletes episodes and their vectors.
	DeleteByIDs(ctx context.Context, ids []string) error

	// Count returns the number of non-redacted episodes for an owner.
	Count(ctx context.Context, ownerID string) (int, error)
}

// RelationStore persists the per-owner knowledge graph.
type RelationStore interface {
	// UpsertUser ensures the owner anchor node exists.
	UpsertUser(ctx context.Context, ownerID string) error

	// UpsertEntity merges an entity node by its normalized identity.
	UpsertEntity(ctx context.Context, name, entityType string) error

	// UpsertFactRelationship attaches a fact node to the owner anchor.
	UpsertFactRelationship(ctx context.Context, ownerID, key, value string, confidence float64, ts time.Time, channel string) error

	// UpsertTriple merges a subject-predicate->object edge.
	UpsertTriple(ctx context.Context, t model.Triple) error

	// ShortestPathLength returns the hop count between the owner anchor
	// and an entity matching target, or the unreachable sentinel.
	ShortestPathLength(ctx context.Context, ownerID, target string) (int, error)

	// FindPaths returns up to k shortest paths between the owner and
	// an entity matching target.
	FindPaths(ctx context.Context, ownerID, target string, k int) ([]model.Path, error)

	// GetSubgraph returns nodes within three hops of the owner anchor,
	// optionally restricted to edges newer than sinceDays.
	GetSubgraph(ctx context.Context, ownerID string, sinceDays int) ([]model.Node, error)

	// DeleteEntity detach-deletes the entity node matching the
	// normalized identity. Returns the number of nodes removed.
	DeleteEntity(ctx context.Context, name string) (int, error)

	// DeletePredicateEdges removes edges carrying the predicate within
	// the owner's subgraph. Returns the number of edges removed.
	DeletePredicateEdges(ctx context.Context, ownerID string, predicate model.Predicate) (int, error)
}
