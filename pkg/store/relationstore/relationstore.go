// Package relationstore implements the knowledge-graph contract on
// Neo4j. Entities are keyed by the normalized identity
// lowercase(type)+":"+lowercase(name) with spaces replaced by
// underscores; that key is the one bit-exact contract the engine
// imposes on any graph backend.
package relationstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/model"
)

// Config holds relation store configuration.
type Config struct {
	URI                 string
	User                string
	Password            string
	UnreachableSentinel int
	Logger              zerolog.Logger
}

// Store is a Neo4j-backed relation store. Sessions are acquired per
// call and released before returning.
type Store struct {
	driver   neo4j.DriverWithContext
	sentinel int
	logger   zerolog.Logger
}

// New connects the driver and ensures uniqueness constraints exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("neo4j uri is required")
	}
	if cfg.UnreachableSentinel <= 0 {
		cfg.UnreachableSentinel = 99
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	s := &Store{driver: driver, sentinel: cfg.UnreachableSentinel, logger: cfg.Logger}
	if err := s.initConstraints(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to initialize constraints: %w", err)
	}

	return s, nil
}

func (s *Store) initConstraints(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT owner_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.owner_id IS UNIQUE",
		"CREATE CONSTRAINT entity_identity_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.identity IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return err
		}
	}
	return nil
}

// Sentinel returns the unreachable path-length sentinel.
func (s *Store) Sentinel() int {
	return s.sentinel
}

// UpsertUser ensures the owner anchor node exists.
func (s *Store) UpsertUser(ctx context.Context, ownerID string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (u:User {owner_id: $ownerID})
		SET u.created_at = coalesce(u.created_at, datetime())
	`, map[string]any{"ownerID": ownerID})
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", ownerID, err)
	}
	return nil
}

// UpsertEntity merges an entity node by its normalized identity and
// records first_seen on creation.
func (s *Store) UpsertEntity(ctx context.Context, name, entityType string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (e:Entity {identity: $identity})
		ON CREATE SET e.name = $name, e.type = $type, e.first_seen = datetime()
	`, map[string]any{
		"identity": model.IdentityKey(name, entityType),
		"name":     name,
		"type":     entityType,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity %s:%s: %w", entityType, name, err)
	}
	return nil
}

// UpsertFactRelationship merges a fact node and links it to the owner
// anchor with a HAS_FACT edge.
func (s *Store) UpsertFactRelationship(ctx context.Context, ownerID, key, value string, confidence float64, ts time.Time, channel string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (u:User {owner_id: $ownerID})
		MERGE (f:Fact {key: $key, owner_id: $ownerID})
		SET f.value = $value, f.confidence = $confidence, f.ts = $ts, f.channel = $channel
		MERGE (u)-[:HAS_FACT]->(f)
	`, map[string]any{
		"ownerID":    ownerID,
		"key":        key,
		"value":      value,
		"confidence": confidence,
		"ts":         ts.UTC().Format(time.RFC3339),
		"channel":    channel,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert fact relationship %s:%s: %w", ownerID, key, err)
	}
	return nil
}

// UpsertTriple merges the subject and object entity nodes and the
// predicate-tagged edge between them.
func (s *Store) UpsertTriple(ctx context.Context, t model.Triple) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (s:Entity {name: $subject})
		MERGE (o:Entity {name: $object})
		MERGE (s)-[r:RELATES_TO {predicate: $predicate}]->(o)
		SET r.confidence = $confidence, r.time = $time, r.channel = $channel,
		    r.ts = $ts, r.source = $source
	`, map[string]any{
		"subject":    t.Subject,
		"object":     t.Object,
		"predicate":  string(t.Predicate),
		"confidence": t.Props.Confidence,
		"time":       t.Props.Time,
		"channel":    t.Props.Channel,
		"ts":         t.Props.Timestamp.UTC().Format(time.RFC3339),
		"source":     t.Props.Source,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert triple %s-%s->%s: %w", t.Subject, t.Predicate, t.Object, err)
	}
	return nil
}

// ShortestPathLength returns the hop count between the owner anchor and
// an entity whose name matches target case-insensitively, or the
// sentinel when no path exists.
func (s *Store) ShortestPathLength(ctx context.Context, ownerID, target string) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {owner_id: $ownerID})
		MATCH (t:Entity)
		WHERE toLower(t.name) = toLower($target)
		MATCH path = shortestPath((u)-[*]-(t))
		RETURN length(path) AS path_length
		LIMIT 1
	`, map[string]any{"ownerID": ownerID, "target": target})
	if err != nil {
		return s.sentinel, fmt.Errorf("failed to query shortest path %s->%s: %w", ownerID, target, err)
	}

	if result.Next(ctx) {
		if v, ok := result.Record().Get("path_length"); ok {
			if length, ok := v.(int64); ok {
				return int(length), nil
			}
		}
	}
	return s.sentinel, result.Err()
}

// FindPaths returns up to k shortest paths between the owner and an
// entity matching target.
func (s *Store) FindPaths(ctx context.Context, ownerID, target string, k int) ([]model.Path, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {owner_id: $ownerID})
		MATCH (t:Entity)
		WHERE toLower(t.name) = toLower($target)
		MATCH path = (u)-[*1..5]-(t)
		RETURN path, length(path) AS path_length
		ORDER BY path_length
		LIMIT $k
	`, map[string]any{"ownerID": ownerID, "target": target, "k": k})
	if err != nil {
		return nil, fmt.Errorf("failed to find paths %s->%s: %w", ownerID, target, err)
	}

	var paths []model.Path
	for result.Next(ctx) {
		record := result.Record()
		p := model.Path{}
		if v, ok := record.Get("path_length"); ok {
			if length, ok := v.(int64); ok {
				p.Length = int(length)
			}
		}
		if v, ok := record.Get("path"); ok {
			if np, ok := v.(neo4j.Path); ok {
				for _, node := range np.Nodes {
					p.Nodes = append(p.Nodes, nodeLabel(node))
				}
				for _, rel := range np.Relationships {
					p.Relationships = append(p.Relationships, rel.Type)
				}
			}
		}
		paths = append(paths, p)
	}
	return paths, result.Err()
}

// GetSubgraph returns nodes within three hops of the owner anchor,
// optionally restricted to edges newer than sinceDays.
func (s *Store) GetSubgraph(ctx context.Context, ownerID string, sinceDays int) ([]model.Node, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	params := map[string]any{"ownerID": ownerID}
	query := `
		MATCH (u:User {owner_id: $ownerID})-[r*1..3]-(n)
		RETURN DISTINCT n, labels(n) AS node_labels
		LIMIT 100
	`
	if sinceDays > 0 {
		params["since"] = time.Now().AddDate(0, 0, -sinceDays).UTC().Format(time.RFC3339)
		query = `
			MATCH (u:User {owner_id: $ownerID})-[r*1..3]-(n)
			WHERE all(rel IN r WHERE rel.ts >= $since OR rel.ts IS NULL)
			RETURN DISTINCT n, labels(n) AS node_labels
			LIMIT 100
		`
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query subgraph for %s: %w", ownerID, err)
	}

	var nodes []model.Node
	for result.Next(ctx) {
		record := result.Record()
		n := model.Node{Properties: map[string]any{}}
		if v, ok := record.Get("n"); ok {
			if node, ok := v.(neo4j.Node); ok {
				n.Properties = node.Props
			}
		}
		if v, ok := record.Get("node_labels"); ok {
			if labels, ok := v.([]any); ok {
				for _, l := range labels {
					if label, ok := l.(string); ok {
						n.Labels = append(n.Labels, label)
					}
				}
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, result.Err()
}

// DeleteEntity detach-deletes entity nodes matching the target name
// (normalized identity first, raw name as fallback). Returns the
// number of nodes removed.
func (s *Store) DeleteEntity(ctx context.Context, name string) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (e:Entity)
		WHERE e.identity ENDS WITH $suffix OR toLower(e.name) = toLower($name)
		DETACH DELETE e
		RETURN count(e) AS deleted
	`, map[string]any{
		"suffix": ":" + model.NormalizeName(name),
		"name":   name,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete entity %s: %w", name, err)
	}

	if result.Next(ctx) {
		if v, ok := result.Record().Get("deleted"); ok {
			if n, ok := v.(int64); ok {
				return int(n), nil
			}
		}
	}
	return 0, result.Err()
}

// DeletePredicateEdges removes predicate-tagged edges within the
// owner's subgraph. Returns the number of edges removed.
func (s *Store) DeletePredicateEdges(ctx context.Context, ownerID string, predicate model.Predicate) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {owner_id: $ownerID})-[*0..3]-(s:Entity)
		MATCH (s)-[r:RELATES_TO {predicate: $predicate}]->()
		DELETE r
		RETURN count(r) AS deleted
	`, map[string]any{"ownerID": ownerID, "predicate": string(predicate)})
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s edges for %s: %w", predicate, ownerID, err)
	}

	if result.Next(ctx) {
		if v, ok := result.Record().Get("deleted"); ok {
			if n, ok := v.(int64); ok {
				return int(n), nil
			}
		}
	}
	return 0, result.Err()
}

// Close shuts down the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func nodeLabel(node neo4j.Node) string {
	if name, ok := node.Props["name"].(string); ok && name != "" {
		return name
	}
	if owner, ok := node.Props["owner_id"].(string); ok && owner != "" {
		return owner
	}
	if key, ok := node.Props["key"].(string); ok && key != "" {
		return key
	}
	if len(node.Labels) > 0 {
		return node.Labels[0]
	}
	return "node"
}
