// Package model defines the durable knowledge types shared by the
// extraction pipeline, the store adapters, and the retrieval engine.
package model

import (
	"strings"
	"time"
)

// Fact is a structured key-value statement scoped to one owner.
// Facts are unique per (OwnerID, Key); upserting overwrites.
type Fact struct {
	OwnerID    string    `json:"owner_id"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"ts"`
}

// EpisodeMetadata carries the mutable attributes of an episode.
type EpisodeMetadata struct {
	Channel    string    `json:"channel"`
	Timestamp  time.Time `json:"ts"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Importance float64   `json:"importance"`
	Priority   string    `json:"priority,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Redacted   bool      `json:"redacted,omitempty"`
}

// Episode is a semantically embedded text snippet. Text is immutable
// after creation; only metadata (redaction) may change.
type Episode struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"owner_id"`
	Text       string          `json:"text"`
	Embedding  []float32       `json:"-"`
	Metadata   EpisodeMetadata `json:"metadata"`
	Similarity float64         `json:"similarity,omitempty"`
	Score      float64         `json:"score,omitempty"`
}

// Entity is a named, typed node in the knowledge graph.
type Entity struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Aliases []string `json:"aliases,omitempty"`
}

// Predicate is the fixed relationship vocabulary for triples.
type Predicate string

const (
	PredicatePrefers   Predicate = "PREFERS"
	PredicatePlans     Predicate = "PLANS"
	PredicateOccursOn  Predicate = "OCCURS_ON"
	PredicateHasSize   Predicate = "HAS_SIZE"
	PredicateHasRole   Predicate = "HAS_ROLE"
	PredicateMentions  Predicate = "MENTIONS"
	PredicateRelatedTo Predicate = "RELATED_TO"
)

// ValidPredicate reports whether p is in the fixed 7-value vocabulary.
func ValidPredicate(p Predicate) bool {
	switch p {
	case PredicatePrefers, PredicatePlans, PredicateOccursOn,
		PredicateHasSize, PredicateHasRole, PredicateMentions, PredicateRelatedTo:
		return true
	}
	return false
}

// entityTypes is the fixed 8-value entity vocabulary.
var entityTypes = map[string]struct{}{
	"Person":     {},
	"Place":      {},
	"DateRange":  {},
	"Preference": {},
	"Task":       {},
	"Product":    {},
	"Org":        {},
	"Event":      {},
}

// ValidEntityType reports whether t is in the fixed 8-value vocabulary.
func ValidEntityType(t string) bool {
	_, ok := entityTypes[t]
	return ok
}

// TripleProps carries provenance for a triple edge.
type TripleProps struct {
	Confidence float64   `json:"confidence"`
	Time       string    `json:"time,omitempty"`
	Channel    string    `json:"channel"`
	Timestamp  time.Time `json:"ts"`
	Source     string    `json:"source"`
}

// Triple is a subject-predicate-object relationship between entities.
type Triple struct {
	Subject   string      `json:"subject"`
	Predicate Predicate   `json:"predicate"`
	Object    string      `json:"object"`
	Props     TripleProps `json:"props"`
}

// Path is a relationship path returned by the graph store.
type Path struct {
	Length        int      `json:"length"`
	Nodes         []string `json:"nodes"`
	Relationships []string `json:"relationships"`
	Reasoning     string   `json:"reasoning,omitempty"`
}

// Node is one graph node projected out of an owner subgraph.
type Node struct {
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// IdentityKey returns the bit-exact graph identity for an entity:
// lowercase(type) + ":" + lowercase(name) with spaces replaced by
// underscores. Every RelationStore adapter must key entities this way.
func IdentityKey(name, entityType string) string {
	return strings.ToLower(entityType) + ":" + NormalizeName(name)
}

// NormalizeName lowercases a name and replaces spaces with underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
