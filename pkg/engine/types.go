package engine

import (
	"time"

	"github.com/harun/engram/pkg/model"
)

// WriteRequest ingests one piece of raw interaction text.
type WriteRequest struct {
	OwnerID   string    `json:"owner_id"`
	Text      string    `json:"text"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"ts"`
	ThreadID  string    `json:"thread_id,omitempty"`
}

// WriteResponse reports ingestion outcome. A write succeeds as long as
// extraction ran; individual store failures are logged, not surfaced.
type WriteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SearchRequest queries the fused memory.
type SearchRequest struct {
	OwnerID      string `json:"owner_id"`
	Query        string `json:"query"`
	K            int    `json:"k,omitempty"`
	SinceDays    int    `json:"since_days,omitempty"`
	IncludeGraph bool   `json:"include_graph"`
}

// GraphHit is one relationship path surfaced as ranking evidence.
type GraphHit struct {
	Path      string `json:"path"`
	Length    int    `json:"length"`
	Reasoning string `json:"reasoning,omitempty"`
}

// SearchResponse carries the ranked, synthesized context.
type SearchResponse struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	ContextCard string          `json:"context_card,omitempty"`
	Facts       []model.Fact    `json:"facts"`
	Episodes    []model.Episode `json:"episodes"`
	GraphHits   []GraphHit      `json:"graph_hits"`
	Rationale   string          `json:"rationale,omitempty"`
}

// SummarizeRequest asks for a synthesis of recent memory.
type SummarizeRequest struct {
	OwnerID   string `json:"owner_id"`
	SinceDays int    `json:"since_days,omitempty"`
}

// SummarizeResponse carries the summary.
type SummarizeResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
	Summary          string `json:"summary"`
	EpisodesAnalyzed int    `json:"episodes_analyzed"`
}

// ForgetRequest redacts or hard-deletes memory.
type ForgetRequest struct {
	OwnerID    string   `json:"owner_id"`
	Keys       []string `json:"keys,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	Predicates []string `json:"predicates,omitempty"`
	HardDelete bool     `json:"hard_delete"`
}

// ForgetResponse lists what was actually removed.
type ForgetResponse struct {
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
	DeletedItems []string `json:"deleted_items"`
	Confirmation string   `json:"confirmation,omitempty"`
}

// StatsResponse reports per-store counts for one owner. Stores that
// fail to answer contribute zero.
type StatsResponse struct {
	Success      bool `json:"success"`
	FactCount    int  `json:"fact_count"`
	EpisodeCount int  `json:"episode_count"`
	GraphNodes   int  `json:"graph_nodes"`
}
