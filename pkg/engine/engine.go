// Package engine is the memory orchestration and retrieval fusion
// core: it fans extraction output across three structurally different
// stores, fuses multi-signal candidates at query time, and enforces
// the forget/redaction contract. The engine holds no mutable
// cross-request state and is safe for concurrent use as long as the
// injected stores tolerate concurrent access.
package engine

import (
	"errors"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/extractor"
	"github.com/harun/engram/pkg/gateway"
	"github.com/harun/engram/pkg/store"
)

// ScoreWeights are the fused-score signal weights.
type ScoreWeights struct {
	Similarity float64
	Recency    float64
	Importance float64
	Graph      float64
}

// Options are the engine's static tunables.
type Options struct {
	ConfidenceThreshold float64
	DefaultK            int
	DefaultSinceDays    int
	SummarySinceDays    int
	RecencyHalfLifeDays float64
	Weights             ScoreWeights
	UnreachableSentinel int
	TopFacts            int
	TopEpisodes         int
	TopGraphHits        int
	PathsPerToken       int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 0.6,
		DefaultK:            8,
		DefaultSinceDays:    30,
		SummarySinceDays:    7,
		RecencyHalfLifeDays: 7,
		Weights: ScoreWeights{
			Similarity: 0.55,
			Recency:    0.20,
			Importance: 0.15,
			Graph:      0.10,
		},
		UnreachableSentinel: 99,
		TopFacts:            5,
		TopEpisodes:         5,
		TopGraphHits:        3,
		PathsPerToken:       3,
	}
}

// Config wires the engine's collaborators. All stores and the gateway
// are injected explicitly; the engine never constructs its own.
type Config struct {
	Gateway   gateway.Gateway
	Extractor *extractor.Extractor
	Facts     store.FactStore
	Episodes  store.EpisodeStore
	Relations store.RelationStore
	Options   Options
	Logger    zerolog.Logger
}

// Engine exposes the four memory operations behind uniform
// success/error envelopes. Options may be swapped at runtime via
// UpdateOptions; each operation reads one consistent snapshot.
type Engine struct {
	gw        gateway.Gateway
	ext       *extractor.Extractor
	facts     store.FactStore
	episodes  store.EpisodeStore
	relations store.RelationStore
	logger    zerolog.Logger

	mu   sync.RWMutex
	opts Options
}

// New creates an engine. Gateway, extractor, and all three stores are
// required.
func New(cfg Config) (*Engine, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if cfg.Facts == nil || cfg.Episodes == nil || cfg.Relations == nil {
		return nil, errors.New("all three stores are required")
	}

	opts := cfg.Options
	if opts.DefaultK <= 0 {
		opts = DefaultOptions()
	}

	return &Engine{
		gw:        cfg.Gateway,
		ext:       cfg.Extractor,
		facts:     cfg.Facts,
		episodes:  cfg.Episodes,
		relations: cfg.Relations,
		opts:      opts,
		logger:    cfg.Logger,
	}, nil
}

// options returns a snapshot of the current tunables.
func (e *Engine) options() Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts
}

// UpdateOptions replaces the tunables for subsequent operations.
// Invalid option sets (non-positive DefaultK) are ignored so a bad
// config reload cannot disable retrieval.
func (e *Engine) UpdateOptions(opts Options) {
	if opts.DefaultK <= 0 {
		return
	}
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
}

// opLogger returns a logger carrying a fresh per-operation id.
func (e *Engine) opLogger(op string) zerolog.Logger {
	opID, err := gonanoid.New(8)
	if err != nil {
		opID = "unknown"
	}
	return e.logger.With().Str("op", op).Str("op_id", opID).Logger()
}
