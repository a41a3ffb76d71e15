// Package extractor turns raw interaction text into typed facts,
// episodic summaries, entities, and relational triples using the
// reasoning gateway. Malformed reasoning output degrades to an empty
// result; extraction never propagates parse failures to callers.
package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/gateway"
	"github.com/harun/engram/pkg/model"
)

const structuredSystemPrompt = `Extract structured information from the text and return JSON with:
- facts: array of {key, value, confidence, reason}
- episodes: array of {summary, importance, tags}

Only include items with confidence >= 0.6.
Be precise and factual. Return only JSON.`

const relationalSystemPrompt = `Extract entities and relationships from the text and return JSON with:
- entities: array of {name, type, confidence, aliases?} where type is one of: Person, Place, DateRange, Preference, Task, Product, Org, Event
- triples: array of {subject, predicate, object, confidence, time?} where predicate is one of: PREFERS, PLANS, OCCURS_ON, HAS_SIZE, HAS_ROLE, MENTIONS, RELATED_TO

Only include items with confidence >= 0.6.
Be precise about entity types and predicates. Return only JSON.`

// Fact is one extracted key-value statement.
type Fact struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Episode is one extracted episodic summary.
type Episode struct {
	Summary    string   `json:"summary"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags,omitempty"`
}

// Entity is one extracted named entity.
type Entity struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Aliases    []string `json:"aliases,omitempty"`
}

// Triple is one extracted subject-predicate-object relationship.
type Triple struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
	Time       string  `json:"time,omitempty"`
}

// Extraction is the merged output of both reasoning calls.
type Extraction struct {
	Facts    []Fact
	Episodes []Episode
	Entities []Entity
	Triples  []Triple
}

// Config holds extractor configuration.
type Config struct {
	Gateway             gateway.Gateway
	ConfidenceThreshold float64
	Temperature         float64
	Logger              zerolog.Logger
}

// Extractor runs the two specialized extraction prompts and filters the
// results by confidence, entity type, and predicate vocabulary.
type Extractor struct {
	gw        gateway.Gateway
	threshold float64
	temp      float64
	logger    zerolog.Logger
}

// New creates an extractor.
func New(cfg Config) *Extractor {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.6
	}
	return &Extractor{
		gw:        cfg.Gateway,
		threshold: cfg.ConfidenceThreshold,
		temp:      cfg.Temperature,
		logger:    cfg.Logger,
	}
}

// Extract runs both reasoning calls in sequence and merges the outputs.
// Each call independently degrades to an empty contribution on failure.
func (e *Extractor) Extract(ctx context.Context, text, channel string, ts time.Time) Extraction {
	userPrompt := "Text: " + text + "\nChannel: " + channel + "\nTimestamp: " + ts.UTC().Format(time.RFC3339)

	var out Extraction
	out.Facts, out.Episodes = e.extractStructured(ctx, userPrompt)
	out.Entities, out.Triples = e.extractRelational(ctx, userPrompt)
	return out
}

func (e *Extractor) extractStructured(ctx context.Context, userPrompt string) ([]Fact, []Episode) {
	response, err := e.gw.Complete(ctx, structuredSystemPrompt, userPrompt, e.temp)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Structured extraction call failed")
		return nil, nil
	}

	var payload struct {
		Facts    []json.RawMessage `json:"facts"`
		Episodes []json.RawMessage `json:"episodes"`
	}
	if err := json.Unmarshal(extractJSON(response), &payload); err != nil {
		e.logger.Warn().Err(err).Msg("Structured extraction output unparseable, degrading to empty")
		return nil, nil
	}

	var facts []Fact
	for _, raw := range payload.Facts {
		var f Fact
		if err := validateItem(factSchema, raw, &f); err != nil {
			e.logger.Debug().Err(err).Msg("Dropping non-conforming fact")
			continue
		}
		if f.Confidence < e.threshold {
			continue
		}
		facts = append(facts, f)
	}

	var episodes []Episode
	for _, raw := range payload.Episodes {
		var ep Episode
		if err := validateItem(episodeSchema, raw, &ep); err != nil {
			e.logger.Debug().Err(err).Msg("Dropping non-conforming episode")
			continue
		}
		if ep.Importance < e.threshold {
			continue
		}
		episodes = append(episodes, ep)
	}

	return facts, episodes
}

func (e *Extractor) extractRelational(ctx context.Context, userPrompt string) ([]Entity, []Triple) {
	response, err := e.gw.Complete(ctx, relationalSystemPrompt, userPrompt, e.temp)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Relational extraction call failed")
		return nil, nil
	}

	var payload struct {
		Entities []json.RawMessage `json:"entities"`
		Triples  []json.RawMessage `json:"triples"`
	}
	if err := json.Unmarshal(extractJSON(response), &payload); err != nil {
		e.logger.Warn().Err(err).Msg("Relational extraction output unparseable, degrading to empty")
		return nil, nil
	}

	var entities []Entity
	for _, raw := range payload.Entities {
		var en Entity
		if err := validateItem(entitySchema, raw, &en); err != nil {
			e.logger.Debug().Err(err).Msg("Dropping non-conforming entity")
			continue
		}
		if !model.ValidEntityType(en.Type) || en.Confidence < e.threshold {
			continue
		}
		entities = append(entities, en)
	}

	var triples []Triple
	for _, raw := range payload.Triples {
		var t Triple
		if err := validateItem(tripleSchema, raw, &t); err != nil {
			e.logger.Debug().Err(err).Msg("Dropping non-conforming triple")
			continue
		}
		if !model.ValidPredicate(model.Predicate(t.Predicate)) || t.Confidence < e.threshold {
			continue
		}
		triples = append(triples, t)
	}

	return entities, triples
}

// extractJSON trims code fences and surrounding prose so a response
// that wraps its JSON still parses.
func extractJSON(response string) []byte {
	s := strings.TrimSpace(response)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}
	return []byte(s)
}
