package engine

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/model"
)

const synthesisSystemPrompt = `Create a concise 120-word context card that synthesizes the provided information.
Include relevant dates, sources, and key facts.
Be factual and organized.`

// synthesizeContext issues one reasoning call over the top-ranked
// evidence. On any failure it returns an empty card, never an error.
func (e *Engine) synthesizeContext(ctx context.Context, logger zerolog.Logger, query string, facts []model.Fact, episodes []model.Episode, graphHits []GraphHit) string {
	payload := map[string]any{
		"query":      query,
		"facts":      head(facts, e.options().TopFacts),
		"episodes":   head(episodes, e.options().TopEpisodes),
		"graph_hits": head(graphHits, e.options().TopGraphHits),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logger.Warn().Err(err).Msg("Context payload marshal failed")
		return ""
	}

	card, err := e.gw.Complete(ctx, synthesisSystemPrompt, "Context data: "+string(data), 0)
	if err != nil {
		logger.Warn().Err(err).Msg("Context synthesis failed, returning empty card")
		return ""
	}
	return card
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
