package engine

import (
	"context"
)

// Stats reports per-store counts for one owner. The episode count
// covers retrievable episodes only; redacted rows are excluded. Each
// store that fails to answer contributes zero; the call itself always
// succeeds.
func (e *Engine) Stats(ctx context.Context, ownerID string) StatsResponse {
	logger := e.opLogger("stats")

	resp := StatsResponse{Success: true}
	if ownerID == "" {
		return resp
	}

	if n, err := e.facts.Count(ctx, ownerID); err != nil {
		logger.Warn().Err(err).Msg("Fact count failed")
	} else {
		resp.FactCount = n
	}

	if n, err := e.episodes.Count(ctx, ownerID); err != nil {
		logger.Warn().Err(err).Msg("Episode count failed")
	} else {
		resp.EpisodeCount = n
	}

	if nodes, err := e.relations.GetSubgraph(ctx, ownerID, 0); err != nil {
		logger.Warn().Err(err).Msg("Subgraph fetch failed")
	} else {
		resp.GraphNodes = len(nodes)
	}

	return resp
}
