package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/model"
	"github.com/harun/engram/pkg/store"
)

// SearchMemory retrieves candidates from all three stores, fuses them
// into one ranked list, and synthesizes a context card. A store read
// that fails contributes an empty result; ranking proceeds with
// whatever succeeded.
func (e *Engine) SearchMemory(ctx context.Context, req SearchRequest) SearchResponse {
	logger := e.opLogger("search")

	if req.OwnerID == "" {
		return SearchResponse{Success: false, Error: "owner_id is required"}
	}
	if req.Query == "" {
		return SearchResponse{Success: false, Error: "query is required"}
	}
	if req.K <= 0 {
		req.K = e.options().DefaultK
	}
	if req.SinceDays <= 0 {
		req.SinceDays = e.options().DefaultSinceDays
	}

	// One embedding serves both the similarity query and the fused
	// score. On failure the similarity leg degrades to zero.
	var queryEmbedding []float32
	if vectors, err := e.gw.Embed(ctx, []string{req.Query}); err != nil {
		logger.Warn().Err(err).Msg("Query embedding failed, similarity signal degraded")
	} else if len(vectors) > 0 {
		queryEmbedding = vectors[0]
	}

	queryTokens := strings.Fields(strings.ToLower(req.Query))

	// Episode and fact reads run in parallel; each failure becomes an
	// empty contribution.
	var (
		wg       sync.WaitGroup
		episodes []model.Episode
		facts    []model.Fact
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		result, err := e.episodes.QuerySimilar(ctx, store.EpisodeQuery{
			OwnerID:   req.OwnerID,
			Embedding: queryEmbedding,
			K:         req.K,
			SinceDays: req.SinceDays,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Episode query failed, contributing empty")
			return
		}
		episodes = result
	}()

	go func() {
		defer wg.Done()
		result, err := e.facts.GetFacts(ctx, req.OwnerID, e.options().ConfidenceThreshold)
		if err != nil {
			logger.Warn().Err(err).Msg("Fact query failed, contributing empty")
			return
		}
		facts = result
	}()

	wg.Wait()

	// Graph proximity depends only on the owner and query tokens, so
	// compute it once and share it across every candidate.
	graphScore := e.maxGraphProximity(ctx, logger, req.OwnerID, queryTokens)

	now := time.Now().UTC()
	for i := range episodes {
		episodes[i].Score = e.fusedScore(episodes[i], queryEmbedding, graphScore, now)
	}
	// Stable sort keeps insertion order on ties.
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Score > episodes[j].Score
	})

	var graphHits []GraphHit
	if req.IncludeGraph {
		graphHits = e.collectGraphHits(ctx, logger, req.OwnerID, req.Query, queryTokens)
		if len(graphHits) == 0 && len(facts) > 0 {
			// Always give the caller explanatory material when facts
			// exist, even without graph edges.
			graphHits = []GraphHit{{
				Path:      "User -> Facts -> " + req.Query,
				Length:    2,
				Reasoning: fmt.Sprintf("Found %d relevant facts about %s", len(facts), req.Query),
			}}
		}
	}

	contextCard := e.synthesizeContext(ctx, logger, req.Query, facts, episodes, graphHits)

	return SearchResponse{
		Success:     true,
		ContextCard: contextCard,
		Facts:       facts,
		Episodes:    episodes,
		GraphHits:   graphHits,
		Rationale:   fmt.Sprintf("Found %d episodes, %d facts, %d graph paths", len(episodes), len(facts), len(graphHits)),
	}
}

// maxGraphProximity takes the best proximity over all query tokens.
// Unreachable or failed lookups score 0.
func (e *Engine) maxGraphProximity(ctx context.Context, logger zerolog.Logger, ownerID string, tokens []string) float64 {
	best := 0.0
	for _, token := range tokens {
		length, err := e.relations.ShortestPathLength(ctx, ownerID, token)
		if err != nil {
			logger.Warn().Err(err).Str("token", token).Msg("Shortest path lookup failed")
			continue
		}
		if score := e.graphProximity(length); score > best {
			best = score
		}
	}
	return best
}

// collectGraphHits asks for up to PathsPerToken shortest paths per
// lower-cased query token plus the full query string, and aggregates
// everything that comes back.
func (e *Engine) collectGraphHits(ctx context.Context, logger zerolog.Logger, ownerID, query string, tokens []string) []GraphHit {
	targets := append(append([]string{}, tokens...), query)

	var hits []GraphHit
	for _, target := range targets {
		paths, err := e.relations.FindPaths(ctx, ownerID, target, e.options().PathsPerToken)
		if err != nil {
			logger.Warn().Err(err).Str("target", target).Msg("Path lookup failed")
			continue
		}
		for _, p := range paths {
			hits = append(hits, GraphHit{
				Path:   strings.Join(p.Nodes, " -> "),
				Length: p.Length,
			})
		}
	}
	return hits
}
