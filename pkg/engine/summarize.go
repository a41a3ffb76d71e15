package engine

import (
	"context"
	"strings"

	"github.com/harun/engram/pkg/store"
)

const summarySystemPrompt = `Create a 3-5 bullet point summary of the recent activities.
Be concise and highlight key events, decisions, and important information.`

// summaryProbe is the generic query used to sweep recent episodes.
const summaryProbe = "recent activity"

// SummarizeMemory synthesizes the owner's recent episodes into a short
// bullet summary. Gateway failures degrade to an empty summary.
func (e *Engine) SummarizeMemory(ctx context.Context, req SummarizeRequest) SummarizeResponse {
	logger := e.opLogger("summarize")

	if req.OwnerID == "" {
		return SummarizeResponse{Success: false, Error: "owner_id is required"}
	}
	if req.SinceDays <= 0 {
		req.SinceDays = e.options().SummarySinceDays
	}

	var probeEmbedding []float32
	if vectors, err := e.gw.Embed(ctx, []string{summaryProbe}); err != nil {
		logger.Warn().Err(err).Msg("Probe embedding failed")
	} else if len(vectors) > 0 {
		probeEmbedding = vectors[0]
	}

	episodes, err := e.episodes.QuerySimilar(ctx, store.EpisodeQuery{
		OwnerID:   req.OwnerID,
		Embedding: probeEmbedding,
		K:         20,
		SinceDays: req.SinceDays,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Episode sweep failed, contributing empty")
	}

	if len(episodes) == 0 {
		return SummarizeResponse{Success: true, Summary: "No recent memories found"}
	}

	texts := make([]string, 0, 10)
	for i, ep := range episodes {
		if i >= 10 {
			break
		}
		texts = append(texts, ep.Text)
	}

	summary, err := e.gw.Complete(ctx, summarySystemPrompt, strings.Join(texts, "\n\n"), 0)
	if err != nil {
		logger.Warn().Err(err).Msg("Summary synthesis failed, returning empty summary")
		summary = ""
	}

	return SummarizeResponse{
		Success:          true,
		Summary:          summary,
		EpisodesAnalyzed: len(episodes),
	}
}
