package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harun/engram/pkg/extractor"
	"github.com/harun/engram/pkg/model"
)

// WriteMemory extracts structured knowledge from the request text and
// fans it out to the three stores. Steps run in order because later
// steps depend on earlier ones (the owner anchor must exist before
// edges referencing it). Each store call is independently
// fault-isolated: failures are logged, the write continues, and the
// overall result is success as long as extraction itself ran. There is
// no cross-store transaction and no rollback.
func (e *Engine) WriteMemory(ctx context.Context, req WriteRequest) WriteResponse {
	logger := e.opLogger("write")

	if req.OwnerID == "" {
		return WriteResponse{Success: false, Error: "owner_id is required"}
	}
	if req.Text == "" {
		return WriteResponse{Success: false, Error: "text is required"}
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	// Step 1: extract. Parse failures degrade to empty inside the
	// extractor, so the fan-out below may legitimately be a no-op.
	extracted := e.ext.Extract(ctx, req.Text, req.Channel, req.Timestamp)
	logger.Debug().
		Int("facts", len(extracted.Facts)).
		Int("episodes", len(extracted.Episodes)).
		Int("entities", len(extracted.Entities)).
		Int("triples", len(extracted.Triples)).
		Msg("Extraction completed")

	// Step 2: persist facts.
	for _, f := range extracted.Facts {
		fact := model.Fact{
			OwnerID:    req.OwnerID,
			Key:        f.Key,
			Value:      f.Value,
			Confidence: f.Confidence,
			Source:     req.Channel,
			Timestamp:  req.Timestamp,
		}
		if err := e.facts.UpsertFact(ctx, fact); err != nil {
			logger.Warn().Err(err).Str("key", f.Key).Msg("Fact upsert failed")
		}
	}

	// Steps 3-5: persist one episode when extraction produced any,
	// falling back to the raw text otherwise.
	e.writeEpisode(ctx, logger, req, extracted.Episodes)

	// Step 6: the owner anchor must exist before fact edges and
	// triples reference it.
	if err := e.relations.UpsertUser(ctx, req.OwnerID); err != nil {
		logger.Warn().Err(err).Msg("Owner anchor upsert failed")
	}

	// Step 7: entities.
	for _, en := range extracted.Entities {
		if err := e.relations.UpsertEntity(ctx, en.Name, en.Type); err != nil {
			logger.Warn().Err(err).Str("entity", en.Name).Msg("Entity upsert failed")
		}
	}

	// Step 8: one fact edge per fact.
	for _, f := range extracted.Facts {
		if err := e.relations.UpsertFactRelationship(ctx, req.OwnerID, f.Key, f.Value, f.Confidence, req.Timestamp, req.Channel); err != nil {
			logger.Warn().Err(err).Str("key", f.Key).Msg("Fact relationship upsert failed")
		}
	}

	// Step 9: triples.
	for _, t := range extracted.Triples {
		triple := model.Triple{
			Subject:   t.Subject,
			Predicate: model.Predicate(t.Predicate),
			Object:    t.Object,
			Props: model.TripleProps{
				Confidence: t.Confidence,
				Time:       t.Time,
				Channel:    req.Channel,
				Timestamp:  req.Timestamp,
				Source:     "extraction",
			},
		}
		if err := e.relations.UpsertTriple(ctx, triple); err != nil {
			logger.Warn().Err(err).Str("subject", t.Subject).Msg("Triple upsert failed")
		}
	}

	return WriteResponse{Success: true}
}

// writeEpisode chooses the episode text (first extracted summary, else
// the raw input), embeds it, and stores it. An embedding failure skips
// the episode write without failing the overall operation.
func (e *Engine) writeEpisode(ctx context.Context, logger zerolog.Logger, req WriteRequest, episodes []extractor.Episode) {
	episodeText := req.Text
	importance := 0.5
	var tags []string
	if len(episodes) > 0 {
		episodeText = episodes[0].Summary
		importance = episodes[0].Importance
		tags = episodes[0].Tags
	}

	vectors, err := e.gw.Embed(ctx, []string{episodeText})
	if err != nil || len(vectors) == 0 {
		logger.Warn().Err(err).Msg("Episode embedding failed, skipping episode write")
		return
	}

	ep := model.Episode{
		ID:        req.OwnerID + "_" + uuid.NewString()[:8],
		OwnerID:   req.OwnerID,
		Text:      episodeText,
		Embedding: vectors[0],
		Metadata: model.EpisodeMetadata{
			Channel:    req.Channel,
			Timestamp:  req.Timestamp,
			ThreadID:   req.ThreadID,
			Importance: importance,
			Tags:       tags,
		},
	}
	if err := e.episodes.UpsertEpisode(ctx, ep); err != nil {
		logger.Warn().Err(err).Str("episode_id", ep.ID).Msg("Episode upsert failed")
	}
}
