package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/engram/pkg/model"
)

func seedEpisode(f *testFixture, id string, embedding []float32, ts time.Time) {
	f.episodes.episodes = append(f.episodes.episodes, model.Episode{
		ID:        id,
		OwnerID:   "u1",
		Text:      "episode " + id,
		Embedding: embedding,
		Metadata: model.EpisodeMetadata{
			Timestamp:  ts,
			Importance: 0.5,
		},
	})
}

func TestSearchMemory_Validation(t *testing.T) {
	f := newTestEngine(t)

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{Query: "q"})
	assert.False(t, resp.Success)
	assert.Equal(t, "owner_id is required", resp.Error)

	resp = f.engine.SearchMemory(context.Background(), SearchRequest{OwnerID: "u1"})
	assert.False(t, resp.Success)
	assert.Equal(t, "query is required", resp.Error)
}

func TestSearchMemory_RanksBySimilarity(t *testing.T) {
	f := newTestEngine(t)
	now := time.Now().UTC()

	// Query embeds to [1,0,0]; "far" is orthogonal, "near" is parallel.
	seedEpisode(f, "far", []float32{0, 1, 0}, now)
	seedEpisode(f, "near", []float32{1, 0, 0}, now)

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID: "u1",
		Query:   "lisbon offsite",
	})
	require.True(t, resp.Success)
	require.Len(t, resp.Episodes, 2)
	assert.Equal(t, "near", resp.Episodes[0].ID)
	assert.Equal(t, "far", resp.Episodes[1].ID)
	assert.Greater(t, resp.Episodes[0].Score, resp.Episodes[1].Score)
}

func TestSearchMemory_StableOrderOnTies(t *testing.T) {
	f := newTestEngine(t)
	now := time.Now().UTC()
	seedEpisode(f, "first", []float32{1, 0, 0}, now)
	seedEpisode(f, "second", []float32{1, 0, 0}, now)

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID: "u1",
		Query:   "anything",
	})
	require.Len(t, resp.Episodes, 2)
	assert.Equal(t, "first", resp.Episodes[0].ID)
	assert.Equal(t, "second", resp.Episodes[1].ID)
}

func TestSearchMemory_GraphSignalBoostsScore(t *testing.T) {
	f := newTestEngine(t)
	now := time.Now().UTC()
	seedEpisode(f, "ep", []float32{1, 0, 0}, now)

	base := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID: "u1",
		Query:   "lisbon",
	})
	require.Len(t, base.Episodes, 1)

	// A one-hop connection to a query token adds 0.10 * 1/(1+1).
	f.relations.pathLengths["lisbon"] = 1
	boosted := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID: "u1",
		Query:   "lisbon",
	})
	require.Len(t, boosted.Episodes, 1)
	assert.InDelta(t, 0.05, boosted.Episodes[0].Score-base.Episodes[0].Score, 1e-6)
}

func TestSearchMemory_GraphHitsFromPaths(t *testing.T) {
	f := newTestEngine(t)
	f.relations.paths["lisbon"] = []model.Path{{
		Length:        2,
		Nodes:         []string{"User:u1", "Fact:city", "Entity:lisbon"},
		Relationships: []string{"HAS_FACT", "MENTIONS"},
	}}

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID:      "u1",
		Query:        "lisbon",
		IncludeGraph: true,
	})
	require.True(t, resp.Success)
	require.Len(t, resp.GraphHits, 1)
	assert.Equal(t, "User:u1 -> Fact:city -> Entity:lisbon", resp.GraphHits[0].Path)
	assert.Equal(t, 2, resp.GraphHits[0].Length)
}

func TestSearchMemory_FallbackGraphHit(t *testing.T) {
	f := newTestEngine(t)
	require.NoError(t, f.facts.UpsertFact(context.Background(), model.Fact{
		OwnerID: "u1", Key: "city", Value: "Lisbon", Confidence: 0.9,
	}))

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID:      "u1",
		Query:        "lisbon",
		IncludeGraph: true,
	})
	require.True(t, resp.Success)
	require.Len(t, resp.GraphHits, 1)
	assert.Equal(t, "User -> Facts -> lisbon", resp.GraphHits[0].Path)
	assert.Equal(t, 2, resp.GraphHits[0].Length)
	assert.Equal(t, "Found 1 relevant facts about lisbon", resp.GraphHits[0].Reasoning)
}

func TestSearchMemory_NoFallbackWithoutFacts(t *testing.T) {
	f := newTestEngine(t)

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID:      "u1",
		Query:        "lisbon",
		IncludeGraph: true,
	})
	require.True(t, resp.Success)
	assert.Empty(t, resp.GraphHits)
}

func TestSearchMemory_StoreFailuresDegrade(t *testing.T) {
	f := newTestEngine(t)
	f.episodes.queryErr = errors.New("vector table corrupt")
	require.NoError(t, f.facts.UpsertFact(context.Background(), model.Fact{
		OwnerID: "u1", Key: "city", Value: "Lisbon", Confidence: 0.9,
	}))

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID: "u1",
		Query:   "lisbon",
	})
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Episodes)
	assert.Len(t, resp.Facts, 1)
	assert.Equal(t, "Found 0 episodes, 1 facts, 0 graph paths", resp.Rationale)
}

func TestSearchMemory_ContextCard(t *testing.T) {
	f := newTestEngine(t)
	f.gateway.completeFn = func(_, _ string) (string, error) {
		return "User is planning an offsite in Lisbon.", nil
	}
	seedEpisode(f, "ep", []float32{1, 0, 0}, time.Now().UTC())

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID: "u1",
		Query:   "offsite",
	})
	assert.Equal(t, "User is planning an offsite in Lisbon.", resp.ContextCard)
}

func TestSearchMemory_ContextCardFailureDegrades(t *testing.T) {
	f := newTestEngine(t)
	f.gateway.completeFn = func(_, _ string) (string, error) {
		return "", errors.New("model overloaded")
	}
	seedEpisode(f, "ep", []float32{1, 0, 0}, time.Now().UTC())

	resp := f.engine.SearchMemory(context.Background(), SearchRequest{
		OwnerID: "u1",
		Query:   "offsite",
	})
	assert.True(t, resp.Success)
	assert.Empty(t, resp.ContextCard)
	assert.Len(t, resp.Episodes, 1)
}
