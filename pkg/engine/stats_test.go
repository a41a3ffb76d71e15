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

func TestStats_Counts(t *testing.T) {
	f := newTestEngine(t)
	require.NoError(t, f.facts.UpsertFact(context.Background(), model.Fact{
		OwnerID: "u1", Key: "city", Value: "Lisbon", Confidence: 0.9,
	}))
	seedEpisode(f, "e1", []float32{1, 0, 0}, time.Now().UTC())
	seedEpisode(f, "e2", []float32{0, 1, 0}, time.Now().UTC())
	f.relations.subgraph = []model.Node{
		{Labels: []string{"User"}},
		{Labels: []string{"Entity"}},
		{Labels: []string{"Fact"}},
	}

	resp := f.engine.Stats(context.Background(), "u1")
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.FactCount)
	assert.Equal(t, 2, resp.EpisodeCount)
	assert.Equal(t, 3, resp.GraphNodes)
}

func TestStats_ExcludesRedactedEpisodes(t *testing.T) {
	f := newTestEngine(t)
	seedEpisode(f, "e1", []float32{1, 0, 0}, time.Now().UTC())
	seedEpisode(f, "e2", []float32{0, 1, 0}, time.Now().UTC())

	_, err := f.episodes.MarkRedacted(context.Background(), "u1")
	require.NoError(t, err)

	resp := f.engine.Stats(context.Background(), "u1")
	assert.True(t, resp.Success)
	assert.Zero(t, resp.EpisodeCount)
}

func TestStats_StoreFailureContributesZero(t *testing.T) {
	f := newTestEngine(t)
	seedEpisode(f, "e1", []float32{1, 0, 0}, time.Now().UTC())
	f.relations.subgraphErr = errors.New("graph unreachable")

	resp := f.engine.Stats(context.Background(), "u1")
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.EpisodeCount)
	assert.Zero(t, resp.GraphNodes)
}
