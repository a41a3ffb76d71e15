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

func TestForgetMemory_Validation(t *testing.T) {
	f := newTestEngine(t)
	resp := f.engine.ForgetMemory(context.Background(), ForgetRequest{})
	assert.False(t, resp.Success)
	assert.Equal(t, "owner_id is required", resp.Error)
}

func TestForgetMemory_SoftRedaction(t *testing.T) {
	f := newTestEngine(t)
	seedEpisode(f, "e1", []float32{1, 0, 0}, time.Now().UTC())
	seedEpisode(f, "e2", []float32{0, 1, 0}, time.Now().UTC())

	resp := f.engine.ForgetMemory(context.Background(), ForgetRequest{OwnerID: "u1"})
	require.True(t, resp.Success)
	assert.Contains(t, resp.DeletedItems, "episodes:redacted:2")

	// Redacted episodes disappear from retrieval but their rows remain.
	search := f.engine.SearchMemory(context.Background(), SearchRequest{OwnerID: "u1", Query: "anything"})
	assert.Empty(t, search.Episodes)
	assert.Len(t, f.episodes.episodes, 2)
}

func TestForgetMemory_HardDelete(t *testing.T) {
	f := newTestEngine(t)
	seedEpisode(f, "e1", []float32{1, 0, 0}, time.Now().UTC())
	seedEpisode(f, "e2", []float32{0, 1, 0}, time.Now().UTC())

	resp := f.engine.ForgetMemory(context.Background(), ForgetRequest{OwnerID: "u1", HardDelete: true})
	require.True(t, resp.Success)
	assert.Contains(t, resp.DeletedItems, "episodes:2")
	assert.Empty(t, f.episodes.episodes)
}

func TestForgetMemory_FactKeys(t *testing.T) {
	f := newTestEngine(t)
	require.NoError(t, f.facts.UpsertFact(context.Background(), model.Fact{
		OwnerID: "u1", Key: "city", Value: "Lisbon", Confidence: 0.9,
	}))

	resp := f.engine.ForgetMemory(context.Background(), ForgetRequest{
		OwnerID: "u1",
		Keys:    []string{"city", "never_existed"},
	})
	require.True(t, resp.Success)

	// Only the key that actually removed a row is recorded.
	assert.Contains(t, resp.DeletedItems, "fact:city")
	assert.NotContains(t, resp.DeletedItems, "fact:never_existed")
}

func TestForgetMemory_EntitiesAndPredicates(t *testing.T) {
	f := newTestEngine(t)
	f.relations.entityDeletes["Lisbon"] = 1
	f.relations.edgeDeletes[model.PredicatePrefers] = 3

	resp := f.engine.ForgetMemory(context.Background(), ForgetRequest{
		OwnerID:    "u1",
		Entities:   []string{"Lisbon", "Atlantis"},
		Predicates: []string{"prefers", "TELEPORTS"},
	})
	require.True(t, resp.Success)

	assert.Contains(t, resp.DeletedItems, "entity:Lisbon")
	assert.NotContains(t, resp.DeletedItems, "entity:Atlantis")
	// Lower-cased predicate is normalized; unknown one is skipped.
	assert.Contains(t, resp.DeletedItems, "predicate:PREFERS:3")
	for _, item := range resp.DeletedItems {
		assert.NotContains(t, item, "TELEPORTS")
	}
}

func TestForgetMemory_ConfirmationDegrades(t *testing.T) {
	f := newTestEngine(t)
	f.gateway.completeFn = func(_, _ string) (string, error) {
		return "", errors.New("model overloaded")
	}

	resp := f.engine.ForgetMemory(context.Background(), ForgetRequest{OwnerID: "u1"})
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Confirmation)
}

func TestForgetMemory_Confirmation(t *testing.T) {
	f := newTestEngine(t)
	f.gateway.completeFn = func(_, userPrompt string) (string, error) {
		return "Your memories were removed: " + userPrompt, nil
	}
	require.NoError(t, f.facts.UpsertFact(context.Background(), model.Fact{
		OwnerID: "u1", Key: "city", Value: "Lisbon", Confidence: 0.9,
	}))

	resp := f.engine.ForgetMemory(context.Background(), ForgetRequest{OwnerID: "u1", Keys: []string{"city"}})
	require.True(t, resp.Success)
	assert.Contains(t, resp.Confirmation, "fact:city")
}
