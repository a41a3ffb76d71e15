package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeMemory_Validation(t *testing.T) {
	f := newTestEngine(t)
	resp := f.engine.SummarizeMemory(context.Background(), SummarizeRequest{})
	assert.False(t, resp.Success)
	assert.Equal(t, "owner_id is required", resp.Error)
}

func TestSummarizeMemory_NoEpisodes(t *testing.T) {
	f := newTestEngine(t)
	resp := f.engine.SummarizeMemory(context.Background(), SummarizeRequest{OwnerID: "u1"})
	require.True(t, resp.Success)
	assert.Equal(t, "No recent memories found", resp.Summary)
	assert.Zero(t, resp.EpisodesAnalyzed)
}

func TestSummarizeMemory_SynthesizesRecentEpisodes(t *testing.T) {
	f := newTestEngine(t)
	seedEpisode(f, "e1", []float32{1, 0, 0}, time.Now().UTC())
	seedEpisode(f, "e2", []float32{0, 1, 0}, time.Now().UTC())

	var prompt string
	f.gateway.completeFn = func(_, userPrompt string) (string, error) {
		prompt = userPrompt
		return "- planned an offsite\n- booked flights", nil
	}

	resp := f.engine.SummarizeMemory(context.Background(), SummarizeRequest{OwnerID: "u1"})
	require.True(t, resp.Success)
	assert.Equal(t, "- planned an offsite\n- booked flights", resp.Summary)
	assert.Equal(t, 2, resp.EpisodesAnalyzed)
	assert.True(t, strings.Contains(prompt, "episode e1"))
	assert.True(t, strings.Contains(prompt, "episode e2"))
}

func TestSummarizeMemory_SynthesisFailureDegrades(t *testing.T) {
	f := newTestEngine(t)
	seedEpisode(f, "e1", []float32{1, 0, 0}, time.Now().UTC())
	f.gateway.completeFn = func(_, _ string) (string, error) {
		return "", errors.New("model overloaded")
	}

	resp := f.engine.SummarizeMemory(context.Background(), SummarizeRequest{OwnerID: "u1"})
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Summary)
	assert.Equal(t, 1, resp.EpisodesAnalyzed)
}
