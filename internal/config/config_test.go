package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1536, cfg.Gateway.Dimension)
	assert.InDelta(t, 0.6, cfg.Retrieval.ConfidenceThreshold, 1e-9)
	assert.InDelta(t, 1.0,
		cfg.Retrieval.SimilarityWeight+cfg.Retrieval.RecencyWeight+
			cfg.Retrieval.ImportanceWeight+cfg.Retrieval.GraphWeight, 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "threshold above one", mutate: func(c *Config) { c.Retrieval.ConfidenceThreshold = 1.5 }},
		{name: "negative threshold", mutate: func(c *Config) { c.Retrieval.ConfidenceThreshold = -0.1 }},
		{name: "weight above one", mutate: func(c *Config) { c.Retrieval.SimilarityWeight = 2 }},
		{name: "zero sentinel", mutate: func(c *Config) { c.Retrieval.UnreachableSentinel = 0 }},
		{name: "missing neo4j uri", mutate: func(c *Config) { c.Stores.Neo4j.URI = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	dir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	loader := NewLoader(filepath.Join(dir, "missing.json"))
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "bolt://localhost:7687", cfg.Stores.Neo4j.URI)
	assert.NotEmpty(t, cfg.Stores.FactDBPath)
	assert.NotEmpty(t, cfg.Stores.EpisodeDBPath)
}

func TestLoader_SaveAndLoadRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engram.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Gateway.AnthropicAPIKey = "test-key"
	cfg.Retrieval.DefaultK = 12
	require.NoError(t, loader.Save(cfg))

	loaded, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", loaded.Gateway.AnthropicAPIKey)
	assert.Equal(t, 12, loaded.Retrieval.DefaultK)
}

func TestLoader_RejectsInvalidFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engram.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"retrieval": {"confidence_threshold": 5}}`), 0600))

	_, err = NewLoader(path).Load()
	assert.Error(t, err)
}

func TestLoader_WatchDeliversReload(t *testing.T) {
	dir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engram.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Retrieval.DefaultK = 8
	require.NoError(t, loader.Save(cfg))

	_, err = loader.Load()
	require.NoError(t, err)

	reloads := make(chan *Config, 1)
	loader.Watch(func(c *Config) {
		select {
		case reloads <- c:
		default:
		}
	})

	cfg.Retrieval.DefaultK = 12
	require.NoError(t, loader.Save(cfg))

	select {
	case reloaded := <-reloads:
		assert.Equal(t, 12, reloaded.Retrieval.DefaultK)
	case <-time.After(5 * time.Second):
		t.Fatal("reload never delivered")
	}
}

func TestLoader_WatchWithoutFileIsNoop(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.json"))
	_, err := loader.Load()
	require.NoError(t, err)

	// Nothing was read from disk, so watching has nothing to track
	// and must not panic.
	loader.Watch(func(*Config) { t.Fatal("unexpected reload") })
}

func TestLoader_FillsDataDirPaths(t *testing.T) {
	dir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engram.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "/var/lib/engram"}`), 0600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/engram", "facts.db"), cfg.Stores.FactDBPath)
	assert.Equal(t, filepath.Join("/var/lib/engram", "episodes.db"), cfg.Stores.EpisodeDBPath)
}
