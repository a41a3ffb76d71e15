package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/harun/engram/internal/config"
	"github.com/harun/engram/internal/logger"
	"github.com/harun/engram/pkg/engine"
	"github.com/harun/engram/pkg/extractor"
	"github.com/harun/engram/pkg/gateway"
	"github.com/harun/engram/pkg/store/episodestore"
	"github.com/harun/engram/pkg/store/factstore"
	"github.com/harun/engram/pkg/store/relationstore"
)

// buildEngine wires the full stack from configuration. The returned
// cleanup function closes every opened backend.
func buildEngine(ctx context.Context) (*engine.Engine, func(), error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	lg, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zl := lg.GetZerolog()

	gw := gateway.NewClient(gateway.Config{
		AnthropicAPIKey: cfg.Gateway.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.Gateway.OpenAIAPIKey,
		CompletionModel: cfg.Gateway.CompletionModel,
		EmbeddingModel:  cfg.Gateway.EmbeddingModel,
		Dimension:       cfg.Gateway.Dimension,
		MaxTokens:       cfg.Gateway.MaxTokens,
		MaxRetries:      cfg.Gateway.MaxRetries,
		RetryBaseDelay:  cfg.Gateway.RetryBaseDelay,
		CallTimeout:     cfg.Gateway.CallTimeout,
		EmbedChunkSize:  cfg.Gateway.EmbedChunkSize,
		Logger:          zl,
	})

	facts, err := factstore.New(factstore.Config{
		DBPath: cfg.Stores.FactDBPath,
		Logger: zl,
	})
	if err != nil {
		lg.Close()
		return nil, nil, fmt.Errorf("failed to open fact store: %w", err)
	}

	episodes, err := episodestore.New(episodestore.Config{
		DBPath:    cfg.Stores.EpisodeDBPath,
		Dimension: gw.Dimension(),
		Logger:    zl,
	})
	if err != nil {
		facts.Close()
		lg.Close()
		return nil, nil, fmt.Errorf("failed to open episode store: %w", err)
	}

	relations, err := relationstore.New(ctx, relationstore.Config{
		URI:                 cfg.Stores.Neo4j.URI,
		User:                cfg.Stores.Neo4j.User,
		Password:            cfg.Stores.Neo4j.Password,
		UnreachableSentinel: cfg.Retrieval.UnreachableSentinel,
		Logger:              zl,
	})
	if err != nil {
		episodes.Close()
		facts.Close()
		lg.Close()
		return nil, nil, fmt.Errorf("failed to connect graph store: %w", err)
	}

	ext := extractor.New(extractor.Config{
		Gateway:             gw,
		ConfidenceThreshold: cfg.Retrieval.ConfidenceThreshold,
		Logger:              zl,
	})

	eng, err := engine.New(engine.Config{
		Gateway:   gw,
		Extractor: ext,
		Facts:     facts,
		Episodes:  episodes,
		Relations: relations,
		Options:   engineOptions(cfg),
		Logger:    zl,
	})
	if err != nil {
		relations.Close(ctx)
		episodes.Close()
		facts.Close()
		lg.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	// Retrieval tunables pick up edits to the config file without a
	// restart.
	loader.Watch(func(cfg *config.Config) {
		zl.Info().Msg("Config reloaded, updating retrieval options")
		eng.UpdateOptions(engineOptions(cfg))
	})

	cleanup := func() {
		relations.Close(context.Background())
		episodes.Close()
		facts.Close()
		lg.Close()
	}
	return eng, cleanup, nil
}

func engineOptions(cfg *config.Config) engine.Options {
	opts := engine.DefaultOptions()
	r := cfg.Retrieval
	if r.ConfidenceThreshold > 0 {
		opts.ConfidenceThreshold = r.ConfidenceThreshold
	}
	if r.DefaultK > 0 {
		opts.DefaultK = r.DefaultK
	}
	if r.DefaultSinceDays > 0 {
		opts.DefaultSinceDays = r.DefaultSinceDays
	}
	if r.SummarySinceDays > 0 {
		opts.SummarySinceDays = r.SummarySinceDays
	}
	if r.RecencyHalfLifeDays > 0 {
		opts.RecencyHalfLifeDays = r.RecencyHalfLifeDays
	}
	if r.SimilarityWeight+r.RecencyWeight+r.ImportanceWeight+r.GraphWeight > 0 {
		opts.Weights = engine.ScoreWeights{
			Similarity: r.SimilarityWeight,
			Recency:    r.RecencyWeight,
			Importance: r.ImportanceWeight,
			Graph:      r.GraphWeight,
		}
	}
	if r.UnreachableSentinel > 0 {
		opts.UnreachableSentinel = r.UnreachableSentinel
	}
	return opts
}

// printJSON renders a response envelope to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
