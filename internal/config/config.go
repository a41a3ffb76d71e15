package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the main Engram configuration.
type Config struct {
	// Gateway
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Stores
	Stores StoresConfig `json:"stores" mapstructure:"stores"`

	// Retrieval
	Retrieval RetrievalConfig `json:"retrieval" mapstructure:"retrieval"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// GatewayConfig holds reasoning/embedding gateway configuration.
type GatewayConfig struct {
	AnthropicAPIKey string        `json:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string        `json:"openai_api_key" mapstructure:"openai_api_key"`
	CompletionModel string        `json:"completion_model" mapstructure:"completion_model"`
	EmbeddingModel  string        `json:"embedding_model" mapstructure:"embedding_model"`
	Dimension       int           `json:"dimension" mapstructure:"dimension"`
	MaxTokens       int           `json:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries      int           `json:"max_retries" mapstructure:"max_retries"`
	RetryBaseDelay  time.Duration `json:"retry_base_delay" mapstructure:"retry_base_delay"`
	CallTimeout     time.Duration `json:"call_timeout" mapstructure:"call_timeout"`
	EmbedChunkSize  int           `json:"embed_chunk_size" mapstructure:"embed_chunk_size"`
}

// StoresConfig holds the three persistence backends.
type StoresConfig struct {
	FactDBPath    string      `json:"fact_db_path" mapstructure:"fact_db_path"`
	EpisodeDBPath string      `json:"episode_db_path" mapstructure:"episode_db_path"`
	Neo4j         Neo4jConfig `json:"neo4j" mapstructure:"neo4j"`
}

// Neo4jConfig holds graph store connection settings.
type Neo4jConfig struct {
	URI      string `json:"uri" mapstructure:"uri"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
}

// RetrievalConfig holds ranking and filtering tunables.
type RetrievalConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold" mapstructure:"confidence_threshold"`
	DefaultK            int     `json:"default_k" mapstructure:"default_k"`
	DefaultSinceDays    int     `json:"default_since_days" mapstructure:"default_since_days"`
	SummarySinceDays    int     `json:"summary_since_days" mapstructure:"summary_since_days"`
	RecencyHalfLifeDays float64 `json:"recency_half_life_days" mapstructure:"recency_half_life_days"`
	SimilarityWeight    float64 `json:"similarity_weight" mapstructure:"similarity_weight"`
	RecencyWeight       float64 `json:"recency_weight" mapstructure:"recency_weight"`
	ImportanceWeight    float64 `json:"importance_weight" mapstructure:"importance_weight"`
	GraphWeight         float64 `json:"graph_weight" mapstructure:"graph_weight"`
	UnreachableSentinel int     `json:"unreachable_sentinel" mapstructure:"unreachable_sentinel"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			CompletionModel: "",
			EmbeddingModel:  "",
			Dimension:       1536,
			MaxTokens:       1024,
			MaxRetries:      3,
			RetryBaseDelay:  500 * time.Millisecond,
			CallTimeout:     30 * time.Second,
			EmbedChunkSize:  16,
		},
		Stores: StoresConfig{
			Neo4j: Neo4jConfig{
				URI:  "bolt://localhost:7687",
				User: "neo4j",
			},
		},
		Retrieval: RetrievalConfig{
			ConfidenceThreshold: 0.6,
			DefaultK:            8,
			DefaultSinceDays:    30,
			SummarySinceDays:    7,
			RecencyHalfLifeDays: 7,
			SimilarityWeight:    0.55,
			RecencyWeight:       0.20,
			ImportanceWeight:    0.15,
			GraphWeight:         0.10,
			UnreachableSentinel: 99,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Validate checks invariants that would otherwise surface as silent
// ranking bugs.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %v", r.ConfidenceThreshold)
	}
	for name, w := range map[string]float64{
		"similarity_weight": r.SimilarityWeight,
		"recency_weight":    r.RecencyWeight,
		"importance_weight": r.ImportanceWeight,
		"graph_weight":      r.GraphWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, w)
		}
	}
	if r.UnreachableSentinel <= 0 {
		return errors.New("unreachable_sentinel must be positive")
	}
	if c.Stores.Neo4j.URI == "" {
		return errors.New("neo4j uri is required")
	}
	return nil
}
