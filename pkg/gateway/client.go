package gateway

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// Config holds gateway client configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	CompletionModel string
	EmbeddingModel  string
	Dimension       int
	MaxTokens       int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	CallTimeout     time.Duration
	EmbedChunkSize  int
	Logger          zerolog.Logger
}

// Client implements Gateway on top of Anthropic completions and OpenAI
// embeddings.
type Client struct {
	completions anthropic.Client
	embeddings  openai.Client
	cfg         Config
	logger      zerolog.Logger

	// embedChunkFn performs one chunk embedding call; tests swap it out.
	embedChunkFn func(ctx context.Context, chunk []string) ([][]float32, error)
}

// NewClient creates a gateway client with sane defaults filled in.
func NewClient(cfg Config) *Client {
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.EmbedChunkSize <= 0 {
		cfg.EmbedChunkSize = 16
	}

	c := &Client{
		completions: anthropic.NewClient(anthropicoption.WithAPIKey(cfg.AnthropicAPIKey)),
		embeddings:  openai.NewClient(openaioption.WithAPIKey(cfg.OpenAIAPIKey)),
		cfg:         cfg,
		logger:      cfg.Logger,
	}
	c.embedChunkFn = c.embedChunk
	return c
}

// Dimension returns the embedding vector width.
func (c *Client) Dimension() int {
	return c.cfg.Dimension
}

// Complete generates text with retry and a per-call timeout.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	var out string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(c.cfg.CompletionModel),
			MaxTokens: int64(c.cfg.MaxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		}
		if systemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
		}
		if temperature > 0 {
			params.Temperature = anthropic.Float(temperature)
		}

		response, err := c.completions.Messages.New(ctx, params)
		if err != nil {
			return err
		}

		content := ""
		for _, block := range response.Content {
			if b, ok := block.AsAny().(anthropic.TextBlock); ok {
				content += b.Text
			}
		}
		out = content
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Embed returns one vector per input. Each chunk is retried
// independently; a chunk that still fails is substituted with zero
// vectors so the result length always matches the input length.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.EmbedChunkSize {
		end := start + c.cfg.EmbedChunkSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]

		vectors, err := c.embedChunkFn(ctx, chunk)
		if err != nil {
			c.logger.Warn().Err(err).Int("chunk_start", start).Msg("Embedding chunk failed, substituting zero vectors")
			for range chunk {
				result = append(result, make([]float32, c.cfg.Dimension))
			}
			continue
		}
		result = append(result, vectors...)
	}

	return result, nil
}

func (c *Client) embedChunk(ctx context.Context, chunk []string) ([][]float32, error) {
	var vectors [][]float32
	err := c.withRetry(ctx, func(ctx context.Context) error {
		response, err := c.embeddings.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunk},
			Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		})
		if err != nil {
			return err
		}

		vectors = make([][]float32, len(response.Data))
		for i, data := range response.Data {
			vec := make([]float32, len(data.Embedding))
			for j, v := range data.Embedding {
				vec[j] = float32(v)
			}
			vectors[i] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// withRetry runs fn with bounded exponential backoff and a per-attempt
// timeout. Non-retryable errors abort immediately.
func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.cfg.MaxRetries {
			break
		}
		delay := time.Duration(float64(c.cfg.RetryBaseDelay) * math.Pow(2, float64(attempt)))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func retryable(err error) bool {
	msg := err.Error()
	// Retry on rate limits, server errors, connection issues
	for _, s := range []string{"429", "500", "502", "503", "529", "overloaded", "connection refused", "timeout", "deadline exceeded", "EOF", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
