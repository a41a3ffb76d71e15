// Package gateway wraps the external reasoning and embedding services
// behind one narrow contract. It is the only component that retries
// automatically; store adapters never do.
package gateway

import (
	"context"
)

// Gateway is the reasoning/embedding capability the engine consumes.
type Gateway interface {
	// Complete generates text for a system+user prompt pair.
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)

	// Embed returns one vector per input text. The result length always
	// equals len(texts): chunks that fail after retries are filled with
	// zero vectors rather than dropped.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
