package engine

import (
	"math"
	"time"

	"github.com/harun/engram/pkg/model"
)

// fusedScore combines the four retrieval signals:
//
//	0.55*similarity + 0.20*recency + 0.15*importance + 0.10*graph
//
// Any undefined or NaN sub-term contributes 0 rather than poisoning
// the sum.
func (e *Engine) fusedScore(ep model.Episode, queryEmbedding []float32, graphScore float64, now time.Time) float64 {
	w := e.options().Weights

	similarity := ep.Similarity
	if len(ep.Embedding) > 0 && len(queryEmbedding) > 0 {
		similarity = cosineSimilarity(queryEmbedding, ep.Embedding)
	}

	score := w.Similarity*clean(similarity) +
		w.Recency*clean(e.recencyScore(ep.Metadata.Timestamp, now)) +
		w.Importance*clean(importanceScore(ep.Metadata)) +
		w.Graph*clean(graphScore)
	return clean(score)
}

// recencyScore decays exponentially with a configurable half-life
// (default seven days).
func (e *Engine) recencyScore(ts time.Time, now time.Time) float64 {
	if ts.IsZero() {
		return 0
	}
	delta := now.Sub(ts).Seconds()
	if delta < 0 {
		delta = 0
	}
	halfLife := e.options().RecencyHalfLifeDays * 86400
	if halfLife <= 0 {
		return 0
	}
	return math.Exp(-delta / halfLife)
}

// priorityMultipliers scale importance by episode priority.
var priorityMultipliers = map[string]float64{
	"high":   1.0,
	"medium": 0.5,
	"low":    0.2,
}

func importanceScore(md model.EpisodeMetadata) float64 {
	multiplier, ok := priorityMultipliers[md.Priority]
	if !ok {
		multiplier = priorityMultipliers["medium"]
	}
	return md.Importance * multiplier
}

// graphProximity maps a shortest-path length to a score: 1/(1+length),
// with lengths at or beyond the unreachable sentinel scoring 0.
func (e *Engine) graphProximity(pathLength int) float64 {
	if pathLength >= e.options().UnreachableSentinel || pathLength < 0 {
		return 0
	}
	return 1.0 / (1.0 + float64(pathLength))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clean maps NaN and infinities to 0.
func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
