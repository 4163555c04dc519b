package repository

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EmbeddingDimensions is the width of the policy_chunks.embedding column
const EmbeddingDimensions = 768

// formatVector formats an embedding as a pgvector literal, e.g. "[0.1,0.2]"
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func checkDimensions(embedding []float32) error {
	if len(embedding) != EmbeddingDimensions {
		return fmt.Errorf("embedding must be %d dimensions, got %d", EmbeddingDimensions, len(embedding))
	}
	return nil
}

// NormalizeEmbedding scales the vector to unit length in place.
// Truncated model outputs (below the native width) are not unit length.
func NormalizeEmbedding(embedding []float32) {
	var sumSq float64
	for _, v := range embedding {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
}
