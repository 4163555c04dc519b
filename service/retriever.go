package service

import (
	"context"
	"fmt"
	"time"

	"policyassist-backend/models"
)

const defaultTopK = 10

// Retriever embeds a query and ranks stored chunks against it
type Retriever struct {
	embedder Embedder
	searcher ChunkSearcher
	timeout  time.Duration
}

func NewRetriever(embedder Embedder, searcher ChunkSearcher, timeout time.Duration) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher, timeout: timeout}
}

// Search returns at most k chunks, most relevant first. k <= 0 means 10.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.PolicyChunk, error) {
	if r.embedder == nil || r.searcher == nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, ErrNotConfigured)
	}
	if k <= 0 {
		k = defaultTopK
	}

	chunks, err := callWithTimeout(ctx, r.timeout, func(ctx context.Context) ([]models.PolicyChunk, error) {
		embedding, err := r.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return r.searcher.Search(ctx, embedding, k)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	if len(chunks) > k {
		chunks = chunks[:k]
	}
	if chunks == nil {
		chunks = []models.PolicyChunk{}
	}
	return chunks, nil
}
