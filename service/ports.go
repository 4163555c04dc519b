package service

import (
	"context"

	"policyassist-backend/models"
)

// Message roles accepted by Completer
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a completion prompt
type Message struct {
	Role    string
	Content string
}

// Completer produces a deterministic (temperature 0) completion for a message sequence
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Embedder produces a query vector for text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentEmbedder embeds many document texts in one call
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkSearcher ranks stored chunks by similarity to an embedding
type ChunkSearcher interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]models.PolicyChunk, error)
}

// HistoryStore is the append-only conversation log
type HistoryStore interface {
	Append(ctx context.Context, msg *models.ChatMessage) error
	Recent(ctx context.Context, conversationID string, limit int) ([]models.ChatMessage, error)
}
