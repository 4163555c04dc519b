package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"policyassist-backend/models"
)

// PolicyChunkRepository handles database operations for embedded policy chunks
type PolicyChunkRepository struct {
	db *pgxpool.Pool
}

// NewPolicyChunkRepository creates a new policy chunk repository
func NewPolicyChunkRepository(db *pgxpool.Pool) *PolicyChunkRepository {
	return &PolicyChunkRepository{db: db}
}

// Search returns up to limit chunks ordered by cosine distance to embedding.
// No access filtering happens here; an empty table yields an empty slice.
func (r *PolicyChunkRepository) Search(ctx context.Context, embedding []float32, limit int) ([]models.PolicyChunk, error) {
	if err := checkDimensions(embedding); err != nil {
		return nil, err
	}

	query := `
		SELECT
			id,
			chunk_text,
			policy_name,
			department,
			country,
			visibility,
			source_document,
			chunk_index,
			metadata,
			embedding <=> $1::vector AS distance
		FROM policy_chunks
		ORDER BY embedding <=> $1::vector
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, formatVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]models.PolicyChunk, 0, limit)
	for rows.Next() {
		var (
			rec      models.PolicyChunk
			metadata map[string]string
		)
		err := rows.Scan(
			&rec.ID,
			&rec.Content,
			&rec.PolicyName,
			&rec.Department,
			&rec.Country,
			&rec.Visibility,
			&rec.Source,
			&rec.ChunkIndex,
			&metadata,
			&rec.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy chunk: %w", err)
		}
		chunks = append(chunks, hydrateChunk(rec, metadata))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy chunks: %w", err)
	}

	return chunks, nil
}

// hydrateChunk merges typed columns over the free-form metadata and
// normalizes the result the same way ingestion does.
func hydrateChunk(rec models.PolicyChunk, metadata map[string]string) models.PolicyChunk {
	meta := make(map[string]string, len(metadata)+6)
	for k, v := range metadata {
		meta[k] = v
	}
	setIfPresent(meta, "policy_name", rec.PolicyName)
	setIfPresent(meta, "department", rec.Department)
	setIfPresent(meta, "country", rec.Country)
	setIfPresent(meta, "visibility", rec.Visibility)
	setIfPresent(meta, "source", rec.Source)

	chunk := models.NewPolicyChunk(rec.Content, meta)
	chunk.ID = rec.ID
	chunk.ChunkIndex = rec.ChunkIndex
	chunk.Distance = rec.Distance
	return chunk
}

func setIfPresent(meta map[string]string, key, value string) {
	if value != "" {
		meta[key] = value
	}
}

// ChunkRecord is a chunk ready to be written with its embedding
type ChunkRecord struct {
	Chunk     models.PolicyChunk
	Embedding []float32
}

// ReplaceSource atomically swaps all chunks for one source document.
func (r *PolicyChunkRepository) ReplaceSource(ctx context.Context, source string, records []ChunkRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM policy_chunks WHERE source_document = $1`, source); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", source, err)
	}

	query := `
		INSERT INTO policy_chunks (
			id, chunk_text, policy_name, department, country, visibility,
			source_document, chunk_index, metadata, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector)`

	for _, rec := range records {
		if err := checkDimensions(rec.Embedding); err != nil {
			return fmt.Errorf("chunk %d of %s: %w", rec.Chunk.ChunkIndex, source, err)
		}
		metadataJSON, err := json.Marshal(rec.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			rec.Chunk.ID, rec.Chunk.Content, rec.Chunk.PolicyName, rec.Chunk.Department,
			rec.Chunk.Country, rec.Chunk.Visibility, source, rec.Chunk.ChunkIndex,
			string(metadataJSON), formatVector(rec.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", rec.Chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteSource removes every chunk of a source document
func (r *PolicyChunkRepository) DeleteSource(ctx context.Context, source string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM policy_chunks WHERE source_document = $1`, source)
	return err
}

// Count returns the number of stored chunks
func (r *PolicyChunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM policy_chunks`).Scan(&n)
	return n, err
}
