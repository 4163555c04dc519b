package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"policyassist-backend/models"
)

// PolicyDocumentRepository tracks source documents and their ingestion state
type PolicyDocumentRepository struct {
	db *pgxpool.Pool
}

func NewPolicyDocumentRepository(db *pgxpool.Pool) *PolicyDocumentRepository {
	return &PolicyDocumentRepository{db: db}
}

const documentColumns = `id, storage_key, filename, policy_name, department, country, visibility,
	mime_type, size, checksum, chunk_count, uploaded_by, ingested_at, created_at`

// Upsert records a document by storage key, keeping its ingestion state
func (r *PolicyDocumentRepository) Upsert(ctx context.Context, doc *models.PolicyDocument) error {
	query := `
		INSERT INTO policy_documents (
			storage_key, filename, policy_name, department, country, visibility,
			mime_type, size, uploaded_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (storage_key) DO UPDATE SET
			filename = EXCLUDED.filename,
			policy_name = EXCLUDED.policy_name,
			department = EXCLUDED.department,
			country = EXCLUDED.country,
			visibility = EXCLUDED.visibility,
			mime_type = EXCLUDED.mime_type,
			size = EXCLUDED.size,
			uploaded_by = COALESCE(NULLIF(EXCLUDED.uploaded_by, ''), policy_documents.uploaded_by)
		RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		doc.StorageKey,
		doc.Filename,
		doc.PolicyName,
		doc.Department,
		doc.Country,
		doc.Visibility,
		doc.MimeType,
		doc.Size,
		doc.UploadedBy,
	).Scan(&doc.ID, &doc.CreatedAt)
}

// MarkIngested stores the checksum and chunk count of a finished ingestion
func (r *PolicyDocumentRepository) MarkIngested(ctx context.Context, storageKey, checksum string, chunks int) error {
	query := `
		UPDATE policy_documents SET
			checksum = $2,
			chunk_count = $3,
			ingested_at = $4
		WHERE storage_key = $1`

	tag, err := r.db.Exec(ctx, query, storageKey, checksum, chunks, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *PolicyDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PolicyDocument, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM policy_documents WHERE id = $1`, id)
}

// GetByStorageKey retrieves a document by its storage key
func (r *PolicyDocumentRepository) GetByStorageKey(ctx context.Context, key string) (*models.PolicyDocument, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM policy_documents WHERE storage_key = $1`, key)
}

func (r *PolicyDocumentRepository) getOne(ctx context.Context, query string, arg any) (*models.PolicyDocument, error) {
	doc := &models.PolicyDocument{}
	err := scanDocument(r.db.QueryRow(ctx, query, arg), doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy document: %w", err)
	}
	return doc, nil
}

// List returns all tracked documents, newest first
func (r *PolicyDocumentRepository) List(ctx context.Context) ([]*models.PolicyDocument, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM policy_documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*models.PolicyDocument{}
	for rows.Next() {
		doc := &models.PolicyDocument{}
		if err := scanDocument(rows, doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes the document record
func (r *PolicyDocumentRepository) Delete(ctx context.Context, storageKey string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM policy_documents WHERE storage_key = $1`, storageKey)
	return err
}

func scanDocument(row pgx.Row, doc *models.PolicyDocument) error {
	return row.Scan(
		&doc.ID,
		&doc.StorageKey,
		&doc.Filename,
		&doc.PolicyName,
		&doc.Department,
		&doc.Country,
		&doc.Visibility,
		&doc.MimeType,
		&doc.Size,
		&doc.Checksum,
		&doc.ChunkCount,
		&doc.UploadedBy,
		&doc.IngestedAt,
		&doc.CreatedAt,
	)
}
