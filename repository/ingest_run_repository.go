package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"policyassist-backend/models"
)

// IngestRunRepository handles database operations for ingestion runs
type IngestRunRepository struct {
	db *pgxpool.Pool
}

func NewIngestRunRepository(db *pgxpool.Pool) *IngestRunRepository {
	return &IngestRunRepository{db: db}
}

// Create inserts a new run
func (r *IngestRunRepository) Create(ctx context.Context, run *models.IngestRun) error {
	if run.Steps == nil {
		run.Steps = models.IngestSteps{}
	}
	query := `
		INSERT INTO ingest_runs (status, trigger, steps)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query, run.Status, run.Trigger, run.Steps).
		Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

// Latest returns the most recently started run
func (r *IngestRunRepository) Latest(ctx context.Context) (*models.IngestRun, error) {
	run := &models.IngestRun{}
	query := `
		SELECT id, status, trigger, steps, error_message, created_at, updated_at, completed_at
		FROM ingest_runs
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.Status,
		&run.Trigger,
		&run.Steps,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if run.Steps == nil {
		run.Steps = models.IngestSteps{}
	}
	return run, nil
}

// UpdateProgress stores the steps completed so far
func (r *IngestRunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, steps models.IngestSteps) error {
	query := `
		UPDATE ingest_runs SET
			status = $2,
			steps = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.IngestStatusInProgress, steps)
	return err
}

// Complete marks a run as completed
func (r *IngestRunRepository) Complete(ctx context.Context, id uuid.UUID, steps models.IngestSteps) error {
	now := time.Now()
	query := `
		UPDATE ingest_runs SET
			status = $2,
			steps = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.IngestStatusCompleted, steps, now)
	return err
}

// Fail marks a run as failed
func (r *IngestRunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE ingest_runs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.IngestStatusFailed, errorMessage)
	return err
}
