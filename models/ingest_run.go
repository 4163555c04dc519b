package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IngestRunStatus represents the status of an ingestion run
type IngestRunStatus string

const (
	IngestStatusPending    IngestRunStatus = "pending"
	IngestStatusInProgress IngestRunStatus = "in_progress"
	IngestStatusCompleted  IngestRunStatus = "completed"
	IngestStatusFailed     IngestRunStatus = "failed"
)

// IngestStep is the outcome for one document within a run
type IngestStep struct {
	Document string `json:"document"`
	Status   string `json:"status"` // "ingested", "skipped", "failed"
	Chunks   int    `json:"chunks,omitempty"`
	Error    string `json:"error,omitempty"`
}

type IngestSteps []IngestStep

// Value implements driver.Valuer for JSONB
func (s IngestSteps) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *IngestSteps) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = IngestSteps{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*s = IngestSteps{}
		return nil
	}
	if len(raw) == 0 {
		*s = IngestSteps{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// IngestRun records one pass of the embedding builder over the document store
type IngestRun struct {
	ID           uuid.UUID       `json:"id"`
	Status       IngestRunStatus `json:"status"`
	Trigger      string          `json:"trigger"` // "manual" or "watch"
	Steps        IngestSteps     `json:"steps"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Counts tallies steps by status.
func (r IngestRun) Counts() (ingested, skipped, failed int) {
	for _, s := range r.Steps {
		switch s.Status {
		case "ingested":
			ingested++
		case "skipped":
			skipped++
		case "failed":
			failed++
		}
	}
	return
}
