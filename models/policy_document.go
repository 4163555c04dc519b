package models

import (
	"time"

	"github.com/google/uuid"
)

// PolicyDocument is a source document held in storage and tracked for ingestion
type PolicyDocument struct {
	ID         uuid.UUID  `json:"id"`
	StorageKey string     `json:"storage_key"`
	Filename   string     `json:"filename"`
	PolicyName string     `json:"policy_name"`
	Department string     `json:"department,omitempty"`
	Country    string     `json:"country,omitempty"`
	Visibility string     `json:"visibility"`
	MimeType   string     `json:"mime_type"`
	Size       int64      `json:"size"`
	Checksum   string     `json:"checksum,omitempty"` // sha256 of the content last ingested
	ChunkCount int        `json:"chunk_count"`
	UploadedBy string     `json:"uploaded_by,omitempty"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
