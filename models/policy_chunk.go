package models

import (
	"strings"

	"github.com/google/uuid"
)

// Visibility values stored on policy chunks
const (
	VisibilityAll    = "all"
	VisibilityHROnly = "hr_only"
)

// PolicyChunk is a normalized chunk of policy text returned by vector search.
// Department, Country, Visibility and Source are lower-cased on construction.
type PolicyChunk struct {
	ID         uuid.UUID         `json:"id"`
	Content    string            `json:"content"`
	PolicyName string            `json:"policy_name,omitempty"`
	Department string            `json:"department,omitempty"`
	Country    string            `json:"country,omitempty"`
	Visibility string            `json:"visibility"`
	Source     string            `json:"source,omitempty"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Distance   float64           `json:"distance,omitempty"` // cosine distance, lower is closer
}

// NewPolicyChunk builds a chunk from raw content and loosely-typed metadata.
// Metadata keys are lower-cased; "source_file" is accepted as an alias of
// "source" and an empty visibility means VisibilityAll.
func NewPolicyChunk(content string, metadata map[string]string) PolicyChunk {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	source := meta["source"]
	if source == "" {
		source = meta["source_file"]
	}

	visibility := strings.ToLower(meta["visibility"])
	if visibility == "" {
		visibility = VisibilityAll
	}

	return PolicyChunk{
		ID:         uuid.New(),
		Content:    content,
		PolicyName: meta["policy_name"],
		Department: strings.ToLower(meta["department"]),
		Country:    strings.ToLower(meta["country"]),
		Visibility: visibility,
		Source:     strings.ToLower(source),
		Metadata:   meta,
	}
}

// IsHROnly reports whether the chunk is restricted to the HR role.
func (c PolicyChunk) IsHROnly() bool {
	return HROnly(c.Visibility)
}

// HROnly reports whether a visibility value restricts content to HR
func HROnly(visibility string) bool {
	switch strings.ToLower(visibility) {
	case "hr_only", "hr-only", "hr":
		return true
	}
	return false
}

// Label is the heading used for the chunk in prompt context.
func (c PolicyChunk) Label() string {
	if c.PolicyName == "" {
		return "Policy"
	}
	return c.PolicyName
}

// MentionsCommon reports whether the chunk text or any metadata key or value
// contains the token "common".
func (c PolicyChunk) MentionsCommon() bool {
	if strings.Contains(strings.ToLower(c.Content), "common") {
		return true
	}
	for k, v := range c.Metadata {
		if strings.Contains(k, "common") || strings.Contains(strings.ToLower(v), "common") {
			return true
		}
	}
	return strings.Contains(c.Department, "common") || strings.Contains(c.Source, "common")
}
