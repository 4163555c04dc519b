package repository

import (
	"github.com/google/uuid"

	"policyassist-backend/models"
)

func chunkRow(content, policyName, department, country, visibility, source string) models.PolicyChunk {
	return models.PolicyChunk{
		ID:         uuid.New(),
		Content:    content,
		PolicyName: policyName,
		Department: department,
		Country:    country,
		Visibility: visibility,
		Source:     source,
		ChunkIndex: 3,
		Distance:   0.12,
	}
}
