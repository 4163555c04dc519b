package service

import "errors"

var (
	ErrEmptyQuestion        = errors.New("question is required")
	ErrRetrievalUnavailable = errors.New("policy retrieval unavailable")
	ErrGenerationFailed     = errors.New("failed to generate answer")
	ErrHistoryUnavailable   = errors.New("conversation history unavailable")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotConfigured        = errors.New("dependency not configured")
)
