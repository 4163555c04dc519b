package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"policyassist-backend/logger"
	"policyassist-backend/metrics"
	"policyassist-backend/models"
)

var tracer = otel.Tracer("policyassist/service")

// AssistantService is the entry point for answering a policy question
type AssistantService struct {
	retriever *Retriever
	answers   *AnswerService
	topK      int
}

// AssistantServiceOption is a functional option for AssistantService
type AssistantServiceOption func(*AssistantService)

func AssistantWithRetriever(r *Retriever) AssistantServiceOption {
	return func(s *AssistantService) {
		s.retriever = r
	}
}

func AssistantWithAnswerService(a *AnswerService) AssistantServiceOption {
	return func(s *AssistantService) {
		s.answers = a
	}
}

func AssistantWithTopK(k int) AssistantServiceOption {
	return func(s *AssistantService) {
		s.topK = k
	}
}

func NewAssistantService(opts ...AssistantServiceOption) *AssistantService {
	s := &AssistantService{topK: defaultTopK}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryRequest represents a question asked under a resolved identity
type QueryRequest struct {
	Question   string
	Department string
	Role       models.Role
	Username   string // conversation key; empty disables history
	Country    string // resolved policy scope, see models.ResolveCountry
}

// AnswerQuery retrieves, filters and answers a question.
// Errors wrap ErrEmptyQuestion, ErrRetrievalUnavailable, ErrGenerationFailed
// or ErrHistoryUnavailable.
func (s *AssistantService) AnswerQuery(ctx context.Context, req QueryRequest) (result *models.StructuredAnswer, err error) {
	start := time.Now()
	outcome := "answered"
	defer func() {
		metrics.QueriesTotal.WithLabelValues(outcome).Inc()
		metrics.ObserveStage("total", start)
	}()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		outcome = "invalid"
		return nil, ErrEmptyQuestion
	}
	if s.retriever == nil || s.answers == nil {
		outcome = "invalid"
		return nil, ErrNotConfigured
	}

	requester := models.NewRequester(req.Username, req.Department, req.Role, req.Country)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Username:       requester.Username,
		ConversationID: requester.Username,
		Department:     requester.Department,
		Role:           string(requester.Role),
		Component:      "policyassist.service.assistant",
	})

	ctx, span := tracer.Start(ctx, "assistant.answer_query")
	defer span.End()
	span.SetAttributes(
		attribute.String("requester.department", requester.Department),
		attribute.String("requester.role", string(requester.Role)),
		attribute.String("requester.country", requester.Country),
	)

	candidates, err := s.retrieve(ctx, question)
	if err != nil {
		outcome = "retrieval_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		slog.ErrorContext(ctx, "policy retrieval failed", "error", err)
		return nil, err
	}

	filtered := s.filter(ctx, candidates, requester)

	result, err = s.synthesize(ctx, SynthesisRequest{
		Question:  question,
		Chunks:    filtered.Chunks,
		Requester: requester,
		Relaxed:   filtered.Relaxed,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrHistoryUnavailable):
			outcome = "history_error"
		default:
			outcome = "generation_error"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		slog.ErrorContext(ctx, "answer synthesis failed", "error", err)
		return nil, err
	}

	if len(filtered.Chunks) == 0 {
		outcome = "no_documents"
	}
	slog.InfoContext(ctx, "query answered",
		"candidates", len(candidates),
		"visible", len(filtered.Chunks),
		"relaxed", filtered.Relaxed,
		"follow_ups", len(result.SuggestedFollowUps),
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

func (s *AssistantService) retrieve(ctx context.Context, question string) ([]models.PolicyChunk, error) {
	ctx, span := tracer.Start(ctx, "assistant.retrieve")
	defer span.End()
	defer metrics.ObserveStage("retrieve", time.Now())

	chunks, err := s.retriever.Search(ctx, question, s.topK)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("chunks.retrieved", len(chunks)))
	metrics.RetrievedChunks.Observe(float64(len(chunks)))
	return chunks, nil
}

func (s *AssistantService) filter(ctx context.Context, candidates []models.PolicyChunk, requester models.Requester) FilterResult {
	_, span := tracer.Start(ctx, "assistant.filter")
	defer span.End()
	defer metrics.ObserveStage("filter", time.Now())

	res := FilterChunks(candidates, requester)
	span.SetAttributes(
		attribute.Int("chunks.visible", len(res.Chunks)),
		attribute.Bool("filter.relaxed", res.Relaxed),
	)
	if res.Relaxed {
		metrics.RelaxedFiltersTotal.WithLabelValues(string(requester.Role)).Inc()
		slog.DebugContext(ctx, "access filter relaxed", "visible", len(res.Chunks))
	}
	return res
}

func (s *AssistantService) synthesize(ctx context.Context, req SynthesisRequest) (*models.StructuredAnswer, error) {
	ctx, span := tracer.Start(ctx, "assistant.synthesize")
	defer span.End()
	defer metrics.ObserveStage("synthesize", time.Now())

	result, err := s.answers.Synthesize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	span.SetAttributes(attribute.Bool("answer.has_confidence", result.Confidence != nil))
	return result, nil
}
