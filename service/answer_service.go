package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"policyassist-backend/logger"
	"policyassist-backend/metrics"
	"policyassist-backend/models"
)

const (
	defaultHistoryLimit = 6
	enrichmentAttempts  = 2
)

// AnswerService turns filtered policy chunks into a structured answer
type AnswerService struct {
	completer         Completer
	history           HistoryStore
	historyLimit      int
	completionTimeout time.Duration
	historyTimeout    time.Duration
	retryBackoff      time.Duration
}

// AnswerServiceOption is a functional option for AnswerService
type AnswerServiceOption func(*AnswerService)

func AnswerWithCompleter(c Completer) AnswerServiceOption {
	return func(s *AnswerService) {
		s.completer = c
	}
}

func AnswerWithHistoryStore(h HistoryStore) AnswerServiceOption {
	return func(s *AnswerService) {
		s.history = h
	}
}

// AnswerWithHistoryLimit sets how many prior turns are replayed to the model
func AnswerWithHistoryLimit(n int) AnswerServiceOption {
	return func(s *AnswerService) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

func AnswerWithTimeouts(completion, history time.Duration) AnswerServiceOption {
	return func(s *AnswerService) {
		s.completionTimeout = completion
		s.historyTimeout = history
	}
}

// AnswerWithRetryBackoff sets the wait before retrying confidence and structuring calls
func AnswerWithRetryBackoff(d time.Duration) AnswerServiceOption {
	return func(s *AnswerService) {
		s.retryBackoff = d
	}
}

func NewAnswerService(opts ...AnswerServiceOption) *AnswerService {
	s := &AnswerService{
		historyLimit:      defaultHistoryLimit,
		completionTimeout: 60 * time.Second,
		historyTimeout:    5 * time.Second,
		retryBackoff:      initialBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SynthesisRequest carries the filtered chunks for one question
type SynthesisRequest struct {
	Question  string
	Chunks    []models.PolicyChunk
	Requester models.Requester
	Relaxed   bool
}

// Synthesize answers the question from the given chunks.
//
// When the requester has a username the user turn is persisted before the
// model is called and the raw assistant reply right after, so the history
// holds exactly what the model said regardless of later structuring. Only
// the primary completion and history I/O can fail the call.
//
// A failed primary completion leaves the user turn without a reply. It stays
// in the history and is replayed as context on the conversation's next
// question.
func (s *AnswerService) Synthesize(ctx context.Context, req SynthesisRequest) (*models.StructuredAnswer, error) {
	if s.completer == nil {
		return nil, fmt.Errorf("%w: completer", ErrNotConfigured)
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "policyassist.service.answer"})
	requester := req.Requester

	if len(req.Chunks) == 0 {
		return s.answerWithoutDocuments(ctx, req)
	}

	policyContext := buildContext(req.Chunks)

	messages := []Message{{Role: RoleSystem, Content: systemPrompt(requester.Department)}}

	prior, err := s.recentTurns(ctx, requester.Username)
	if err != nil {
		return nil, err
	}
	for _, turn := range prior {
		role := RoleAssistant
		if strings.EqualFold(turn.Role, models.ChatRoleUser) {
			role = RoleUser
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}

	preface := ""
	if req.Relaxed && !requester.IsHR() {
		preface = relaxedPreface(requester.Department)
	}
	messages = append(messages, Message{Role: RoleUser, Content: userPrompt(preface, policyContext, req.Question)})

	if err := s.record(ctx, requester, models.ChatRoleUser, req.Question); err != nil {
		return nil, err
	}

	raw, err := callWithTimeout(ctx, s.completionTimeout, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, messages)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	if err := s.record(ctx, requester, models.ChatRoleAssistant, raw); err != nil {
		return nil, err
	}

	answer := StripMetaSections(raw)
	if answer == "" {
		// the reply opened with a meta section; keep it rather than answer nothing
		answer = raw
	}

	var (
		g          errgroup.Group
		confidence *int
		structured models.StructuredAnswer
	)
	if requester.IsHR() {
		g.Go(func() error {
			score := s.scoreConfidence(ctx, policyContext, answer)
			confidence = &score
			return nil
		})
	}
	g.Go(func() error {
		structured = s.structure(ctx, policyContext, answer)
		return nil
	})
	_ = g.Wait()

	structured.Confidence = confidence
	return &structured, nil
}

func (s *AnswerService) answerWithoutDocuments(ctx context.Context, req SynthesisRequest) (*models.StructuredAnswer, error) {
	requester := req.Requester
	reply := noDocumentsAnswer(requester.Department)

	if err := s.record(ctx, requester, models.ChatRoleUser, req.Question); err != nil {
		return nil, err
	}
	if err := s.record(ctx, requester, models.ChatRoleAssistant, reply); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "no policy documents matched", "question", logger.Truncate(req.Question, 120))

	result := &models.StructuredAnswer{
		Answer:             reply,
		SuggestedFollowUps: append([]string(nil), defaultFollowUps...),
		NextSteps:          defaultNextSteps,
	}
	if requester.IsHR() {
		// nothing retrieved supports the answer
		zero := 0
		result.Confidence = &zero
	}
	return result, nil
}

func (s *AnswerService) recentTurns(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	if conversationID == "" || s.history == nil || s.historyLimit == 0 {
		return nil, nil
	}
	turns, err := callWithTimeout(ctx, s.historyTimeout, func(ctx context.Context) ([]models.ChatMessage, error) {
		return s.history.Recent(ctx, conversationID, s.historyLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	return turns, nil
}

func (s *AnswerService) record(ctx context.Context, requester models.Requester, role, content string) error {
	if requester.Username == "" || s.history == nil {
		return nil
	}
	msg := &models.ChatMessage{
		ConversationID: requester.Username,
		Role:           role,
		Content:        content,
		Department:     requester.Department,
	}
	_, err := callWithTimeout(ctx, s.historyTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.history.Append(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	return nil
}

func (s *AnswerService) scoreConfidence(ctx context.Context, policyContext, answer string) int {
	messages := []Message{
		{Role: RoleSystem, Content: confidenceSystemPrompt},
		{Role: RoleUser, Content: confidencePrompt(policyContext, answer)},
	}
	reply, err := retry(ctx, enrichmentAttempts, s.completionTimeout, s.retryBackoff, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, messages)
	})
	if err != nil {
		slog.DebugContext(ctx, "confidence scoring failed, using default", "error", err)
		metrics.ConfidenceDefaultsTotal.Inc()
		return defaultConfidence
	}

	score, ok := parseConfidence(reply)
	if !ok {
		slog.DebugContext(ctx, "confidence reply had no score, using default", "reply", logger.Truncate(reply, 80))
		metrics.ConfidenceDefaultsTotal.Inc()
		return defaultConfidence
	}
	return score
}

func (s *AnswerService) structure(ctx context.Context, policyContext, answer string) models.StructuredAnswer {
	messages := []Message{
		{Role: RoleSystem, Content: structureSystemPrompt},
		{Role: RoleUser, Content: structurePrompt(policyContext, answer)},
	}
	reply, err := retry(ctx, enrichmentAttempts, s.completionTimeout, s.retryBackoff, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, messages)
	})
	if err != nil {
		slog.DebugContext(ctx, "structuring call failed, using heuristic", "error", err)
		metrics.StructuringFallbacksTotal.Inc()
		return heuristicStructure(answer)
	}

	parsed, err := parseStructuredAnswer(reply, answer)
	if err != nil {
		slog.DebugContext(ctx, "structuring reply unparseable, using heuristic", "error", err)
		metrics.StructuringFallbacksTotal.Inc()
		return heuristicStructure(answer)
	}
	return parsed
}
