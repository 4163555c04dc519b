package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"policyassist-backend/models"
)

func chunk(content string, meta map[string]string) models.PolicyChunk {
	return models.NewPolicyChunk(content, meta)
}

func employee(department, country string) models.Requester {
	return models.NewRequester("", department, models.RoleEmployee, country)
}

func hr(department string) models.Requester {
	return models.NewRequester("", department, models.RoleHR, "")
}

// echoCompleter returns the content of the last message it was given.
type echoCompleter struct {
	mu    sync.Mutex
	calls [][]Message
}

func (e *echoCompleter) Complete(_ context.Context, msgs []Message) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, msgs)
	return msgs[len(msgs)-1].Content, nil
}

func (e *echoCompleter) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// scriptedCompleter answers by the system prompt of each call, so the
// primary, confidence and structuring calls can be scripted independently.
type scriptedCompleter struct {
	mu         sync.Mutex
	primary    func([]Message) (string, error)
	confidence func([]Message) (string, error)
	structure  func([]Message) (string, error)
	counts     map[string]int
}

func (s *scriptedCompleter) Complete(_ context.Context, msgs []Message) (string, error) {
	kind := "primary"
	switch msgs[0].Content {
	case confidenceSystemPrompt:
		kind = "confidence"
	case structureSystemPrompt:
		kind = "structure"
	}

	s.mu.Lock()
	if s.counts == nil {
		s.counts = map[string]int{}
	}
	s.counts[kind]++
	s.mu.Unlock()

	var fn func([]Message) (string, error)
	switch kind {
	case "confidence":
		fn = s.confidence
	case "structure":
		fn = s.structure
	default:
		fn = s.primary
	}
	if fn == nil {
		return "", errors.New("no script for " + kind)
	}
	return fn(msgs)
}

func (s *scriptedCompleter) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

func reply(text string) func([]Message) (string, error) {
	return func([]Message) (string, error) { return text, nil }
}

func fail(err error) func([]Message) (string, error) {
	return func([]Message) (string, error) { return "", err }
}

// memoryHistory is an in-memory HistoryStore.
type memoryHistory struct {
	mu        sync.Mutex
	msgs      []models.ChatMessage
	nextID    int64
	appendErr error
	recentErr error
}

func (m *memoryHistory) Append(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.nextID++
	msg.ID = m.nextID
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memoryHistory) Recent(_ context.Context, conversationID string, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	var out []models.ChatMessage
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryHistory) roles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.msgs {
		out = append(out, msg.Role)
	}
	return out
}

type fakeEmbedder struct {
	err   error
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeSearcher struct {
	chunks []models.PolicyChunk
	err    error
	limit  int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, limit int) ([]models.PolicyChunk, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func contents(chunks []models.PolicyChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func lastUserPrompt(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
