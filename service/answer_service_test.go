package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyassist-backend/models"
)

var sickLeaveChunk = chunk("Employees are entitled to 10 days of paid sick leave per year.", map[string]string{
	"department":  "hr",
	"policy_name": "Sick Leave Policy",
})

func newTestAnswerService(c Completer, h HistoryStore) *AnswerService {
	return NewAnswerService(
		AnswerWithCompleter(c),
		AnswerWithHistoryStore(h),
		AnswerWithRetryBackoff(0),
	)
}

func TestSynthesize_EchoScenario(t *testing.T) {
	echo := &echoCompleter{}
	svc := newTestAnswerService(echo, nil)

	got, err := svc.Synthesize(context.Background(), SynthesisRequest{
		Question:  "What is the sick leave policy?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: employee("hr", ""),
	})
	require.NoError(t, err)

	assert.Contains(t, got.Answer, "10 days of paid sick leave")
	assert.Contains(t, got.Answer, "[Sick Leave Policy]")
	assert.NotContains(t, strings.ToLower(got.Answer), "suggested follow-up")
	assert.NotContains(t, got.Answer, "Note: The following retrieved policies")
	assert.LessOrEqual(t, len(got.SuggestedFollowUps), 2)
	assert.Nil(t, got.Confidence)
	// echo is not JSON, so the heuristic fallback applies
	assert.Equal(t, defaultNextSteps, got.NextSteps)
	// primary + structuring, no confidence call for employees
	assert.Equal(t, 2, echo.callCount())
}

func TestSynthesize_PromptShape(t *testing.T) {
	echo := &echoCompleter{}
	svc := newTestAnswerService(echo, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{
		Question:  "Can I work remotely?",
		Chunks:    []models.PolicyChunk{chunk("Remote work two days a week.", nil), sickLeaveChunk},
		Requester: employee("engineering", ""),
		Relaxed:   true,
	})
	require.NoError(t, err)

	primary := echo.calls[0]
	require.Len(t, primary, 2)
	assert.Equal(t, RoleSystem, primary[0].Role)
	assert.Contains(t, primary[0].Content, "Restrict answers to the engineering department")
	assert.Equal(t, RoleUser, primary[1].Role)
	assert.True(t, strings.HasPrefix(primary[1].Content,
		"Note: The following retrieved policies may not be specific to the engineering department"))
	assert.Contains(t, primary[1].Content,
		"Policies:\n[Policy]\nRemote work two days a week.\n\n[Sick Leave Policy]\nEmployees are entitled")
	assert.Contains(t, primary[1].Content, "Previous question: Can I work remotely?")
}

func TestSynthesize_RelaxedPrefaceSkippedForHR(t *testing.T) {
	echo := &echoCompleter{}
	svc := newTestAnswerService(echo, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{
		Question:  "Sick leave?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: hr("engineering"),
		Relaxed:   true,
	})
	require.NoError(t, err)
	assert.NotContains(t, lastUserPrompt(echo.calls[0]), "Note: The following")
}

func TestSynthesize_Idempotent(t *testing.T) {
	req := SynthesisRequest{
		Question:  "What is the sick leave policy?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: employee("hr", ""),
	}
	first, err := newTestAnswerService(&echoCompleter{}, nil).Synthesize(context.Background(), req)
	require.NoError(t, err)
	second, err := newTestAnswerService(&echoCompleter{}, nil).Synthesize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Answer, second.Answer)
}

func TestSynthesize_StructuredReplyUsed(t *testing.T) {
	c := &scriptedCompleter{
		primary:   reply("You get 10 days of paid sick leave.\nSuggested follow-ups:\n- Can I carry over?"),
		structure: reply(`{"answer": "You get 10 days.", "suggested_follow_ups": ["a?", "b?", "c?"], "next_steps": "Log it in the HR portal."}`),
	}
	got, err := newTestAnswerService(c, nil).Synthesize(context.Background(), SynthesisRequest{
		Question:  "Sick leave?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: employee("hr", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "You get 10 days.", got.Answer)
	assert.Equal(t, []string{"a?", "b?"}, got.SuggestedFollowUps)
	assert.Equal(t, "Log it in the HR portal.", got.NextSteps)
	assert.Equal(t, 0, c.count("confidence"))
}

func TestSynthesize_StructuringFailureFallsBack(t *testing.T) {
	c := &scriptedCompleter{
		primary:   reply("You get 10 days.\nWould you like the carry-over rules?\nNext step: ask HR"),
		structure: fail(errors.New("upstream 500")),
	}
	got, err := newTestAnswerService(c, nil).Synthesize(context.Background(), SynthesisRequest{
		Question:  "Sick leave?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: employee("hr", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "You get 10 days.\nWould you like the carry-over rules?", got.Answer)
	assert.Equal(t, []string{"Would you like the carry-over rules?"}, got.SuggestedFollowUps)
	assert.Equal(t, defaultNextSteps, got.NextSteps)
	assert.Equal(t, enrichmentAttempts, c.count("structure"))
}

func TestSynthesize_HRConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence func([]Message) (string, error)
		want       int
	}{
		{"parsed", reply("Confidence: 92"), 92},
		{"clamped", reply("150"), 100},
		{"unparseable", reply("very high"), defaultConfidence},
		{"call fails", fail(errors.New("timeout")), defaultConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &scriptedCompleter{
				primary:    reply("You get 10 days."),
				confidence: tt.confidence,
				structure:  reply(`{"answer": "You get 10 days.", "suggested_follow_ups": [], "next_steps": ""}`),
			}
			got, err := newTestAnswerService(c, nil).Synthesize(context.Background(), SynthesisRequest{
				Question:  "Sick leave?",
				Chunks:    []models.PolicyChunk{sickLeaveChunk},
				Requester: hr("hr"),
			})
			require.NoError(t, err)
			require.NotNil(t, got.Confidence)
			assert.Equal(t, tt.want, *got.Confidence)
		})
	}
}

func TestSynthesize_ConfidenceOnlyForHR(t *testing.T) {
	for _, r := range []models.Requester{employee("hr", ""), hr("hr")} {
		c := &scriptedCompleter{
			primary:    reply("You get 10 days."),
			confidence: reply("70"),
			structure:  reply("not json"),
		}
		svc := newTestAnswerService(c, nil)

		withDocs, err := svc.Synthesize(context.Background(), SynthesisRequest{
			Question: "Sick leave?", Chunks: []models.PolicyChunk{sickLeaveChunk}, Requester: r,
		})
		require.NoError(t, err)
		noDocs, err := svc.Synthesize(context.Background(), SynthesisRequest{
			Question: "Sick leave?", Requester: r,
		})
		require.NoError(t, err)

		assert.Equal(t, r.IsHR(), withDocs.Confidence != nil, "role %s", r.Role)
		assert.Equal(t, r.IsHR(), noDocs.Confidence != nil, "role %s", r.Role)
	}
}

func TestSynthesize_NoDocuments(t *testing.T) {
	c := &scriptedCompleter{}
	h := &memoryHistory{}
	svc := newTestAnswerService(c, h)

	got, err := svc.Synthesize(context.Background(), SynthesisRequest{
		Question:  "Do we get innovation days?",
		Requester: models.NewRequester("alice", "engineering", models.RoleEmployee, ""),
	})
	require.NoError(t, err)

	assert.Equal(t, noDocumentsAnswer("engineering"), got.Answer)
	assert.True(t, strings.HasPrefix(got.Answer, "I searched engineering-specific and company-wide (common) policy documents"))
	assert.Equal(t, defaultFollowUps, got.SuggestedFollowUps)
	assert.Equal(t, defaultNextSteps, got.NextSteps)
	assert.Nil(t, got.Confidence)
	assert.Equal(t, 0, c.count("primary"))
	assert.Equal(t, []string{models.ChatRoleUser, models.ChatRoleAssistant}, h.roles())
	assert.Equal(t, "engineering", h.msgs[0].Department)
}

func TestSynthesize_HistoryReplayedAndPersisted(t *testing.T) {
	h := &memoryHistory{}
	for i, turn := range []struct{ role, content string }{
		{models.ChatRoleUser, "q1"}, {models.ChatRoleAssistant, "a1"},
		{models.ChatRoleUser, "q2"}, {models.ChatRoleAssistant, "a2"},
		{models.ChatRoleUser, "q3"}, {models.ChatRoleAssistant, "a3"},
		{models.ChatRoleUser, "q4"}, {models.ChatRoleAssistant, "a4"},
	} {
		conv := "alice"
		if i == 0 {
			conv = "bob"
		}
		require.NoError(t, h.Append(context.Background(), &models.ChatMessage{
			ConversationID: conv, Role: turn.role, Content: turn.content,
		}))
	}

	echo := &echoCompleter{}
	svc := newTestAnswerService(echo, h)
	_, err := svc.Synthesize(context.Background(), SynthesisRequest{
		Question:  "What is the sick leave policy?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: models.NewRequester("alice", "hr", models.RoleEmployee, ""),
	})
	require.NoError(t, err)

	primary := echo.calls[0]
	require.Len(t, primary, 1+6+1)
	var replayed []string
	for _, m := range primary[1:7] {
		replayed = append(replayed, m.Role+":"+m.Content)
	}
	assert.Equal(t, []string{
		"user:q2", "assistant:a2", "user:q3", "assistant:a3", "user:q4", "assistant:a4",
	}, replayed)

	stored := h.msgs[len(h.msgs)-2:]
	assert.Equal(t, models.ChatRoleUser, stored[0].Role)
	assert.Equal(t, "What is the sick leave policy?", stored[0].Content)
	assert.Equal(t, models.ChatRoleAssistant, stored[1].Role)
	// raw reply is stored, before sanitizing
	assert.Contains(t, stored[1].Content, "suggested follow-up questions")
	assert.Equal(t, "hr", stored[1].Department)
}

func TestSynthesize_NoUsernameSkipsHistory(t *testing.T) {
	h := &memoryHistory{recentErr: errors.New("must not be called")}
	_, err := newTestAnswerService(&echoCompleter{}, h).Synthesize(context.Background(), SynthesisRequest{
		Question:  "Sick leave?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: employee("hr", ""),
	})
	require.NoError(t, err)
	assert.Empty(t, h.msgs)
}

func TestSynthesize_PrimaryFailure(t *testing.T) {
	boom := errors.New("model unavailable")
	h := &memoryHistory{}
	c := &scriptedCompleter{primary: fail(boom)}

	got, err := newTestAnswerService(c, h).Synthesize(context.Background(), SynthesisRequest{
		Question:  "Sick leave?",
		Chunks:    []models.PolicyChunk{sickLeaveChunk},
		Requester: models.NewRequester("alice", "hr", models.RoleEmployee, ""),
	})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.count("primary"))
	// user turn is recorded before the model is called
	assert.Equal(t, []string{models.ChatRoleUser}, h.roles())
}

func TestSynthesize_UnansweredTurnReplayedAfterFailure(t *testing.T) {
	h := &memoryHistory{}
	alice := models.NewRequester("alice", "hr", models.RoleEmployee, "")
	c := &scriptedCompleter{primary: fail(errors.New("model unavailable")), structure: reply("nope")}
	svc := newTestAnswerService(c, h)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{
		Question: "Sick leave?", Chunks: []models.PolicyChunk{sickLeaveChunk}, Requester: alice,
	})
	require.ErrorIs(t, err, ErrGenerationFailed)

	var sent []Message
	c.primary = func(msgs []Message) (string, error) {
		sent = msgs
		return "Ten days of sick leave per year.", nil
	}
	_, err = svc.Synthesize(context.Background(), SynthesisRequest{
		Question: "Is it paid?", Chunks: []models.PolicyChunk{sickLeaveChunk}, Requester: alice,
	})
	require.NoError(t, err)

	require.Len(t, sent, 3)
	assert.Equal(t, Message{Role: RoleUser, Content: "Sick leave?"}, sent[1])
	assert.Equal(t, []string{models.ChatRoleUser, models.ChatRoleUser, models.ChatRoleAssistant}, h.roles())
}

func TestSynthesize_EmptyPrimaryReply(t *testing.T) {
	c := &scriptedCompleter{primary: reply("   ")}
	_, err := newTestAnswerService(c, nil).Synthesize(context.Background(), SynthesisRequest{
		Question: "Sick leave?", Chunks: []models.PolicyChunk{sickLeaveChunk}, Requester: employee("hr", ""),
	})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestSynthesize_ReplyThatIsOnlyMetaSectionIsKept(t *testing.T) {
	c := &scriptedCompleter{primary: reply("Next step: contact HR."), structure: reply("nope")}
	got, err := newTestAnswerService(c, nil).Synthesize(context.Background(), SynthesisRequest{
		Question: "Sick leave?", Chunks: []models.PolicyChunk{sickLeaveChunk}, Requester: employee("hr", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Next step: contact HR.", got.Answer)
}

func TestSynthesize_HistoryFailures(t *testing.T) {
	boom := errors.New("db down")
	requester := models.NewRequester("alice", "hr", models.RoleEmployee, "")

	_, err := newTestAnswerService(&echoCompleter{}, &memoryHistory{recentErr: boom}).Synthesize(context.Background(), SynthesisRequest{
		Question: "Sick leave?", Chunks: []models.PolicyChunk{sickLeaveChunk}, Requester: requester,
	})
	assert.ErrorIs(t, err, ErrHistoryUnavailable)

	_, err = newTestAnswerService(&echoCompleter{}, &memoryHistory{appendErr: boom}).Synthesize(context.Background(), SynthesisRequest{
		Question: "Sick leave?", Requester: requester,
	})
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
}

func TestSynthesize_FollowUpsNeverExceedTwo(t *testing.T) {
	primaries := []string{
		"A?\nB?\nC?\nD?",
		"suggest one\nsuggest two\nsuggest three",
		"Plain answer.",
	}
	structures := []string{
		`{"answer": "x", "suggested_follow_ups": ["1", "2", "3", "4"], "next_steps": ""}`,
		"not json",
		`{"answer": "x"}`,
	}
	for _, p := range primaries {
		for _, s := range structures {
			c := &scriptedCompleter{primary: reply(p), structure: reply(s)}
			got, err := newTestAnswerService(c, nil).Synthesize(context.Background(), SynthesisRequest{
				Question: "q", Chunks: []models.PolicyChunk{sickLeaveChunk}, Requester: employee("hr", ""),
			})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got.SuggestedFollowUps), 2, "primary %q structure %q", p, s)
		}
	}
}

func TestSynthesize_RequiresCompleter(t *testing.T) {
	_, err := NewAnswerService().Synthesize(context.Background(), SynthesisRequest{Question: "q"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
