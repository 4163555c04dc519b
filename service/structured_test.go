package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredAnswer(t *testing.T) {
	raw := `{"answer": "You get 10 days.", "suggested_follow_ups": ["Can I carry days over?", " ", "Who approves?", "Third?"], "next_steps": " Email HR. "}`
	got, err := parseStructuredAnswer(raw, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "You get 10 days.", got.Answer)
	assert.Equal(t, []string{"Can I carry days over?", "Who approves?"}, got.SuggestedFollowUps)
	assert.Equal(t, "Email HR.", got.NextSteps)
	assert.Nil(t, got.Confidence)
}

func TestParseStructuredAnswer_CodeFence(t *testing.T) {
	raw := "```json\n{\"answer\": \"Yes.\", \"suggested_follow_ups\": [], \"next_steps\": \"\"}\n```"
	got, err := parseStructuredAnswer(raw, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "Yes.", got.Answer)
	assert.Empty(t, got.SuggestedFollowUps)
	assert.NotNil(t, got.SuggestedFollowUps)
}

func TestParseStructuredAnswer_MissingOrBlankAnswer(t *testing.T) {
	got, err := parseStructuredAnswer(`{"next_steps": "Ask HR"}`, "sanitized")
	require.NoError(t, err)
	assert.Equal(t, "sanitized", got.Answer)

	got, err = parseStructuredAnswer(`{"answer": "Next steps: ask HR"}`, "sanitized")
	require.NoError(t, err)
	assert.Equal(t, "sanitized", got.Answer)
}

func TestParseStructuredAnswer_Invalid(t *testing.T) {
	for _, raw := range []string{
		"Sure! Here is the answer.",
		`{"answer": "x", "suggested_follow_ups": "not a list"}`,
		`{"answer": `,
		`["a", "b"]`,
	} {
		_, err := parseStructuredAnswer(raw, "fallback")
		assert.Error(t, err, raw)
	}
}

func TestHeuristicStructure(t *testing.T) {
	answer := "You get 10 days.\n- Do you want the carry-over rules?\nsuggest asking your manager\n* Is this for India?\nplain line"
	got := heuristicStructure(answer)
	assert.Equal(t, answer, got.Answer)
	assert.Equal(t, []string{"Do you want the carry-over rules?", "suggest asking your manager"}, got.SuggestedFollowUps)
	assert.Equal(t, defaultNextSteps, got.NextSteps)
}

func TestHeuristicStructure_Defaults(t *testing.T) {
	got := heuristicStructure("You get 10 days.")
	assert.Equal(t, defaultFollowUps, got.SuggestedFollowUps)
	got.SuggestedFollowUps[0] = "mutated"
	assert.NotEqual(t, "mutated", defaultFollowUps[0])
}
