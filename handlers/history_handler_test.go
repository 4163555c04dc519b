package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyassist-backend/models"
)

func TestHistory_ListDefaultsToOwnDepartment(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.history.questions = []models.QuestionSummary{
		{MessageID: 42, ConversationID: "emp", Question: "How much leave?", Timestamp: time.Now()},
	}
	cookie := ts.login(t, "emp", "emp123", nil)

	rec := ts.do(t, http.MethodGet, "/api/history", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "engineering", ts.history.department)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "42", got[0]["message_id"])
}

func TestHistory_OtherDepartmentRequiresHR(t *testing.T) {
	ts := newTestServer(t, nil)

	emp := ts.login(t, "emp", "emp123", nil)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/history?department=finance", nil, emp).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/history?department=Engineering", nil, emp).Code)

	hr := ts.login(t, "hr_bob", "hrpass", nil)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/history?department=Finance", nil, hr).Code)
	assert.Equal(t, "finance", ts.history.department)
}

func TestHistory_Thread(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.history.thread = &models.Thread{
		Question: &models.ChatMessage{ID: 7, Role: models.ChatRoleUser, Content: "leave?"},
		Answer:   &models.ChatMessage{ID: 8, Role: models.ChatRoleAssistant, Content: "20 days"},
	}
	cookie := ts.login(t, "emp", "emp123", nil)

	rec := ts.do(t, http.MethodGet, "/api/history/thread/7", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var thread models.Thread
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &thread))
	assert.Equal(t, "20 days", thread.Answer.Content)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/history/thread/9", nil, cookie).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/history/thread/abc", nil, cookie).Code)
}
