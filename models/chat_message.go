package models

import "time"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one persisted conversation turn. IDs are snowflakes and
// therefore increase with creation time.
type ChatMessage struct {
	ID             int64     `json:"id,string"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Department     string    `json:"department,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuestionSummary is a history list entry for a past user question.
type QuestionSummary struct {
	MessageID      int64     `json:"message_id,string"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Timestamp      time.Time `json:"timestamp"`
}

// Thread pairs a user question with the first assistant reply after it.
type Thread struct {
	Question *ChatMessage `json:"question"`
	Answer   *ChatMessage `json:"answer,omitempty"`
}
