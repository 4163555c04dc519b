package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"policyassist-backend/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// questionPreviewLen caps the question text returned in history listings
const questionPreviewLen = 400

// ChatMessageRepository is the append-only conversation log
type ChatMessageRepository struct {
	db   *pgxpool.Pool
	node *snowflake.Node
}

// NewChatMessageRepository creates a chat message repository. node assigns
// time-ordered message IDs and must be unique per running instance.
func NewChatMessageRepository(db *pgxpool.Pool, node *snowflake.Node) *ChatMessageRepository {
	return &ChatMessageRepository{db: db, node: node}
}

// Append writes one turn. ID and CreatedAt are assigned when zero.
func (r *ChatMessageRepository) Append(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == 0 {
		msg.ID = r.node.Generate().Int64()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chat_messages (id, conversation_id, role, content, department, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Department,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// Recent returns up to limit turns of a conversation, oldest first
func (r *ChatMessageRepository) Recent(ctx context.Context, conversationID string, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, role, content, department, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// ListQuestions returns the most recent user questions tagged with a department
func (r *ChatMessageRepository) ListQuestions(ctx context.Context, department string, limit int) ([]models.QuestionSummary, error) {
	query := `
		SELECT id, conversation_id, LEFT(content, $3), created_at
		FROM chat_messages
		WHERE department = $1 AND role = 'user'
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, department, limit, questionPreviewLen)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	out := []models.QuestionSummary{}
	for rows.Next() {
		var q models.QuestionSummary
		if err := rows.Scan(&q.MessageID, &q.ConversationID, &q.Question, &q.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return out, nil
}

// Thread returns a user question and the first assistant reply that follows
// it in the same conversation and department. Answer is nil when the reply
// was never written.
func (r *ChatMessageRepository) Thread(ctx context.Context, userMessageID int64, department string) (*models.Thread, error) {
	question := &models.ChatMessage{}
	err := r.db.QueryRow(ctx, `
		SELECT id, conversation_id, role, content, department, created_at
		FROM chat_messages
		WHERE id = $1 AND role = 'user' AND department = $2`,
		userMessageID, department,
	).Scan(&question.ID, &question.ConversationID, &question.Role, &question.Content, &question.Department, &question.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question: %w", err)
	}

	thread := &models.Thread{Question: question}

	answer := &models.ChatMessage{}
	err = r.db.QueryRow(ctx, `
		SELECT id, conversation_id, role, content, department, created_at
		FROM chat_messages
		WHERE conversation_id = $1 AND department = $2 AND role = 'assistant' AND id > $3
		ORDER BY id ASC
		LIMIT 1`,
		question.ConversationID, department, question.ID,
	).Scan(&answer.ID, &answer.ConversationID, &answer.Role, &answer.Content, &answer.Department, &answer.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to load answer: %w", err)
	default:
		thread.Answer = answer
	}

	return thread, nil
}

func scanMessages(rows pgx.Rows) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Department, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return msgs, nil
}
