package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumesh/edumesh-api/internal/models"
)

// ChatRepository persists anchor-chat sessions and messages of a tenant
// database.
type ChatRepository struct{}

// NewChatRepository constructs the repository.
func NewChatRepository() *ChatRepository {
	return &ChatRepository{}
}

const chatSessionColumns = `id, student_id, module_id, chapter_id, bibliography_id, type, status,
        ai_question_asked, ai_question_answered, started_at, ended_at, created_at, updated_at, deleted_at`

// CreateSession inserts a session row. Called inside the session-creation
// transaction so the row is never visible without its first message.
func (r *ChatRepository) CreateSession(ctx context.Context, q sqlx.ExtContext, session *models.ChatSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.StartedAt.IsZero() {
		session.StartedAt = now
	}
	if session.Status == "" {
		session.Status = models.ChatSessionStatusActive
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	const query = `INSERT INTO chat_sessions
        (id, student_id, module_id, chapter_id, bibliography_id, type, status,
        ai_question_asked, ai_question_answered, started_at, created_at, updated_at)
        VALUES (:id, :student_id, :module_id, :chapter_id, :bibliography_id, :type, :status,
        :ai_question_asked, :ai_question_answered, :started_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, session); err != nil {
		return fmt.Errorf("create chat session: %w", err)
	}
	return nil
}

// FindSessionByID returns a non-deleted session.
func (r *ChatRepository) FindSessionByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.ChatSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM chat_sessions WHERE id = $1 AND deleted_at IS NULL`, chatSessionColumns)
	var session models.ChatSession
	if err := sqlx.GetContext(ctx, q, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSessionStatus transitions an ACTIVE session to a terminal status and
// stamps ended_at exactly once.
func (r *ChatRepository) UpdateSessionStatus(ctx context.Context, q sqlx.ExtContext, id string, status models.ChatSessionStatus, endedAt time.Time) error {
	const query = `UPDATE chat_sessions SET status = $2, ended_at = $3, updated_at = $3
        WHERE id = $1 AND status = $4 AND deleted_at IS NULL`
	res, err := q.ExecContext(ctx, query, id, status, endedAt, models.ChatSessionStatusActive)
	if err != nil {
		return fmt.Errorf("update chat session status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// MarkQuestionAnswered flips the one-way answered flag. Guarded so the flag
// never resets and never sets without a pending question.
func (r *ChatRepository) MarkQuestionAnswered(ctx context.Context, q sqlx.ExtContext, id string) error {
	const query = `UPDATE chat_sessions SET ai_question_answered = TRUE, updated_at = $2
        WHERE id = $1 AND ai_question_asked = TRUE AND ai_question_answered = FALSE AND deleted_at IS NULL`
	res, err := q.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark question answered: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// CreateMessage inserts one message row.
func (r *ChatRepository) CreateMessage(ctx context.Context, q sqlx.ExtContext, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO chat_messages (id, session_id, sender, body, metadata, created_at)
        VALUES (:id, :session_id, :sender, :body, :metadata, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, message); err != nil {
		return fmt.Errorf("create chat message: %w", err)
	}
	return nil
}

// ListMessages returns a session's messages oldest first.
func (r *ChatRepository) ListMessages(ctx context.Context, q sqlx.ExtContext, sessionID string) ([]models.ChatMessage, error) {
	const query = `SELECT id, session_id, sender, body, metadata, created_at
        FROM chat_messages WHERE session_id = $1 ORDER BY created_at`
	var messages []models.ChatMessage
	if err := sqlx.SelectContext(ctx, q, &messages, query, sessionID); err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return messages, nil
}
