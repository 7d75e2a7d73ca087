package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/edumesh/edumesh-api/internal/models"
)

func TestChatRepositoryCreateSessionDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChatRepository()

	mock.ExpectExec("INSERT INTO chat_sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &models.ChatSession{
		StudentID:      "stu-1",
		ModuleID:       "mod-1",
		ChapterID:      "ch-1",
		BibliographyID: "bib-1",
		Type:           models.ChatSessionTypeOpen,
	}
	require.NoError(t, repo.CreateSession(context.Background(), db, session))
	require.NotEmpty(t, session.ID)
	require.Equal(t, models.ChatSessionStatusActive, session.Status)
	require.False(t, session.StartedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepositoryUpdateSessionStatusGuarded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChatRepository()
	endedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE chat_sessions SET status").
		WithArgs("sess-1", models.ChatSessionStatusCompleted, endedAt, models.ChatSessionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateSessionStatus(context.Background(), db, "sess-1", models.ChatSessionStatusCompleted, endedAt))

	mock.ExpectExec("UPDATE chat_sessions SET status").
		WithArgs("sess-1", models.ChatSessionStatusCancelled, endedAt, models.ChatSessionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateSessionStatus(context.Background(), db, "sess-1", models.ChatSessionStatusCancelled, endedAt)
	require.ErrorIs(t, err, ErrNoRowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepositoryMarkQuestionAnsweredOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChatRepository()

	mock.ExpectExec(regexp.QuoteMeta("SET ai_question_answered = TRUE")).
		WithArgs("sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkQuestionAnswered(context.Background(), db, "sess-1"))

	mock.ExpectExec(regexp.QuoteMeta("SET ai_question_answered = TRUE")).
		WithArgs("sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkQuestionAnswered(context.Background(), db, "sess-1")
	require.ErrorIs(t, err, ErrNoRowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepositoryListMessages(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChatRepository()

	rows := sqlmock.NewRows([]string{"id", "session_id", "sender", "body", "metadata", "created_at"}).
		AddRow("msg-1", "sess-1", models.ChatSenderAssistant, "Welcome", []byte(`{"k":"v"}`), time.Now()).
		AddRow("msg-2", "sess-1", models.ChatSenderStudent, "Hi", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_messages WHERE session_id = $1 ORDER BY created_at")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	messages, err := repo.ListMessages(context.Background(), db, "sess-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, models.ChatSenderAssistant, messages[0].Sender)
	require.JSONEq(t, `{"k":"v"}`, string(messages[0].Metadata))
	require.NoError(t, mock.ExpectationsWereMet())
}
