package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ChatSessionStatus is the session lifecycle state.
type ChatSessionStatus string

const (
	ChatSessionStatusActive    ChatSessionStatus = "ACTIVE"
	ChatSessionStatusCompleted ChatSessionStatus = "COMPLETED"
	ChatSessionStatusCancelled ChatSessionStatus = "CANCELLED"
)

// ChatSessionType selects the conversation variant.
type ChatSessionType string

const (
	ChatSessionTypeOpen ChatSessionType = "OPEN"
	ChatSessionTypeQuiz ChatSessionType = "QUIZ"
)

// ChatSession anchors a conversation to one bibliography item.
// AIQuestionAsked is set once at creation when the source declares a question;
// AIQuestionAnswered flips once, on the student's next message while a
// question is pending. Both flags are one-way.
type ChatSession struct {
	ID                 string            `db:"id" json:"id"`
	StudentID          string            `db:"student_id" json:"student_id"`
	ModuleID           string            `db:"module_id" json:"module_id"`
	ChapterID          string            `db:"chapter_id" json:"chapter_id"`
	BibliographyID     string            `db:"bibliography_id" json:"bibliography_id"`
	Type               ChatSessionType   `db:"type" json:"type"`
	Status             ChatSessionStatus `db:"status" json:"status"`
	AIQuestionAsked    bool              `db:"ai_question_asked" json:"ai_question_asked"`
	AIQuestionAnswered bool              `db:"ai_question_answered" json:"ai_question_answered"`
	StartedAt          time.Time         `db:"started_at" json:"started_at"`
	EndedAt            *time.Time        `db:"ended_at" json:"ended_at,omitempty"`
	Audit
}

// ChatSender identifies who authored a message.
type ChatSender string

const (
	ChatSenderStudent   ChatSender = "STUDENT"
	ChatSenderAssistant ChatSender = "ASSISTANT"
)

// ChatMessage is one turn in a session.
type ChatMessage struct {
	ID        string         `db:"id" json:"id"`
	SessionID string         `db:"session_id" json:"session_id"`
	Sender    ChatSender     `db:"sender" json:"sender"`
	Body      string         `db:"body" json:"body"`
	Metadata  types.JSONText `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
