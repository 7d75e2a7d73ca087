package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
	"github.com/edumesh/edumesh-api/internal/repository"
	"github.com/edumesh/edumesh-api/internal/tenant"
	"github.com/edumesh/edumesh-api/pkg/advisory"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

// Advisory call variants, dispatched in fixed priority order.
const (
	adviceModeOpening = "opening"
	adviceModeAnswer  = "question_answer"
	adviceModeQuiz    = "quiz"
	adviceModeOpen    = "open"
)

type chatStore interface {
	CreateSession(ctx context.Context, q sqlx.ExtContext, session *models.ChatSession) error
	FindSessionByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.ChatSession, error)
	UpdateSessionStatus(ctx context.Context, q sqlx.ExtContext, id string, status models.ChatSessionStatus, endedAt time.Time) error
	MarkQuestionAnswered(ctx context.Context, q sqlx.ExtContext, id string) error
	CreateMessage(ctx context.Context, q sqlx.ExtContext, message *models.ChatMessage) error
	ListMessages(ctx context.Context, q sqlx.ExtContext, sessionID string) ([]models.ChatMessage, error)
}

type bibliographyReader interface {
	FindLiveByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.BibliographyItem, error)
}

type advisoryClient interface {
	Advise(ctx context.Context, req advisory.Request) (*advisory.Response, error)
}

type advisoryMetrics interface {
	ObserveAdvisoryCall(d time.Duration, success bool)
}

// StartSessionRequest opens a chat anchored to one bibliography item.
type StartSessionRequest struct {
	SchoolID       string                 `json:"school_id,omitempty"`
	StudentID      string                 `json:"student_id,omitempty"`
	ModuleID       string                 `json:"module_id" validate:"required"`
	ChapterID      string                 `json:"chapter_id" validate:"required"`
	BibliographyID string                 `json:"bibliography_id" validate:"required"`
	Type           models.ChatSessionType `json:"type" validate:"omitempty,oneof=OPEN QUIZ"`
}

// SendMessageRequest adds a student turn to a session.
type SendMessageRequest struct {
	SchoolID string `json:"school_id,omitempty"`
	Body     string `json:"body" validate:"required"`
}

// SessionDetail pairs a session with its messages.
type SessionDetail struct {
	Session  models.ChatSession   `json:"session"`
	Messages []models.ChatMessage `json:"messages"`
}

// ChatService runs the anchor-chat workflows. Session creation validates the
// anchor chain, then writes the session, calls advisory, and writes the first
// message as a single atomic unit: a session is never visible without the
// message establishing it, even though the advisory call itself is not
// transactional.
type ChatService struct {
	resolver  tenantResolver
	repo      chatStore
	biblio    bibliographyReader
	chapters  chapterReader
	modules   moduleReader
	students  studentReader
	advisor   advisoryClient
	metrics   advisoryMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs ChatService. Metrics may be nil.
func NewChatService(resolver tenantResolver, repo chatStore, biblio bibliographyReader, chapters chapterReader, modules moduleReader, students studentReader, advisor advisoryClient, metrics advisoryMetrics, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		resolver:  resolver,
		repo:      repo,
		biblio:    biblio,
		chapters:  chapters,
		modules:   modules,
		students:  students,
		advisor:   advisor,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// StartSession validates every referenced entity, then atomically creates the
// session and its first assistant message. Advisory failure aborts the whole
// workflow and leaves zero trace.
func (s *ChatService) StartSession(ctx context.Context, actor *models.JWTClaims, req StartSessionRequest) (*SessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	studentID := req.StudentID
	if actor != nil && actor.Role == models.RoleStudent {
		studentID = actor.UserID
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	handle, err := s.resolveFor(ctx, actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	db := handle.DB()

	module, err := s.modules.FindModuleByID(ctx, db, req.ModuleID)
	if err != nil {
		return nil, s.notFoundOr(err, "module")
	}
	chapter, err := s.chapters.FindChapterByID(ctx, db, req.ChapterID)
	if err != nil {
		return nil, s.notFoundOr(err, "chapter")
	}
	if chapter.ModuleID != module.ID {
		return nil, appErrors.NotFoundKind("chapter")
	}
	item, err := s.biblio.FindLiveByID(ctx, db, req.BibliographyID)
	if err != nil {
		return nil, s.notFoundOr(err, "bibliography")
	}
	if item.ChapterID != chapter.ID {
		return nil, appErrors.NotFoundKind("bibliography")
	}
	student, err := s.students.FindLiveByID(ctx, db, studentID)
	if err != nil {
		return nil, s.notFoundOr(err, "student")
	}

	sessionType := req.Type
	if sessionType == "" {
		sessionType = models.ChatSessionTypeOpen
	}

	session := &models.ChatSession{
		StudentID:       student.ID,
		ModuleID:        module.ID,
		ChapterID:       chapter.ID,
		BibliographyID:  item.ID,
		Type:            sessionType,
		Status:          models.ChatSessionStatusActive,
		AIQuestionAsked: item.DeclaresQuestion,
	}
	var opening *models.ChatMessage

	err = handle.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.repo.CreateSession(ctx, tx, session); err != nil {
			return err
		}

		advice, err := s.advise(ctx, advisory.Request{
			Mode:         adviceModeOpening,
			SchoolID:     handle.Tenant().SchoolID,
			StudentID:    student.ID,
			ModuleTitle:  module.Title,
			ChapterTitle: chapter.Title,
			SourceTitle:  item.Title,
			SourceURL:    item.SourceURL,
			QuestionText: item.QuestionText,
		})
		if err != nil {
			return err
		}

		opening = &models.ChatMessage{
			SessionID: session.ID,
			Sender:    models.ChatSenderAssistant,
			Body:      advice.Message,
			Metadata:  types.JSONText(advice.Metadata),
		}
		return s.repo.CreateMessage(ctx, tx, opening)
	})
	if err != nil {
		return nil, err
	}

	return &SessionDetail{Session: *session, Messages: []models.ChatMessage{*opening}}, nil
}

// SendMessage appends a student turn and the assistant's reply atomically.
// The variant is a three-way dispatch in fixed priority order: a pending
// declared question wins, then quiz mode, then open conversation.
func (s *ChatService) SendMessage(ctx context.Context, actor *models.JWTClaims, sessionID string, req SendMessageRequest) (*models.ChatMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	handle, err := s.resolveFor(ctx, actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	db := handle.DB()

	session, err := s.repo.FindSessionByID(ctx, db, sessionID)
	if err != nil {
		return nil, s.notFoundOr(err, "session")
	}
	if session.Status != models.ChatSessionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session is not active")
	}
	if actor != nil && actor.Role == models.RoleStudent && actor.UserID != session.StudentID {
		return nil, appErrors.ErrForbidden
	}

	item, err := s.biblio.FindLiveByID(ctx, db, session.BibliographyID)
	if err != nil {
		return nil, s.notFoundOr(err, "bibliography")
	}

	history, err := s.repo.ListMessages(ctx, db, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	var mode string
	answering := false
	switch {
	case session.AIQuestionAsked && !session.AIQuestionAnswered:
		mode = adviceModeAnswer
		answering = true
	case session.Type == models.ChatSessionTypeQuiz:
		mode = adviceModeQuiz
	default:
		mode = adviceModeOpen
	}

	advReq := advisory.Request{
		Mode:         mode,
		SchoolID:     handle.Tenant().SchoolID,
		StudentID:    session.StudentID,
		SourceTitle:  item.Title,
		SourceURL:    item.SourceURL,
		QuestionText: item.QuestionText,
		StudentInput: req.Body,
		History:      toHistory(history),
	}

	var reply *models.ChatMessage
	err = handle.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.repo.CreateMessage(ctx, tx, &models.ChatMessage{
			SessionID: session.ID,
			Sender:    models.ChatSenderStudent,
			Body:      req.Body,
		}); err != nil {
			return err
		}

		if answering {
			// The student's turn settles the pending question; later messages
			// route through the regular variants.
			if err := s.repo.MarkQuestionAnswered(ctx, tx, session.ID); err != nil {
				if !errors.Is(err, repository.ErrNoRowsAffected) {
					return err
				}
			}
		}

		advice, err := s.advise(ctx, advReq)
		if err != nil {
			return err
		}

		reply = &models.ChatMessage{
			SessionID: session.ID,
			Sender:    models.ChatSenderAssistant,
			Body:      advice.Message,
			Metadata:  types.JSONText(advice.Metadata),
		}
		return s.repo.CreateMessage(ctx, tx, reply)
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// CompleteSession transitions ACTIVE -> COMPLETED.
func (s *ChatService) CompleteSession(ctx context.Context, actor *models.JWTClaims, schoolID, sessionID string) (*models.ChatSession, error) {
	return s.endSession(ctx, actor, schoolID, sessionID, models.ChatSessionStatusCompleted)
}

// CancelSession transitions ACTIVE -> CANCELLED.
func (s *ChatService) CancelSession(ctx context.Context, actor *models.JWTClaims, schoolID, sessionID string) (*models.ChatSession, error) {
	return s.endSession(ctx, actor, schoolID, sessionID, models.ChatSessionStatusCancelled)
}

func (s *ChatService) endSession(ctx context.Context, actor *models.JWTClaims, schoolID, sessionID string, status models.ChatSessionStatus) (*models.ChatSession, error) {
	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return nil, err
	}
	db := handle.DB()

	session, err := s.repo.FindSessionByID(ctx, db, sessionID)
	if err != nil {
		return nil, s.notFoundOr(err, "session")
	}
	if session.Status != models.ChatSessionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session already ended")
	}

	if err := s.repo.UpdateSessionStatus(ctx, db, sessionID, status, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "session already ended")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}

	updated, err := s.repo.FindSessionByID(ctx, db, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload session")
	}
	return updated, nil
}

// GetSession returns a session with its messages.
func (s *ChatService) GetSession(ctx context.Context, actor *models.JWTClaims, schoolID, sessionID string) (*SessionDetail, error) {
	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return nil, err
	}
	db := handle.DB()

	session, err := s.repo.FindSessionByID(ctx, db, sessionID)
	if err != nil {
		return nil, s.notFoundOr(err, "session")
	}
	if actor != nil && actor.Role == models.RoleStudent && actor.UserID != session.StudentID {
		return nil, appErrors.ErrForbidden
	}
	messages, err := s.repo.ListMessages(ctx, db, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load messages")
	}
	return &SessionDetail{Session: *session, Messages: messages}, nil
}

func (s *ChatService) advise(ctx context.Context, req advisory.Request) (*advisory.Response, error) {
	start := time.Now()
	advice, err := s.advisor.Advise(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveAdvisoryCall(time.Since(start), err == nil)
	}
	if err != nil {
		s.logger.Warn("advisory call failed",
			zap.String("mode", req.Mode),
			zap.String("student_id", req.StudentID),
			zap.Error(err),
		)
		return nil, err
	}
	return advice, nil
}

func (s *ChatService) notFoundOr(err error, kind string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFoundKind(kind)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+kind)
}

func (s *ChatService) resolveFor(ctx context.Context, actor *models.JWTClaims, explicitSchoolID string) (*tenant.Handle, error) {
	schoolID, err := tenant.SchoolForClaims(actor, explicitSchoolID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, schoolID)
}

func toHistory(messages []models.ChatMessage) []advisory.HistoryEntry {
	entries := make([]advisory.HistoryEntry, 0, len(messages))
	for _, message := range messages {
		entries = append(entries, advisory.HistoryEntry{Sender: string(message.Sender), Body: message.Body})
	}
	return entries
}
