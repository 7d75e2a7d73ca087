package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
	"github.com/edumesh/edumesh-api/internal/repository"
	"github.com/edumesh/edumesh-api/internal/tenant"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
	"github.com/edumesh/edumesh-api/pkg/export"
)

type bibliographyStore interface {
	ListLiveByChapter(ctx context.Context, q sqlx.ExtContext, chapterID string) ([]models.BibliographyItem, error)
	FindLiveByIDs(ctx context.Context, q sqlx.ExtContext, ids []string) ([]models.BibliographyItem, error)
	NextSequence(ctx context.Context, q sqlx.ExtContext, chapterID string) (int, error)
	Create(ctx context.Context, q sqlx.ExtContext, item *models.BibliographyItem) error
	UpdateSequence(ctx context.Context, q sqlx.ExtContext, id string, sequence int) error
	SoftDelete(ctx context.Context, q sqlx.ExtContext, id string) error
}

type chapterReader interface {
	FindChapterByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Chapter, error)
}

// CreateBibliographyRequest describes a new bibliography item.
type CreateBibliographyRequest struct {
	SchoolID         string                  `json:"school_id,omitempty"`
	ChapterID        string                  `json:"chapter_id" validate:"required"`
	Title            string                  `json:"title" validate:"required"`
	SourceURL        string                  `json:"source_url" validate:"omitempty,url"`
	Kind             models.BibliographyKind `json:"kind" validate:"required,oneof=ARTICLE BOOK VIDEO"`
	DeclaresQuestion bool                    `json:"declares_question"`
	QuestionText     string                  `json:"question_text" validate:"required_if=DeclaresQuestion true"`
}

// ReorderRequest moves a set of sibling items to new sequence slots.
type ReorderRequest struct {
	SchoolID string                `json:"school_id,omitempty"`
	Moves    []models.SequenceMove `json:"moves" validate:"required,min=1,dive"`
}

// BibliographyService manages chapter bibliographies, most importantly the
// atomic sequence reorder.
type BibliographyService struct {
	resolver  tenantResolver
	repo      bibliographyStore
	chapters  chapterReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBibliographyService constructs BibliographyService.
func NewBibliographyService(resolver tenantResolver, repo bibliographyStore, chapters chapterReader, validate *validator.Validate, logger *zap.Logger) *BibliographyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BibliographyService{resolver: resolver, repo: repo, chapters: chapters, validator: validate, logger: logger}
}

// List returns a chapter's live items in sequence order.
func (s *BibliographyService) List(ctx context.Context, actor *models.JWTClaims, schoolID, chapterID string) ([]models.BibliographyItem, error) {
	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadChapter(ctx, handle.DB(), chapterID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListLiveByChapter(ctx, handle.DB(), chapterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bibliography")
	}
	return items, nil
}

// Create appends an item at the end of its chapter's sequence.
func (s *BibliographyService) Create(ctx context.Context, actor *models.JWTClaims, req CreateBibliographyRequest) (*models.BibliographyItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bibliography payload")
	}

	handle, err := s.resolveFor(ctx, actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadChapter(ctx, handle.DB(), req.ChapterID); err != nil {
		return nil, err
	}

	item := &models.BibliographyItem{
		ChapterID:        req.ChapterID,
		Title:            req.Title,
		SourceURL:        req.SourceURL,
		Kind:             req.Kind,
		DeclaresQuestion: req.DeclaresQuestion,
		QuestionText:     req.QuestionText,
	}
	err = handle.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		next, err := s.repo.NextSequence(ctx, tx, req.ChapterID)
		if err != nil {
			return err
		}
		item.Sequence = next
		return s.repo.Create(ctx, tx, item)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bibliography item")
	}
	return item, nil
}

// Delete soft-deletes an item; its sequence slot becomes free for siblings.
func (s *BibliographyService) Delete(ctx context.Context, actor *models.JWTClaims, schoolID, id string) error {
	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, handle.DB(), id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.NotFoundKind("bibliography item")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete bibliography item")
	}
	return nil
}

// Reorder applies a set of sequence moves atomically. Swapping sequences
// naively collides on the unique index, so the writes run in two phases under
// one transaction: targets are first parked on their negatives, which cannot
// collide with any live sibling, then flipped to the requested values.
func (s *BibliographyService) Reorder(ctx context.Context, actor *models.JWTClaims, schoolID, chapterID string, moves []models.SequenceMove) ([]models.BibliographyItem, error) {
	if len(moves) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no moves requested")
	}
	for _, move := range moves {
		if err := s.validator.Struct(move); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sequence move")
		}
	}

	seenItems := make(map[string]struct{}, len(moves))
	seenTargets := make(map[int]struct{}, len(moves))
	for _, move := range moves {
		if _, dup := seenItems[move.ItemID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "item "+move.ItemID+" moved twice")
		}
		seenItems[move.ItemID] = struct{}{}
		if _, dup := seenTargets[move.NewSequence]; dup {
			return nil, appErrors.Clone(appErrors.ErrDuplicateSequence, "sequence "+strconv.Itoa(move.NewSequence)+" targeted twice")
		}
		seenTargets[move.NewSequence] = struct{}{}
	}

	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return nil, err
	}
	db := handle.DB()
	if _, err := s.loadChapter(ctx, db, chapterID); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(moves))
	for _, move := range moves {
		ids = append(ids, move.ItemID)
	}
	items, err := s.repo.FindLiveByIDs(ctx, db, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reorder items")
	}
	byID := make(map[string]models.BibliographyItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	for _, move := range moves {
		item, ok := byID[move.ItemID]
		if !ok {
			return nil, appErrors.NotFoundKind("bibliography item")
		}
		if item.ChapterID != chapterID {
			return nil, appErrors.Clone(appErrors.ErrCrossScopeReorder, "item "+item.ID+" belongs to another chapter")
		}
	}

	err = handle.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		// Phase A: park every moved item on the negative of its target.
		// Untouched siblings are positive, targets are pairwise distinct, so
		// no collision is possible while every target slot is vacated.
		for _, move := range moves {
			if err := s.repo.UpdateSequence(ctx, tx, move.ItemID, -move.NewSequence); err != nil {
				return err
			}
		}
		// Phase B: settle on the requested values.
		for _, move := range moves {
			if err := s.repo.UpdateSequence(ctx, tx, move.ItemID, move.NewSequence); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder bibliography")
	}

	s.logger.Info("bibliography reordered",
		zap.String("school_id", handle.Tenant().SchoolID),
		zap.String("chapter_id", chapterID),
		zap.Int("moves", len(moves)),
	)

	reordered, err := s.repo.ListLiveByChapter(ctx, db, chapterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload bibliography")
	}
	return reordered, nil
}

// Export renders a chapter's bibliography as CSV or PDF.
func (s *BibliographyService) Export(ctx context.Context, actor *models.JWTClaims, schoolID, chapterID, format string) ([]byte, string, error) {
	handle, err := s.resolveFor(ctx, actor, schoolID)
	if err != nil {
		return nil, "", err
	}
	chapter, err := s.loadChapter(ctx, handle.DB(), chapterID)
	if err != nil {
		return nil, "", err
	}
	items, err := s.repo.ListLiveByChapter(ctx, handle.DB(), chapterID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bibliography")
	}

	table := export.Table{
		Title:   chapter.Title,
		Columns: []string{"Sequence", "Title", "Kind", "Source"},
	}
	for _, item := range items {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(item.Sequence), item.Title, string(item.Kind), item.SourceURL,
		})
	}

	switch format {
	case "pdf":
		payload, err := export.NewPDFExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *BibliographyService) loadChapter(ctx context.Context, q sqlx.ExtContext, chapterID string) (*models.Chapter, error) {
	chapter, err := s.chapters.FindChapterByID(ctx, q, chapterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundKind("chapter")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapter")
	}
	return chapter, nil
}

func (s *BibliographyService) resolveFor(ctx context.Context, actor *models.JWTClaims, explicitSchoolID string) (*tenant.Handle, error) {
	schoolID, err := tenant.SchoolForClaims(actor, explicitSchoolID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, schoolID)
}
