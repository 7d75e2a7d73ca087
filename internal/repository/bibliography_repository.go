package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumesh/edumesh-api/internal/models"
)

// BibliographyRepository persists bibliography items of a tenant database.
type BibliographyRepository struct{}

// NewBibliographyRepository constructs the repository.
func NewBibliographyRepository() *BibliographyRepository {
	return &BibliographyRepository{}
}

const bibliographyColumns = `id, chapter_id, title, source_url, kind, sequence,
        declares_question, question_text, created_at, updated_at, deleted_at`

// ListLiveByChapter returns the live items of one chapter in sequence order.
func (r *BibliographyRepository) ListLiveByChapter(ctx context.Context, q sqlx.ExtContext, chapterID string) ([]models.BibliographyItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM bibliography_items
        WHERE chapter_id = $1 AND deleted_at IS NULL ORDER BY sequence`, bibliographyColumns)
	var items []models.BibliographyItem
	if err := sqlx.SelectContext(ctx, q, &items, query, chapterID); err != nil {
		return nil, fmt.Errorf("list bibliography items: %w", err)
	}
	return items, nil
}

// FindLiveByID returns one non-deleted item.
func (r *BibliographyRepository) FindLiveByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.BibliographyItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM bibliography_items
        WHERE id = $1 AND deleted_at IS NULL`, bibliographyColumns)
	var item models.BibliographyItem
	if err := sqlx.GetContext(ctx, q, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindLiveByIDs returns the live items matching the given IDs, in no
// particular order. Missing or soft-deleted IDs are simply absent.
func (r *BibliographyRepository) FindLiveByIDs(ctx context.Context, q sqlx.ExtContext, ids []string) ([]models.BibliographyItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM bibliography_items
        WHERE id IN (%s) AND deleted_at IS NULL`, bibliographyColumns, strings.Join(placeholders, ","))
	var items []models.BibliographyItem
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("find bibliography items: %w", err)
	}
	return items, nil
}

// NextSequence returns the next free sequence slot in a chapter.
func (r *BibliographyRepository) NextSequence(ctx context.Context, q sqlx.ExtContext, chapterID string) (int, error) {
	const query = `SELECT COALESCE(MAX(sequence), 0) + 1 FROM bibliography_items
        WHERE chapter_id = $1 AND deleted_at IS NULL`
	var next int
	if err := sqlx.GetContext(ctx, q, &next, query, chapterID); err != nil {
		return 0, fmt.Errorf("next bibliography sequence: %w", err)
	}
	return next, nil
}

// Create persists a new item.
func (r *BibliographyRepository) Create(ctx context.Context, q sqlx.ExtContext, item *models.BibliographyItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	const query = `INSERT INTO bibliography_items
        (id, chapter_id, title, source_url, kind, sequence, declares_question, question_text, created_at, updated_at)
        VALUES (:id, :chapter_id, :title, :source_url, :kind, :sequence, :declares_question, :question_text, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, item); err != nil {
		return fmt.Errorf("create bibliography item: %w", err)
	}
	return nil
}

// UpdateSequence moves one item to a sequence slot. The reorder engine calls
// this twice per item: once with the negated target, once with the target.
func (r *BibliographyRepository) UpdateSequence(ctx context.Context, q sqlx.ExtContext, id string, sequence int) error {
	const query = `UPDATE bibliography_items SET sequence = $2, updated_at = $3
        WHERE id = $1 AND deleted_at IS NULL`
	if _, err := q.ExecContext(ctx, query, id, sequence, time.Now().UTC()); err != nil {
		return fmt.Errorf("update bibliography sequence: %w", err)
	}
	return nil
}

// SoftDelete marks an item deleted, freeing its sequence slot for live siblings.
func (r *BibliographyRepository) SoftDelete(ctx context.Context, q sqlx.ExtContext, id string) error {
	const query = `UPDATE bibliography_items SET deleted_at = $2, updated_at = $2
        WHERE id = $1 AND deleted_at IS NULL`
	res, err := q.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete bibliography item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
