package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
	"github.com/edumesh/edumesh-api/internal/repository"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

type sequenceWrite struct {
	itemID   string
	sequence int
}

type fakeBibliographyStore struct {
	items     map[string]models.BibliographyItem
	writes    []sequenceWrite
	deleteErr error
}

func (f *fakeBibliographyStore) ListLiveByChapter(ctx context.Context, q sqlx.ExtContext, chapterID string) ([]models.BibliographyItem, error) {
	var list []models.BibliographyItem
	for _, item := range f.items {
		if item.ChapterID == chapterID {
			list = append(list, item)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	return list, nil
}

func (f *fakeBibliographyStore) FindLiveByIDs(ctx context.Context, q sqlx.ExtContext, ids []string) ([]models.BibliographyItem, error) {
	var list []models.BibliographyItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			list = append(list, item)
		}
	}
	return list, nil
}

func (f *fakeBibliographyStore) NextSequence(ctx context.Context, q sqlx.ExtContext, chapterID string) (int, error) {
	next := 1
	for _, item := range f.items {
		if item.ChapterID == chapterID && item.Sequence >= next {
			next = item.Sequence + 1
		}
	}
	return next, nil
}

func (f *fakeBibliographyStore) Create(ctx context.Context, q sqlx.ExtContext, item *models.BibliographyItem) error {
	if item.ID == "" {
		item.ID = "bib-new"
	}
	if f.items == nil {
		f.items = make(map[string]models.BibliographyItem)
	}
	f.items[item.ID] = *item
	return nil
}

func (f *fakeBibliographyStore) UpdateSequence(ctx context.Context, q sqlx.ExtContext, id string, sequence int) error {
	item, ok := f.items[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	item.Sequence = sequence
	f.items[id] = item
	f.writes = append(f.writes, sequenceWrite{itemID: id, sequence: sequence})
	return nil
}

func (f *fakeBibliographyStore) SoftDelete(ctx context.Context, q sqlx.ExtContext, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return repository.ErrNoRowsAffected
	}
	delete(f.items, id)
	return nil
}

type fakeChapterReader struct {
	chapters map[string]*models.Chapter
}

func (f *fakeChapterReader) FindChapterByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Chapter, error) {
	if c, ok := f.chapters[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func bibliographyFixture(t *testing.T) (*BibliographyService, *fakeBibliographyStore, sqlmock.Sqlmock) {
	t.Helper()
	handle, mock := newTestHandle(t)
	repo := &fakeBibliographyStore{items: map[string]models.BibliographyItem{
		"a": {ID: "a", ChapterID: "ch1", Title: "Sets", Kind: models.BibliographyKindArticle, Sequence: 1},
		"b": {ID: "b", ChapterID: "ch1", Title: "Logic", Kind: models.BibliographyKindBook, Sequence: 2},
		"c": {ID: "c", ChapterID: "ch1", Title: "Proofs", Kind: models.BibliographyKindVideo, Sequence: 3},
		"x": {ID: "x", ChapterID: "ch2", Title: "Other", Kind: models.BibliographyKindArticle, Sequence: 1},
	}}
	chapters := &fakeChapterReader{chapters: map[string]*models.Chapter{
		"ch1": {ID: "ch1", ModuleID: "m1", Title: "Foundations"},
		"ch2": {ID: "ch2", ModuleID: "m1", Title: "Applications"},
	}}
	svc := NewBibliographyService(&fakeResolver{handle: handle}, repo, chapters, nil, zap.NewNop())
	return svc, repo, mock
}

func TestReorderRotation(t *testing.T) {
	svc, repo, mock := bibliographyFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	moves := []models.SequenceMove{
		{ItemID: "a", NewSequence: 3},
		{ItemID: "b", NewSequence: 1},
		{ItemID: "c", NewSequence: 2},
	}
	items, err := svc.Reorder(context.Background(), adminClaims(), "", "ch1", moves)
	require.NoError(t, err)

	// Phase A parks each item on its negative target before any positive write.
	require.Len(t, repo.writes, 6)
	assert.Equal(t, []sequenceWrite{
		{itemID: "a", sequence: -3},
		{itemID: "b", sequence: -1},
		{itemID: "c", sequence: -2},
		{itemID: "a", sequence: 3},
		{itemID: "b", sequence: 1},
		{itemID: "c", sequence: 2},
	}, repo.writes)

	require.Len(t, items, 3)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
	assert.Equal(t, "a", items[2].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReorderDuplicateTargetRejected(t *testing.T) {
	svc, repo, _ := bibliographyFixture(t)

	_, err := svc.Reorder(context.Background(), adminClaims(), "", "ch1", []models.SequenceMove{
		{ItemID: "a", NewSequence: 2},
		{ItemID: "b", NewSequence: 2},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateSequence.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.writes)
}

func TestReorderDuplicateItemRejected(t *testing.T) {
	svc, repo, _ := bibliographyFixture(t)

	_, err := svc.Reorder(context.Background(), adminClaims(), "", "ch1", []models.SequenceMove{
		{ItemID: "a", NewSequence: 2},
		{ItemID: "a", NewSequence: 3},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.writes)
}

func TestReorderCrossChapterRejected(t *testing.T) {
	svc, repo, _ := bibliographyFixture(t)

	_, err := svc.Reorder(context.Background(), adminClaims(), "", "ch1", []models.SequenceMove{
		{ItemID: "a", NewSequence: 2},
		{ItemID: "x", NewSequence: 1},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCrossScopeReorder.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.writes)
}

func TestReorderUnknownItemRejected(t *testing.T) {
	svc, repo, _ := bibliographyFixture(t)

	_, err := svc.Reorder(context.Background(), adminClaims(), "", "ch1", []models.SequenceMove{
		{ItemID: "ghost", NewSequence: 1},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.writes)
}

func TestReorderEmptyMoves(t *testing.T) {
	svc, _, _ := bibliographyFixture(t)

	_, err := svc.Reorder(context.Background(), adminClaims(), "", "ch1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateAppendsAtEnd(t *testing.T) {
	svc, repo, mock := bibliographyFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	item, err := svc.Create(context.Background(), adminClaims(), CreateBibliographyRequest{
		ChapterID: "ch1",
		Title:     "Relations",
		Kind:      models.BibliographyKindArticle,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, item.Sequence)
	assert.Contains(t, repo.items, item.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateQuestionRequiresText(t *testing.T) {
	svc, _, _ := bibliographyFixture(t)

	_, err := svc.Create(context.Background(), adminClaims(), CreateBibliographyRequest{
		ChapterID:        "ch1",
		Title:            "Quiz Source",
		Kind:             models.BibliographyKindArticle,
		DeclaresQuestion: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDeleteMissingItem(t *testing.T) {
	svc, _, _ := bibliographyFixture(t)

	err := svc.Delete(context.Background(), adminClaims(), "", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportCSV(t *testing.T) {
	svc, _, _ := bibliographyFixture(t)

	payload, contentType, err := svc.Export(context.Background(), adminClaims(), "", "ch1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "Sets")
	assert.Contains(t, string(payload), "Proofs")
}

func TestExportUnknownFormat(t *testing.T) {
	svc, _, _ := bibliographyFixture(t)

	_, _, err := svc.Export(context.Background(), adminClaims(), "", "ch1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
