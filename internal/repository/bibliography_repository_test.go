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

func bibliographyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "chapter_id", "title", "source_url", "kind", "sequence", "declares_question", "question_text", "created_at", "updated_at", "deleted_at"})
}

func TestBibliographyRepositoryListLiveByChapter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBibliographyRepository()

	rows := bibliographyRows().
		AddRow("bib-1", "ch-1", "Sets", "https://example.com/sets", models.BibliographyKindArticle, 1, false, "", time.Now(), time.Now(), nil).
		AddRow("bib-2", "ch-1", "Logic", "", models.BibliographyKindBook, 2, true, "Why?", time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE chapter_id = $1 AND deleted_at IS NULL ORDER BY sequence")).
		WithArgs("ch-1").
		WillReturnRows(rows)

	items, err := repo.ListLiveByChapter(context.Background(), db, "ch-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 1, items[0].Sequence)
	require.True(t, items[1].DeclaresQuestion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBibliographyRepositoryFindLiveByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBibliographyRepository()

	rows := bibliographyRows().
		AddRow("bib-1", "ch-1", "Sets", "", models.BibliographyKindArticle, 1, false, "", time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id IN ($1,$2) AND deleted_at IS NULL")).
		WithArgs("bib-1", "bib-missing").
		WillReturnRows(rows)

	items, err := repo.FindLiveByIDs(context.Background(), db, []string{"bib-1", "bib-missing"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBibliographyRepositoryFindLiveByIDsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBibliographyRepository()

	items, err := repo.FindLiveByIDs(context.Background(), db, nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestBibliographyRepositoryNextSequence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBibliographyRepository()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence), 0) + 1 FROM bibliography_items")).
		WithArgs("ch-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))

	next, err := repo.NextSequence(context.Background(), db, "ch-1")
	require.NoError(t, err)
	require.Equal(t, 4, next)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBibliographyRepositoryUpdateSequenceNegative(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBibliographyRepository()

	mock.ExpectExec("UPDATE bibliography_items SET sequence").
		WithArgs("bib-1", -3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSequence(context.Background(), db, "bib-1", -3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBibliographyRepositorySoftDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBibliographyRepository()

	mock.ExpectExec("UPDATE bibliography_items SET deleted_at").
		WithArgs("bib-missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), db, "bib-missing")
	require.ErrorIs(t, err, ErrNoRowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}
