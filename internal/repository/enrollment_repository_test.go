package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/edumesh/edumesh-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository()

	rows := sqlmock.NewRows([]string{"id", "student_id", "module_id", "status", "type", "batch_id", "enrolled_at", "withdrawn_at", "completed_at", "created_at", "updated_at", "deleted_at"}).
		AddRow("enr-1", "stu-1", "mod-1", models.EnrollmentStatusActive, models.EnrollmentTypeIndividual, "batch-1", time.Now(), nil, nil, time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), db, "enr-1")
	require.NoError(t, err)
	require.Equal(t, "stu-1", enrollment.StudentID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsLive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("stu-1", "mod-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsLive(context.Background(), db, "stu-1", "mod-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("stu-2", "mod-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsLive(context.Background(), db, "stu-2", "mod-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository()

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), db, &models.Enrollment{
		StudentID: "stu-1",
		ModuleID:  "mod-1",
		Type:      models.EnrollmentTypeIndividual,
	})
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository()

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentID: "stu-1", ModuleID: "mod-1", Type: models.EnrollmentTypeIndividual}
	err := repo.Create(context.Background(), db, enrollment)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkWithdrawnGuarded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE enrollments SET status").
		WithArgs("enr-1", models.EnrollmentStatusWithdrawn, at, models.EnrollmentStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkWithdrawn(context.Background(), db, "enr-1", at))

	// The guard matched nothing the second time around.
	mock.ExpectExec("UPDATE enrollments SET status").
		WithArgs("enr-1", models.EnrollmentStatusWithdrawn, at, models.EnrollmentStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkWithdrawn(context.Background(), db, "enr-1", at)
	require.True(t, errors.Is(err, ErrNoRowsAffected))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository()

	rows := sqlmock.NewRows([]string{"id", "student_id", "module_id", "status", "type", "batch_id", "enrolled_at", "withdrawn_at", "completed_at", "created_at", "updated_at", "deleted_at"}).
		AddRow("enr-1", "stu-1", "mod-1", models.EnrollmentStatusActive, models.EnrollmentTypeIndividual, "batch-1", time.Now(), nil, nil, time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("batch_id = $1")).
		WithArgs("batch-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), db, models.EnrollmentFilter{BatchID: "batch-1"})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
