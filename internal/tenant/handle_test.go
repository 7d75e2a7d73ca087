package tenant

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

func newHandleMock(t *testing.T) (*Handle, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	handle := NewHandle(Context{SchoolID: "sch-1", DBName: "tenant_sch_1"}, sqlx.NewDb(db, "sqlmock"))
	return handle, mock, func() { db.Close() }
}

func TestWithinTxCommits(t *testing.T) {
	handle, mock, cleanup := newHandleMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := handle.WithinTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		_, execErr := tx.ExecContext(ctx, "INSERT INTO enrollments (id) VALUES ($1)", "e1")
		return execErr
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	handle, mock, cleanup := newHandleMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := handle.WithinTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	handle, mock, cleanup := newHandleMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = handle.WithinTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
			panic("unexpected")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRejectsNesting(t *testing.T) {
	handle, mock, cleanup := newHandleMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := handle.WithinTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return handle.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
			return nil
		})
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
