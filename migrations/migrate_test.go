package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestFileNames_Sorted(t *testing.T) {
	names, err := fileNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "001_init.sql", names[0])
	require.IsIncreasing(t, names)
}

func TestApply_SkipsAppliedAndRecordsNew(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	names, err := fileNames()
	require.NoError(t, err)

	mock.ExpectExec(`SELECT pg_advisory_lock`).WithArgs(advisoryLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for i, name := range names {
		applied := i > 0
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(applied))
		if applied {
			continue
		}
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs(name).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(advisoryLockID).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Apply(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_LockFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`SELECT pg_advisory_lock`).WillReturnError(errors.New("connection refused"))

	err = Apply(context.Background(), db)
	require.ErrorContains(t, err, "acquire migration lock")
}
