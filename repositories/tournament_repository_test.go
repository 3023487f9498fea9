package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kegtrack/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBumpVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tournaments").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewPostgresTournamentRepository(db)
	err = repo.BumpVersion(context.Background(), nil, 3, 5)
	assert.ErrorIs(t, err, ErrTournamentVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBumpVersionRowDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tournaments").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := NewPostgresTournamentRepository(db)
	err = repo.BumpVersion(context.Background(), nil, 3, 5)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tournaments").
		WithArgs(models.TournamentActive, 3, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresTournamentRepository(db)
	err = repo.UpdateStatus(context.Background(), nil, 3, 5, models.TournamentActive)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
