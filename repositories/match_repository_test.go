package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kegtrack/bracket-engine/brackets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSlotVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE matches").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewPostgresMatchRepository(db)
	err = repo.UpdateSlot(context.Background(), nil, 7, 3, brackets.SlotA, 12)
	assert.ErrorIs(t, err, ErrMatchVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSlotRowDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Zero rows with the row gone entirely is a missing match, not a
	// retryable version conflict.
	mock.ExpectExec("UPDATE matches").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := NewPostgresMatchRepository(db)
	err = repo.UpdateSlot(context.Background(), nil, 7, 3, brackets.SlotA, 12)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.NotErrorIs(t, err, ErrMatchVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStartedSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE matches").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresMatchRepository(db)
	err = repo.UpdateStarted(context.Background(), nil, 7, 3, time.Now(), "batch-id")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDecidedRowDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE matches").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := NewPostgresMatchRepository(db)
	err = repo.UpdateDecided(context.Background(), nil, 9, 2, 4, time.Now())
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
