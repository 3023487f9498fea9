package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kegtrack/bracket-engine/models"
	"github.com/kegtrack/bracket-engine/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLedgerDown = errors.New("ledger unavailable")

// faultyLedger delegates to the in-memory ledger but fails the n-th
// increment or decrement, mimicking a mid-transaction booking failure.
type faultyLedger struct {
	*fakeLedger
	failIncrementOn int
	failDecrementOn int
	increments      int
	decrements      int
}

func (l *faultyLedger) Increment(ctx context.Context, exec repositories.SQLExecutor, participantID, matchID int, batchID string, units int) error {
	l.increments++
	if l.increments == l.failIncrementOn {
		return errLedgerDown
	}
	return l.fakeLedger.Increment(ctx, exec, participantID, matchID, batchID, units)
}

func (l *faultyLedger) Decrement(ctx context.Context, exec repositories.SQLExecutor, participantID, matchID int, batchID string, units int) error {
	l.decrements++
	if l.decrements == l.failDecrementOn {
		return errLedgerDown
	}
	return l.fakeLedger.Decrement(ctx, exec, participantID, matchID, batchID, units)
}

func TestStartRollsBackWhenBookingFails(t *testing.T) {
	e := newEngine()
	tournament, teams := seedActiveTournament(t, e, models.CancellationRemove, 2, 5)
	ctx := context.Background()

	// The third of the four bookings fails; the first two must not stick
	// and the match must not become RUNNING.
	e.matches.coordinator = NewConsumptionCoordinator(&faultyLedger{
		fakeLedger:      e.ledger,
		failIncrementOn: 3,
	})

	m := roundMatches(t, e, tournament.ID, models.RoundOne)[0]
	_, err := e.matches.Start(ctx, m.ID)
	require.ErrorIs(t, err, errLedgerDown)

	reloaded, err := e.matchRepo.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPending, reloaded.Status)
	assert.Nil(t, reloaded.StartedAt)
	assert.Nil(t, reloaded.ConsumptionBatchID)

	assert.Equal(t, 0, e.ledger.entryCount())
	assert.Equal(t, 0, e.ledger.total(teams[0].PlayerAID))
	assert.Equal(t, 0, e.ledger.total(teams[0].PlayerBID))
}

func TestUndoStartRollsBackWhenRevertFails(t *testing.T) {
	e := newEngine()
	now := time.Now()
	e.setClock(&now)
	tournament, teams := seedActiveTournament(t, e, models.CancellationRemove, 2, 5)
	ctx := context.Background()

	faulty := &faultyLedger{
		fakeLedger:      e.ledger,
		failDecrementOn: 2,
	}
	e.matches.coordinator = NewConsumptionCoordinator(faulty)

	m := roundMatches(t, e, tournament.ID, models.RoundOne)[0]
	started, err := e.matches.Start(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 4, e.ledger.entryCount())

	_, err = e.matches.UndoStart(ctx, m.ID)
	require.ErrorIs(t, err, errLedgerDown)

	// The match stays RUNNING with its original bookkeeping and the full
	// consumption still booked; the lone committed decrement is rolled
	// back with it.
	reloaded, err := e.matchRepo.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchRunning, reloaded.Status)
	require.NotNil(t, reloaded.StartedAt)
	require.NotNil(t, reloaded.ConsumptionBatchID)
	assert.Equal(t, *started.ConsumptionBatchID, *reloaded.ConsumptionBatchID)

	assert.Equal(t, 4, e.ledger.entryCount())
	assert.Equal(t, 2, e.ledger.total(teams[0].PlayerAID))
	assert.Equal(t, 2, e.ledger.total(teams[1].PlayerBID))

	// Once the ledger recovers the undo goes through cleanly.
	_, err = e.matches.UndoStart(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, e.ledger.total(teams[0].PlayerAID))
}