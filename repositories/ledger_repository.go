package repositories

import (
	"context"
	"database/sql"
)

// ConsumptionLedgerRepository is the narrow port into the externally-owned
// consumption ledger. The engine only ever increments or decrements a
// participant's counter; it never reads or interprets ledger state.
type ConsumptionLedgerRepository interface {
	Increment(ctx context.Context, exec SQLExecutor, participantID, matchID int, batchID string, units int) error
	Decrement(ctx context.Context, exec SQLExecutor, participantID, matchID int, batchID string, units int) error
}

type postgresConsumptionLedgerRepository struct {
	db *sql.DB
}

func NewPostgresConsumptionLedgerRepository(db *sql.DB) ConsumptionLedgerRepository {
	return &postgresConsumptionLedgerRepository{db: db}
}

func (r *postgresConsumptionLedgerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresConsumptionLedgerRepository) book(ctx context.Context, exec SQLExecutor, participantID, matchID int, batchID string, units int) error {
	query := `
		INSERT INTO consumption_entries (participant_id, match_id, batch_id, units)
		VALUES ($1, $2, $3, $4)`
	_, err := r.getExecutor(exec).ExecContext(ctx, query, participantID, matchID, batchID, units)
	return err
}

func (r *postgresConsumptionLedgerRepository) Increment(ctx context.Context, exec SQLExecutor, participantID, matchID int, batchID string, units int) error {
	return r.book(ctx, exec, participantID, matchID, batchID, units)
}

func (r *postgresConsumptionLedgerRepository) Decrement(ctx context.Context, exec SQLExecutor, participantID, matchID int, batchID string, units int) error {
	return r.book(ctx, exec, participantID, matchID, batchID, -units)
}
