package services

import (
	"context"
	"fmt"

	"github.com/kegtrack/bracket-engine/repositories"
)

// ConsumptionCoordinator applies and reverts the per-player consumption
// booked when a match starts. It knows nothing about matches or teams
// beyond the ids it is handed; idempotence against double application is
// guaranteed by the match state machine's single PENDING-to-RUNNING
// transition, not here.
type ConsumptionCoordinator struct {
	ledger repositories.ConsumptionLedgerRepository
}

func NewConsumptionCoordinator(ledger repositories.ConsumptionLedgerRepository) *ConsumptionCoordinator {
	return &ConsumptionCoordinator{ledger: ledger}
}

// Apply increments each participant's counter by quantity, tagged with
// the match-start batch id. Must run inside the same transaction as the
// match status change.
func (c *ConsumptionCoordinator) Apply(ctx context.Context, exec repositories.SQLExecutor, batchID string, matchID int, participantIDs []int, quantity int) error {
	for _, pid := range participantIDs {
		if err := c.ledger.Increment(ctx, exec, pid, matchID, batchID, quantity); err != nil {
			return fmt.Errorf("failed to book consumption for participant %d: %w", pid, err)
		}
	}
	return nil
}

// Revert decrements the same counters by the same quantity. Only called
// when the tournament's cancellation policy is REMOVE.
func (c *ConsumptionCoordinator) Revert(ctx context.Context, exec repositories.SQLExecutor, batchID string, matchID int, participantIDs []int, quantity int) error {
	for _, pid := range participantIDs {
		if err := c.ledger.Decrement(ctx, exec, pid, matchID, batchID, quantity); err != nil {
			return fmt.Errorf("failed to revert consumption for participant %d: %w", pid, err)
		}
	}
	return nil
}
