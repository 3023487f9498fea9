package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kegtrack/bracket-engine/brackets"
	"github.com/kegtrack/bracket-engine/models"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchVersionConflict = errors.New("match was modified concurrently")
)

// MatchRepository mutates matches in place. Every state-changing update is
// guarded by the optimistic version column; a zero-row update on an
// existing match resolves to ErrMatchVersionConflict.
type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByPosition(ctx context.Context, exec SQLExecutor, tournamentID int, round models.Round, index int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error)
	UpdateSlot(ctx context.Context, exec SQLExecutor, id, version int, slot brackets.Slot, teamID int) error
	UpdateStarted(ctx context.Context, exec SQLExecutor, id, version int, startedAt time.Time, batchID string) error
	UpdateStartUndone(ctx context.Context, exec SQLExecutor, id, version int) error
	UpdateDecided(ctx context.Context, exec SQLExecutor, id, version, winnerTeamID int, decidedAt time.Time) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, bracket_index, slot_a_team_id, slot_b_team_id,
	status, winner_team_id, started_at, decided_at, consumption_batch_id, version, created_at`

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, round, bracket_index, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at`

	executor := r.getExecutor(exec)
	for _, m := range matches {
		err := executor.QueryRowContext(ctx, query,
			m.TournamentID, m.Round, m.BracketIndex, m.Status,
		).Scan(&m.ID, &m.Version, &m.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanMatch(scan func(dest ...interface{}) error) (*models.Match, error) {
	m := &models.Match{}
	err := scan(
		&m.ID, &m.TournamentID, &m.Round, &m.BracketIndex,
		&m.SlotATeamID, &m.SlotBTeamID, &m.Status, &m.WinnerTeamID,
		&m.StartedAt, &m.DecidedAt, &m.ConsumptionBatchID, &m.Version, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan)
}

func (r *postgresMatchRepository) GetByPosition(ctx context.Context, exec SQLExecutor, tournamentID int, round models.Round, index int) (*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND round = $2 AND bracket_index = $3`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, round, index).Scan)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY CASE round
			WHEN 'ROUND1' THEN 1
			WHEN 'ROUND2' THEN 2
			ELSE 3
		END, bracket_index ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0, brackets.TotalMatches)
	for rows.Next() {
		m, err := scanMatch(rows.Scan)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// versionedUpdate runs a version-guarded UPDATE. Zero rows affected means
// either a concurrent writer bumped the version or the row is gone
// entirely (tournament cascade-deleted mid-operation); the two are told
// apart with an existence re-read so only the former reports as a
// retryable conflict.
func (r *postgresMatchRepository) versionedUpdate(ctx context.Context, exec SQLExecutor, id int, query string, args ...interface{}) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		var exists bool
		err := executor.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, id,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrMatchNotFound
		}
		return ErrMatchVersionConflict
	}
	return nil
}

func (r *postgresMatchRepository) UpdateSlot(ctx context.Context, exec SQLExecutor, id, version int, slot brackets.Slot, teamID int) error {
	column := "slot_a_team_id"
	if slot == brackets.SlotB {
		column = "slot_b_team_id"
	}
	query := `
		UPDATE matches
		SET ` + column + ` = $1, version = version + 1
		WHERE id = $2 AND version = $3`
	return r.versionedUpdate(ctx, exec, id, query, teamID, id, version)
}

func (r *postgresMatchRepository) UpdateStarted(ctx context.Context, exec SQLExecutor, id, version int, startedAt time.Time, batchID string) error {
	query := `
		UPDATE matches
		SET status = $1, started_at = $2, consumption_batch_id = $3, version = version + 1
		WHERE id = $4 AND version = $5`
	return r.versionedUpdate(ctx, exec, id, query, models.MatchRunning, startedAt, batchID, id, version)
}

func (r *postgresMatchRepository) UpdateStartUndone(ctx context.Context, exec SQLExecutor, id, version int) error {
	query := `
		UPDATE matches
		SET status = $1, started_at = NULL, consumption_batch_id = NULL, version = version + 1
		WHERE id = $2 AND version = $3`
	return r.versionedUpdate(ctx, exec, id, query, models.MatchPending, id, version)
}

func (r *postgresMatchRepository) UpdateDecided(ctx context.Context, exec SQLExecutor, id, version, winnerTeamID int, decidedAt time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, winner_team_id = $2, decided_at = $3, version = version + 1
		WHERE id = $4 AND version = $5`
	return r.versionedUpdate(ctx, exec, id, query, models.MatchDecided, winnerTeamID, decidedAt, id, version)
}
