package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kegtrack/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentNameConflict    = errors.New("tournament name already exists")
	ErrTournamentVersionConflict = errors.New("tournament was modified concurrently")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, limit, offset int) ([]models.Tournament, error)
	// UpdateStatus is guarded by the optimistic version; zero rows affected
	// with an existing row resolves to ErrTournamentVersionConflict.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id, version int, status models.TournamentStatus) error
	// BumpVersion advances the optimistic version without any other change.
	// Tournament-scoped mutations (team inserts and removals, slot
	// assignments) call it inside their transaction so that writes touching
	// different rows of the same tournament still serialize on the
	// tournament row.
	BumpVersion(ctx context.Context, exec SQLExecutor, id, version int) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, status, quantity_per_player, time_window_minutes,
	undo_window_minutes, cancellation_policy, unit_size_cl, version, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, status, quantity_per_player, time_window_minutes,
			undo_window_minutes, cancellation_policy, unit_size_cl
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		t.Name, t.Status, t.QuantityPerPlayer, t.TimeWindowMinutes,
		t.UndoWindowMinutes, t.CancellationPolicy, t.UnitSizeCl,
	).Scan(&t.ID, &t.Version, &t.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrTournamentNameConflict
	}
	return err
}

func scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Status, &t.QuantityPerPlayer, &t.TimeWindowMinutes,
		&t.UndoWindowMinutes, &t.CancellationPolicy, &t.UnitSizeCl, &t.Version, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return scanTournament(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, limit, offset int) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Status, &t.QuantityPerPlayer, &t.TimeWindowMinutes,
			&t.UndoWindowMinutes, &t.CancellationPolicy, &t.UnitSizeCl, &t.Version, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id, version int, status models.TournamentStatus) error {
	query := `
		UPDATE tournaments
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3`
	return r.versionedUpdate(ctx, exec, id, query, status, id, version)
}

func (r *postgresTournamentRepository) BumpVersion(ctx context.Context, exec SQLExecutor, id, version int) error {
	query := `
		UPDATE tournaments
		SET version = version + 1
		WHERE id = $1 AND version = $2`
	return r.versionedUpdate(ctx, exec, id, query, id, version)
}

// versionedUpdate runs a version-guarded UPDATE. Zero rows affected means
// either a concurrent writer bumped the version or the row is gone
// entirely; the two are told apart with an existence re-read.
func (r *postgresTournamentRepository) versionedUpdate(ctx context.Context, exec SQLExecutor, id int, query string, args ...interface{}) error {
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
			`SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = $1)`, id,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrTournamentNotFound
		}
		return ErrTournamentVersionConflict
	}
	return nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTournamentNotFound
	}
	return nil
}
