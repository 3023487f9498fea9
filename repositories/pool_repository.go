package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kegtrack/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrPoolTeamNotFound     = errors.New("pool team not found")
	ErrPoolTeamNameConflict = errors.New("pool team name is already in use")
)

// PoolTeamRepository reads the event-wide team catalog that tournaments
// promote pairs from.
type PoolTeamRepository interface {
	Create(ctx context.Context, poolTeam *models.PoolTeam) error
	GetByID(ctx context.Context, id int) (*models.PoolTeam, error)
	List(ctx context.Context) ([]models.PoolTeam, error)
}

type postgresPoolTeamRepository struct {
	db *sql.DB
}

func NewPostgresPoolTeamRepository(db *sql.DB) PoolTeamRepository {
	return &postgresPoolTeamRepository{db: db}
}

func (r *postgresPoolTeamRepository) Create(ctx context.Context, poolTeam *models.PoolTeam) error {
	query := `
		INSERT INTO pool_teams (name, player_a_id, player_b_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		poolTeam.Name, poolTeam.PlayerAID, poolTeam.PlayerBID,
	).Scan(&poolTeam.ID, &poolTeam.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrPoolTeamNameConflict
	}
	return err
}

func (r *postgresPoolTeamRepository) GetByID(ctx context.Context, id int) (*models.PoolTeam, error) {
	query := `
		SELECT id, name, player_a_id, player_b_id, created_at
		FROM pool_teams
		WHERE id = $1`

	poolTeam := &models.PoolTeam{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&poolTeam.ID, &poolTeam.Name, &poolTeam.PlayerAID, &poolTeam.PlayerBID, &poolTeam.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolTeamNotFound
		}
		return nil, err
	}
	return poolTeam, nil
}

func (r *postgresPoolTeamRepository) List(ctx context.Context) ([]models.PoolTeam, error) {
	query := `
		SELECT id, name, player_a_id, player_b_id, created_at
		FROM pool_teams
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	poolTeams := make([]models.PoolTeam, 0)
	for rows.Next() {
		var pt models.PoolTeam
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.PlayerAID, &pt.PlayerBID, &pt.CreatedAt); err != nil {
			return nil, err
		}
		poolTeams = append(poolTeams, pt)
	}
	return poolTeams, rows.Err()
}
