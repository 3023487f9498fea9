package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// ParticipantDirectory resolves participant ids to display names. The
// directory belongs to the surrounding admin tool; the engine uses it for
// presentation only and never validates against it.
type ParticipantDirectory interface {
	DisplayNames(ctx context.Context, participantIDs []int) (map[int]string, error)
}

type postgresParticipantDirectory struct {
	db *sql.DB
}

func NewPostgresParticipantDirectory(db *sql.DB) ParticipantDirectory {
	return &postgresParticipantDirectory{db: db}
}

func (r *postgresParticipantDirectory) DisplayNames(ctx context.Context, participantIDs []int) (map[int]string, error) {
	names := make(map[int]string, len(participantIDs))
	if len(participantIDs) == 0 {
		return names, nil
	}

	query := `
		SELECT id, display_name
		FROM participants
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(participantIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
