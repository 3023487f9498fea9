package models

import "time"

// PoolTeam is an entry in the event-wide team catalog. Pairs registered
// there once can be promoted into any tournament without re-entering the
// players.
type PoolTeam struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PlayerAID int       `json:"player_a_id" db:"player_a_id"`
	PlayerBID int       `json:"player_b_id" db:"player_b_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
