package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "DRAFT"
	TournamentActive    TournamentStatus = "ACTIVE"
	TournamentCompleted TournamentStatus = "COMPLETED"
)

// CancellationPolicy controls whether undoing a match start also reverts
// the consumption already booked for its players.
type CancellationPolicy string

const (
	CancellationKeep   CancellationPolicy = "KEEP"
	CancellationRemove CancellationPolicy = "REMOVE"
)

type Tournament struct {
	ID     int              `json:"id" db:"id"`
	Name   string           `json:"name" db:"name"`
	Status TournamentStatus `json:"status" db:"status"`

	QuantityPerPlayer  int                `json:"quantity_per_player" db:"quantity_per_player"`
	TimeWindowMinutes  int                `json:"time_window_minutes" db:"time_window_minutes"`
	UndoWindowMinutes  int                `json:"undo_window_minutes" db:"undo_window_minutes"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy" db:"cancellation_policy"`
	UnitSizeCl         int                `json:"unit_size_cl" db:"unit_size_cl"`

	Version   int       `json:"-" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Loaded on demand, not mapped directly.
	Teams   []Team  `json:"teams,omitempty" db:"-"`
	Matches []Match `json:"matches,omitempty" db:"-"`
}
