package models

import "time"

// Team is a pair of participants competing together in one tournament.
// Participant ids point into the event-wide participant directory.
type Team struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	Name         string `json:"name" db:"name"`
	PlayerAID    int    `json:"player_a_id" db:"player_a_id"`
	PlayerBID    int    `json:"player_b_id" db:"player_b_id"`

	CrestKey *string `json:"-" db:"crest_key"`
	CrestURL *string `json:"crest_url,omitempty" db:"-"`

	// Display names resolved through the participant directory.
	PlayerAName *string `json:"player_a_name,omitempty" db:"-"`
	PlayerBName *string `json:"player_b_name,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PlayerIDs returns both participant ids of the pair.
func (t *Team) PlayerIDs() []int {
	return []int{t.PlayerAID, t.PlayerBID}
}

// HasPlayer reports whether participantID is one of the pair.
func (t *Team) HasPlayer(participantID int) bool {
	return t.PlayerAID == participantID || t.PlayerBID == participantID
}
