package models

import "time"

// ConsumptionEntry is one signed booking against a participant's
// consumption counter. Units are positive when a match starts and
// negative when a start is undone under policy REMOVE. BatchID groups
// the entries produced by a single match-start event.
type ConsumptionEntry struct {
	ID            int       `json:"id" db:"id"`
	ParticipantID int       `json:"participant_id" db:"participant_id"`
	MatchID       int       `json:"match_id" db:"match_id"`
	BatchID       string    `json:"batch_id" db:"batch_id"`
	Units         int       `json:"units" db:"units"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
