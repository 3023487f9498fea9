package models

import "time"

// Round is the bracket tier a match belongs to. The bracket is fixed at
// eight teams, so there are exactly three rounds.
type Round string

const (
	RoundOne   Round = "ROUND1"
	RoundTwo   Round = "ROUND2"
	RoundFinal Round = "FINAL"
)

type MatchStatus string

const (
	// MatchPending covers both "slots incomplete" and "slots complete but
	// not started"; a match only leaves it through Start.
	MatchPending MatchStatus = "PENDING"
	MatchRunning MatchStatus = "RUNNING"
	MatchDecided MatchStatus = "DECIDED"
)

// Match is one node of the bracket tree. Slots hold team ids, never team
// objects, so the aggregate stays cycle-free.
type Match struct {
	ID           int   `json:"id" db:"id"`
	TournamentID int   `json:"tournament_id" db:"tournament_id"`
	Round        Round `json:"round" db:"round"`
	// BracketIndex numbers matches within a round, left to right:
	// 0..3 for ROUND1, 0..1 for ROUND2, 0 for the FINAL.
	BracketIndex int `json:"bracket_index" db:"bracket_index"`

	SlotATeamID *int `json:"slot_a_team_id,omitempty" db:"slot_a_team_id"`
	SlotBTeamID *int `json:"slot_b_team_id,omitempty" db:"slot_b_team_id"`

	Status       MatchStatus `json:"status" db:"status"`
	WinnerTeamID *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty" db:"decided_at"`

	// ConsumptionBatchID ties the match start to the ledger entries it
	// produced, so an undo under policy REMOVE reverts exactly those.
	ConsumptionBatchID *string `json:"-" db:"consumption_batch_id"`

	Version   int       `json:"-" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SlotTeams returns the two slot values in A, B order.
func (m *Match) SlotTeams() (a, b *int) {
	return m.SlotATeamID, m.SlotBTeamID
}

// HasBothSlots reports whether the match is ready to be started.
func (m *Match) HasBothSlots() bool {
	return m.SlotATeamID != nil && m.SlotBTeamID != nil
}

// HoldsTeam reports whether teamID occupies either slot.
func (m *Match) HoldsTeam(teamID int) bool {
	return (m.SlotATeamID != nil && *m.SlotATeamID == teamID) ||
		(m.SlotBTeamID != nil && *m.SlotBTeamID == teamID)
}
