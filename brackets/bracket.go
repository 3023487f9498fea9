// Package brackets holds the fixed single-elimination bracket shape: the
// seven-match skeleton and the static advancement map between matches.
// Everything here is pure; persistence and lifecycle rules live in the
// services layer.
package brackets

import (
	"fmt"

	"github.com/kegtrack/bracket-engine/models"
)

// Slot selects one of the two team positions in a match.
type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

// ParseSlot validates a slot selector coming from the outside.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotA, SlotB:
		return Slot(s), nil
	default:
		return "", fmt.Errorf("invalid slot %q: must be A or B", s)
	}
}

// Position identifies a match by its place in the bracket tree.
type Position struct {
	Round models.Round
	Index int
}

// Target is the successor slot a decided match's winner flows into.
type Target struct {
	Round models.Round
	Index int
	Slot  Slot
}

const (
	RoundOneMatches = 4
	RoundTwoMatches = 2
	FinalMatches    = 1
	TotalMatches    = RoundOneMatches + RoundTwoMatches + FinalMatches

	// TeamCount is the only pool size the bracket supports.
	TeamCount = 8
)

// advancement is the single source of truth for winner propagation.
// ROUND1 matches 0,1 feed slots A,B of ROUND2 match 0; matches 2,3 feed
// ROUND2 match 1; the two ROUND2 matches feed the FINAL. The FINAL has no
// entry: its winner ends the tournament.
var advancement = map[Position]Target{
	{models.RoundOne, 0}: {models.RoundTwo, 0, SlotA},
	{models.RoundOne, 1}: {models.RoundTwo, 0, SlotB},
	{models.RoundOne, 2}: {models.RoundTwo, 1, SlotA},
	{models.RoundOne, 3}: {models.RoundTwo, 1, SlotB},
	{models.RoundTwo, 0}: {models.RoundFinal, 0, SlotA},
	{models.RoundTwo, 1}: {models.RoundFinal, 0, SlotB},
}

// NextMatch returns where the winner of the given match advances to.
// ok is false for the FINAL.
func NextMatch(round models.Round, index int) (Target, bool) {
	t, ok := advancement[Position{Round: round, Index: index}]
	return t, ok
}

// Build returns the seven empty PENDING matches of a fresh bracket for
// one tournament, ordered ROUND1 before ROUND2 before FINAL. The caller
// persists them together at tournament-creation time; building twice for
// the same tournament is a programmer error.
func Build(tournamentID int) []*models.Match {
	matches := make([]*models.Match, 0, TotalMatches)
	shape := []struct {
		round models.Round
		count int
	}{
		{models.RoundOne, RoundOneMatches},
		{models.RoundTwo, RoundTwoMatches},
		{models.RoundFinal, FinalMatches},
	}
	for _, tier := range shape {
		for i := 0; i < tier.count; i++ {
			matches = append(matches, &models.Match{
				TournamentID: tournamentID,
				Round:        tier.round,
				BracketIndex: i,
				Status:       models.MatchPending,
			})
		}
	}
	return matches
}
