package services

import (
	"errors"
	"fmt"
)

// The four error kinds callers can branch on with errors.Is. Specific
// sentinels below wrap exactly one kind, so both the kind and the precise
// rule are matchable.
var (
	ErrValidation = errors.New("validation failed")
	ErrState      = errors.New("operation not allowed in the current state")
	ErrConflict   = errors.New("lost a race to a concurrent update")
	ErrNotFound   = errors.New("requested resource not found")
)

// Not-found variants.
var (
	ErrTournamentNotFound = fmt.Errorf("%w: tournament", ErrNotFound)
	ErrTeamNotFound       = fmt.Errorf("%w: team", ErrNotFound)
	ErrMatchNotFound      = fmt.Errorf("%w: match", ErrNotFound)
	ErrPoolTeamNotFound   = fmt.Errorf("%w: pool team", ErrNotFound)
)

// Tournament lifecycle.
var (
	ErrTournamentNameRequired   = fmt.Errorf("%w: tournament name is required", ErrValidation)
	ErrTournamentNameConflict   = fmt.Errorf("%w: tournament name already exists", ErrValidation)
	ErrInvalidQuantityPerPlayer = fmt.Errorf("%w: quantity per player must be positive", ErrValidation)
	ErrInvalidUndoWindow        = fmt.Errorf("%w: undo window must not be negative", ErrValidation)
	ErrInvalidUnitSize          = fmt.Errorf("%w: unit size must be positive", ErrValidation)
	ErrInvalidPolicy            = fmt.Errorf("%w: cancellation policy must be KEEP or REMOVE", ErrValidation)
	ErrTeamCountMismatch        = fmt.Errorf("%w: activation requires exactly 8 teams", ErrValidation)
	ErrTournamentNotDraft       = fmt.Errorf("%w: tournament is not in DRAFT", ErrState)
	ErrTournamentNotActive      = fmt.Errorf("%w: tournament is not ACTIVE", ErrState)
	ErrFinalNotDecided          = fmt.Errorf("%w: final match is not decided yet", ErrState)
)

// Team registry.
var (
	ErrTeamNameRequired    = fmt.Errorf("%w: team name is required", ErrValidation)
	ErrTeamNameConflict    = fmt.Errorf("%w: team name is already in use in this tournament", ErrValidation)
	ErrTeamSamePlayer      = fmt.Errorf("%w: a team needs two distinct players", ErrValidation)
	ErrPlayerAlreadyInTeam = fmt.Errorf("%w: participant already belongs to a team in this tournament", ErrValidation)
	ErrPairAlreadyEntered  = fmt.Errorf("%w: this player pair is already entered in the tournament", ErrValidation)
	ErrTeamInBracket       = fmt.Errorf("%w: team is already placed in the bracket", ErrState)
	ErrCrestUploadDisabled = fmt.Errorf("%w: crest uploads are not configured", ErrState)
	ErrUnsupportedImage    = fmt.Errorf("%w: crest must be a PNG or JPEG image", ErrValidation)
)

// Slot assignment and match lifecycle.
var (
	ErrAssignNotDraft      = fmt.Errorf("%w: slots can only be assigned while the tournament is in DRAFT", ErrValidation)
	ErrSlotNotRoundOne     = fmt.Errorf("%w: only first-round slots are assignable", ErrValidation)
	ErrSlotOccupied        = fmt.Errorf("%w: slot is already occupied", ErrValidation)
	ErrTeamAlreadyPlaced   = fmt.Errorf("%w: team already occupies a slot in the bracket", ErrValidation)
	ErrTeamNotInTournament = fmt.Errorf("%w: team belongs to a different tournament", ErrValidation)
	ErrWinnerNotInMatch    = fmt.Errorf("%w: winner must be one of the match's two teams", ErrValidation)
	ErrMatchNotPending     = fmt.Errorf("%w: match is not PENDING", ErrState)
	ErrMatchNotRunning     = fmt.Errorf("%w: match is not RUNNING", ErrState)
	ErrSlotsIncomplete     = fmt.Errorf("%w: both slots must be filled before starting", ErrState)
	ErrMatchAlreadyDecided = fmt.Errorf("%w: match is already decided", ErrState)
	ErrUndoWindowExpired   = fmt.Errorf("%w: undo window has expired", ErrState)
)

// Auth.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrBracketInconsistent flags a bracket-construction bug (for example a
// winner advancing into a slot already held by a different team). It is
// never caused by valid caller input; callers see it as an internal
// failure, not one of the four kinds above.
var ErrBracketInconsistent = errors.New("bracket state is internally inconsistent")
