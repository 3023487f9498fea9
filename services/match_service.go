package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kegtrack/bracket-engine/brackets"
	"github.com/kegtrack/bracket-engine/models"
	"github.com/kegtrack/bracket-engine/repositories"
)

// MatchService is the per-match state machine: PENDING -> RUNNING ->
// DECIDED, no transition skipped. Starting a match books consumption for
// all four players inside the same transaction as the status change;
// deciding a match propagates the winner into its successor slot.
type MatchService interface {
	AssignSlot(ctx context.Context, matchID int, slot brackets.Slot, teamID int) (*models.Match, error)
	Start(ctx context.Context, matchID int) (*models.Match, error)
	UndoStart(ctx context.Context, matchID int) (*models.Match, error)
	Complete(ctx context.Context, matchID, winnerTeamID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error)
}

type matchService struct {
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	coordinator    *ConsumptionCoordinator
	tx             repositories.TxRunner
	hub            *brackets.Hub
	logger         *slog.Logger

	// Injectable clock; undo-window eligibility is computed on demand,
	// never by a scheduled expiry job.
	now func() time.Time
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	coordinator *ConsumptionCoordinator,
	tx repositories.TxRunner,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &matchService{
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		coordinator:    coordinator,
		tx:             tx,
		hub:            hub,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *matchService) getMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) getTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

// matchParticipants resolves the four participant ids of the two teams in
// a fully slotted match.
func (s *matchService) matchParticipants(ctx context.Context, match *models.Match) ([]int, error) {
	participants := make([]int, 0, 4)
	for _, teamID := range []*int{match.SlotATeamID, match.SlotBTeamID} {
		if teamID == nil {
			return nil, ErrSlotsIncomplete
		}
		team, err := s.teamRepo.GetByID(ctx, *teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to load team %d: %w", *teamID, err)
		}
		participants = append(participants, team.PlayerIDs()...)
	}
	return participants, nil
}

func (s *matchService) broadcastMatch(match *models.Match) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(brackets.Event{
		Type:         brackets.EventMatchUpdated,
		TournamentID: match.TournamentID,
		Payload:      match,
	})
}

func (s *matchService) reloadAndBroadcast(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	s.broadcastMatch(match)
	return match, nil
}

func (s *matchService) AssignSlot(ctx context.Context, matchID int, slot brackets.Slot, teamID int) (*models.Match, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.getTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}

	if tournament.Status != models.TournamentDraft {
		return nil, ErrAssignNotDraft
	}
	if match.Round != models.RoundOne {
		return nil, ErrSlotNotRoundOne
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.TournamentID != match.TournamentID {
		return nil, ErrTeamNotInTournament
	}

	// A team id may appear in at most one slot across the whole bracket.
	matches, err := s.matchRepo.ListByTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bracket for tournament %d: %w", match.TournamentID, err)
	}
	for i := range matches {
		if matches[i].HoldsTeam(teamID) {
			return nil, ErrTeamAlreadyPlaced
		}
	}

	occupied := match.SlotATeamID
	if slot == brackets.SlotB {
		occupied = match.SlotBTeamID
	}
	if occupied != nil {
		return nil, ErrSlotOccupied
	}

	// The placement scan above is only valid if no other tournament-scoped
	// write commits in between; bumping the tournament version in the same
	// transaction makes a racing assignment of the same team lose here.
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.BumpVersion(ctx, exec, tournament.ID, tournament.Version); err != nil {
			return err
		}
		return s.matchRepo.UpdateSlot(ctx, exec, match.ID, match.Version, slot, teamID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) ||
			errors.Is(err, repositories.ErrTournamentVersionConflict) {
			return nil, fmt.Errorf("%w: match %d", ErrConflict, match.ID)
		}
		return nil, err
	}
	return s.reloadAndBroadcast(ctx, match.ID)
}

func (s *matchService) Start(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.getTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}

	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotActive
	}
	if match.Status != models.MatchPending {
		return nil, ErrMatchNotPending
	}
	if !match.HasBothSlots() {
		return nil, ErrSlotsIncomplete
	}

	participants, err := s.matchParticipants(ctx, match)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	startedAt := s.now()

	// Status transition and consumption booking commit as one unit; if
	// either fails, neither is observable.
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateStarted(ctx, exec, match.ID, match.Version, startedAt, batchID); err != nil {
			return err
		}
		return s.coordinator.Apply(ctx, exec, batchID, match.ID, participants, tournament.QuantityPerPlayer)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			return nil, fmt.Errorf("%w: match %d", ErrConflict, match.ID)
		}
		return nil, err
	}

	s.logger.Info("match started",
		slog.Int("match_id", match.ID),
		slog.Int("tournament_id", match.TournamentID),
		slog.String("batch_id", batchID))
	return s.reloadAndBroadcast(ctx, match.ID)
}

func (s *matchService) UndoStart(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.getTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}

	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotActive
	}
	if match.WinnerTeamID != nil || match.Status == models.MatchDecided {
		return nil, ErrMatchAlreadyDecided
	}
	if match.Status != models.MatchRunning {
		return nil, ErrMatchNotRunning
	}
	if match.StartedAt == nil || match.ConsumptionBatchID == nil {
		s.logger.Error("running match is missing start bookkeeping",
			slog.Int("match_id", match.ID))
		return nil, ErrBracketInconsistent
	}

	window := time.Duration(tournament.UndoWindowMinutes) * time.Minute
	if s.now().Sub(*match.StartedAt) > window {
		return nil, ErrUndoWindowExpired
	}

	participants, err := s.matchParticipants(ctx, match)
	if err != nil {
		return nil, err
	}
	batchID := *match.ConsumptionBatchID

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateStartUndone(ctx, exec, match.ID, match.Version); err != nil {
			return err
		}
		// Under KEEP the consumption stays booked: no take-backs on
		// partially consumed progress.
		if tournament.CancellationPolicy == models.CancellationRemove {
			return s.coordinator.Revert(ctx, exec, batchID, match.ID, participants, tournament.QuantityPerPlayer)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			return nil, fmt.Errorf("%w: match %d", ErrConflict, match.ID)
		}
		return nil, err
	}

	s.logger.Info("match start undone",
		slog.Int("match_id", match.ID),
		slog.String("policy", string(tournament.CancellationPolicy)))
	return s.reloadAndBroadcast(ctx, match.ID)
}

func (s *matchService) Complete(ctx context.Context, matchID, winnerTeamID int) (*models.Match, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.getTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}

	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotActive
	}
	if match.Status != models.MatchRunning {
		return nil, ErrMatchNotRunning
	}
	if !match.HoldsTeam(winnerTeamID) {
		return nil, ErrWinnerNotInMatch
	}

	decidedAt := s.now()
	var successor *models.Match

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateDecided(ctx, exec, match.ID, match.Version, winnerTeamID, decidedAt); err != nil {
			return err
		}
		return s.propagateWinner(ctx, exec, match, winnerTeamID, &successor)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			return nil, fmt.Errorf("%w: match %d", ErrConflict, match.ID)
		}
		return nil, err
	}

	if successor != nil {
		if reloaded, err := s.matchRepo.GetByID(ctx, nil, successor.ID); err == nil {
			s.broadcastMatch(reloaded)
		}
	}
	s.logger.Info("match decided",
		slog.Int("match_id", match.ID),
		slog.Int("winner_team_id", winnerTeamID))
	return s.reloadAndBroadcast(ctx, match.ID)
}

// propagateWinner writes the winner into the successor slot dictated by
// the static advancement map. For the FINAL there is no successor and the
// tournament becomes eligible for completion. A successor slot already
// holding a different team is a bracket-construction bug and fails the
// whole transaction.
func (s *matchService) propagateWinner(ctx context.Context, exec repositories.SQLExecutor, decided *models.Match, winnerTeamID int, successor **models.Match) error {
	target, ok := brackets.NextMatch(decided.Round, decided.BracketIndex)
	if !ok {
		return nil
	}

	next, err := s.matchRepo.GetByPosition(ctx, exec, decided.TournamentID, target.Round, target.Index)
	if err != nil {
		return fmt.Errorf("failed to load successor match (%s/%d): %w", target.Round, target.Index, err)
	}

	current := next.SlotATeamID
	if target.Slot == brackets.SlotB {
		current = next.SlotBTeamID
	}
	if current != nil {
		if *current == winnerTeamID {
			return nil
		}
		s.logger.Error("advancement slot collision",
			slog.Int("decided_match_id", decided.ID),
			slog.Int("successor_match_id", next.ID),
			slog.String("slot", string(target.Slot)),
			slog.Int("occupant_team_id", *current),
			slog.Int("winner_team_id", winnerTeamID))
		return ErrBracketInconsistent
	}

	if err := s.matchRepo.UpdateSlot(ctx, exec, next.ID, next.Version, target.Slot, winnerTeamID); err != nil {
		return fmt.Errorf("failed to advance winner into match %d: %w", next.ID, err)
	}
	*successor = next
	return nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error) {
	if _, err := s.getTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}
