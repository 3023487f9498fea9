package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kegtrack/bracket-engine/brackets"
	"github.com/kegtrack/bracket-engine/models"
	"github.com/kegtrack/bracket-engine/repositories"
	"github.com/kegtrack/bracket-engine/storage"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name               string                    `json:"name"`
	QuantityPerPlayer  int                       `json:"quantity_per_player"`
	TimeWindowMinutes  int                       `json:"time_window_minutes"`
	UndoWindowMinutes  int                       `json:"undo_window_minutes"`
	CancellationPolicy models.CancellationPolicy `json:"cancellation_policy"`
	UnitSizeCl         int                       `json:"unit_size_cl"`
}

// TournamentService is the top-level lifecycle: DRAFT -> ACTIVE ->
// COMPLETED. Creation builds the seven-match bracket skeleton in the same
// transaction as the tournament row.
type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, limit, offset int) ([]models.Tournament, error)
	Activate(ctx context.Context, id int) (*models.Tournament, error)
	Complete(ctx context.Context, id int) (*models.Tournament, error)
	Delete(ctx context.Context, id int) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	directory      repositories.ParticipantDirectory
	uploader       storage.FileUploader
	tx             repositories.TxRunner
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	directory repositories.ParticipantDirectory,
	uploader storage.FileUploader,
	tx repositories.TxRunner,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		directory:      directory,
		uploader:       uploader,
		tx:             tx,
		hub:            hub,
		logger:         logger,
	}
}

func validateTournamentInput(input CreateTournamentInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrTournamentNameRequired
	}
	if input.QuantityPerPlayer <= 0 {
		return ErrInvalidQuantityPerPlayer
	}
	if input.UndoWindowMinutes < 0 {
		return ErrInvalidUndoWindow
	}
	if input.UnitSizeCl <= 0 {
		return ErrInvalidUnitSize
	}
	switch input.CancellationPolicy {
	case models.CancellationKeep, models.CancellationRemove:
	default:
		return ErrInvalidPolicy
	}
	return nil
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:               strings.TrimSpace(input.Name),
		Status:             models.TournamentDraft,
		QuantityPerPlayer:  input.QuantityPerPlayer,
		TimeWindowMinutes:  input.TimeWindowMinutes,
		UndoWindowMinutes:  input.UndoWindowMinutes,
		CancellationPolicy: input.CancellationPolicy,
		UnitSizeCl:         input.UnitSizeCl,
	}

	// Tournament row and bracket skeleton are created together: there is
	// never a tournament without its seven matches.
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			return err
		}
		skeleton := brackets.Build(tournament.ID)
		if err := s.matchRepo.CreateBatch(ctx, exec, skeleton); err != nil {
			return fmt.Errorf("failed to create bracket skeleton: %w", err)
		}
		tournament.Matches = make([]models.Match, 0, len(skeleton))
		for _, m := range skeleton {
			tournament.Matches = append(tournament.Matches, *m)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name))
	return tournament, nil
}

func (s *tournamentService) getByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

// Get loads the tournament with its nested teams and matches, fetched in
// parallel. Team rows are decorated with participant display names and
// crest URLs; both decorations are presentation-only.
func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}
		tournament.Teams = teams
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		tournament.Matches = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.decorateTeams(ctx, tournament.Teams)
	return tournament, nil
}

func (s *tournamentService) decorateTeams(ctx context.Context, teams []models.Team) {
	if len(teams) == 0 {
		return
	}

	if s.directory != nil {
		ids := make([]int, 0, len(teams)*2)
		for i := range teams {
			ids = append(ids, teams[i].PlayerIDs()...)
		}
		names, err := s.directory.DisplayNames(ctx, ids)
		if err != nil {
			// Display names are cosmetic; the bracket is still usable.
			s.logger.Warn("failed to resolve participant names", slog.Any("error", err))
		} else {
			for i := range teams {
				if name, ok := names[teams[i].PlayerAID]; ok {
					teams[i].PlayerAName = &name
				}
				if name, ok := names[teams[i].PlayerBID]; ok {
					teams[i].PlayerBName = &name
				}
			}
		}
	}

	if s.uploader != nil {
		for i := range teams {
			if teams[i].CrestKey != nil {
				url := s.uploader.GetPublicURL(*teams[i].CrestKey)
				teams[i].CrestURL = &url
			}
		}
	}
}

func (s *tournamentService) List(ctx context.Context, limit, offset int) ([]models.Tournament, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.tournamentRepo.List(ctx, limit, offset)
}

func (s *tournamentService) Activate(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentDraft {
		return nil, ErrTournamentNotDraft
	}

	// Activation gates on team count only; first-round slot filling is
	// deliberately decoupled from it.
	count, err := s.teamRepo.CountByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count teams: %w", err)
	}
	if count != brackets.TeamCount {
		return nil, fmt.Errorf("%w (have %d)", ErrTeamCountMismatch, count)
	}

	if err := s.updateStatus(ctx, tournament, models.TournamentActive); err != nil {
		return nil, err
	}
	s.logger.Info("tournament activated", slog.Int("tournament_id", id))
	return s.getByID(ctx, id)
}

func (s *tournamentService) Complete(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotActive
	}

	final, err := s.matchRepo.GetByPosition(ctx, nil, id, models.RoundFinal, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load final match: %w", err)
	}
	if final.Status != models.MatchDecided {
		return nil, ErrFinalNotDecided
	}

	if err := s.updateStatus(ctx, tournament, models.TournamentCompleted); err != nil {
		return nil, err
	}
	s.logger.Info("tournament completed",
		slog.Int("tournament_id", id),
		slog.Any("winner_team_id", final.WinnerTeamID))
	return s.getByID(ctx, id)
}

func (s *tournamentService) updateStatus(ctx context.Context, tournament *models.Tournament, status models.TournamentStatus) error {
	err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, tournament.Version, status)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentVersionConflict) {
			return fmt.Errorf("%w: tournament %d", ErrConflict, tournament.ID)
		}
		return err
	}
	if s.hub != nil {
		s.hub.Broadcast(brackets.Event{
			Type:         brackets.EventTournamentUpdated,
			TournamentID: tournament.ID,
			Payload:      map[string]interface{}{"status": status},
		})
	}
	return nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	err := s.tournamentRepo.Delete(ctx, id)
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}
