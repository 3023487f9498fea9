package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/kegtrack/bracket-engine/models"
	"github.com/kegtrack/bracket-engine/repositories"
	"github.com/kegtrack/bracket-engine/storage"
)

type AddTeamInput struct {
	Name      string `json:"name"`
	PlayerAID int    `json:"player_a_id"`
	PlayerBID int    `json:"player_b_id"`
}

// TeamService owns the pool of competing pairs for a tournament: name and
// participant uniqueness on entry, DRAFT-only removal, and the event-wide
// catalog teams can be promoted from.
type TeamService interface {
	AddTeam(ctx context.Context, tournamentID int, input AddTeamInput) (*models.Team, error)
	PromoteFromPool(ctx context.Context, tournamentID, poolTeamID int) (*models.Team, error)
	RemoveTeam(ctx context.Context, teamID int) error
	UploadCrest(ctx context.Context, teamID int, contentType string, file io.Reader) (*models.Team, error)
	AddPoolTeam(ctx context.Context, input AddTeamInput) (*models.PoolTeam, error)
	ListPool(ctx context.Context) ([]models.PoolTeam, error)
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	poolRepo       repositories.PoolTeamRepository
	tx             repositories.TxRunner
	uploader       storage.FileUploader
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	poolRepo repositories.PoolTeamRepository,
	tx repositories.TxRunner,
	uploader storage.FileUploader,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		poolRepo:       poolRepo,
		tx:             tx,
		uploader:       uploader,
	}
}

// validateNewPair enforces the registry invariants against the teams
// already in the tournament: case-insensitive name uniqueness, two
// distinct players, and one team per participant.
func validateNewPair(existing []models.Team, name string, playerAID, playerBID int) error {
	if strings.TrimSpace(name) == "" {
		return ErrTeamNameRequired
	}
	if playerAID == playerBID {
		return ErrTeamSamePlayer
	}
	for i := range existing {
		t := &existing[i]
		if strings.EqualFold(t.Name, name) {
			return ErrTeamNameConflict
		}
		if (t.PlayerAID == playerAID && t.PlayerBID == playerBID) ||
			(t.PlayerAID == playerBID && t.PlayerBID == playerAID) {
			return ErrPairAlreadyEntered
		}
		if t.HasPlayer(playerAID) || t.HasPlayer(playerBID) {
			return ErrPlayerAlreadyInTeam
		}
	}
	return nil
}

func (s *teamService) draftTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.TournamentDraft {
		return nil, ErrTournamentNotDraft
	}
	return tournament, nil
}

func (s *teamService) createTeam(ctx context.Context, tournamentID int, name string, playerAID, playerBID int) (*models.Team, error) {
	tournament, err := s.draftTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	if err := validateNewPair(existing, name, playerAID, playerBID); err != nil {
		return nil, err
	}

	team := &models.Team{
		TournamentID: tournamentID,
		Name:         strings.TrimSpace(name),
		PlayerAID:    playerAID,
		PlayerBID:    playerBID,
	}
	// The insert bumps the tournament version in the same transaction, so a
	// racing Activate (or another registry write) observes a conflict
	// instead of committing against the pre-insert team count.
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.BumpVersion(ctx, exec, tournament.ID, tournament.Version); err != nil {
			return err
		}
		return s.teamRepo.Create(ctx, exec, team)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		if errors.Is(err, repositories.ErrTournamentVersionConflict) {
			return nil, fmt.Errorf("%w: tournament %d", ErrConflict, tournament.ID)
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) AddTeam(ctx context.Context, tournamentID int, input AddTeamInput) (*models.Team, error) {
	return s.createTeam(ctx, tournamentID, input.Name, input.PlayerAID, input.PlayerBID)
}

func (s *teamService) PromoteFromPool(ctx context.Context, tournamentID, poolTeamID int) (*models.Team, error) {
	poolTeam, err := s.poolRepo.GetByID(ctx, poolTeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolTeamNotFound) {
			return nil, ErrPoolTeamNotFound
		}
		return nil, err
	}
	return s.createTeam(ctx, tournamentID, poolTeam.Name, poolTeam.PlayerAID, poolTeam.PlayerBID)
}

func (s *teamService) RemoveTeam(ctx context.Context, teamID int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	tournament, err := s.draftTournament(ctx, team.TournamentID)
	if err != nil {
		return err
	}

	matches, err := s.matchRepo.ListByTournament(ctx, team.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to list matches for tournament %d: %w", team.TournamentID, err)
	}
	for i := range matches {
		if matches[i].HoldsTeam(teamID) {
			return ErrTeamInBracket
		}
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.BumpVersion(ctx, exec, tournament.ID, tournament.Version); err != nil {
			return err
		}
		return s.teamRepo.Delete(ctx, exec, teamID)
	})
	if errors.Is(err, repositories.ErrTournamentVersionConflict) {
		return fmt.Errorf("%w: tournament %d", ErrConflict, tournament.ID)
	}
	return err
}

func (s *teamService) UploadCrest(ctx context.Context, teamID int, contentType string, file io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrCrestUploadDisabled
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	var ext string
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	default:
		return nil, ErrUnsupportedImage
	}

	key := fmt.Sprintf("teams/%d/crest-%s%s", teamID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload crest for team %d: %w", teamID, err)
	}

	oldKey := team.CrestKey
	if err := s.teamRepo.UpdateCrestKey(ctx, teamID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store crest key for team %d: %w", teamID, err)
	}
	if oldKey != nil {
		// Best effort: a stale object in the bucket is harmless.
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	team.CrestKey = &result.Key
	url := s.uploader.GetPublicURL(result.Key)
	team.CrestURL = &url
	return team, nil
}

func (s *teamService) AddPoolTeam(ctx context.Context, input AddTeamInput) (*models.PoolTeam, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTeamNameRequired
	}
	if input.PlayerAID == input.PlayerBID {
		return nil, ErrTeamSamePlayer
	}

	poolTeam := &models.PoolTeam{
		Name:      strings.TrimSpace(input.Name),
		PlayerAID: input.PlayerAID,
		PlayerBID: input.PlayerBID,
	}
	if err := s.poolRepo.Create(ctx, poolTeam); err != nil {
		if errors.Is(err, repositories.ErrPoolTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to create pool team: %w", err)
	}
	return poolTeam, nil
}

func (s *teamService) ListPool(ctx context.Context) ([]models.PoolTeam, error) {
	return s.poolRepo.List(ctx)
}
