package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
)

const (
	registrationMaxRetries   = 3
	registrationRetryBackoff = 25 * time.Millisecond
)

type TeamMemberInput struct {
	Nickname    string `json:"nickname"`
	FreeFireUID string `json:"free_fire_uid"`
}

type RegisterTeamInput struct {
	TournamentID int               `json:"tournament_id"`
	TeamName     string            `json:"team_name"`
	Members      []TeamMemberInput `json:"members"`
}

// RegistrationService owns the multi-step registration orchestration:
// reserve a capacity slot, debit the entry fee and persist the team
// inside a single database transaction, so no reader ever observes a
// reserved slot without a team or a charged fee without a registration.
type RegistrationService interface {
	RegisterTeam(ctx context.Context, captainID int, input RegisterTeamInput) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	ListTeamsByTournament(ctx context.Context, tournamentID int) ([]models.Team, error)
}

type registrationService struct {
	transactor     repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	wallet         WalletService
	hub            TournamentBroadcaster
}

func NewRegistrationService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	wallet WalletService,
	hub TournamentBroadcaster,
) RegistrationService {
	return &registrationService{
		transactor:     transactor,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		wallet:         wallet,
		hub:            hub,
	}
}

func (s *registrationService) RegisterTeam(ctx context.Context, captainID int, input RegisterTeamInput) (*models.Team, error) {
	if input.TeamName == "" {
		return nil, ErrTeamNameRequired
	}

	var (
		team       *models.Team
		tournament *models.Tournament
	)

	// Serialization failures and deadlocks are transient; retry the
	// whole transaction a bounded number of times.
	var lastErr error
	for attempt := 0; attempt < registrationMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * registrationRetryBackoff):
			}
		}

		team, tournament, lastErr = s.registerTeamOnce(ctx, captainID, input)
		if lastErr == nil || !repositories.IsSerializationError(lastErr) {
			break
		}
	}
	if lastErr != nil {
		if repositories.IsSerializationError(lastErr) {
			return nil, ErrConcurrencyConflict
		}
		return nil, lastErr
	}

	if s.hub != nil {
		s.hub.BroadcastTournamentUpdate(tournament.ID, EventSlotsChanged, map[string]interface{}{
			"tournament_id":    tournament.ID,
			"registered_teams": tournament.RegisteredTeams,
			"max_teams":        tournament.MaxTeams,
		})
	}
	return team, nil
}

// registerTeamOnce runs the full orchestration inside one transaction.
// A failure at any step rolls everything back, including the slot
// reservation, so partial registrations are never visible.
func (s *registrationService) registerTeamOnce(ctx context.Context, captainID int, input RegisterTeamInput) (*models.Team, *models.Tournament, error) {
	var (
		team       *models.Team
		tournament *models.Tournament
	)

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		tournament, err = s.tournamentRepo.GetByID(ctx, exec, input.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to load tournament %d: %w", input.TournamentID, err)
		}

		if tournament.Status != models.StatusUpcoming {
			return ErrRegistrationClosed
		}

		captain, err := s.userRepo.GetByID(ctx, exec, captainID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load captain %d: %w", captainID, err)
		}

		// All validation happens before any write.
		if err := validateComposition(tournament.Mode, captain, input.Members); err != nil {
			return err
		}

		// Reserve capacity before touching money, so an over-capacity
		// attempt never charges a fee. The reservation re-checks the
		// status under the row lock; the read above may be stale if the
		// scheduler flipped the tournament live in the meantime.
		if err := s.tournamentRepo.TryReserveSlot(ctx, exec, tournament.ID); err != nil {
			switch {
			case errors.Is(err, repositories.ErrTournamentFull):
				return ErrTournamentFull
			case errors.Is(err, repositories.ErrTournamentNotOpen):
				return ErrRegistrationClosed
			}
			return fmt.Errorf("failed to reserve slot: %w", err)
		}

		if tournament.EntryFee > 0 {
			tournamentID := tournament.ID
			entry := &models.Transaction{
				UserID:       captain.ID,
				Amount:       -tournament.EntryFee,
				Kind:         models.KindTournamentEntry,
				Status:       models.TxCompleted,
				TournamentID: &tournamentID,
			}
			// ErrInsufficientFunds aborts the transaction; the rollback
			// hands the reserved slot back.
			if err := s.wallet.AppendTransaction(ctx, exec, entry); err != nil {
				return err
			}
		}

		team = &models.Team{
			Name:         input.TeamName,
			CaptainID:    captain.ID,
			TournamentID: tournament.ID,
			Status:       models.TeamStatusRegistered,
			Members:      make([]models.TeamMember, 0, len(input.Members)),
		}
		for _, m := range input.Members {
			team.Members = append(team.Members, models.TeamMember{
				Nickname:    m.Nickname,
				FreeFireUID: m.FreeFireUID,
			})
		}

		if err := s.teamRepo.Create(ctx, exec, team); err != nil {
			if errors.Is(err, repositories.ErrTeamAlreadyRegistered) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("failed to create team: %w", err)
		}

		tournament.RegisteredTeams++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return team, tournament, nil
}

// validateComposition checks the roster against the tournament mode:
// exact member count, non-empty identities and the captain listed among
// the members.
func validateComposition(mode models.TournamentMode, captain *models.User, members []TeamMemberInput) error {
	required := mode.RequiredTeamSize()
	if required == 0 {
		return ErrTournamentInvalidMode
	}
	if len(members) != required {
		return fmt.Errorf("%w: mode %s requires exactly %d members, got %d",
			ErrInvalidTeamComposition, mode, required, len(members))
	}

	captainListed := false
	for i, m := range members {
		if m.Nickname == "" || m.FreeFireUID == "" {
			return fmt.Errorf("%w: member %d is missing nickname or free fire uid",
				ErrInvalidTeamComposition, i+1)
		}
		if m.FreeFireUID == captain.FreeFireUID {
			captainListed = true
		}
	}
	if !captainListed {
		return fmt.Errorf("%w: captain must be listed among the members", ErrInvalidTeamComposition)
	}
	return nil
}

func (s *registrationService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *registrationService) ListTeamsByTournament(ctx context.Context, tournamentID int) ([]models.Team, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.teamRepo.ListByTournament(ctx, tournamentID)
}
