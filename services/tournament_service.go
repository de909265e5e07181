package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
	"github.com/ffarena/ff-arena/storage"
	"github.com/go-playground/validator/v10"
)

// TournamentBroadcaster pushes live tournament events (slot counts,
// status changes) to subscribed websocket clients. Implemented by
// realtime.Hub.
type TournamentBroadcaster interface {
	BroadcastTournamentUpdate(tournamentID int, eventType string, payload interface{})
}

const (
	EventStatusChanged = "TOURNAMENT_STATUS_CHANGED"
	EventSlotsChanged  = "TOURNAMENT_SLOTS_CHANGED"
)

type CreateTournamentInput struct {
	Title       string                `json:"title" validate:"required,min=3,max=120"`
	Description *string               `json:"description,omitempty" validate:"omitempty,max=2000"`
	EntryFee    int64                 `json:"entry_fee"`
	PrizePool   int64                 `json:"prize_pool"`
	StartTime   time.Time             `json:"start_time" validate:"required"`
	EndTime     *time.Time            `json:"end_time,omitempty"`
	MaxTeams    int                   `json:"max_teams"`
	Mode        models.TournamentMode `json:"mode"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UploadBanner(ctx context.Context, tournamentID int, contentType string, file io.Reader) (*models.Tournament, error)
	// AutoUpdateStatusesByDates advances due tournaments along the
	// one-directional upcoming -> live -> completed path. Driven by the
	// scheduler ticker in main.
	AutoUpdateStatusesByDates(ctx context.Context) error
}

type tournamentService struct {
	repo     repositories.TournamentRepository
	uploader storage.FileUploader
	hub      TournamentBroadcaster
	validate *validator.Validate
	logger   *slog.Logger
}

func NewTournamentService(
	repo repositories.TournamentRepository,
	uploader storage.FileUploader,
	hub TournamentBroadcaster,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		repo:     repo,
		uploader: uploader,
		hub:      hub,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if input.MaxTeams <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.EntryFee < 0 {
		return nil, ErrTournamentInvalidFee
	}
	if input.PrizePool < 0 {
		return nil, ErrTournamentInvalidPrize
	}
	if !input.Mode.Valid() {
		return nil, ErrTournamentInvalidMode
	}
	if input.EndTime != nil && !input.EndTime.After(input.StartTime) {
		return nil, ErrTournamentInvalidDates
	}

	tournament := &models.Tournament{
		Title:       input.Title,
		Description: input.Description,
		EntryFee:    input.EntryFee,
		PrizePool:   input.PrizePool,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		MaxTeams:    input.MaxTeams,
		Mode:        input.Mode,
		Status:      models.StatusUpcoming,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentInvalidOwner) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	tournaments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		s.populateBannerURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, tournamentID int, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/banner", tournamentID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	if err := s.repo.UpdateBannerKey(ctx, tournamentID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store banner key: %w", err)
	}

	tournament.BannerKey = &result.Key
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) AutoUpdateStatusesByDates(ctx context.Context) error {
	now := time.Now()
	due, err := s.repo.GetDueForStatusUpdate(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load tournaments due for status update: %w", err)
	}

	for _, t := range due {
		var next models.TournamentStatus
		switch {
		case t.Status == models.StatusUpcoming && !t.StartTime.After(now):
			next = models.StatusLive
		case t.Status == models.StatusLive && t.EndTime != nil && !t.EndTime.After(now):
			next = models.StatusCompleted
		default:
			continue
		}

		if !t.Status.CanTransitionTo(next) {
			// Should not happen with the query above; guard anyway.
			s.logger.Warn("skipping invalid status transition",
				slog.Int("tournament_id", t.ID),
				slog.String("from", string(t.Status)),
				slog.String("to", string(next)))
			continue
		}

		if err := s.repo.UpdateStatus(ctx, nil, t.ID, next); err != nil {
			s.logger.Error("failed to update tournament status",
				slog.Int("tournament_id", t.ID),
				slog.Any("error", err))
			continue
		}

		s.logger.Info("tournament status updated",
			slog.Int("tournament_id", t.ID),
			slog.String("from", string(t.Status)),
			slog.String("to", string(next)))

		if s.hub != nil {
			s.hub.BroadcastTournamentUpdate(t.ID, EventStatusChanged, map[string]interface{}{
				"tournament_id": t.ID,
				"status":        next,
			})
		}
	}
	return nil
}

func (s *tournamentService) populateBannerURL(t *models.Tournament) {
	if t.BannerKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.BannerKey)
		if url != "" {
			t.BannerURL = &url
		}
	}
}
