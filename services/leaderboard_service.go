package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
	"github.com/ffarena/ff-arena/storage"
	"golang.org/x/sync/errgroup"
)

// LeaderboardService produces ranked player views. It is a best-effort
// cache over ledger and team history; its correctness never gates
// monetary correctness.
type LeaderboardService interface {
	Recompute(ctx context.Context) error
	GetTop(ctx context.Context, window models.LeaderboardWindow, limit int) ([]models.LeaderboardEntry, error)
}

type leaderboardService struct {
	repo     repositories.LeaderboardRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewLeaderboardService(
	repo repositories.LeaderboardRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		repo:     repo,
		uploader: uploader,
		logger:   logger,
	}
}

func windowStart(window models.LeaderboardWindow, now time.Time) time.Time {
	switch window {
	case models.WindowWeekly:
		return now.AddDate(0, 0, -7)
	case models.WindowMonthly:
		return now.AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}

// Recompute rebuilds all three windows. Each window is a single SQL
// upsert, so they can run concurrently.
func (s *leaderboardService) Recompute(ctx context.Context) error {
	now := time.Now()
	windows := []models.LeaderboardWindow{
		models.WindowWeekly,
		models.WindowMonthly,
		models.WindowOverall,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, window := range windows {
		window := window
		g.Go(func() error {
			if err := s.repo.RecomputeWindow(gctx, window, windowStart(window, now)); err != nil {
				return fmt.Errorf("window %s: %w", window, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("leaderboard recompute failed: %w", err)
	}

	s.logger.Info("leaderboard recomputed", slog.Time("at", now))
	return nil
}

func (s *leaderboardService) GetTop(ctx context.Context, window models.LeaderboardWindow, limit int) ([]models.LeaderboardEntry, error) {
	if !window.Valid() {
		return nil, ErrInvalidWindow
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	entries, err := s.repo.TopN(ctx, window, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	// The repository returns raw avatar keys; resolve them to public URLs.
	for i := range entries {
		if entries[i].AvatarURL != nil && s.uploader != nil {
			url := s.uploader.GetPublicURL(*entries[i].AvatarURL)
			if url != "" {
				entries[i].AvatarURL = &url
			} else {
				entries[i].AvatarURL = nil
			}
		}
	}
	return entries, nil
}
