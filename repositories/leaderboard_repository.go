package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ffarena/ff-arena/models"
)

type LeaderboardRepository interface {
	// RecomputeWindow rebuilds the cached ranking for one window from
	// team and ledger history. since is the zero time for the overall
	// window.
	RecomputeWindow(ctx context.Context, window models.LeaderboardWindow, since time.Time) error
	TopN(ctx context.Context, window models.LeaderboardWindow, limit int) ([]models.LeaderboardEntry, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

// Scoring: 50 points per tournament won, 10 per tournament played.
// Display-only; the ledger stays the source of truth for money.
const (
	pointsPerWin  = 50
	pointsPerPlay = 10
)

func (r *postgresLeaderboardRepository) RecomputeWindow(ctx context.Context, window models.LeaderboardWindow, since time.Time) error {
	query := `
		INSERT INTO leaderboard (user_id, period, points, wins, tournaments_played, updated_at)
		SELECT
			u.id,
			$1,
			COALESCE(w.wins, 0) * $2 + COALESCE(p.played, 0) * $3,
			COALESCE(w.wins, 0),
			COALESCE(p.played, 0),
			NOW()
		FROM users u
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS wins
			FROM transactions
			WHERE kind = $4 AND status = $5 AND created_at >= $6
			GROUP BY user_id
		) w ON w.user_id = u.id
		LEFT JOIN (
			SELECT captain_id AS user_id, COUNT(*) AS played
			FROM teams
			WHERE created_at >= $6
			GROUP BY captain_id
		) p ON p.user_id = u.id
		ON CONFLICT (user_id, period) DO UPDATE SET
			points = EXCLUDED.points,
			wins = EXCLUDED.wins,
			tournaments_played = EXCLUDED.tournaments_played,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		window, pointsPerWin, pointsPerPlay,
		models.KindTournamentWinning, models.TxCompleted, since,
	)
	if err != nil {
		return fmt.Errorf("failed to recompute leaderboard window %s: %w", window, err)
	}
	return nil
}

func (r *postgresLeaderboardRepository) TopN(ctx context.Context, window models.LeaderboardWindow, limit int) ([]models.LeaderboardEntry, error) {
	// Ties break on earlier user registration so the ranking is stable
	// across recomputes.
	query := `
		SELECT
			l.user_id,
			l.period,
			u.nickname,
			u.avatar_key,
			l.points,
			l.wins,
			l.tournaments_played,
			ROW_NUMBER() OVER (ORDER BY l.points DESC, u.created_at ASC, u.id ASC) AS rank,
			l.updated_at
		FROM leaderboard l
		INNER JOIN users u ON u.id = l.user_id
		WHERE l.period = $1
		ORDER BY rank
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, window, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		var avatarKey *string
		if scanErr := rows.Scan(
			&e.UserID, &e.Window, &e.Nickname, &avatarKey,
			&e.Points, &e.Wins, &e.TournamentsPlayed, &e.Rank, &e.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		e.AvatarURL = avatarKey // storage layer turns keys into URLs in the service
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
