package models

import "time"

// LeaderboardWindow scopes a ranking to a time range. Windowed rankings
// are display-only caches recomputed from the ledger and team history.
type LeaderboardWindow string

const (
	WindowWeekly  LeaderboardWindow = "weekly"
	WindowMonthly LeaderboardWindow = "monthly"
	WindowOverall LeaderboardWindow = "overall"
)

func (w LeaderboardWindow) Valid() bool {
	return w == WindowWeekly || w == WindowMonthly || w == WindowOverall
}

type LeaderboardEntry struct {
	UserID            int               `json:"user_id" db:"user_id"`
	Window            LeaderboardWindow `json:"window" db:"window"`
	Nickname          string            `json:"nickname" db:"-"`
	AvatarURL         *string           `json:"avatar_url,omitempty" db:"-"`
	Points            int               `json:"points" db:"points"`
	Wins              int               `json:"wins" db:"wins"`
	TournamentsPlayed int               `json:"tournaments_played" db:"tournaments_played"`
	Rank              int               `json:"rank" db:"rank"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}
