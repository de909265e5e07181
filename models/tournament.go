package models

import "time"

// TournamentStatus values match the ENUM in the database. Transitions are
// one-directional: upcoming -> live -> completed.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
)

// CanTransitionTo reports whether moving to next is a forward transition.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	switch s {
	case StatusUpcoming:
		return next == StatusLive || next == StatusCompleted
	case StatusLive:
		return next == StatusCompleted
	default:
		return false
	}
}

// TournamentMode determines how many members a registered team must have.
type TournamentMode string

const (
	ModeSolo  TournamentMode = "solo"
	ModeDuo   TournamentMode = "duo"
	ModeSquad TournamentMode = "squad"
)

func (m TournamentMode) Valid() bool {
	return m == ModeSolo || m == ModeDuo || m == ModeSquad
}

// RequiredTeamSize returns the exact member count for the mode.
func (m TournamentMode) RequiredTeamSize() int {
	switch m {
	case ModeSolo:
		return 1
	case ModeDuo:
		return 2
	case ModeSquad:
		return 4
	default:
		return 0
	}
}

type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Title           string           `json:"title" db:"title"`
	Description     *string          `json:"description,omitempty" db:"description"`
	EntryFee        int64            `json:"entry_fee" db:"entry_fee"`
	PrizePool       int64            `json:"prize_pool" db:"prize_pool"`
	StartTime       time.Time        `json:"start_time" db:"start_time"`
	EndTime         *time.Time       `json:"end_time,omitempty" db:"end_time"`
	MaxTeams        int              `json:"max_teams" db:"max_teams"`
	RegisteredTeams int              `json:"registered_teams" db:"registered_teams"`
	Mode            TournamentMode   `json:"mode" db:"mode"`
	Status          TournamentStatus `json:"status" db:"status"`
	CreatedBy       int              `json:"created_by" db:"created_by"`
	BannerKey       *string          `json:"-" db:"banner_key"`
	BannerURL       *string          `json:"banner_url,omitempty" db:"-"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// SlotsLeft is a convenience for API responses; the authoritative check
// lives in the repository's conditional increment.
func (t *Tournament) SlotsLeft() int {
	left := t.MaxTeams - t.RegisteredTeams
	if left < 0 {
		return 0
	}
	return left
}
