package models

import "time"

type TeamStatus string

const (
	TeamStatusRegistered TeamStatus = "registered"
	TeamStatusEliminated TeamStatus = "eliminated"
	TeamStatusWinner     TeamStatus = "winner"
)

type Team struct {
	ID           int        `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	CaptainID    int        `json:"captain_id" db:"captain_id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	Status       TeamStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	// Members are ordered; slot 1 is the captain's entry.
	Members []TeamMember `json:"members,omitempty" db:"-"`
}

type TeamMember struct {
	ID          int    `json:"id" db:"id"`
	TeamID      int    `json:"team_id" db:"team_id"`
	Slot        int    `json:"slot" db:"slot"`
	Nickname    string `json:"nickname" db:"nickname"`
	FreeFireUID string `json:"free_fire_uid" db:"free_fire_uid"`
}
