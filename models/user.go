package models

import "time"

type UserRole string

const (
	RolePlayer UserRole = "player"
	RoleAdmin  UserRole = "admin"
)

type User struct {
	ID          int      `json:"id" db:"id"`
	PhoneNumber string   `json:"phone_number" db:"phone_number"`
	Nickname    string   `json:"nickname" db:"nickname"`
	FreeFireUID string   `json:"free_fire_uid" db:"free_fire_uid"`
	Division    *string  `json:"division,omitempty" db:"division"`
	Role        UserRole `json:"role" db:"role"`
	// Balance is a cached projection of the user's completed transactions.
	// It is only moved inside the same database transaction that appends
	// the ledger entry, never assigned on its own.
	Balance      int64      `json:"balance" db:"balance"`
	PasswordHash string     `json:"-" db:"password_hash"`
	AvatarKey    *string    `json:"-" db:"avatar_key"`
	AvatarURL    *string    `json:"avatar_url,omitempty" db:"-"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}
