package services

import "errors"

// Business-level errors shared across services and the HTTP mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrInvalidCredentials     = errors.New("invalid phone number or password")
	ErrTeamNameRequired       = errors.New("team name is required")
	ErrInvalidTeamComposition = errors.New("team composition does not match the tournament mode")
	ErrRegistrationClosed     = errors.New("tournament registration is closed")
	ErrTournamentFull         = errors.New("tournament registration is full")
	ErrInsufficientFunds      = errors.New("insufficient wallet balance")
	ErrInvalidAmount          = errors.New("transaction amount must be positive")
	ErrInvalidTransactionKind = errors.New("unsupported transaction kind")
	ErrInvalidWindow          = errors.New("invalid leaderboard window")

	// Conflicts
	ErrPhoneTaken              = errors.New("phone number is already in use")
	ErrAlreadyRegistered       = errors.New("captain already has a team in this tournament")
	ErrConcurrencyConflict     = errors.New("operation conflicted with a concurrent request, retry")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")

	// Authentication / authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Entity-specific not-found errors (more context than ErrNotFound)
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// Tournament creation
	ErrTournamentInvalidCapacity = errors.New("tournament max teams must be positive")
	ErrTournamentInvalidFee      = errors.New("tournament entry fee must not be negative")
	ErrTournamentInvalidPrize    = errors.New("tournament prize pool must not be negative")
	ErrTournamentInvalidMode     = errors.New("tournament mode must be solo, duo or squad")
	ErrTournamentInvalidDates    = errors.New("tournament end time must be after start time")
)
