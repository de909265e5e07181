package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ffarena/ff-arena/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound           = errors.New("team not found")
	ErrTeamAlreadyRegistered  = errors.New("captain already has a team in this tournament")
	ErrTeamInvalidTournament  = errors.New("invalid tournament reference")
	ErrTeamInvalidCaptainUser = errors.New("invalid captain reference")
)

type TeamRepository interface {
	// Create inserts the team together with its members. It is always
	// called with a transaction-scoped executor so the team never
	// appears without its roster.
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)

	query := `
		INSERT INTO teams (name, captain_id, tournament_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		team.Name, team.CaptainID, team.TournamentID, team.Status,
	).Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		return r.handleTeamError(err)
	}

	memberQuery := `
		INSERT INTO team_members (team_id, slot, nickname, free_fire_uid)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range team.Members {
		m := &team.Members[i]
		m.TeamID = team.ID
		m.Slot = i + 1
		if err := executor.QueryRowContext(ctx, memberQuery,
			m.TeamID, m.Slot, m.Nickname, m.FreeFireUID,
		).Scan(&m.ID); err != nil {
			return fmt.Errorf("failed to insert team member (slot %d): %w", m.Slot, err)
		}
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `
		SELECT id, name, captain_id, tournament_id, status, created_at
		FROM teams
		WHERE id = $1`

	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.CaptainID, &t.TournamentID, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	members, err := r.loadMembers(ctx, []int{t.ID})
	if err != nil {
		return nil, err
	}
	t.Members = members[t.ID]
	return t, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error) {
	query := `
		SELECT id, name, captain_id, tournament_id, status, created_at
		FROM teams
		WHERE tournament_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	teamIDs := make([]int, 0)
	for rows.Next() {
		var t models.Team
		if scanErr := rows.Scan(&t.ID, &t.Name, &t.CaptainID, &t.TournamentID, &t.Status, &t.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
		teamIDs = append(teamIDs, t.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(teams) == 0 {
		return teams, nil
	}

	members, err := r.loadMembers(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		teams[i].Members = members[teams[i].ID]
	}
	return teams, nil
}

func (r *postgresTeamRepository) loadMembers(ctx context.Context, teamIDs []int) (map[int][]models.TeamMember, error) {
	query := `
		SELECT id, team_id, slot, nickname, free_fire_uid
		FROM team_members
		WHERE team_id = ANY($1)
		ORDER BY team_id, slot`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	defer rows.Close()

	members := make(map[int][]models.TeamMember)
	for rows.Next() {
		var m models.TeamMember
		if scanErr := rows.Scan(&m.ID, &m.TeamID, &m.Slot, &m.Nickname, &m.FreeFireUID); scanErr != nil {
			return nil, scanErr
		}
		members[m.TeamID] = append(members[m.TeamID], m)
	}
	return members, rows.Err()
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "teams_tournament_id_captain_id_key" {
				return ErrTeamAlreadyRegistered
			}
		case "23503":
			switch pqErr.Constraint {
			case "teams_tournament_id_fkey":
				return ErrTeamInvalidTournament
			case "teams_captain_id_fkey":
				return ErrTeamInvalidCaptainUser
			}
		}
	}
	return err
}
