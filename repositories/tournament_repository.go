package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ffarena/ff-arena/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentFull         = errors.New("tournament has no free slots")
	ErrTournamentNotOpen      = errors.New("tournament is not open for registration")
	ErrTournamentInvalidOwner = errors.New("invalid tournament creator reference")
)

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Mode   *models.TournamentMode
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error
	// TryReserveSlot performs an atomic compare-and-increment on
	// registered_teams. The WHERE clause re-checks both the capacity
	// bound and the upcoming status on the current row version, so a
	// concurrent status flip cannot slip a registration into a live
	// tournament. Returns ErrTournamentFull or ErrTournamentNotOpen.
	TryReserveSlot(ctx context.Context, exec SQLExecutor, id int) error
	GetDueForStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, title, description, entry_fee, prize_pool, start_time, end_time,
			max_teams, registered_teams, mode, status, created_by, banner_key, created_at`

func scanTournament(scan func(dest ...interface{}) error) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := scan(
		&t.ID, &t.Title, &t.Description, &t.EntryFee, &t.PrizePool, &t.StartTime, &t.EndTime,
		&t.MaxTeams, &t.RegisteredTeams, &t.Mode, &t.Status, &t.CreatedBy, &t.BannerKey, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			title, description, entry_fee, prize_pool, start_time, end_time,
			max_teams, registered_teams, mode, status, created_by, banner_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11)
		RETURNING id, registered_teams, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Title, t.Description, t.EntryFee, t.PrizePool, t.StartTime, t.EndTime,
		t.MaxTeams, t.Mode, t.Status, t.CreatedBy, t.BannerKey,
	).Scan(&t.ID, &t.RegisteredTeams, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := fmt.Sprintf(`SELECT %s FROM tournaments WHERE id = $1`, tournamentColumns)

	t, err := scanTournament(executor.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := fmt.Sprintf(`SELECT %s FROM tournaments WHERE 1=1`, tournamentColumns)

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Mode != nil {
		query += fmt.Sprintf(" AND mode = $%d", argID)
		args = append(args, *filter.Mode)
		argID++
	}

	query += " ORDER BY start_time ASC, created_at ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows.Scan)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) TryReserveSlot(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	// Both invariants live in the WHERE clause: the capacity bound and
	// the upcoming status. The UPDATE re-evaluates them on the locked
	// current row version, so neither a concurrent reservation nor a
	// scheduler status flip can race past this.
	query := `
		UPDATE tournaments
		SET registered_teams = registered_teams + 1
		WHERE id = $1 AND status = $2 AND registered_teams < max_teams`

	result, err := executor.ExecContext(ctx, query, id, models.StatusUpcoming)
	if err != nil {
		return fmt.Errorf("failed to reserve slot for tournament %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Classify the refusal: missing row, closed registration or a full
	// tournament.
	var status models.TournamentStatus
	err = executor.QueryRowContext(ctx, `SELECT status FROM tournaments WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to check tournament %d: %w", id, err)
	}
	if status != models.StatusUpcoming {
		return ErrTournamentNotOpen
	}
	return ErrTournamentFull
}

func (r *postgresTournamentRepository) GetDueForStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tournaments
		WHERE (status = $1 AND start_time <= $3)
		   OR (status = $2 AND end_time IS NOT NULL AND end_time <= $3)`, tournamentColumns)

	rows, err := r.db.QueryContext(ctx, query, models.StatusUpcoming, models.StatusLive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments due for status update: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament due for status update: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" && pqErr.Constraint == "tournaments_created_by_fkey" {
			return ErrTournamentInvalidOwner
		}
	}
	return err
}
