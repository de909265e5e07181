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
	ErrUserNotFound      = errors.New("user not found")
	ErrUserPhoneConflict = errors.New("phone number is already in use")
	// ErrBalanceConstraint is returned when a conditional balance update
	// matched the user but would take the cached balance negative.
	ErrBalanceConstraint = errors.New("balance update would go negative")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAvatarKey(ctx context.Context, userID int, avatarKey *string) error
	TouchLastLogin(ctx context.Context, userID int, at time.Time) error
	// AdjustBalance atomically applies delta to the cached balance,
	// refusing the update if the result would be negative. It must be
	// called from inside the same transaction that appends the ledger
	// entry the delta belongs to.
	AdjustBalance(ctx context.Context, exec SQLExecutor, userID int, delta int64) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `id, phone_number, nickname, free_fire_uid, division, role, balance, password_hash, avatar_key, created_at, last_login`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.PhoneNumber, &u.Nickname, &u.FreeFireUID, &u.Division,
		&u.Role, &u.Balance, &u.PasswordHash, &u.AvatarKey, &u.CreatedAt, &u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (phone_number, nickname, free_fire_uid, division, role, balance, password_hash)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING id, balance, created_at`

	err := r.db.QueryRowContext(ctx, query,
		u.PhoneNumber, u.Nickname, u.FreeFireUID, u.Division, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.Balance, &u.CreatedAt)

	return r.handleUserError(err)
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	executor := r.getExecutor(exec)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE phone_number = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, phone))
}

func (r *postgresUserRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users SET
			nickname = $1,
			free_fire_uid = $2,
			division = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, u.Nickname, u.FreeFireUID, u.Division, u.ID)
	if err != nil {
		return r.handleUserError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateAvatarKey(ctx context.Context, userID int, avatarKey *string) error {
	query := `UPDATE users SET avatar_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, avatarKey, userID)
	if err != nil {
		return fmt.Errorf("failed to update user avatar key: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) TouchLastLogin(ctx context.Context, userID int, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) AdjustBalance(ctx context.Context, exec SQLExecutor, userID int, delta int64) error {
	executor := r.getExecutor(exec)
	// Single conditional update: the WHERE clause is the non-negative
	// balance invariant, so concurrent debits cannot race past it.
	query := `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2 AND balance + $1 >= 0`

	result, err := executor.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for user %d: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Distinguish a missing user from a refused debit.
	var exists bool
	if err := executor.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrBalanceConstraint
}

func (r *postgresUserRepository) handleUserError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "users_phone_number_key" {
			return ErrUserPhoneConflict
		}
	}
	return err
}
