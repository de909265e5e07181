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
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrTransactionInvalidUser = errors.New("invalid transaction user reference")
)

type TransactionRepository interface {
	// Create appends one ledger entry. The ledger is append-only;
	// nothing in the codebase updates or deletes rows from it.
	Create(ctx context.Context, exec SQLExecutor, txn *models.Transaction) error
	ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error)
	// SumCompletedByUser is the auditable balance projection: the sum of
	// every completed amount for the user.
	SumCompletedByUser(ctx context.Context, exec SQLExecutor, userID int) (int64, error)
}

type postgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) TransactionRepository {
	return &postgresTransactionRepository{db: db}
}

func (r *postgresTransactionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTransactionRepository) Create(ctx context.Context, exec SQLExecutor, txn *models.Transaction) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO transactions (user_id, amount, kind, status, reference, payment_method, tournament_id, team_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		txn.UserID, txn.Amount, txn.Kind, txn.Status, txn.Reference,
		txn.PaymentMethod, txn.TournamentID, txn.TeamID,
	).Scan(&txn.ID, &txn.CreatedAt)

	return r.handleTransactionError(err)
}

func (r *postgresTransactionRepository) ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, kind, status, reference, payment_method, tournament_id, team_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	args := []interface{}{userID}
	argID := 2
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
		argID++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		if scanErr := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.Status, &t.Reference,
			&t.PaymentMethod, &t.TournamentID, &t.TeamID, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *postgresTransactionRepository) SumCompletedByUser(ctx context.Context, exec SQLExecutor, userID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND status = $2`

	var sum int64
	if err := executor.QueryRowContext(ctx, query, userID, models.TxCompleted).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for user %d: %w", userID, err)
	}
	return sum, nil
}

func (r *postgresTransactionRepository) handleTransactionError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" && pqErr.Constraint == "transactions_user_id_fkey" {
			return ErrTransactionInvalidUser
		}
	}
	return err
}

// IsSerializationError reports whether err is a transient transaction
// conflict (serialization failure or deadlock) that is safe to retry.
func IsSerializationError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
