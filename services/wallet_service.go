package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
	"github.com/google/uuid"
)

// WalletService is the ledger store: the authoritative log of monetary
// movements plus the per-user balance projection. Nothing else in the
// codebase moves a balance.
type WalletService interface {
	Deposit(ctx context.Context, userID int, amount int64, paymentMethod string) (*models.Transaction, error)
	Withdraw(ctx context.Context, userID int, amount int64, paymentMethod string) (*models.Transaction, error)
	// GetBalance recomputes the balance from the completed entries of
	// the ledger, so it can be audited against the cached column.
	GetBalance(ctx context.Context, userID int) (int64, error)
	ListTransactions(ctx context.Context, userID, limit, offset int) ([]models.Transaction, error)
	// AppendTransaction appends one ledger entry using the caller's
	// executor, so orchestrations (team registration) can make the
	// debit part of their own transaction.
	AppendTransaction(ctx context.Context, exec repositories.SQLExecutor, txn *models.Transaction) error
}

type walletService struct {
	transactor repositories.Transactor
	txnRepo    repositories.TransactionRepository
	userRepo   repositories.UserRepository
}

func NewWalletService(
	transactor repositories.Transactor,
	txnRepo repositories.TransactionRepository,
	userRepo repositories.UserRepository,
) WalletService {
	return &walletService{
		transactor: transactor,
		txnRepo:    txnRepo,
		userRepo:   userRepo,
	}
}

func (s *walletService) Deposit(ctx context.Context, userID int, amount int64, paymentMethod string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	txn := &models.Transaction{
		UserID: userID,
		Amount: amount,
		Kind:   models.KindDeposit,
		Status: models.TxCompleted,
	}
	if paymentMethod != "" {
		txn.PaymentMethod = &paymentMethod
	}
	if err := s.appendWithinTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *walletService) Withdraw(ctx context.Context, userID int, amount int64, paymentMethod string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	txn := &models.Transaction{
		UserID: userID,
		Amount: -amount,
		Kind:   models.KindWithdrawal,
		Status: models.TxCompleted,
	}
	if paymentMethod != "" {
		txn.PaymentMethod = &paymentMethod
	}
	if err := s.appendWithinTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *walletService) appendWithinTransaction(ctx context.Context, txn *models.Transaction) error {
	return s.transactor.WithinTransaction(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		return s.AppendTransaction(ctx, exec, txn)
	})
}

func (s *walletService) AppendTransaction(ctx context.Context, exec repositories.SQLExecutor, txn *models.Transaction) error {
	if txn.Amount == 0 {
		return ErrInvalidAmount
	}
	if txn.Kind.IsDebit() != (txn.Amount < 0) {
		return fmt.Errorf("%w: amount sign does not match kind %s", ErrValidationFailed, txn.Kind)
	}
	if txn.Reference == "" {
		txn.Reference = uuid.NewString()
	}

	// Only completed entries move the cached balance; the conditional
	// update in AdjustBalance enforces the non-negative invariant.
	if txn.Status == models.TxCompleted {
		if err := s.userRepo.AdjustBalance(ctx, exec, txn.UserID, txn.Amount); err != nil {
			switch {
			case errors.Is(err, repositories.ErrBalanceConstraint):
				return ErrInsufficientFunds
			case errors.Is(err, repositories.ErrUserNotFound):
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to apply transaction amount: %w", err)
		}
	}

	if err := s.txnRepo.Create(ctx, exec, txn); err != nil {
		if errors.Is(err, repositories.ErrTransactionInvalidUser) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *walletService) GetBalance(ctx context.Context, userID int) (int64, error) {
	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return s.txnRepo.SumCompletedByUser(ctx, nil, userID)
}

func (s *walletService) ListTransactions(ctx context.Context, userID, limit, offset int) ([]models.Transaction, error) {
	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.txnRepo.ListByUser(ctx, userID, limit, offset)
}
