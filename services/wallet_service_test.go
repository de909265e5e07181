package services

import (
	"context"
	"testing"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type walletEnv struct {
	store      *memStore
	transactor *memTransactor
	users      *memUserRepo
	txns       *memTransactionRepo
	svc        WalletService
}

func newWalletEnv(t *testing.T) (*walletEnv, *models.User) {
	t.Helper()
	store := newMemStore()
	env := &walletEnv{
		store:      store,
		transactor: &memTransactor{store: store},
		users:      &memUserRepo{store: store},
		txns:       &memTransactionRepo{store: store},
	}
	env.svc = NewWalletService(env.transactor, env.txns, env.users)

	user := &models.User{
		PhoneNumber: "+8801712000001",
		Nickname:    "wallet-owner",
		FreeFireUID: "uid-wallet",
		Role:        models.RolePlayer,
	}
	require.NoError(t, env.users.Create(context.Background(), user))
	return env, user
}

func TestWallet_BalanceIsSumOfCompletedEntries(t *testing.T) {
	env, user := newWalletEnv(t)
	ctx := context.Background()

	_, err := env.svc.Deposit(ctx, user.ID, 100, "bKash")
	require.NoError(t, err)
	_, err = env.svc.Withdraw(ctx, user.ID, 30, "Nagad")
	require.NoError(t, err)
	_, err = env.svc.Deposit(ctx, user.ID, 20, "Rocket")
	require.NoError(t, err)

	balance, err := env.svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), balance)

	// The cached column tracks the same projection.
	stored, err := env.users.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), stored.Balance)
}

func TestWallet_PendingEntryDoesNotMoveBalance(t *testing.T) {
	env, user := newWalletEnv(t)
	ctx := context.Background()

	_, err := env.svc.Deposit(ctx, user.ID, 100, "bKash")
	require.NoError(t, err)

	pending := &models.Transaction{
		UserID: user.ID,
		Amount: -40,
		Kind:   models.KindWithdrawal,
		Status: models.TxPending,
	}
	err = env.transactor.WithinTransaction(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		return env.svc.AppendTransaction(ctx, exec, pending)
	})
	require.NoError(t, err)

	balance, err := env.svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	txns, err := env.svc.ListTransactions(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, models.TxPending, txns[0].Status)
}

func TestWallet_WithdrawRefusedWhenInsufficient(t *testing.T) {
	env, user := newWalletEnv(t)
	ctx := context.Background()

	_, err := env.svc.Deposit(ctx, user.ID, 10, "bKash")
	require.NoError(t, err)

	_, err = env.svc.Withdraw(ctx, user.ID, 50, "bKash")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// A refused debit leaves neither a ledger entry nor a balance change.
	balance, err := env.svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	txns, err := env.svc.ListTransactions(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestWallet_RejectsNonPositiveAmounts(t *testing.T) {
	env, user := newWalletEnv(t)
	ctx := context.Background()

	_, err := env.svc.Deposit(ctx, user.ID, 0, "bKash")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.svc.Deposit(ctx, user.ID, -5, "bKash")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.svc.Withdraw(ctx, user.ID, 0, "bKash")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWallet_AppendRejectsSignKindMismatch(t *testing.T) {
	env, user := newWalletEnv(t)
	ctx := context.Background()

	mismatch := &models.Transaction{
		UserID: user.ID,
		Amount: 25,
		Kind:   models.KindWithdrawal,
		Status: models.TxCompleted,
	}
	err := env.transactor.WithinTransaction(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		return env.svc.AppendTransaction(ctx, exec, mismatch)
	})
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestWallet_AppendAssignsReference(t *testing.T) {
	env, user := newWalletEnv(t)

	txn, err := env.svc.Deposit(context.Background(), user.ID, 75, "bKash")
	require.NoError(t, err)
	assert.NotEmpty(t, txn.Reference)
}

func TestWallet_ListTransactionsNewestFirst(t *testing.T) {
	env, user := newWalletEnv(t)
	ctx := context.Background()

	for _, amount := range []int64{10, 20, 30} {
		_, err := env.svc.Deposit(ctx, user.ID, amount, "bKash")
		require.NoError(t, err)
	}

	txns, err := env.svc.ListTransactions(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, int64(30), txns[0].Amount)
	assert.Equal(t, int64(20), txns[1].Amount)
	assert.Equal(t, int64(10), txns[2].Amount)

	// Pagination walks the same ordering.
	page, err := env.svc.ListTransactions(ctx, user.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(20), page[0].Amount)
}

func TestWallet_UnknownUser(t *testing.T) {
	env, _ := newWalletEnv(t)
	ctx := context.Background()

	_, err := env.svc.GetBalance(ctx, 9999)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.svc.Deposit(ctx, 9999, 10, "bKash")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.svc.ListTransactions(ctx, 9999, 10, 0)
	require.ErrorIs(t, err, ErrUserNotFound)
}
