package models

import "time"

type TransactionKind string

const (
	KindDeposit           TransactionKind = "deposit"
	KindWithdrawal        TransactionKind = "withdrawal"
	KindTournamentEntry   TransactionKind = "tournament_entry"
	KindTournamentWinning TransactionKind = "tournament_winning"
)

// IsDebit reports whether the kind is expected to carry a negative amount.
func (k TransactionKind) IsDebit() bool {
	return k == KindWithdrawal || k == KindTournamentEntry
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is one entry of the append-only ledger. Amount is signed:
// negative for debits, positive for credits. Only completed entries
// contribute to a user's balance.
type Transaction struct {
	ID            int               `json:"id" db:"id"`
	UserID        int               `json:"user_id" db:"user_id"`
	Amount        int64             `json:"amount" db:"amount"`
	Kind          TransactionKind   `json:"kind" db:"kind"`
	Status        TransactionStatus `json:"status" db:"status"`
	Reference     string            `json:"reference" db:"reference"`
	PaymentMethod *string           `json:"payment_method,omitempty" db:"payment_method"`
	TournamentID  *int              `json:"tournament_id,omitempty" db:"tournament_id"`
	TeamID        *int              `json:"team_id,omitempty" db:"team_id"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}
