package handlers

import (
	"net/http"
	"strconv"

	"github.com/ffarena/ff-arena/middleware"
	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/services"
)

type WalletHandler struct {
	walletService services.WalletService
}

func NewWalletHandler(walletService services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

type createTransactionInput struct {
	Amount        int64                  `json:"amount"`
	Kind          models.TransactionKind `json:"kind"`
	PaymentMethod string                 `json:"payment_method,omitempty"`
}

// CreateTransactionHandler handles POST /transactions for the current
// user. Only deposits and withdrawals come through the API; entry fees
// are appended by the registration flow.
func (h *WalletHandler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input createTransactionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var txn *models.Transaction
	switch input.Kind {
	case models.KindDeposit:
		txn, err = h.walletService.Deposit(r.Context(), userID, input.Amount, input.PaymentMethod)
	case models.KindWithdrawal:
		txn, err = h.walletService.Withdraw(r.Context(), userID, input.Amount, input.PaymentMethod)
	default:
		mapServiceErrorToHTTP(w, r, services.ErrInvalidTransactionKind)
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"transaction": txn}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBalanceHandler handles GET /wallet/balance for the current user.
func (h *WalletHandler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	balance, err := h.walletService.GetBalance(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"balance": balance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTransactionsHandler handles GET /users/{userID}/transactions.
// Users may only read their own history unless they are an admin.
func (h *WalletHandler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if userID != currentUserID {
		role, roleErr := middleware.GetUserRoleFromContext(r.Context())
		if roleErr != nil || role != models.RoleAdmin {
			forbiddenResponse(w, r, services.ErrForbiddenOperation.Error())
			return
		}
	}

	limit, offset := 0, 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, _ = strconv.Atoi(offsetStr)
	}

	transactions, err := h.walletService.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": transactions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
