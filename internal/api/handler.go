package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"usdt-settlement-go/internal/deposit"
	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"
	"usdt-settlement-go/internal/store"
	"usdt-settlement-go/internal/withdraw"
)

// Handler exposes the settlement services over HTTP.
type Handler struct {
	deposits    *deposit.Service
	withdrawals *withdraw.Service
	store       store.LedgerStore
	registry    *networks.Registry
}

func NewHandler(deposits *deposit.Service, withdrawals *withdraw.Service, ledger store.LedgerStore, registry *networks.Registry) *Handler {
	return &Handler{
		deposits:    deposits,
		withdrawals: withdrawals,
		store:       ledger,
		registry:    registry,
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("Failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError maps service sentinels onto HTTP status codes.
func respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, networks.ErrInvalidNetwork),
		errors.Is(err, networks.ErrBelowMinimum),
		errors.Is(err, networks.ErrAboveMaximum):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrAddressNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		statusCode = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, store.ErrAlreadySettled),
		errors.Is(err, store.ErrAddressNotPending):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.Is(err, store.ErrInsufficientBalance),
		errors.Is(err, withdraw.ErrInsufficientPlatformBalance):
		statusCode = http.StatusPaymentRequired
		message = err.Error()
	case errors.Is(err, deposit.ErrVerificationFailed):
		statusCode = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, deposit.ErrAddressSpaceExhausted):
		statusCode = http.StatusServiceUnavailable
		message = err.Error()
	default:
		zap.L().Error("Unhandled service error", zap.Error(err))
	}

	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func toAddressResponse(addr *models.DepositAddress) models.DepositAddressResponse {
	return models.DepositAddressResponse{
		Id:          addr.Id,
		UserId:      addr.UserId,
		Network:     addr.Network,
		Amount:      addr.Amount,
		Address:     addr.Address,
		Status:      addr.Status,
		ExpiresAt:   addr.ExpiresAt,
		CreatedAt:   addr.CreatedAt,
		CompletedAt: addr.CompletedAt,
	}
}

func toTransactionResponse(transaction *models.Transaction) models.TransactionResponse {
	return models.TransactionResponse{
		Id:                 transaction.Id,
		UserId:             transaction.UserId,
		Kind:               transaction.Kind,
		Amount:             transaction.Amount,
		Currency:           transaction.Currency,
		Network:            transaction.Network,
		Status:             transaction.Status,
		TxHash:             transaction.TxHash,
		DepositAddressId:   transaction.DepositAddressId,
		DestinationAddress: transaction.DestinationAddress,
		Notes:              transaction.Notes,
		CreatedAt:          transaction.CreatedAt,
	}
}

type createDepositRequest struct {
	UserId  string          `json:"user_id"`
	Network string          `json:"network"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreateDepositAddress issues a new deposit address.
// POST /api/deposits
func (h *Handler) CreateDepositAddress(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	addr, err := h.deposits.CreateDepositAddress(r.Context(), req.UserId, req.Network, req.Amount)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toAddressResponse(addr))
}

// GetDepositAddress returns the current state of a deposit address.
// GET /api/deposits/{addressID}
func (h *Handler) GetDepositAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := h.deposits.GetDepositAddressStatus(r.Context(), chi.URLParam(r, "addressID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toAddressResponse(addr))
}

// CancelDepositAddress abandons a pending deposit address.
// POST /api/deposits/{addressID}/cancel
func (h *Handler) CancelDepositAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := h.deposits.CancelDepositAddress(r.Context(), chi.URLParam(r, "addressID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toAddressResponse(addr))
}

type verifyDepositRequest struct {
	TxHash string `json:"tx_hash"`
}

// VerifyDeposit settles a deposit from a user-supplied transaction hash.
// POST /api/deposits/{addressID}/verify
func (h *Handler) VerifyDeposit(w http.ResponseWriter, r *http.Request) {
	var req verifyDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TxHash == "" {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "tx_hash is required"})
		return
	}

	result, err := h.deposits.VerifyDeposit(r.Context(), chi.URLParam(r, "addressID"), req.TxHash)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// SweepExpired runs an on-demand expiry sweep.
// POST /api/deposits/sweep
func (h *Handler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	count, err := h.deposits.SweepExpired(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"expired": count})
}

type withdrawalRequest struct {
	UserId             string          `json:"user_id"`
	Network            string          `json:"network"`
	DestinationAddress string          `json:"destination_address"`
	Amount             decimal.Decimal `json:"amount"`
}

// RequestWithdrawal opens a pending withdrawal.
// POST /api/withdrawals
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	transaction, err := h.withdrawals.RequestWithdrawal(r.Context(), req.UserId, req.Network, req.DestinationAddress, req.Amount)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toTransactionResponse(transaction))
}

// ProcessWithdrawal broadcasts a pending withdrawal.
// POST /api/withdrawals/{transactionID}/process
func (h *Handler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.withdrawals.ProcessWithdrawal(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toTransactionResponse(transaction))
}

// GetUserBalance returns a user's settled ledger balance.
// GET /api/users/{userID}/balance
func (h *Handler) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userID")
	if _, err := h.store.GetUserById(r.Context(), userId); err != nil {
		respondWithError(w, err)
		return
	}

	balance, err := h.store.GetUserBalance(r.Context(), userId)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userId,
		"balance":  balance.Balance,
		"currency": "USD",
	})
}

// GetTransactionHistory returns paginated ledger entries for a user.
// GET /api/users/{userID}/transactions?limit=&offset=
func (h *Handler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userID")
	if _, err := h.store.GetUserById(r.Context(), userId); err != nil {
		respondWithError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	history, err := h.store.GetTransactionHistory(r.Context(), userId, limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}

	responses := make([]models.TransactionResponse, 0, len(history))
	for i := range history {
		responses = append(responses, toTransactionResponse(&history[i]))
	}
	respondWithJSON(w, http.StatusOK, responses)
}

type networkResponse struct {
	Network       string          `json:"network"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	Decimals      int             `json:"decimals"`
	MinDeposit    decimal.Decimal `json:"min_deposit"`
	MaxDeposit    decimal.Decimal `json:"max_deposit"`
	MinWithdrawal decimal.Decimal `json:"min_withdrawal"`
	MaxWithdrawal decimal.Decimal `json:"max_withdrawal"`
	WithdrawalFee decimal.Decimal `json:"withdrawal_fee"`
	Explorer      string          `json:"explorer"`
}

// ListNetworks returns the supported networks and their parameters.
// GET /api/networks
func (h *Handler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	var responses []networkResponse
	for _, network := range h.registry.All() {
		params, err := h.registry.Params(network)
		if err != nil {
			respondWithError(w, err)
			return
		}
		responses = append(responses, networkResponse{
			Network:       string(network),
			Name:          params.Name,
			Currency:      params.Currency,
			Decimals:      params.Decimals,
			MinDeposit:    params.MinDeposit,
			MaxDeposit:    params.MaxDeposit,
			MinWithdrawal: params.MinWithdrawal,
			MaxWithdrawal: params.MaxWithdrawal,
			WithdrawalFee: params.WithdrawalFee,
			Explorer:      params.Explorer,
		})
	}
	respondWithJSON(w, http.StatusOK, responses)
}
