/*
handlers.go - HTTP API handlers for the Happy Paisa ledger

PURPOSE:
  Exposes the wallet service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the domain logic.

ENDPOINTS:
  GET    /health                         Liveness check
  POST   /api/v1/wallet                  Create wallet (idempotent)
  GET    /api/v1/balance/{user_id}       Balance and lifetime totals
  POST   /api/v1/add-funds               Credit a wallet
  POST   /api/v1/deduct-funds            Debit a wallet
  POST   /api/v1/transfer                Atomic two-wallet transfer
  GET    /api/v1/transactions/{user_id}  Transaction history (?limit=N)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad amount, same-wallet transfer, bad body)
  - 404: Wallet not found
  - 409: Reference currently in flight (retry later)
  - 422: Insufficient funds
  - 500: Internal errors
  Idempotent replays are NOT errors: the recorded result is returned with
  the status it originally produced.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - wallet/service.go: The operations behind these handlers
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/happypaisa/ledger/wallet"
)

const (
	serviceName    = "happy-paisa-ledger"
	serviceVersion = "1.0.0"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *wallet.Service
}

// NewHandler creates a new handler over the given service.
func NewHandler(service *wallet.Service) *Handler {
	return &Handler{Service: service}
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   serviceName,
		Version:   serviceVersion,
		Timestamp: time.Now().UTC(),
	})
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// CreateWallet creates the wallet for a user, or returns the existing one.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	created, err := h.Service.CreateWallet(r.Context(), wallet.UserID(req.UserID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create wallet", err)
		return
	}

	writeJSON(w, http.StatusOK, toWalletDTO(created))
}

// GetBalance returns balance and lifetime totals for a wallet.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := wallet.UserID(chi.URLParam(r, "user_id"))

	wal, err := h.Service.GetBalance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(wal))
}

// GetTransactions returns the wallet's history, most recent first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := wallet.UserID(chi.URLParam(r, "user_id"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}

	txs, err := h.Service.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// FUNDS HANDLERS
// =============================================================================

// AddFunds credits a wallet.
func (h *Handler) AddFunds(w http.ResponseWriter, r *http.Request) {
	var req AddFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Service.AddFunds(r.Context(), wallet.AddFundsRequest{
		UserID:      wallet.UserID(req.UserID),
		Amount:      decimal.NewFromFloat(req.Amount),
		Source:      req.Source,
		ReferenceID: req.ReferenceID,
	})
	writeOperationOutcome(w, res, err)
}

// DeductFunds debits a wallet.
func (h *Handler) DeductFunds(w http.ResponseWriter, r *http.Request) {
	var req DeductFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Service.DeductFunds(r.Context(), wallet.DeductFundsRequest{
		UserID:      wallet.UserID(req.UserID),
		Amount:      decimal.NewFromFloat(req.Amount),
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
	})
	writeOperationOutcome(w, res, err)
}

// Transfer moves funds between two wallets atomically.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Service.Transfer(r.Context(), wallet.TransferRequest{
		FromUserID:  wallet.UserID(req.FromUserID),
		ToUserID:    wallet.UserID(req.ToUserID),
		Amount:      decimal.NewFromFloat(req.Amount),
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	})
	writeOperationOutcome(w, res, err)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeOperationOutcome renders a service result. Recorded failures carry
// both a result payload and an error; replays return whatever status the
// original application produced.
func writeOperationOutcome(w http.ResponseWriter, res *wallet.OperationResult, err error) {
	if res != nil {
		writeJSON(w, statusFor(err), toTransactionResponse(res))
		return
	}
	writeServiceError(w, err)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := "Internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrSameWalletTransfer):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrReferenceInFlight):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
