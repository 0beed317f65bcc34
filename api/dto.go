/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

PRECISION NOTE:
  Amounts cross the wire as JSON numbers for display. All arithmetic and
  storage use decimal.Decimal internally; the float conversion happens only
  at this boundary.

SEE ALSO:
  - handlers.go: Uses these types
  - wallet/service.go: The domain types these map from
*/
package api

import (
	"time"

	"github.com/happypaisa/ledger/wallet"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateWalletRequest creates (or returns) the wallet for a user.
type CreateWalletRequest struct {
	UserID string `json:"user_id"`
}

// AddFundsRequest credits a wallet.
type AddFundsRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Source      string  `json:"source"`
	ReferenceID string  `json:"reference_id,omitempty"`
}

// DeductFundsRequest debits a wallet.
type DeductFundsRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
	ReferenceID string  `json:"reference_id,omitempty"`
}

// TransferRequest moves funds between two wallets.
type TransferRequest struct {
	FromUserID  string  `json:"from_user_id"`
	ToUserID    string  `json:"to_user_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	ReferenceID string  `json:"reference_id,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// WalletDTO represents full wallet state.
type WalletDTO struct {
	UserID      string  `json:"user_id"`
	Balance     float64 `json:"balance"`
	TotalEarned float64 `json:"total_earned"`
	TotalSpent  float64 `json:"total_spent"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// BalanceDTO is the balance summary returned by GET /balance.
type BalanceDTO struct {
	UserID      string  `json:"user_id"`
	Balance     float64 `json:"balance"`
	TotalEarned float64 `json:"total_earned"`
	TotalSpent  float64 `json:"total_spent"`
}

// TransactionDTO represents one ledger row.
type TransactionDTO struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Type           string  `json:"transaction_type"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description"`
	ReferenceID    string  `json:"reference_id,omitempty"`
	CounterpartyID string  `json:"counterparty_wallet_id,omitempty"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
}

// TransactionResponse is the outcome of a mutating operation.
type TransactionResponse struct {
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Message       string  `json:"message"`
	Balance       float64 `json:"balance"`
	Replayed      bool    `json:"replayed,omitempty"`
}

// ErrorResponse carries a request failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toWalletDTO(w *wallet.Wallet) WalletDTO {
	return WalletDTO{
		UserID:      string(w.UserID),
		Balance:     w.Balance.InexactFloat64(),
		TotalEarned: w.TotalEarned.InexactFloat64(),
		TotalSpent:  w.TotalSpent.InexactFloat64(),
		IsActive:    w.IsActive,
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   w.UpdatedAt.Format(time.RFC3339),
	}
}

func toBalanceDTO(w *wallet.Wallet) BalanceDTO {
	return BalanceDTO{
		UserID:      string(w.UserID),
		Balance:     w.Balance.InexactFloat64(),
		TotalEarned: w.TotalEarned.InexactFloat64(),
		TotalSpent:  w.TotalSpent.InexactFloat64(),
	}
}

func toTransactionDTO(tx wallet.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             string(tx.ID),
		UserID:         string(tx.UserID),
		Type:           string(tx.Type),
		Amount:         tx.Amount.InexactFloat64(),
		Description:    tx.Description,
		ReferenceID:    tx.ReferenceID,
		CounterpartyID: string(tx.CounterpartyID),
		Status:         tx.Status,
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionResponse(res *wallet.OperationResult) TransactionResponse {
	return TransactionResponse{
		Success:       res.Success,
		TransactionID: string(res.TransactionID),
		Message:       res.Message,
		Balance:       res.Balance.InexactFloat64(),
		Replayed:      res.Replayed,
	}
}
