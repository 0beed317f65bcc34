/*
Package wallet provides the core Happy Paisa ledger engine.

PURPOSE:
  This package contains the domain types and operations for the wallet
  ledger: per-user balances with lifetime earn/spend totals, an append-only
  transaction log, idempotent request handling, and atomic two-wallet
  transfers.

KEY CONCEPTS IN THIS FILE (types.go):
  - Wallet: Per-user balance record plus lifetime totals
  - Transaction: An immutable ledger entry recording one balance change
  - TransactionType: credit, debit, transfer_in, transfer_out
  - UserID / TransactionID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only offset
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Invariants: balance == total_earned - total_spent, balance >= 0
  4. Auditability: Every transaction has a description and reference

USAGE:
  w := wallet.NewWallet("user-123")
  if err := w.Credit(decimal.NewFromFloat(100.50)); err != nil { ... }

SEE ALSO:
  - store.go: Persistence interfaces
  - ledger.go: Append-only transaction log
  - service.go: Operation surface (add funds, deduct, transfer)
*/
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TransactionID string

// =============================================================================
// WALLET - Per-user balance record
// =============================================================================

// Wallet holds the current balance and lifetime totals for one user.
//
// INVARIANTS (enforced by Credit/Debit, checked by CheckInvariants):
//   - Balance == TotalEarned - TotalSpent at all times
//   - Balance >= 0 at all times
//   - TotalEarned and TotalSpent are monotonic, non-decreasing
type Wallet struct {
	UserID      UserID
	Balance     decimal.Decimal
	TotalEarned decimal.Decimal
	TotalSpent  decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewWallet creates a wallet with zero balance and totals.
func NewWallet(userID UserID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:      userID,
		Balance:     decimal.Zero,
		TotalEarned: decimal.Zero,
		TotalSpent:  decimal.Zero,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Credit increases Balance and TotalEarned by amount.
// Amount must be strictly positive.
func (w *Wallet) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	w.Balance = w.Balance.Add(amount)
	w.TotalEarned = w.TotalEarned.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Debit decreases Balance and increases TotalSpent by amount.
// Amount must be strictly positive and must not exceed Balance.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return &InsufficientFundsError{
			UserID:    w.UserID,
			Available: w.Balance,
			Requested: amount,
			Shortfall: amount.Sub(w.Balance),
		}
	}
	w.Balance = w.Balance.Sub(amount)
	w.TotalSpent = w.TotalSpent.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// CheckInvariants verifies the wallet's accounting identity.
func (w *Wallet) CheckInvariants() error {
	if w.Balance.IsNegative() {
		return ErrInvariantViolated
	}
	if !w.Balance.Equal(w.TotalEarned.Sub(w.TotalSpent)) {
		return ErrInvariantViolated
	}
	return nil
}

// =============================================================================
// TRANSACTION - Immutable ledger row
// =============================================================================

type TransactionType string

const (
	TxCredit      TransactionType = "credit"       // Funds added from an external source
	TxDebit       TransactionType = "debit"        // Funds deducted for an external reason
	TxTransferIn  TransactionType = "transfer_in"  // Received side of a transfer
	TxTransferOut TransactionType = "transfer_out" // Sent side of a transfer
)

// Transaction is one immutable row of the ledger. Amount is always strictly
// positive; the direction is carried by Type. A transfer produces two rows
// (transfer_out on the sender, transfer_in on the recipient) sharing one
// ReferenceID.
type Transaction struct {
	ID             TransactionID
	UserID         UserID
	Type           TransactionType
	Amount         decimal.Decimal
	Description    string
	ReferenceID    string // Caller-supplied idempotency key, may be empty
	CounterpartyID UserID // Set only on transfer rows
	Status         string
	CreatedAt      time.Time

	// Seq is assigned by the store on append and breaks created_at ties
	// when listing. Monotonically increasing per store.
	Seq int64
}

// IsCredit reports whether the row increases the owning wallet's balance.
func (t Transaction) IsCredit() bool {
	return t.Type == TxCredit || t.Type == TxTransferIn
}

// StatusCompleted is the only transaction status in scope. Rows are written
// once their operation commits; there is no pending state.
const StatusCompleted = "completed"
