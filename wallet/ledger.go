/*
ledger.go - Append-only transaction log

PURPOSE:
  The Ledger is the immutable audit trail of every balance change.
  Every credit, debit, and transfer leg is recorded here.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. POSITIVE AMOUNTS: Direction is carried by Type, never by sign
  4. ORDERED: Listing is most-recent-first, sequence breaks ties

CORRECTIONS:
  If a mistake is made, you don't edit the transaction. You write a new
  offsetting transaction. Both remain in the ledger; the net effect is the
  correction, and history is preserved.

SEE ALSO:
  - store.go: Low-level persistence interface
  - service.go: Writes ledger rows inside the same transaction as the
    wallet mutation they describe
*/
package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Listing limits. A zero or absent limit uses the default; anything above
// the maximum is clamped.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Ledger provides append and list operations over a Store.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append validates and persists one ledger row, assigning its ID and
// creation time. Returns the assigned transaction ID.
func (l *Ledger) Append(ctx context.Context, tx Transaction) (TransactionID, error) {
	if !tx.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if tx.ID == "" {
		tx.ID = TransactionID(uuid.NewString())
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = StatusCompleted
	}

	if _, err := l.store.AppendTransaction(ctx, tx); err != nil {
		return "", err
	}
	return tx.ID, nil
}

// ListForWallet returns transactions for a wallet, most recent first.
func (l *Ledger) ListForWallet(ctx context.Context, userID UserID, limit int) ([]Transaction, error) {
	return l.store.ListTransactions(ctx, userID, ClampLimit(limit))
}

// ClampLimit normalizes a caller-supplied listing limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
