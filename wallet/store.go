/*
store.go - Persistence interfaces for wallets, transactions, and references

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Wallet state, transaction appends, idempotency references
  TxStore: Transactional operations (atomic multi-table writes)

APPEND-ONLY CONTRACT:
  Transactions have exactly one write operation, AppendTransaction.
  There is no update or delete; corrections are modeled as new
  offsetting transactions.

ATOMICITY:
  WithTx() gives all-or-nothing semantics across wallet updates, ledger
  appends, and idempotency records. A transfer writes two wallets and two
  ledger rows in one transaction; either all land or none do.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - wallet/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level append/list built on Store
  - registry.go: Idempotency registry built on Store
*/
package wallet

import (
	"context"
	"time"
)

// =============================================================================
// IDEMPOTENCY REFERENCE RECORD
// =============================================================================

type ReferenceStatus string

const (
	// ReferenceInFlight marks a reference reserved but not yet resolved.
	ReferenceInFlight ReferenceStatus = "in_flight"
	// ReferenceCompleted marks a reference with a recorded result.
	ReferenceCompleted ReferenceStatus = "completed"
)

// ReferenceRecord remembers the outcome of the first application of a
// caller-supplied reference_id. Subsequent requests with the same reference
// replay ResultJSON verbatim instead of mutating any wallet.
type ReferenceRecord struct {
	ReferenceID string
	Operation   string
	Status      ReferenceStatus
	ResultJSON  string
	CreatedAt   time.Time
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store handles persistence of wallets, ledger rows, and reference records.
// The transactions table is APPEND-ONLY: no update, no delete.
type Store interface {
	// GetWallet returns the wallet for userID, or nil if none exists.
	GetWallet(ctx context.Context, userID UserID) (*Wallet, error)

	// SaveWallet inserts or updates a wallet keyed by its UserID.
	SaveWallet(ctx context.Context, w *Wallet) error

	// AppendTransaction persists one immutable ledger row and returns the
	// assigned sequence number. This is the ONLY write to the ledger.
	AppendTransaction(ctx context.Context, tx Transaction) (int64, error)

	// ListTransactions returns rows for userID in descending CreatedAt order
	// (sequence number breaks ties), truncated to limit. Limit must already
	// be clamped by the caller.
	ListTransactions(ctx context.Context, userID UserID, limit int) ([]Transaction, error)

	// GetReference returns the record for referenceID, or nil if unseen.
	GetReference(ctx context.Context, referenceID string) (*ReferenceRecord, error)

	// ReserveReference inserts an in-flight record. Returns
	// ErrReferenceInFlight if the reference already exists.
	ReserveReference(ctx context.Context, rec ReferenceRecord) error

	// CompleteReference stores the final result for a reserved reference.
	CompleteReference(ctx context.Context, referenceID string, resultJSON string) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
//
// Every mutating operation in this package runs inside WithTx so that the
// wallet update, ledger append, and idempotency record commit together.
// If fn returns an error the transaction is rolled back, including any
// reference reservation made inside it.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}
