/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements wallet.Store and wallet.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  wallets:          Current balance and lifetime totals per user
  transactions:     Immutable ledger of all balance changes
  idempotency_keys: Reference reservations and recorded results

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch the transactions table.
  Corrections are modeled as new offsetting transactions.

ORDERING:
  The seq column (AUTOINCREMENT) breaks created_at ties so listings are
  deterministic: ORDER BY created_at DESC, seq DESC.

MONEY:
  Amounts are stored as decimal strings, never floats. shopspring/decimal
  round-trips them exactly.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's single-writer
  model. WAL mode keeps readers from blocking.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := wallet.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - wallet/store.go: Interface definitions
  - wallet/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/happypaisa/ledger/wallet"
)

// Store implements wallet.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite is single-writer; one pooled connection also keeps ":memory:"
	// databases on a single handle instead of one empty DB per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Wallets (current state, keyed by user)
	CREATE TABLE IF NOT EXISTS wallets (
		user_id TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		total_earned TEXT NOT NULL,
		total_spent TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Transactions (append-only ledger)
	-- seq breaks created_at ties when listing.
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		reference_id TEXT,
		counterparty_id TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Listing hot path: per-wallet history, most recent first
	CREATE INDEX IF NOT EXISTS idx_transactions_user_created
		ON transactions(user_id, created_at DESC, seq DESC);

	-- For reference lookups across transfer legs
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;

	-- Idempotency registry
	CREATE TABLE IF NOT EXISTS idempotency_keys (
		reference_id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		status TEXT NOT NULL,
		result_json TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is the subset of *sql.DB and *sql.Tx the row operations need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// WALLET STORE (wallet.Store interface)
// =============================================================================

// GetWallet returns the wallet for userID, or nil if none exists.
func (s *Store) GetWallet(ctx context.Context, userID wallet.UserID) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getWallet(ctx, s.db, userID)
}

func getWallet(ctx context.Context, db querier, userID wallet.UserID) (*wallet.Wallet, error) {
	row := db.QueryRowContext(ctx, `
		SELECT user_id, balance, total_earned, total_spent, is_active, created_at, updated_at
		FROM wallets WHERE user_id = ?
	`, userID)

	var (
		w         wallet.Wallet
		balance   string
		earned    string
		spent     string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&w.UserID, &balance, &earned, &spent, &w.IsActive, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	w.Balance = parseDecimal(balance)
	w.TotalEarned = parseDecimal(earned)
	w.TotalSpent = parseDecimal(spent)
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &w, nil
}

// SaveWallet inserts or updates a wallet keyed by user_id.
func (s *Store) SaveWallet(ctx context.Context, w *wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveWallet(ctx, s.db, w)
}

func saveWallet(ctx context.Context, db querier, w *wallet.Wallet) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, total_earned, total_spent, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			balance = excluded.balance,
			total_earned = excluded.total_earned,
			total_spent = excluded.total_spent,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`,
		w.UserID,
		w.Balance.String(),
		w.TotalEarned.String(),
		w.TotalSpent.String(),
		w.IsActive,
		w.CreatedAt.UTC().Format(time.RFC3339),
		w.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTION LEDGER (append-only)
// =============================================================================

// AppendTransaction adds a ledger row and returns its sequence number.
func (s *Store) AppendTransaction(ctx context.Context, tx wallet.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, db querier, tx wallet.Transaction) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, user_id, tx_type, amount, description, reference_id, counterparty_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID,
		tx.UserID,
		tx.Type,
		tx.Amount.String(),
		tx.Description,
		nullString(tx.ReferenceID),
		nullString(string(tx.CounterpartyID)),
		tx.Status,
		tx.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}
	return res.LastInsertId()
}

// ListTransactions returns rows most recent first, seq breaking ties.
func (s *Store) ListTransactions(ctx context.Context, userID wallet.UserID, limit int) ([]wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db, userID, limit)
}

func listTransactions(ctx context.Context, db querier, userID wallet.UserID, limit int) ([]wallet.Transaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, id, user_id, tx_type, amount, description, reference_id, counterparty_id, status, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []wallet.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (wallet.Transaction, error) {
	var (
		tx             wallet.Transaction
		amount         string
		description    sql.NullString
		referenceID    sql.NullString
		counterpartyID sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&tx.Seq, &tx.ID, &tx.UserID, &tx.Type,
		&amount, &description, &referenceID, &counterpartyID, &tx.Status, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Amount = parseDecimal(amount)
	tx.Description = description.String
	tx.ReferenceID = referenceID.String
	tx.CounterpartyID = wallet.UserID(counterpartyID.String)
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return tx, nil
}

// =============================================================================
// IDEMPOTENCY REGISTRY
// =============================================================================

// GetReference returns the record for referenceID, or nil if unseen.
func (s *Store) GetReference(ctx context.Context, referenceID string) (*wallet.ReferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getReference(ctx, s.db, referenceID)
}

func getReference(ctx context.Context, db querier, referenceID string) (*wallet.ReferenceRecord, error) {
	row := db.QueryRowContext(ctx, `
		SELECT reference_id, operation, status, result_json, created_at
		FROM idempotency_keys WHERE reference_id = ?
	`, referenceID)

	var (
		rec        wallet.ReferenceRecord
		resultJSON sql.NullString
		createdAt  string
	)
	err := row.Scan(&rec.ReferenceID, &rec.Operation, &rec.Status, &resultJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reference: %w", err)
	}

	rec.ResultJSON = resultJSON.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

// ReserveReference inserts an in-flight record for referenceID.
func (s *Store) ReserveReference(ctx context.Context, rec wallet.ReferenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reserveReference(ctx, s.db, rec)
}

func reserveReference(ctx context.Context, db querier, rec wallet.ReferenceRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (reference_id, operation, status, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.ReferenceID,
		rec.Operation,
		rec.Status,
		nullString(rec.ResultJSON),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return wallet.ErrReferenceInFlight
		}
		return fmt.Errorf("failed to reserve reference: %w", err)
	}
	return nil
}

// CompleteReference stores the final result for a reserved reference.
func (s *Store) CompleteReference(ctx context.Context, referenceID string, resultJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return completeReference(ctx, s.db, referenceID, resultJSON)
}

func completeReference(ctx context.Context, db querier, referenceID string, resultJSON string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE idempotency_keys SET status = ?, result_json = ? WHERE reference_id = ?
	`, wallet.ReferenceCompleted, resultJSON, referenceID)
	if err != nil {
		return fmt.Errorf("failed to complete reference: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (wallet.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store wallet.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx}
	if err := fn(txStore); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetWallet(ctx context.Context, userID wallet.UserID) (*wallet.Wallet, error) {
	return getWallet(ctx, ts.tx, userID)
}

func (ts *txStore) SaveWallet(ctx context.Context, w *wallet.Wallet) error {
	return saveWallet(ctx, ts.tx, w)
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx wallet.Transaction) (int64, error) {
	return appendTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) ListTransactions(ctx context.Context, userID wallet.UserID, limit int) ([]wallet.Transaction, error) {
	return listTransactions(ctx, ts.tx, userID, limit)
}

func (ts *txStore) GetReference(ctx context.Context, referenceID string) (*wallet.ReferenceRecord, error) {
	return getReference(ctx, ts.tx, referenceID)
}

func (ts *txStore) ReserveReference(ctx context.Context, rec wallet.ReferenceRecord) error {
	return reserveReference(ctx, ts.tx, rec)
}

func (ts *txStore) CompleteReference(ctx context.Context, referenceID string, resultJSON string) error {
	return completeReference(ctx, ts.tx, referenceID, resultJSON)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
