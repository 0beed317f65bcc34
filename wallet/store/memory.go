// Package store provides wallet.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/happypaisa/ledger/wallet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	wallets      map[wallet.UserID]wallet.Wallet
	transactions map[wallet.UserID][]wallet.Transaction
	references   map[string]wallet.ReferenceRecord
	nextSeq      int64
}

func NewMemory() *Memory {
	return &Memory{
		wallets:      make(map[wallet.UserID]wallet.Wallet),
		transactions: make(map[wallet.UserID][]wallet.Transaction),
		references:   make(map[string]wallet.ReferenceRecord),
	}
}

func (m *Memory) GetWallet(_ context.Context, userID wallet.UserID) (*wallet.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getWalletLocked(userID), nil
}

func (m *Memory) getWalletLocked(userID wallet.UserID) *wallet.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		return nil
	}
	// Copy so callers can't mutate stored state directly.
	out := w
	return &out
}

func (m *Memory) SaveWallet(_ context.Context, w *wallet.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[w.UserID] = *w
	return nil
}

// AppendTransaction adds a single row. Append-only.
func (m *Memory) AppendTransaction(_ context.Context, tx wallet.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

func (m *Memory) appendLocked(tx wallet.Transaction) (int64, error) {
	m.nextSeq++
	tx.Seq = m.nextSeq
	m.transactions[tx.UserID] = append(m.transactions[tx.UserID], tx)
	return tx.Seq, nil
}

// ListTransactions returns rows most recent first. Rows are stored in append
// order, which is also CreatedAt order, so listing walks backwards.
func (m *Memory) ListTransactions(_ context.Context, userID wallet.UserID, limit int) ([]wallet.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.transactions[userID]
	result := make([]wallet.Transaction, 0, limit)
	for i := len(txs) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, txs[i])
	}
	return result, nil
}

func (m *Memory) GetReference(_ context.Context, referenceID string) (*wallet.ReferenceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.references[referenceID]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (m *Memory) ReserveReference(_ context.Context, rec wallet.ReferenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.references[rec.ReferenceID]; ok {
		return wallet.ErrReferenceInFlight
	}
	m.references[rec.ReferenceID] = rec
	return nil
}

func (m *Memory) CompleteReference(_ context.Context, referenceID string, resultJSON string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.references[referenceID]
	rec.ReferenceID = referenceID
	rec.Status = wallet.ReferenceCompleted
	rec.ResultJSON = resultJSON
	m.references[referenceID] = rec
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(wallet.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	txStore := &txMemoryView{parent: tm}
	if err := fn(txStore); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	wallets      map[wallet.UserID]wallet.Wallet
	transactions map[wallet.UserID][]wallet.Transaction
	references   map[string]wallet.ReferenceRecord
	nextSeq      int64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	walletsCopy := make(map[wallet.UserID]wallet.Wallet, len(tm.wallets))
	for k, v := range tm.wallets {
		walletsCopy[k] = v
	}
	txsCopy := make(map[wallet.UserID][]wallet.Transaction, len(tm.transactions))
	for k, v := range tm.transactions {
		txsCopy[k] = append([]wallet.Transaction{}, v...)
	}
	refsCopy := make(map[string]wallet.ReferenceRecord, len(tm.references))
	for k, v := range tm.references {
		refsCopy[k] = v
	}
	return memorySnapshot{
		wallets:      walletsCopy,
		transactions: txsCopy,
		references:   refsCopy,
		nextSeq:      tm.nextSeq,
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.wallets = s.wallets
	tm.transactions = s.transactions
	tm.references = s.references
	tm.nextSeq = s.nextSeq
}

// txMemoryView operates directly on the parent under the lock WithTx holds.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetWallet(_ context.Context, userID wallet.UserID) (*wallet.Wallet, error) {
	return tv.parent.getWalletLocked(userID), nil
}

func (tv *txMemoryView) SaveWallet(_ context.Context, w *wallet.Wallet) error {
	tv.parent.wallets[w.UserID] = *w
	return nil
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, tx wallet.Transaction) (int64, error) {
	return tv.parent.appendLocked(tx)
}

func (tv *txMemoryView) ListTransactions(_ context.Context, userID wallet.UserID, limit int) ([]wallet.Transaction, error) {
	txs := tv.parent.transactions[userID]
	result := make([]wallet.Transaction, 0, limit)
	for i := len(txs) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, txs[i])
	}
	return result, nil
}

func (tv *txMemoryView) GetReference(_ context.Context, referenceID string) (*wallet.ReferenceRecord, error) {
	rec, ok := tv.parent.references[referenceID]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (tv *txMemoryView) ReserveReference(_ context.Context, rec wallet.ReferenceRecord) error {
	if _, ok := tv.parent.references[rec.ReferenceID]; ok {
		return wallet.ErrReferenceInFlight
	}
	tv.parent.references[rec.ReferenceID] = rec
	return nil
}

func (tv *txMemoryView) CompleteReference(_ context.Context, referenceID string, resultJSON string) error {
	rec := tv.parent.references[referenceID]
	rec.ReferenceID = referenceID
	rec.Status = wallet.ReferenceCompleted
	rec.ResultJSON = resultJSON
	tv.parent.references[referenceID] = rec
	return nil
}
