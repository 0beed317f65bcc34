/*
service.go - Ledger service facade and transfer coordinator

PURPOSE:
  The operation surface external collaborators call: create wallet, get
  balance, add funds, deduct funds, transfer, list transactions. Validates
  inputs, consults the idempotency registry, and applies mutations under
  per-wallet exclusive sections.

REQUEST FLOW:
  validate -> acquire wallet lock(s) -> WithTx {
      check-or-reserve reference
      mutate wallet(s)
      append ledger row(s)
      record result
  } -> release -> respond

ATOMICITY:
  Everything inside WithTx commits or rolls back together. A transfer
  debits the sender, credits the recipient, writes both ledger rows, and
  records the idempotency result in one transaction: no half-applied
  transfer is ever observable, even if the caller disconnects.

WALLET CREATION POLICY:
  - create wallet: explicit, idempotent get-or-create
  - add funds / transfer recipient: lazily created on first credit
  - get balance / list transactions / deduct funds / transfer sender:
    require an existing wallet (WalletNotFound)

SEE ALSO:
  - registry.go: Idempotency replay semantics
  - locks.go: Exclusive section ordering
  - api/handlers.go: HTTP surface over this service
*/
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Operation names recorded with idempotency reservations.
const (
	OpAddFunds    = "add_funds"
	OpDeductFunds = "deduct_funds"
	OpTransfer    = "transfer"
)

// =============================================================================
// REQUESTS
// =============================================================================

// AddFundsRequest credits a wallet from an external source.
type AddFundsRequest struct {
	UserID      UserID
	Amount      decimal.Decimal
	Source      string
	ReferenceID string
}

// DeductFundsRequest debits a wallet for an external reason.
type DeductFundsRequest struct {
	UserID      UserID
	Amount      decimal.Decimal
	Reason      string
	ReferenceID string
}

// TransferRequest moves funds between two wallets atomically.
type TransferRequest struct {
	FromUserID  UserID
	ToUserID    UserID
	Amount      decimal.Decimal
	Description string
	ReferenceID string
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the ledger facade. All mutation paths funnel through here.
type Service struct {
	store TxStore
	locks *lockTable
}

func NewService(store TxStore) *Service {
	return &Service{
		store: store,
		locks: newLockTable(),
	}
}

// CreateWallet returns the existing wallet for userID or creates one with
// zero balance and totals. Idempotent.
func (s *Service) CreateWallet(ctx context.Context, userID UserID) (*Wallet, error) {
	defer s.locks.lock(userID)()

	var created *Wallet
	err := s.store.WithTx(ctx, func(st Store) error {
		w, err := st.GetWallet(ctx, userID)
		if err != nil {
			return err
		}
		if w != nil {
			created = w
			return nil
		}
		w = NewWallet(userID)
		if err := st.SaveWallet(ctx, w); err != nil {
			return err
		}
		created = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetBalance returns the current balance and lifetime totals.
// Reads never lazily create a wallet.
func (s *Service) GetBalance(ctx context.Context, userID UserID) (*Wallet, error) {
	w, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// ListTransactions returns the wallet's ledger rows, most recent first.
func (s *Service) ListTransactions(ctx context.Context, userID UserID, limit int) ([]Transaction, error) {
	w, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWalletNotFound
	}
	return NewLedger(s.store).ListForWallet(ctx, userID, limit)
}

// AddFunds credits a wallet, lazily creating it on first use.
func (s *Service) AddFunds(ctx context.Context, req AddFundsRequest) (*OperationResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	defer s.locks.lock(req.UserID)()

	var result *OperationResult
	err := s.store.WithTx(ctx, func(st Store) error {
		reg := NewRegistry(st)
		if replay, err := checkReplay(ctx, reg, req.ReferenceID, OpAddFunds); replay != nil || err != nil {
			result = replay
			return err
		}

		w, err := st.GetWallet(ctx, req.UserID)
		if err != nil {
			return err
		}
		if w == nil {
			w = NewWallet(req.UserID)
		}
		if err := w.Credit(req.Amount); err != nil {
			return err
		}

		txID, err := NewLedger(st).Append(ctx, Transaction{
			UserID:      req.UserID,
			Type:        TxCredit,
			Amount:      req.Amount,
			Description: fmt.Sprintf("Funds added: %s", req.Source),
			ReferenceID: req.ReferenceID,
		})
		if err != nil {
			return err
		}
		if err := st.SaveWallet(ctx, w); err != nil {
			return err
		}

		result = &OperationResult{
			Success:       true,
			TransactionID: txID,
			Message:       "Funds added successfully",
			Balance:       w.Balance,
		}
		return recordIfReferenced(ctx, reg, req.ReferenceID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, ErrorForResult(result)
}

// DeductFunds debits an existing wallet.
func (s *Service) DeductFunds(ctx context.Context, req DeductFundsRequest) (*OperationResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	defer s.locks.lock(req.UserID)()

	var result *OperationResult
	err := s.store.WithTx(ctx, func(st Store) error {
		reg := NewRegistry(st)
		if replay, err := checkReplay(ctx, reg, req.ReferenceID, OpDeductFunds); replay != nil || err != nil {
			result = replay
			return err
		}

		w, err := st.GetWallet(ctx, req.UserID)
		if err != nil {
			return err
		}
		if w == nil {
			result = failure(CodeWalletNotFound, "Wallet not found", decimal.Zero)
			return recordIfReferenced(ctx, reg, req.ReferenceID, result)
		}
		if err := w.Debit(req.Amount); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				result = failure(CodeInsufficientFunds, "Insufficient balance", w.Balance)
				return recordIfReferenced(ctx, reg, req.ReferenceID, result)
			}
			return err
		}

		txID, err := NewLedger(st).Append(ctx, Transaction{
			UserID:      req.UserID,
			Type:        TxDebit,
			Amount:      req.Amount,
			Description: fmt.Sprintf("Funds deducted: %s", req.Reason),
			ReferenceID: req.ReferenceID,
		})
		if err != nil {
			return err
		}
		if err := st.SaveWallet(ctx, w); err != nil {
			return err
		}

		result = &OperationResult{
			Success:       true,
			TransactionID: txID,
			Message:       "Funds deducted successfully",
			Balance:       w.Balance,
		}
		return recordIfReferenced(ctx, reg, req.ReferenceID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, ErrorForResult(result)
}

// Transfer moves funds between two wallets as a single all-or-nothing unit.
// Returns the sender's new balance on success.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*OperationResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.FromUserID == req.ToUserID {
		return nil, ErrSameWalletTransfer
	}

	defer s.locks.lockPair(req.FromUserID, req.ToUserID)()

	var result *OperationResult
	err := s.store.WithTx(ctx, func(st Store) error {
		reg := NewRegistry(st)
		if replay, err := checkReplay(ctx, reg, req.ReferenceID, OpTransfer); replay != nil || err != nil {
			result = replay
			return err
		}

		sender, err := st.GetWallet(ctx, req.FromUserID)
		if err != nil {
			return err
		}
		if sender == nil {
			result = failure(CodeWalletNotFound, "Sender wallet not found", decimal.Zero)
			return recordIfReferenced(ctx, reg, req.ReferenceID, result)
		}

		recipient, err := st.GetWallet(ctx, req.ToUserID)
		if err != nil {
			return err
		}
		if recipient == nil {
			recipient = NewWallet(req.ToUserID)
		}

		if err := sender.Debit(req.Amount); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				result = failure(CodeInsufficientFunds, "Insufficient balance", sender.Balance)
				return recordIfReferenced(ctx, reg, req.ReferenceID, result)
			}
			return err
		}
		if err := recipient.Credit(req.Amount); err != nil {
			return err
		}

		ledger := NewLedger(st)
		outID, err := ledger.Append(ctx, Transaction{
			UserID:         req.FromUserID,
			Type:           TxTransferOut,
			Amount:         req.Amount,
			Description:    fmt.Sprintf("Transfer to user %s: %s", req.ToUserID, req.Description),
			ReferenceID:    req.ReferenceID,
			CounterpartyID: req.ToUserID,
		})
		if err != nil {
			return err
		}
		if _, err := ledger.Append(ctx, Transaction{
			UserID:         req.ToUserID,
			Type:           TxTransferIn,
			Amount:         req.Amount,
			Description:    fmt.Sprintf("Transfer from user %s: %s", req.FromUserID, req.Description),
			ReferenceID:    req.ReferenceID,
			CounterpartyID: req.FromUserID,
		}); err != nil {
			return err
		}

		if err := st.SaveWallet(ctx, sender); err != nil {
			return err
		}
		if err := st.SaveWallet(ctx, recipient); err != nil {
			return err
		}

		result = &OperationResult{
			Success:       true,
			TransactionID: outID,
			Message:       "Transfer completed successfully",
			Balance:       sender.Balance,
		}
		return recordIfReferenced(ctx, reg, req.ReferenceID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, ErrorForResult(result)
}

// =============================================================================
// HELPERS
// =============================================================================

// checkReplay consults the registry when a reference is supplied. A non-nil
// result is a replay; the transaction commits without touching any wallet.
func checkReplay(ctx context.Context, reg *Registry, referenceID, operation string) (*OperationResult, error) {
	if referenceID == "" {
		return nil, nil
	}
	return reg.CheckOrReserve(ctx, referenceID, operation)
}

func recordIfReferenced(ctx context.Context, reg *Registry, referenceID string, res *OperationResult) error {
	if referenceID == "" {
		return nil
	}
	return reg.RecordResult(ctx, referenceID, res)
}

func failure(code, message string, balance decimal.Decimal) *OperationResult {
	return &OperationResult{
		Success:   false,
		Message:   message,
		Balance:   balance,
		ErrorCode: code,
	}
}
