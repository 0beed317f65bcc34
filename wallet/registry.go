/*
registry.go - Idempotency registry

PURPOSE:
  Remembers which caller-supplied reference_ids have already been applied
  and what result they produced. A retried request bearing a seen
  reference_id gets the original result back, verbatim, with no wallet
  mutated a second time.

HOW IT WORKS:
  1. CheckOrReserve: look up the reference. If completed, return the stored
     result (a replay). If unseen, insert an in-flight reservation.
  2. The operation runs and records its outcome with RecordResult.
  3. Reservation and result commit in the SAME store transaction as the
     wallet mutation, so a crash rolls everything back together and the
     reference becomes safely retryable.

FAILURE RESULTS:
  Outcomes decided after reservation (insufficient funds, missing wallet)
  are recorded too, and replayed exactly like successes. A reference reused
  with different parameters is a caller error; the registry guarantees
  replay safety for identical retries only.

SEE ALSO:
  - store.go: ReferenceRecord and the reserve/complete operations
  - service.go: Drives the reserve -> mutate -> record sequence
*/
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OPERATION RESULT - The payload the registry stores and replays
// =============================================================================

// OperationResult is the outcome of one add-funds, deduct-funds, or transfer
// operation. It is serialized into the idempotency registry and returned
// unchanged on replay.
type OperationResult struct {
	Success       bool            `json:"success"`
	TransactionID TransactionID   `json:"transaction_id,omitempty"`
	Message       string          `json:"message"`
	Balance       decimal.Decimal `json:"balance"`
	ErrorCode     string          `json:"error_code,omitempty"`

	// Replayed is true when this result came from the registry rather than
	// a fresh application. Not persisted.
	Replayed bool `json:"-"`
}

// Error codes recorded with failure results so replays can surface the
// same sentinel error.
const (
	CodeInsufficientFunds = "insufficient_funds"
	CodeWalletNotFound    = "wallet_not_found"
)

// ErrorForResult maps a failed result back to its sentinel error.
// Returns nil for successful results.
func ErrorForResult(res *OperationResult) error {
	if res == nil || res.Success {
		return nil
	}
	switch res.ErrorCode {
	case CodeInsufficientFunds:
		return ErrInsufficientFunds
	case CodeWalletNotFound:
		return ErrWalletNotFound
	default:
		return fmt.Errorf("operation failed: %s", res.Message)
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry wraps a Store with check-or-reserve semantics. Construct it over
// the transaction-scoped Store inside WithTx so its writes commit atomically
// with the operation they guard.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// CheckOrReserve atomically determines whether referenceID has been seen.
//
// Returns (nil, nil) when the reference is new; an in-flight reservation has
// been inserted and the caller must follow up with RecordResult.
// Returns (result, nil) when the reference completed before; result is the
// recorded outcome with Replayed set.
// Returns (nil, ErrReferenceInFlight) when a concurrent application of the
// same reference has not finished.
func (r *Registry) CheckOrReserve(ctx context.Context, referenceID, operation string) (*OperationResult, error) {
	rec, err := r.store.GetReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rec.Status != ReferenceCompleted {
			return nil, ErrReferenceInFlight
		}
		var res OperationResult
		if err := json.Unmarshal([]byte(rec.ResultJSON), &res); err != nil {
			return nil, fmt.Errorf("failed to decode recorded result for %q: %w", referenceID, err)
		}
		res.Replayed = true
		return &res, nil
	}

	err = r.store.ReserveReference(ctx, ReferenceRecord{
		ReferenceID: referenceID,
		Operation:   operation,
		Status:      ReferenceInFlight,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// RecordResult stores the final outcome for a reserved reference, making
// subsequent lookups return it verbatim.
func (r *Registry) RecordResult(ctx context.Context, referenceID string, res *OperationResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result for %q: %w", referenceID, err)
	}
	return r.store.CompleteReference(ctx, referenceID, string(payload))
}
