package wallet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/happypaisa/ledger/wallet"
	"github.com/happypaisa/ledger/wallet/store"
)

// =============================================================================
// IDEMPOTENCY REGISTRY TESTS
// =============================================================================

func TestRegistry_NewReference_Reserved(t *testing.T) {
	// GIVEN: An unseen reference
	// WHEN: CheckOrReserve runs
	// THEN: It reports new (nil replay) and marks the reference in flight

	ctx := context.Background()
	reg := wallet.NewRegistry(store.NewMemory())

	replay, err := reg.CheckOrReserve(ctx, "ref-1", wallet.OpAddFunds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replay != nil {
		t.Fatalf("expected no replay for a new reference, got %+v", replay)
	}
}

func TestRegistry_InFlightReference_Rejected(t *testing.T) {
	// GIVEN: A reserved but unresolved reference
	// WHEN: A second caller presents the same reference
	// THEN: ErrReferenceInFlight, a retryable condition

	ctx := context.Background()
	reg := wallet.NewRegistry(store.NewMemory())

	if _, err := reg.CheckOrReserve(ctx, "ref-1", wallet.OpTransfer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := reg.CheckOrReserve(ctx, "ref-1", wallet.OpTransfer)
	if !errors.Is(err, wallet.ErrReferenceInFlight) {
		t.Fatalf("expected ErrReferenceInFlight, got %v", err)
	}
	if !wallet.IsRetryable(err) {
		t.Error("in-flight references must be retryable")
	}
}

func TestRegistry_CompletedReference_ReplaysResult(t *testing.T) {
	// GIVEN: A reference with a recorded result
	// WHEN: CheckOrReserve runs again
	// THEN: The stored result comes back verbatim with Replayed set

	ctx := context.Background()
	reg := wallet.NewRegistry(store.NewMemory())

	if _, err := reg.CheckOrReserve(ctx, "ref-1", wallet.OpAddFunds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	original := &wallet.OperationResult{
		Success:       true,
		TransactionID: "tx-42",
		Message:       "Funds added successfully",
		Balance:       decimal.NewFromFloat(99.95),
	}
	if err := reg.RecordResult(ctx, "ref-1", original); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replay, err := reg.CheckOrReserve(ctx, "ref-1", wallet.OpAddFunds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replay == nil || !replay.Replayed {
		t.Fatalf("expected replayed result, got %+v", replay)
	}
	if replay.TransactionID != original.TransactionID ||
		!replay.Balance.Equal(original.Balance) ||
		replay.Message != original.Message {
		t.Errorf("replay differs from original: %+v vs %+v", replay, original)
	}
}

func TestRegistry_FailureResult_ReplaysSentinel(t *testing.T) {
	ctx := context.Background()
	reg := wallet.NewRegistry(store.NewMemory())

	reg.CheckOrReserve(ctx, "ref-1", wallet.OpDeductFunds)
	reg.RecordResult(ctx, "ref-1", &wallet.OperationResult{
		Success:   false,
		Message:   "Insufficient balance",
		Balance:   decimal.NewFromInt(3),
		ErrorCode: wallet.CodeInsufficientFunds,
	})

	replay, err := reg.CheckOrReserve(ctx, "ref-1", wallet.OpDeductFunds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := wallet.ErrorForResult(replay); !errors.Is(got, wallet.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds from replayed failure, got %v", got)
	}
}
