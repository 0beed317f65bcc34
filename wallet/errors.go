/*
errors.go - Centralized error types for the wallet engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers dispatch with errors.Is; structured errors carry context and
  unwrap to the sentinels.

ERROR CATEGORIES:
  1. Validation errors - rejected before any mutation
  2. State errors - wallet missing or balance too low
  3. Idempotency errors - duplicate or in-flight reference handling

USAGE:
    if errors.Is(err, wallet.ErrInsufficientFunds) {
        // balance unchanged, surface to caller
    }

SEE ALSO:
  - service.go: Produces these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package wallet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an operation amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrWalletNotFound is returned when a referenced wallet does not exist
	// and the operation does not lazily create one.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds is returned when a debit exceeds the current balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameWalletTransfer is returned when a transfer names the same wallet
	// on both sides.
	ErrSameWalletTransfer = errors.New("cannot transfer to the same wallet")

	// ErrReferenceInFlight is returned when a second caller presents a
	// reference_id whose first application has not finished yet. Retryable.
	ErrReferenceInFlight = errors.New("reference is being processed")

	// ErrInvariantViolated indicates corrupted wallet state. Should never
	// surface in normal operation.
	ErrInvariantViolated = errors.New("wallet invariant violated")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	UserID    UserID
	Available decimal.Decimal
	Requested decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s, shortfall %s",
		e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrReferenceInFlight)
}

// IsClientError returns true if the error is due to invalid client input
// or a state the client can observe and correct.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSameWalletTransfer)
}

// IsNotFound returns true if the error indicates a missing wallet.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}
