package ledger

import (
	"errors"
	"fmt"

	"github.com/qstrat/t0ledger/market"
)

// Validation errors reject the whole batch before any state changes.
var (
	// ErrDuplicateKey means a snapshot carried two records for one
	// (account, symbol) bucket.
	ErrDuplicateKey = errors.New("duplicate position key in snapshot")

	// ErrNegativeQuantity means a snapshot record reported a negative
	// quantity, a negative available quantity, or available > total.
	ErrNegativeQuantity = errors.New("invalid snapshot quantities")

	// ErrInsufficientAvailable means a sell leg exceeded the Real
	// position's available quantity on a path that is not flagged as
	// virtual-opening.
	ErrInsufficientAvailable = errors.New("sell exceeds available quantity")
)

// InvariantError reports a conservation or availability breach detected
// mid-processing. It is fatal: the session aborts and the prior ledger
// stays untouched.
type InvariantError struct {
	Key market.Key
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation for %s: %s", e.Key, e.Msg)
}
