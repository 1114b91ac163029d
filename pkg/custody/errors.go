package custody

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUnauthorized is returned when the caller is not the identity the
	// operation requires (owner, overseer, or the collateral token).
	ErrUnauthorized = errors.New("custody: unauthorized")

	// ErrInvalidAmount is returned for nil, zero or negative amounts on
	// operations that require a positive quantity.
	ErrInvalidAmount = errors.New("custody: amount must be positive")

	// ErrNotInstantiated is returned when the config singleton was never
	// stored.
	ErrNotInstantiated = errors.New("custody: config not instantiated")
)

// ExceedsSpendableError reports a withdraw or lock amount above the
// borrower's unlocked collateral. Spendable carries the amount actually
// available to the caller.
type ExceedsSpendableError struct {
	Op        string
	Spendable *big.Int
}

func (e *ExceedsSpendableError) Error() string {
	return fmt.Sprintf("custody: %s amount exceeds spendable %s", e.Op, e.Spendable)
}

// ExceedsLockedError reports an unlock or liquidation amount above the
// borrower's locked collateral. Locked carries the amount actually
// available.
type ExceedsLockedError struct {
	Op     string
	Locked *big.Int
}

func (e *ExceedsLockedError) Error() string {
	return fmt.Sprintf("custody: %s amount exceeds locked %s", e.Op, e.Locked)
}
