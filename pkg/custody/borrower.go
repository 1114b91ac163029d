package custody

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BorrowerInfo tracks a borrower's custodied collateral.
//
// Balance is the total amount held for the borrower; Spendable is the
// unlocked portion that may be withdrawn. The difference is collateral
// currently pledged against outstanding debt.
//
// Invariant at every observable state: 0 <= Spendable <= Balance.
type BorrowerInfo struct {
	Balance   *big.Int `json:"balance"`
	Spendable *big.Int `json:"spendable"`
}

// NewBorrowerInfo returns the zero-valued record used as the read-time
// default for borrowers that were never stored.
func NewBorrowerInfo() *BorrowerInfo {
	return &BorrowerInfo{
		Balance:   big.NewInt(0),
		Spendable: big.NewInt(0),
	}
}

// Locked returns the collateral pledged against debt: Balance - Spendable.
func (b *BorrowerInfo) Locked() *big.Int {
	return new(big.Int).Sub(b.Balance, b.Spendable)
}

// Validate checks the record invariants.
func (b *BorrowerInfo) Validate() error {
	if b.Balance == nil || b.Spendable == nil {
		return fmt.Errorf("borrower info has nil amounts")
	}
	if b.Balance.Sign() < 0 {
		return fmt.Errorf("negative balance: %s", b.Balance)
	}
	if b.Spendable.Sign() < 0 {
		return fmt.Errorf("negative spendable: %s", b.Spendable)
	}
	if b.Spendable.Cmp(b.Balance) > 0 {
		return fmt.Errorf("spendable (%s) exceeds balance (%s)", b.Spendable, b.Balance)
	}
	return nil
}

// BorrowerPosition is the query view of one borrower record.
type BorrowerPosition struct {
	Borrower  common.Address `json:"borrower"`
	Balance   *big.Int       `json:"balance"`
	Spendable *big.Int       `json:"spendable"`
}
