package liquidation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Bid is a liquidator's standing offer to purchase liquidated collateral.
// Keyed by (bidder, collateral asset); PremiumRate is the discount the
// liquidator accepts relative to the oracle price. Bounds on the premium
// are consumed by the auction-execution layer, not enforced here.
type Bid struct {
	Amount      *big.Int        `json:"amount"`
	PremiumRate decimal.Decimal `json:"premiumRate"`
}

// BidView is the query view of one bid, joined with its key.
type BidView struct {
	CollateralAsset common.Address  `json:"collateralAsset"`
	Bidder          common.Address  `json:"bidder"`
	Amount          *big.Int        `json:"amount"`
	PremiumRate     decimal.Decimal `json:"premiumRate"`
}
