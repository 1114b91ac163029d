package liquidation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config holds the per-instance parameters of the bid book. Created once
// at instantiation, mutated only by the owner.
type Config struct {
	Owner  common.Address `json:"owner"`
	Oracle common.Address `json:"oracle"`

	StableDenom string `json:"stableDenom"`

	SafeRatio      decimal.Decimal `json:"safeRatio"`
	BidFee         decimal.Decimal `json:"bidFee"`
	MaxPremiumRate decimal.Decimal `json:"maxPremiumRate"`

	LiquidationThreshold *big.Int `json:"liquidationThreshold"`
	PriceTimeframe       uint64   `json:"priceTimeframe"` // seconds a quote stays fresh
}

// ConfigUpdate carries the owner-mutable fields of Config. Nil fields are
// left unchanged.
type ConfigUpdate struct {
	Owner                *common.Address
	Oracle               *common.Address
	StableDenom          *string
	SafeRatio            *decimal.Decimal
	BidFee               *decimal.Decimal
	MaxPremiumRate       *decimal.Decimal
	LiquidationThreshold *big.Int
	PriceTimeframe       *uint64
}
