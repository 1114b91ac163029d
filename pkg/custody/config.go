package custody

import (
	"github.com/ethereum/go-ethereum/common"
)

// AssetInfo describes the collateral token held in custody.
type AssetInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Config holds the per-instance addresses and parameters of the custody
// ledger. Created once at instantiation, mutated only by the owner.
type Config struct {
	Owner common.Address `json:"owner"`

	// Counterpart contracts.
	CollateralToken   common.Address `json:"collateralToken"`   // token reporting inbound transfers
	Overseer          common.Address `json:"overseer"`          // authorized for lock/unlock/liquidate
	Market            common.Address `json:"market"`            // debt market (repay routing)
	Reward            common.Address `json:"reward"`            // reward contract
	LiquidationEngine common.Address `json:"liquidationEngine"` // receives liquidated collateral

	StableDenom string    `json:"stableDenom"`
	AssetInfo   AssetInfo `json:"assetInfo"`
}

// ConfigUpdate carries the owner-mutable fields of Config. Nil fields are
// left unchanged.
type ConfigUpdate struct {
	Owner             *common.Address
	LiquidationEngine *common.Address
}
