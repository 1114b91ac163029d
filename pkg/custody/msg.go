package custody

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferInstruction is the outbound instruction emitted by operations
// that move collateral out of custody. The ledger never executes the
// transfer itself; the caller forwards the instruction to the token layer.
type TransferInstruction struct {
	Token     common.Address `json:"token"`
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`

	// Execute is set when the transfer carries an embedded request for the
	// receiving contract (liquidation only).
	Execute *ExecuteBidRequest `json:"execute,omitempty"`
}

// ExecuteBidRequest is embedded in the liquidation transfer so the
// liquidation engine can settle the auction: fees route to the overseer,
// debt repayment routes to the market.
type ExecuteBidRequest struct {
	Liquidator     common.Address  `json:"liquidator"`
	FeeRecipient   *common.Address `json:"feeRecipient,omitempty"`
	RepayRecipient *common.Address `json:"repayRecipient,omitempty"`
}
