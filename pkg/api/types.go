package api

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// CustodyConfigInfo represents the custody contract configuration
type CustodyConfigInfo struct {
	Owner             string `json:"owner"`
	CollateralToken   string `json:"collateralToken"`
	Overseer          string `json:"overseer"`
	Market            string `json:"market"`
	Reward            string `json:"reward"`
	LiquidationEngine string `json:"liquidationEngine"`
	StableDenom       string `json:"stableDenom"`
	AssetName         string `json:"assetName"`
	AssetSymbol       string `json:"assetSymbol"`
	AssetDecimals     uint8  `json:"assetDecimals"`
}

// BorrowerInfo represents a borrower's collateral position
// Amounts are decimal strings to avoid float truncation
type BorrowerInfo struct {
	Borrower  string `json:"borrower"`
	Balance   string `json:"balance"`
	Spendable string `json:"spendable"`
	Locked    string `json:"locked"`
}

// BorrowersResponse is a page of borrower positions
type BorrowersResponse struct {
	Borrowers []BorrowerInfo `json:"borrowers"`
}

// TransferInfo describes the token transfer an operation produced
type TransferInfo struct {
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// OperationResponse is returned from custody mutations
type OperationResponse struct {
	Status   string        `json:"status"` // "ok"
	Transfer *TransferInfo `json:"transfer,omitempty"`
}

// LiquidationConfigInfo represents the bid book configuration
type LiquidationConfigInfo struct {
	Owner                string `json:"owner"`
	Oracle               string `json:"oracle"`
	StableDenom          string `json:"stableDenom"`
	SafeRatio            string `json:"safeRatio"`
	BidFee               string `json:"bidFee"`
	MaxPremiumRate       string `json:"maxPremiumRate"`
	LiquidationThreshold string `json:"liquidationThreshold"`
	PriceTimeframe       uint64 `json:"priceTimeframe"`
}

// BidInfo represents a single liquidation bid
type BidInfo struct {
	CollateralToken string `json:"collateralToken"`
	Bidder          string `json:"bidder"`
	Amount          string `json:"amount"`
	PremiumRate     string `json:"premiumRate"`
}

// BidsResponse is a page of bids
type BidsResponse struct {
	Bids []BidInfo `json:"bids"`
}

// RateResponse carries a single computed rate
type RateResponse struct {
	Rate string `json:"rate"`
}

// AssetInfo represents a whitelisted collateral asset
type AssetInfo struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["custody:0x...", "bids:0x..."]
}

// CollateralUpdate is broadcast when a borrower's position changes
type CollateralUpdate struct {
	Type      string `json:"type"` // "collateral"
	Event     string `json:"event"`
	Borrower  string `json:"borrower"`
	Amount    string `json:"amount"`
	Balance   string `json:"balance"`
	Spendable string `json:"spendable"`
	Timestamp int64  `json:"timestamp"`
}

// BidUpdate is broadcast when a bid is placed or retracted
type BidUpdate struct {
	Type            string `json:"type"` // "bid"
	Event           string `json:"event"`
	Bidder          string `json:"bidder"`
	CollateralToken string `json:"collateralToken"`
	Amount          string `json:"amount"`
	Timestamp       int64  `json:"timestamp"`
}

// ==============================
// REST Request Types
// ==============================

// DepositRequest is the payload for POST /api/v1/custody/deposit
// Sender must be the collateral token address
type DepositRequest struct {
	Sender   string `json:"sender"`
	Borrower string `json:"borrower"`
	Amount   string `json:"amount"`
}

// WithdrawRequest is the payload for POST /api/v1/custody/withdraw
// Amount omitted or empty withdraws the full spendable balance
type WithdrawRequest struct {
	Borrower string `json:"borrower"`
	Amount   string `json:"amount,omitempty"`
}

// LockRequest is the payload for lock and unlock endpoints
type LockRequest struct {
	Sender   string `json:"sender"`
	Borrower string `json:"borrower"`
	Amount   string `json:"amount"`
}

// LiquidateRequest is the payload for POST /api/v1/custody/liquidate
type LiquidateRequest struct {
	Sender     string `json:"sender"`
	Liquidator string `json:"liquidator"`
	Borrower   string `json:"borrower"`
	Amount     string `json:"amount"`
}

// CustodyConfigUpdateRequest updates mutable custody config fields
type CustodyConfigUpdateRequest struct {
	Sender            string `json:"sender"`
	Owner             string `json:"owner,omitempty"`
	LiquidationEngine string `json:"liquidationEngine,omitempty"`
}

// PlaceBidRequest is the payload for POST /api/v1/liquidation/bids
type PlaceBidRequest struct {
	Bidder          string `json:"bidder"`
	CollateralToken string `json:"collateralToken"`
	Amount          string `json:"amount"`
	PremiumRate     string `json:"premiumRate"`
}

// RetractBidRequest is the payload for POST /api/v1/liquidation/bids/remove
type RetractBidRequest struct {
	Bidder          string `json:"bidder"`
	CollateralToken string `json:"collateralToken"`
}

// LiquidationConfigUpdateRequest updates mutable bid book config fields
type LiquidationConfigUpdateRequest struct {
	Sender               string  `json:"sender"`
	Owner                string  `json:"owner,omitempty"`
	Oracle               string  `json:"oracle,omitempty"`
	SafeRatio            string  `json:"safeRatio,omitempty"`
	BidFee               string  `json:"bidFee,omitempty"`
	MaxPremiumRate       string  `json:"maxPremiumRate,omitempty"`
	LiquidationThreshold string  `json:"liquidationThreshold,omitempty"`
	PriceTimeframe       *uint64 `json:"priceTimeframe,omitempty"`
}

// DistributionConfigUpdateRequest updates emission curve parameters
type DistributionConfigUpdateRequest struct {
	Sender              string `json:"sender"`
	Owner               string `json:"owner,omitempty"`
	EmissionCap         string `json:"emissionCap,omitempty"`
	EmissionFloor       string `json:"emissionFloor,omitempty"`
	IncrementMultiplier string `json:"incrementMultiplier,omitempty"`
	DecrementMultiplier string `json:"decrementMultiplier,omitempty"`
}

// InterestConfigUpdateRequest updates borrow curve parameters
type InterestConfigUpdateRequest struct {
	Sender             string `json:"sender"`
	Owner              string `json:"owner,omitempty"`
	BaseRate           string `json:"baseRate,omitempty"`
	InterestMultiplier string `json:"interestMultiplier,omitempty"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
