package liquidation

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BidBook stores liquidator bids keyed by (bidder, collateral asset) with
// two secondary indices: by-bidder and by-collateral. A bid exists iff
// both index entries exist; the store writes all three records in one
// batch so the tri-partite consistency cannot diverge under partial
// failure.
type BidBook struct {
	mu    sync.Mutex
	store *Store
	log   *zap.SugaredLogger
}

// NewBidBook creates a bid book over the given store.
func NewBidBook(store *Store, log *zap.SugaredLogger) *BidBook {
	return &BidBook{store: store, log: log}
}

// Instantiate stores the config singleton if it was never created.
func (b *BidBook) Instantiate(cfg *Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.store.LoadConfig()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := b.store.SaveConfig(cfg); err != nil {
		return err
	}
	b.log.Infow("liquidation_instantiated",
		"owner", cfg.Owner.Hex(),
		"oracle", cfg.Oracle.Hex(),
		"max_premium_rate", cfg.MaxPremiumRate.String())
	return nil
}

// Config returns the stored config.
func (b *BidBook) Config() (*Config, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadConfig()
}

// UpdateConfig applies the supplied fields to the config. Only the owner
// may update; nil fields are left unchanged.
func (b *BidBook) UpdateConfig(caller common.Address, update ConfigUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg, err := b.loadConfig()
	if err != nil {
		return err
	}
	if caller != cfg.Owner {
		return ErrUnauthorized
	}
	if update.Owner != nil {
		cfg.Owner = *update.Owner
	}
	if update.Oracle != nil {
		cfg.Oracle = *update.Oracle
	}
	if update.StableDenom != nil {
		cfg.StableDenom = *update.StableDenom
	}
	if update.SafeRatio != nil {
		cfg.SafeRatio = *update.SafeRatio
	}
	if update.BidFee != nil {
		cfg.BidFee = *update.BidFee
	}
	if update.MaxPremiumRate != nil {
		cfg.MaxPremiumRate = *update.MaxPremiumRate
	}
	if update.LiquidationThreshold != nil {
		cfg.LiquidationThreshold = update.LiquidationThreshold
	}
	if update.PriceTimeframe != nil {
		cfg.PriceTimeframe = *update.PriceTimeframe
	}
	if err := b.store.SaveConfig(cfg); err != nil {
		return err
	}
	b.log.Infow("liquidation_config_updated", "owner", cfg.Owner.Hex())
	return nil
}

// PlaceBid upserts the bid for (bidder, collateral). The premium rate is
// not bound-checked here; MaxPremiumRate is a parameter for the
// auction-execution layer.
func (b *BidBook) PlaceBid(bidder, collateral common.Address, amount *big.Int, premiumRate decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.loadConfig(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	bid := &Bid{
		Amount:      new(big.Int).Set(amount),
		PremiumRate: premiumRate,
	}
	if err := b.store.SaveBid(bidder, collateral, bid); err != nil {
		return err
	}

	b.log.Infow("submit_bid",
		"bidder", bidder.Hex(),
		"collateral_asset", collateral.Hex(),
		"amount", amount.String(),
		"premium_rate", premiumRate.String())
	return nil
}

// RemoveBid deletes the bid for (bidder, collateral) together with both
// index entries. Removing a bid that does not exist is a silent no-op.
func (b *BidBook) RemoveBid(bidder, collateral common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.RemoveBid(bidder, collateral); err != nil {
		return err
	}

	b.log.Infow("retract_bid",
		"bidder", bidder.Hex(),
		"collateral_asset", collateral.Hex())
	return nil
}

// Bid returns the bid for (bidder, collateral), or ErrBidNotFound.
func (b *BidBook) Bid(bidder, collateral common.Address) (*BidView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, err := b.store.LoadBid(bidder, collateral)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, ErrBidNotFound
	}
	return &BidView{
		CollateralAsset: collateral,
		Bidder:          bidder,
		Amount:          bid.Amount,
		PremiumRate:     bid.PremiumRate,
	}, nil
}

// BidsByUser returns a page of one bidder's bids in ascending byte order
// of the collateral asset. startAfter is excluded; limit defaults to 10
// and is clamped to 30.
func (b *BidBook) BidsByUser(bidder common.Address, startAfter *common.Address, limit *uint32) ([]*BidView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.BidsByBidder(bidder, startAfter, limit)
}

// BidsByCollateral returns a page of one asset's bids in ascending byte
// order of the bidder. startAfter is excluded; limit defaults to 10 and
// is clamped to 30.
func (b *BidBook) BidsByCollateral(collateral common.Address, startAfter *common.Address, limit *uint32) ([]*BidView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.BidsByAsset(collateral, startAfter, limit)
}

func (b *BidBook) loadConfig() (*Config, error) {
	cfg, err := b.store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotInstantiated
	}
	return cfg, nil
}
