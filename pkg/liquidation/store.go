package liquidation

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/moneymarket/pkg/storage"
)

// indexMarker is the value stored under index entries; the key carries
// all the information.
var indexMarker = []byte("1")

// Store persists the bid-book config singleton, bid records and the two
// secondary indices. Thread-safety is provided by the BidBook's mutex.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// SaveConfig persists the config singleton.
func (s *Store) SaveConfig(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal liquidation config: %w", err)
	}
	return s.db.Set(configKey(), data)
}

// LoadConfig loads the config singleton, or nil if never instantiated.
func (s *Store) LoadConfig() (*Config, error) {
	data, err := s.db.Get(configKey())
	if err != nil || data == nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal liquidation config: %w", err)
	}
	return &cfg, nil
}

// SaveBid writes the primary record and both index entries in one batch.
// On overwrite the index sets are idempotent no-ops.
func (s *Store) SaveBid(bidder, collateral common.Address, bid *Bid) error {
	data, err := json.Marshal(bid)
	if err != nil {
		return fmt.Errorf("failed to marshal bid: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(bidKey(bidder, collateral), data, nil); err != nil {
		return err
	}
	if err := batch.Set(byBidderKey(bidder, collateral), indexMarker, nil); err != nil {
		return err
	}
	if err := batch.Set(byAssetKey(bidder, collateral), indexMarker, nil); err != nil {
		return err
	}
	return s.db.CommitBatch(batch)
}

// RemoveBid deletes the primary record and both index entries in one
// batch. Removing an absent bid is a silent no-op.
func (s *Store) RemoveBid(bidder, collateral common.Address) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(bidKey(bidder, collateral), nil); err != nil {
		return err
	}
	if err := batch.Delete(byBidderKey(bidder, collateral), nil); err != nil {
		return err
	}
	if err := batch.Delete(byAssetKey(bidder, collateral), nil); err != nil {
		return err
	}
	return s.db.CommitBatch(batch)
}

// LoadBid loads the primary record, or (nil, nil) when absent.
func (s *Store) LoadBid(bidder, collateral common.Address) (*Bid, error) {
	data, err := s.db.Get(bidKey(bidder, collateral))
	if err != nil || data == nil {
		return nil, err
	}
	var bid Bid
	if err := json.Unmarshal(data, &bid); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bid: %w", err)
	}
	return &bid, nil
}

// BidsByBidder pages through the by-bidder index of one bidder and joins
// each entry back to its primary record.
func (s *Store) BidsByBidder(bidder common.Address, startAfter *common.Address, limit *uint32) ([]*BidView, error) {
	prefix := byBidderPrefix(bidder)
	collaterals, err := s.scanIndex(prefix, startAfter, limit)
	if err != nil {
		return nil, err
	}

	views := make([]*BidView, 0, len(collaterals))
	for _, collateral := range collaterals {
		bid, err := s.LoadBid(bidder, collateral)
		if err != nil {
			return nil, err
		}
		if bid == nil {
			return nil, fmt.Errorf("%w: bidder=%s collateral=%s",
				ErrIndexCorrupted, bidder.Hex(), collateral.Hex())
		}
		views = append(views, &BidView{
			CollateralAsset: collateral,
			Bidder:          bidder,
			Amount:          bid.Amount,
			PremiumRate:     bid.PremiumRate,
		})
	}
	return views, nil
}

// BidsByAsset pages through the by-collateral index of one asset and
// joins each entry back to its primary record.
func (s *Store) BidsByAsset(collateral common.Address, startAfter *common.Address, limit *uint32) ([]*BidView, error) {
	prefix := byAssetPrefix(collateral)
	bidders, err := s.scanIndex(prefix, startAfter, limit)
	if err != nil {
		return nil, err
	}

	views := make([]*BidView, 0, len(bidders))
	for _, bidder := range bidders {
		bid, err := s.LoadBid(bidder, collateral)
		if err != nil {
			return nil, err
		}
		if bid == nil {
			return nil, fmt.Errorf("%w: bidder=%s collateral=%s",
				ErrIndexCorrupted, bidder.Hex(), collateral.Hex())
		}
		views = append(views, &BidView{
			CollateralAsset: collateral,
			Bidder:          bidder,
			Amount:          bid.Amount,
			PremiumRate:     bid.PremiumRate,
		})
	}
	return views, nil
}

// scanIndex returns the companion addresses under one index prefix, in
// ascending byte order, honoring the exclusive start and the page clamp.
func (s *Store) scanIndex(prefix []byte, startAfter *common.Address, limit *uint32) ([]common.Address, error) {
	var after []byte
	if startAfter != nil {
		after = startAfter.Bytes()
	}
	lower := storage.RangeStart(prefix, after)
	max := storage.ClampLimit(limit)

	iter, err := s.db.NewIter(lower, storage.PrefixUpperBound(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to open bid index iterator: %w", err)
	}
	defer iter.Close()

	var companions []common.Address
	for iter.First(); iter.Valid() && len(companions) < max; iter.Next() {
		companions = append(companions, companionFromIndexKey(prefix, iter.Key()))
	}
	return companions, nil
}
