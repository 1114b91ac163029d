package liquidation

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/moneymarket/pkg/storage"
)

var (
	owner  = common.HexToAddress("0x0100000000000000000000000000000000000000")
	oracle = common.HexToAddress("0x0200000000000000000000000000000000000000")
	alice  = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob    = common.HexToAddress("0xBB00000000000000000000000000000000000000")
	beth   = common.HexToAddress("0xCC00000000000000000000000000000000000000")
	bluna  = common.HexToAddress("0xDD00000000000000000000000000000000000000")
)

// newTestBook creates a bid book over a temporary database
func newTestBook(t *testing.T) *BidBook {
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	book := NewBidBook(NewStore(db), zap.NewNop().Sugar())
	err = book.Instantiate(&Config{
		Owner:                owner,
		Oracle:               oracle,
		StableDenom:          "uusd",
		SafeRatio:            decimal.RequireFromString("0.8"),
		BidFee:               decimal.RequireFromString("0.01"),
		MaxPremiumRate:       decimal.RequireFromString("0.3"),
		LiquidationThreshold: big.NewInt(500),
		PriceTimeframe:       60,
	})
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	return book
}

func TestPlaceAndQueryBid(t *testing.T) {
	book := newTestBook(t)

	premium := decimal.RequireFromString("0.05")
	if err := book.PlaceBid(alice, beth, big.NewInt(1000), premium); err != nil {
		t.Fatalf("place bid failed: %v", err)
	}

	bid, err := book.Bid(alice, beth)
	if err != nil {
		t.Fatalf("query bid failed: %v", err)
	}
	if bid.Amount.Int64() != 1000 {
		t.Errorf("amount = %s, want 1000", bid.Amount)
	}
	if !bid.PremiumRate.Equal(premium) {
		t.Errorf("premium = %s, want %s", bid.PremiumRate, premium)
	}
	if bid.Bidder != alice || bid.CollateralAsset != beth {
		t.Errorf("identity mismatch: %s / %s", bid.Bidder.Hex(), bid.CollateralAsset.Hex())
	}

	// Re-placing replaces the bid
	if err := book.PlaceBid(alice, beth, big.NewInt(2500), premium); err != nil {
		t.Fatalf("replace bid failed: %v", err)
	}
	bid, err = book.Bid(alice, beth)
	if err != nil {
		t.Fatalf("query replaced bid failed: %v", err)
	}
	if bid.Amount.Int64() != 2500 {
		t.Errorf("replaced amount = %s, want 2500", bid.Amount)
	}
}

func TestBidNotFound(t *testing.T) {
	book := newTestBook(t)

	_, err := book.Bid(alice, beth)
	if !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("expected ErrBidNotFound, got %v", err)
	}
	if err.Error() != "No bids with the specified information exist" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestRemoveBid(t *testing.T) {
	book := newTestBook(t)

	if err := book.PlaceBid(alice, beth, big.NewInt(1000), decimal.Zero); err != nil {
		t.Fatalf("place bid failed: %v", err)
	}

	if err := book.RemoveBid(alice, beth); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := book.Bid(alice, beth); !errors.Is(err, ErrBidNotFound) {
		t.Errorf("expected ErrBidNotFound after removal, got %v", err)
	}

	// Removing again is a no-op
	if err := book.RemoveBid(alice, beth); err != nil {
		t.Errorf("double remove should be silent: %v", err)
	}

	// Both indices dropped the entry
	byUser, err := book.BidsByUser(alice, nil, nil)
	if err != nil {
		t.Fatalf("bids by user: %v", err)
	}
	if len(byUser) != 0 {
		t.Errorf("bidder index still holds %d entries", len(byUser))
	}
	byAsset, err := book.BidsByCollateral(beth, nil, nil)
	if err != nil {
		t.Fatalf("bids by collateral: %v", err)
	}
	if len(byAsset) != 0 {
		t.Errorf("asset index still holds %d entries", len(byAsset))
	}
}

func TestPlaceBidValidation(t *testing.T) {
	book := newTestBook(t)

	if err := book.PlaceBid(alice, beth, big.NewInt(-1), decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if err := book.PlaceBid(alice, beth, nil, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for nil amount, got %v", err)
	}
}

// TestIndexConsistency drives a random place/remove sequence and checks
// that the primary record and both secondary indices always agree
func TestIndexConsistency(t *testing.T) {
	book := newTestBook(t)
	rng := rand.New(rand.NewSource(42))

	bidders := make([]common.Address, 5)
	for i := range bidders {
		bidders[i] = common.BytesToAddress([]byte{0xA0, byte(i + 1)})
	}
	assets := []common.Address{beth, bluna}

	live := make(map[[2]common.Address]bool)
	for i := 0; i < 200; i++ {
		bidder := bidders[rng.Intn(len(bidders))]
		asset := assets[rng.Intn(len(assets))]
		key := [2]common.Address{bidder, asset}

		if rng.Intn(3) == 0 {
			if err := book.RemoveBid(bidder, asset); err != nil {
				t.Fatalf("remove: %v", err)
			}
			delete(live, key)
		} else {
			if err := book.PlaceBid(bidder, asset, big.NewInt(rng.Int63n(10000)), decimal.Zero); err != nil {
				t.Fatalf("place: %v", err)
			}
			live[key] = true
		}
	}

	limit := uint32(30)
	for _, bidder := range bidders {
		views, err := book.BidsByUser(bidder, nil, &limit)
		if err != nil {
			t.Fatalf("bids by user: %v", err)
		}
		want := 0
		for key := range live {
			if key[0] == bidder {
				want++
			}
		}
		if len(views) != want {
			t.Errorf("bidder %s: index has %d bids, want %d", bidder.Hex(), len(views), want)
		}
		for _, v := range views {
			if !live[[2]common.Address{v.Bidder, v.CollateralAsset}] {
				t.Errorf("stale index entry: %s/%s", v.Bidder.Hex(), v.CollateralAsset.Hex())
			}
		}
	}

	for _, asset := range assets {
		views, err := book.BidsByCollateral(asset, nil, &limit)
		if err != nil {
			t.Fatalf("bids by collateral: %v", err)
		}
		want := 0
		for key := range live {
			if key[1] == asset {
				want++
			}
		}
		if len(views) != want {
			t.Errorf("asset %s: index has %d bids, want %d", asset.Hex(), len(views), want)
		}
	}
}

// TestBidsPagination seeds 35 bids on one asset and pages the by-asset
// index; the by-bidder index pages over collateral assets the same way
func TestBidsPagination(t *testing.T) {
	book := newTestBook(t)

	bidders := make([]common.Address, 35)
	for i := range bidders {
		bidders[i] = common.BytesToAddress([]byte{0xB0, byte(i + 1)})
		if err := book.PlaceBid(bidders[i], beth, big.NewInt(int64(i+1)), decimal.Zero); err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
	}

	page, err := book.BidsByCollateral(beth, nil, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("default page size = %d, want 10", len(page))
	}
	for i, v := range page {
		if v.Bidder != bidders[i] {
			t.Errorf("page[%d] = %s, want %s", i, v.Bidder.Hex(), bidders[i].Hex())
		}
	}

	limit := uint32(100)
	page, err = book.BidsByCollateral(beth, nil, &limit)
	if err != nil {
		t.Fatalf("clamped page: %v", err)
	}
	if len(page) != 30 {
		t.Fatalf("clamped page size = %d, want 30", len(page))
	}

	page, err = book.BidsByCollateral(beth, &bidders[9], nil)
	if err != nil {
		t.Fatalf("cursor page: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("cursor page size = %d, want 10", len(page))
	}
	if page[0].Bidder != bidders[10] {
		t.Errorf("cursor page starts at %s, want %s", page[0].Bidder.Hex(), bidders[10].Hex())
	}
}

func TestBidsByUserPagination(t *testing.T) {
	book := newTestBook(t)

	assets := make([]common.Address, 12)
	for i := range assets {
		assets[i] = common.BytesToAddress([]byte{0xC0, byte(i + 1)})
		if err := book.PlaceBid(alice, assets[i], big.NewInt(int64(i+1)), decimal.Zero); err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
	}
	// Another bidder's entries must not bleed into alice's page
	if err := book.PlaceBid(bob, assets[0], big.NewInt(99), decimal.Zero); err != nil {
		t.Fatalf("place bob: %v", err)
	}

	page, err := book.BidsByUser(alice, nil, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("default page size = %d, want 10", len(page))
	}

	page, err = book.BidsByUser(alice, &assets[9], nil)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("second page size = %d, want 2", len(page))
	}
	if page[0].CollateralAsset != assets[10] {
		t.Errorf("second page starts at %s, want %s", page[0].CollateralAsset.Hex(), assets[10].Hex())
	}
}

func TestUpdateConfig(t *testing.T) {
	book := newTestBook(t)

	newFee := decimal.RequireFromString("0.02")
	if err := book.UpdateConfig(alice, ConfigUpdate{BidFee: &newFee}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := book.UpdateConfig(owner, ConfigUpdate{BidFee: &newFee}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	cfg, err := book.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !cfg.BidFee.Equal(newFee) {
		t.Errorf("bid fee = %s, want %s", cfg.BidFee, newFee)
	}
	if !cfg.SafeRatio.Equal(decimal.RequireFromString("0.8")) {
		t.Errorf("safe ratio changed unexpectedly: %s", cfg.SafeRatio)
	}
}

func TestPlaceBidBeforeInstantiate(t *testing.T) {
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	book := NewBidBook(NewStore(db), zap.NewNop().Sugar())
	if err := book.PlaceBid(alice, beth, big.NewInt(1), decimal.Zero); !errors.Is(err, ErrNotInstantiated) {
		t.Errorf("expected ErrNotInstantiated, got %v", err)
	}
}
