package rates

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/moneymarket/pkg/storage"
)

var (
	owner = common.HexToAddress("0x0100000000000000000000000000000000000000")
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestDB(t *testing.T) *storage.DB {
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestDistribution(t *testing.T) *DistributionModel {
	m := NewDistributionModel(newTestDB(t))
	err := m.Instantiate(&DistributionConfig{
		Owner:               owner,
		EmissionCap:         dec("100"),
		EmissionFloor:       dec("10"),
		IncrementMultiplier: dec("1.1"),
		DecrementMultiplier: dec("0.9"),
	})
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	return m
}

// Band math with target=0.1 and threshold=0.05: mid=0.075,
// low trigger=0.0625, high trigger=0.0875
func TestEmissionRateIncrement(t *testing.T) {
	m := newTestDistribution(t)

	rate, err := m.EmissionRate(dec("0.06"), dec("0.1"), dec("0.05"), dec("50"))
	if err != nil {
		t.Fatalf("emission rate: %v", err)
	}
	if !rate.Equal(dec("55")) {
		t.Errorf("rate = %s, want 55", rate)
	}
}

func TestEmissionRateDecrement(t *testing.T) {
	m := newTestDistribution(t)

	rate, err := m.EmissionRate(dec("0.09"), dec("0.1"), dec("0.05"), dec("50"))
	if err != nil {
		t.Fatalf("emission rate: %v", err)
	}
	if !rate.Equal(dec("45")) {
		t.Errorf("rate = %s, want 45", rate)
	}
}

func TestEmissionRateUnchanged(t *testing.T) {
	m := newTestDistribution(t)

	// Inside the band: no adjustment
	rate, err := m.EmissionRate(dec("0.075"), dec("0.1"), dec("0.05"), dec("50"))
	if err != nil {
		t.Fatalf("emission rate: %v", err)
	}
	if !rate.Equal(dec("50")) {
		t.Errorf("rate = %s, want 50", rate)
	}
}

func TestEmissionRateClamped(t *testing.T) {
	m := newTestDistribution(t)

	// 95 * 1.1 = 104.5 clamps to the cap
	rate, err := m.EmissionRate(dec("0.01"), dec("0.1"), dec("0.05"), dec("95"))
	if err != nil {
		t.Fatalf("emission rate: %v", err)
	}
	if !rate.Equal(dec("100")) {
		t.Errorf("rate = %s, want cap 100", rate)
	}

	// 11 * 0.9 = 9.9 clamps to the floor
	rate, err = m.EmissionRate(dec("0.2"), dec("0.1"), dec("0.05"), dec("11"))
	if err != nil {
		t.Fatalf("emission rate: %v", err)
	}
	if !rate.Equal(dec("10")) {
		t.Errorf("rate = %s, want floor 10", rate)
	}
}

func TestDistributionUpdateConfig(t *testing.T) {
	m := newTestDistribution(t)

	cap := dec("200")
	if err := m.UpdateConfig(alice, DistributionConfigUpdate{EmissionCap: &cap}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := m.UpdateConfig(owner, DistributionConfigUpdate{EmissionCap: &cap}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !cfg.EmissionCap.Equal(cap) {
		t.Errorf("cap = %s, want %s", cfg.EmissionCap, cap)
	}
	if !cfg.EmissionFloor.Equal(dec("10")) {
		t.Errorf("floor changed unexpectedly: %s", cfg.EmissionFloor)
	}
}

func newTestInterest(t *testing.T) *InterestModel {
	m := NewInterestModel(newTestDB(t))
	err := m.Instantiate(&InterestConfig{
		Owner:              owner,
		BaseRate:           dec("0.02"),
		InterestMultiplier: dec("0.5"),
	})
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	return m
}

func TestBorrowRate(t *testing.T) {
	m := newTestInterest(t)

	// utilization = 500 / (600 + 500 - 100) = 0.5
	rate, err := m.BorrowRate(big.NewInt(600), big.NewInt(500), big.NewInt(100))
	if err != nil {
		t.Fatalf("borrow rate: %v", err)
	}
	if !rate.Equal(dec("0.27")) {
		t.Errorf("rate = %s, want 0.27", rate)
	}
}

func TestBorrowRateZeroUtilization(t *testing.T) {
	m := newTestInterest(t)

	rate, err := m.BorrowRate(big.NewInt(1000), big.NewInt(0), big.NewInt(0))
	if err != nil {
		t.Fatalf("borrow rate: %v", err)
	}
	if !rate.Equal(dec("0.02")) {
		t.Errorf("rate = %s, want base 0.02", rate)
	}

	// A drained pool must not divide by zero
	rate, err = m.BorrowRate(big.NewInt(0), big.NewInt(0), big.NewInt(0))
	if err != nil {
		t.Fatalf("borrow rate on empty pool: %v", err)
	}
	if !rate.Equal(dec("0.02")) {
		t.Errorf("rate = %s, want base 0.02", rate)
	}
}

func TestInterestUpdateConfig(t *testing.T) {
	m := newTestInterest(t)

	base := dec("0.03")
	if err := m.UpdateConfig(alice, InterestConfigUpdate{BaseRate: &base}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := m.UpdateConfig(owner, InterestConfigUpdate{BaseRate: &base}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !cfg.BaseRate.Equal(base) {
		t.Errorf("base rate = %s, want %s", cfg.BaseRate, base)
	}
}

func TestModelNotInstantiated(t *testing.T) {
	m := NewInterestModel(newTestDB(t))
	if _, err := m.BorrowRate(big.NewInt(1), big.NewInt(1), big.NewInt(0)); !errors.Is(err, ErrNotInstantiated) {
		t.Errorf("expected ErrNotInstantiated, got %v", err)
	}
}
