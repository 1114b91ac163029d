package rates

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/moneymarket/pkg/storage"
)

var interestConfigKey = []byte("int:cfg")

// InterestConfig holds the borrow-rate curve parameters.
type InterestConfig struct {
	Owner              common.Address  `json:"owner"`
	BaseRate           decimal.Decimal `json:"baseRate"`
	InterestMultiplier decimal.Decimal `json:"interestMultiplier"`
}

// InterestConfigUpdate carries the owner-mutable fields. Nil fields are
// left unchanged.
type InterestConfigUpdate struct {
	Owner              *common.Address
	BaseRate           *decimal.Decimal
	InterestMultiplier *decimal.Decimal
}

// InterestModel maps market utilization to a borrow rate along a linear
// curve.
type InterestModel struct {
	mu sync.Mutex
	db *storage.DB
}

// NewInterestModel creates a model persisting its config in db.
func NewInterestModel(db *storage.DB) *InterestModel {
	return &InterestModel{db: db}
}

// Instantiate stores the config singleton if it was never created.
func (m *InterestModel) Instantiate(cfg *InterestConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.loadConfig()
	if err != nil && err != ErrNotInstantiated {
		return err
	}
	if existing != nil {
		return nil
	}
	return m.saveConfig(cfg)
}

// Config returns the stored config.
func (m *InterestModel) Config() (*InterestConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadConfig()
}

// UpdateConfig applies the supplied fields. Only the owner may update.
func (m *InterestModel) UpdateConfig(caller common.Address, update InterestConfigUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.loadConfig()
	if err != nil {
		return err
	}
	if caller != cfg.Owner {
		return ErrUnauthorized
	}
	if update.Owner != nil {
		cfg.Owner = *update.Owner
	}
	if update.BaseRate != nil {
		cfg.BaseRate = *update.BaseRate
	}
	if update.InterestMultiplier != nil {
		cfg.InterestMultiplier = *update.InterestMultiplier
	}
	return m.saveConfig(cfg)
}

// BorrowRate computes base + utilization * multiplier where utilization
// is liabilities / (balance + liabilities - reserves). A non-positive
// denominator yields zero utilization.
func (m *InterestModel) BorrowRate(marketBalance, totalLiabilities, totalReserves *big.Int) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.loadConfig()
	if err != nil {
		return decimal.Zero, err
	}

	denom := new(big.Int).Add(marketBalance, totalLiabilities)
	denom.Sub(denom, totalReserves)

	utilization := decimal.Zero
	if denom.Sign() > 0 {
		utilization = decimal.NewFromBigInt(totalLiabilities, 0).Div(decimal.NewFromBigInt(denom, 0))
	}
	return cfg.BaseRate.Add(utilization.Mul(cfg.InterestMultiplier)), nil
}

func (m *InterestModel) loadConfig() (*InterestConfig, error) {
	data, err := m.db.Get(interestConfigKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotInstantiated
	}
	var cfg InterestConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interest config: %w", err)
	}
	return &cfg, nil
}

func (m *InterestModel) saveConfig(cfg *InterestConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal interest config: %w", err)
	}
	return m.db.Set(interestConfigKey, data)
}
