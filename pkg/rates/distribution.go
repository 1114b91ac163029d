package rates

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/moneymarket/pkg/storage"
)

var two = decimal.NewFromInt(2)

var distConfigKey = []byte("dst:cfg")

// DistributionConfig holds the owner-tunable emission parameters.
type DistributionConfig struct {
	Owner               common.Address  `json:"owner"`
	EmissionCap         decimal.Decimal `json:"emissionCap"`
	EmissionFloor       decimal.Decimal `json:"emissionFloor"`
	IncrementMultiplier decimal.Decimal `json:"incrementMultiplier"`
	DecrementMultiplier decimal.Decimal `json:"decrementMultiplier"`
}

// DistributionConfigUpdate carries the owner-mutable fields. Nil fields
// are left unchanged.
type DistributionConfigUpdate struct {
	Owner               *common.Address
	EmissionCap         *decimal.Decimal
	EmissionFloor       *decimal.Decimal
	IncrementMultiplier *decimal.Decimal
	DecrementMultiplier *decimal.Decimal
}

// DistributionModel adjusts the yield-emission rate toward a deposit-rate
// band. It is a pure function over its config: no per-entity state.
type DistributionModel struct {
	mu sync.Mutex
	db *storage.DB
}

// NewDistributionModel creates a model persisting its config in db.
func NewDistributionModel(db *storage.DB) *DistributionModel {
	return &DistributionModel{db: db}
}

// Instantiate stores the config singleton if it was never created.
func (m *DistributionModel) Instantiate(cfg *DistributionConfig) error {
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
func (m *DistributionModel) Config() (*DistributionConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadConfig()
}

// UpdateConfig applies the supplied fields. Only the owner may update.
func (m *DistributionModel) UpdateConfig(caller common.Address, update DistributionConfigUpdate) error {
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
	if update.EmissionCap != nil {
		cfg.EmissionCap = *update.EmissionCap
	}
	if update.EmissionFloor != nil {
		cfg.EmissionFloor = *update.EmissionFloor
	}
	if update.IncrementMultiplier != nil {
		cfg.IncrementMultiplier = *update.IncrementMultiplier
	}
	if update.DecrementMultiplier != nil {
		cfg.DecrementMultiplier = *update.DecrementMultiplier
	}
	return m.saveConfig(cfg)
}

// EmissionRate computes the next emission rate from the current deposit
// rate relative to the target/threshold band.
//
// The band midpoint splits into two triggers: below the low trigger the
// rate is scaled up by the increment multiplier, above the high trigger
// it is scaled down by the decrement multiplier, inside the band it is
// unchanged. The result is clamped to [floor, cap].
func (m *DistributionModel) EmissionRate(depositRate, targetDepositRate, thresholdDepositRate, currentEmissionRate decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.loadConfig()
	if err != nil {
		return decimal.Zero, err
	}

	mid := thresholdDepositRate.Add(targetDepositRate).Div(two)
	highTrigger := mid.Add(targetDepositRate).Div(two)
	lowTrigger := mid.Add(thresholdDepositRate).Div(two)

	rate := currentEmissionRate
	switch {
	case depositRate.LessThan(lowTrigger):
		rate = currentEmissionRate.Mul(cfg.IncrementMultiplier)
	case depositRate.GreaterThan(highTrigger):
		rate = currentEmissionRate.Mul(cfg.DecrementMultiplier)
	}

	if rate.GreaterThan(cfg.EmissionCap) {
		return cfg.EmissionCap, nil
	}
	if rate.LessThan(cfg.EmissionFloor) {
		return cfg.EmissionFloor, nil
	}
	return rate, nil
}

func (m *DistributionModel) loadConfig() (*DistributionConfig, error) {
	data, err := m.db.Get(distConfigKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotInstantiated
	}
	var cfg DistributionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal distribution config: %w", err)
	}
	return &cfg, nil
}

func (m *DistributionModel) saveConfig(cfg *DistributionConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal distribution config: %w", err)
	}
	return m.db.Set(distConfigKey, data)
}
