package custody

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Ledger enforces the balance/spendable invariant over borrower records.
// One mutex serializes calls: every operation is a single atomic state
// transition that either fully applies or leaves no trace.
type Ledger struct {
	mu    sync.Mutex
	store *Store
	log   *zap.SugaredLogger
}

// NewLedger creates a ledger over the given store.
func NewLedger(store *Store, log *zap.SugaredLogger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Instantiate stores the config singleton if it was never created.
// Re-instantiating an existing ledger is a no-op.
func (l *Ledger) Instantiate(cfg *Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.store.LoadConfig()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := l.store.SaveConfig(cfg); err != nil {
		return err
	}
	l.log.Infow("custody_instantiated",
		"owner", cfg.Owner.Hex(),
		"collateral_token", cfg.CollateralToken.Hex(),
		"overseer", cfg.Overseer.Hex())
	return nil
}

// Config returns the stored config.
func (l *Ledger) Config() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadConfig()
}

// UpdateConfig applies the supplied fields to the config. Only the owner
// may update; nil fields are left unchanged.
func (l *Ledger) UpdateConfig(caller common.Address, update ConfigUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return err
	}
	if caller != cfg.Owner {
		return ErrUnauthorized
	}
	if update.Owner != nil {
		cfg.Owner = *update.Owner
	}
	if update.LiquidationEngine != nil {
		cfg.LiquidationEngine = *update.LiquidationEngine
	}
	if err := l.store.SaveConfig(cfg); err != nil {
		return err
	}
	l.log.Infow("custody_config_updated", "owner", cfg.Owner.Hex())
	return nil
}

// Deposit credits collateral reported by the collateral token contract.
// Only the token itself may report an inbound transfer: the ledger does
// not move tokens in, it accounts for a transfer that already happened.
func (l *Ledger) Deposit(caller, borrower common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return err
	}
	if caller != cfg.CollateralToken {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	info, err := l.store.LoadBorrower(borrower)
	if err != nil {
		return err
	}

	info.Balance = new(big.Int).Add(info.Balance, amount)
	info.Spendable = new(big.Int).Add(info.Spendable, amount)

	if err := l.persist(borrower, info); err != nil {
		return err
	}

	l.log.Infow("deposit_collateral",
		"borrower", borrower.Hex(),
		"amount", amount.String())
	return nil
}

// Withdraw releases unlocked collateral back to the borrower. A nil
// amount withdraws the full spendable balance. Emits the outbound
// transfer instruction; the record is deleted once balance reaches zero.
func (l *Ledger) Withdraw(borrower common.Address, amount *big.Int) (*TransferInstruction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return nil, err
	}

	info, err := l.store.LoadBorrower(borrower)
	if err != nil {
		return nil, err
	}

	if amount == nil {
		amount = new(big.Int).Set(info.Spendable)
	} else if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount.Cmp(info.Spendable) > 0 {
		return nil, &ExceedsSpendableError{Op: "withdraw", Spendable: info.Spendable}
	}

	info.Balance = new(big.Int).Sub(info.Balance, amount)
	info.Spendable = new(big.Int).Sub(info.Spendable, amount)

	if info.Balance.Sign() == 0 {
		if err := l.store.DeleteBorrower(borrower); err != nil {
			return nil, err
		}
	} else if err := l.persist(borrower, info); err != nil {
		return nil, err
	}

	l.log.Infow("withdraw_collateral",
		"borrower", borrower.Hex(),
		"amount", amount.String())

	return &TransferInstruction{
		Token:     cfg.CollateralToken,
		Recipient: borrower,
		Amount:    new(big.Int).Set(amount),
	}, nil
}

// Lock pledges spendable collateral against new debt. Overseer only.
// Balance is unchanged; only the unlocked portion shrinks.
func (l *Ledger) Lock(caller, borrower common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return err
	}
	if caller != cfg.Overseer {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}

	info, err := l.store.LoadBorrower(borrower)
	if err != nil {
		return err
	}
	if amount.Cmp(info.Spendable) > 0 {
		return &ExceedsSpendableError{Op: "lock", Spendable: info.Spendable}
	}

	info.Spendable = new(big.Int).Sub(info.Spendable, amount)
	if err := l.persist(borrower, info); err != nil {
		return err
	}

	l.log.Infow("lock_collateral",
		"borrower", borrower.Hex(),
		"amount", amount.String())
	return nil
}

// Unlock releases pledged collateral as debt is repaid. Overseer only.
func (l *Ledger) Unlock(caller, borrower common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return err
	}
	if caller != cfg.Overseer {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}

	info, err := l.store.LoadBorrower(borrower)
	if err != nil {
		return err
	}
	locked := info.Locked()
	if amount.Cmp(locked) > 0 {
		return &ExceedsLockedError{Op: "unlock", Locked: locked}
	}

	info.Spendable = new(big.Int).Add(info.Spendable, amount)
	if err := l.persist(borrower, info); err != nil {
		return err
	}

	l.log.Infow("unlock_collateral",
		"borrower", borrower.Hex(),
		"amount", amount.String())
	return nil
}

// Liquidate removes locked collateral from custody and instructs the
// token layer to send it to the liquidation engine, carrying the
// liquidator identity and the settlement routing addresses. Overseer
// only. Spendable is untouched: the liquidated amount was never free.
func (l *Ledger) Liquidate(caller, liquidator, borrower common.Address, amount *big.Int) (*TransferInstruction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return nil, err
	}
	if caller != cfg.Overseer {
		return nil, ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	info, err := l.store.LoadBorrower(borrower)
	if err != nil {
		return nil, err
	}
	locked := info.Locked()
	if amount.Cmp(locked) > 0 {
		return nil, &ExceedsLockedError{Op: "liquidation", Locked: locked}
	}

	info.Balance = new(big.Int).Sub(info.Balance, amount)
	if err := l.persist(borrower, info); err != nil {
		return nil, err
	}

	l.log.Infow("liquidate_collateral",
		"liquidator", liquidator.Hex(),
		"borrower", borrower.Hex(),
		"amount", amount.String())

	feeRecipient := cfg.Overseer
	repayRecipient := cfg.Market
	return &TransferInstruction{
		Token:     cfg.CollateralToken,
		Recipient: cfg.LiquidationEngine,
		Amount:    new(big.Int).Set(amount),
		Execute: &ExecuteBidRequest{
			Liquidator:     liquidator,
			FeeRecipient:   &feeRecipient,
			RepayRecipient: &repayRecipient,
		},
	}, nil
}

// Borrower returns the borrower's current position, with the zero-valued
// default for absent records. Never fails on a miss.
func (l *Ledger) Borrower(borrower common.Address) (*BorrowerPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.store.LoadBorrower(borrower)
	if err != nil {
		return nil, err
	}
	return &BorrowerPosition{
		Borrower:  borrower,
		Balance:   info.Balance,
		Spendable: info.Spendable,
	}, nil
}

// Borrowers returns a page of borrower positions in ascending byte order
// of the borrower address. startAfter is excluded; limit defaults to 10
// and is clamped to 30.
func (l *Ledger) Borrowers(startAfter *common.Address, limit *uint32) ([]*BorrowerPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Borrowers(startAfter, limit)
}

func (l *Ledger) loadConfig() (*Config, error) {
	cfg, err := l.store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotInstantiated
	}
	return cfg, nil
}

// persist re-validates the record invariant before writing. A violation
// here means a ledger bug, not caller error; the write is refused.
func (l *Ledger) persist(borrower common.Address, info *BorrowerInfo) error {
	if err := info.Validate(); err != nil {
		return fmt.Errorf("custody: refusing to persist corrupt record for %s: %w", borrower.Hex(), err)
	}
	return l.store.SaveBorrower(borrower, info)
}
