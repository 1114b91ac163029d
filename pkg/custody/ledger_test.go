package custody

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/moneymarket/pkg/storage"
)

var (
	owner    = common.HexToAddress("0x0100000000000000000000000000000000000000")
	token    = common.HexToAddress("0x0200000000000000000000000000000000000000")
	overseer = common.HexToAddress("0x0300000000000000000000000000000000000000")
	market   = common.HexToAddress("0x0400000000000000000000000000000000000000")
	reward   = common.HexToAddress("0x0500000000000000000000000000000000000000")
	engine   = common.HexToAddress("0x0600000000000000000000000000000000000000")
	alice    = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob      = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

// newTestLedger creates a ledger over a temporary database
func newTestLedger(t *testing.T) *Ledger {
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ledger := NewLedger(NewStore(db), zap.NewNop().Sugar())
	err = ledger.Instantiate(&Config{
		Owner:             owner,
		CollateralToken:   token,
		Overseer:          overseer,
		Market:            market,
		Reward:            reward,
		LiquidationEngine: engine,
		StableDenom:       "uusd",
		AssetInfo:         AssetInfo{Name: "Bonded ETH", Symbol: "bETH", Decimals: 18},
	})
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	return ledger
}

func amt(v int64) *big.Int { return big.NewInt(v) }

func checkPosition(t *testing.T, l *Ledger, borrower common.Address, balance, spendable int64) {
	t.Helper()
	pos, err := l.Borrower(borrower)
	if err != nil {
		t.Fatalf("query borrower: %v", err)
	}
	if pos.Balance.Int64() != balance {
		t.Errorf("balance = %s, want %d", pos.Balance, balance)
	}
	if pos.Spendable.Int64() != spendable {
		t.Errorf("spendable = %s, want %d", pos.Spendable, spendable)
	}
}

// TestDepositLockLiquidateUnlock walks a full position lifecycle and
// checks the balance/spendable accounting after each step
func TestDepositLockLiquidateUnlock(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Deposit(token, alice, amt(100)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	checkPosition(t, l, alice, 100, 100)

	if err := l.Lock(overseer, alice, amt(40)); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	checkPosition(t, l, alice, 100, 60)

	transfer, err := l.Liquidate(overseer, bob, alice, amt(30))
	if err != nil {
		t.Fatalf("liquidate failed: %v", err)
	}
	checkPosition(t, l, alice, 70, 60)

	// Liquidated collateral routes to the liquidation engine with
	// settlement addresses attached
	if transfer.Recipient != engine {
		t.Errorf("recipient = %s, want %s", transfer.Recipient.Hex(), engine.Hex())
	}
	if transfer.Execute == nil {
		t.Fatal("expected execute payload on liquidation transfer")
	}
	if transfer.Execute.Liquidator != bob {
		t.Errorf("liquidator = %s, want %s", transfer.Execute.Liquidator.Hex(), bob.Hex())
	}
	if *transfer.Execute.FeeRecipient != overseer {
		t.Errorf("fee recipient = %s, want overseer", transfer.Execute.FeeRecipient.Hex())
	}
	if *transfer.Execute.RepayRecipient != market {
		t.Errorf("repay recipient = %s, want market", transfer.Execute.RepayRecipient.Hex())
	}

	// Locked is now 10; unlocking exactly 10 succeeds
	if err := l.Unlock(overseer, alice, amt(10)); err != nil {
		t.Fatalf("unlock at bound failed: %v", err)
	}
	checkPosition(t, l, alice, 70, 70)

	// Nothing locked anymore
	var lockErr *ExceedsLockedError
	err = l.Unlock(overseer, alice, amt(1))
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected ExceedsLockedError, got %v", err)
	}
	if lockErr.Locked.Sign() != 0 {
		t.Errorf("reported locked = %s, want 0", lockErr.Locked)
	}
}

func TestDepositAuthorization(t *testing.T) {
	l := newTestLedger(t)

	// Only the collateral token may report deposits
	if err := l.Deposit(alice, alice, amt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := l.Deposit(token, alice, amt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for zero deposit, got %v", err)
	}
	if err := l.Deposit(token, alice, amt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative deposit, got %v", err)
	}
}

func TestLockUnlockAuthorization(t *testing.T) {
	l := newTestLedger(t)
	l.Deposit(token, alice, amt(100))

	if err := l.Lock(alice, alice, amt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("lock: expected ErrUnauthorized, got %v", err)
	}
	if err := l.Unlock(alice, alice, amt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unlock: expected ErrUnauthorized, got %v", err)
	}
	if _, err := l.Liquidate(alice, bob, alice, amt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("liquidate: expected ErrUnauthorized, got %v", err)
	}
}

func TestLockExceedsSpendable(t *testing.T) {
	l := newTestLedger(t)
	l.Deposit(token, alice, amt(50))

	var spendErr *ExceedsSpendableError
	err := l.Lock(overseer, alice, amt(51))
	if !errors.As(err, &spendErr) {
		t.Fatalf("expected ExceedsSpendableError, got %v", err)
	}
	if spendErr.Spendable.Int64() != 50 {
		t.Errorf("reported spendable = %s, want 50", spendErr.Spendable)
	}

	// Zero-amount lock and unlock are no-ops, not errors; negative
	// amounts are malformed input
	if err := l.Lock(overseer, alice, amt(0)); err != nil {
		t.Errorf("zero lock: %v", err)
	}
	if err := l.Unlock(overseer, alice, amt(0)); err != nil {
		t.Errorf("zero unlock: %v", err)
	}
	if err := l.Lock(overseer, alice, amt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative lock: expected ErrInvalidAmount, got %v", err)
	}
	checkPosition(t, l, alice, 50, 50)
}

func TestWithdraw(t *testing.T) {
	l := newTestLedger(t)
	l.Deposit(token, alice, amt(100))
	l.Lock(overseer, alice, amt(40))

	// Withdrawing more than spendable fails with the available amount
	var spendErr *ExceedsSpendableError
	_, err := l.Withdraw(alice, amt(61))
	if !errors.As(err, &spendErr) {
		t.Fatalf("expected ExceedsSpendableError, got %v", err)
	}
	if spendErr.Spendable.Int64() != 60 {
		t.Errorf("reported spendable = %s, want 60", spendErr.Spendable)
	}

	transfer, err := l.Withdraw(alice, amt(25))
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if transfer.Token != token || transfer.Recipient != alice {
		t.Errorf("transfer = %s -> %s, want token to borrower", transfer.Token.Hex(), transfer.Recipient.Hex())
	}
	if transfer.Amount.Int64() != 25 {
		t.Errorf("transfer amount = %s, want 25", transfer.Amount)
	}
	checkPosition(t, l, alice, 75, 35)
}

// TestWithdrawAll checks that a nil amount withdraws the full spendable
// balance and that a fully drained record is deleted
func TestWithdrawAll(t *testing.T) {
	l := newTestLedger(t)
	l.Deposit(token, alice, amt(100))

	transfer, err := l.Withdraw(alice, nil)
	if err != nil {
		t.Fatalf("withdraw all failed: %v", err)
	}
	if transfer.Amount.Int64() != 100 {
		t.Errorf("transfer amount = %s, want 100", transfer.Amount)
	}

	// Record is gone; queries fall back to the zero default
	checkPosition(t, l, alice, 0, 0)

	// The deleted borrower no longer appears in listings
	positions, err := l.Borrowers(nil, nil)
	if err != nil {
		t.Fatalf("list borrowers: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("expected empty listing, got %d positions", len(positions))
	}
}

func TestQueryUnknownBorrower(t *testing.T) {
	l := newTestLedger(t)

	// Unknown borrowers read as the zero position, not an error
	checkPosition(t, l, bob, 0, 0)
}

func TestUpdateConfig(t *testing.T) {
	l := newTestLedger(t)

	newEngine := common.HexToAddress("0x0700000000000000000000000000000000000000")
	if err := l.UpdateConfig(alice, ConfigUpdate{LiquidationEngine: &newEngine}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := l.UpdateConfig(owner, ConfigUpdate{LiquidationEngine: &newEngine}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	cfg, err := l.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.LiquidationEngine != newEngine {
		t.Errorf("liquidation engine = %s, want %s", cfg.LiquidationEngine.Hex(), newEngine.Hex())
	}
	// Untouched fields survive a partial update
	if cfg.Owner != owner {
		t.Errorf("owner changed unexpectedly to %s", cfg.Owner.Hex())
	}
}

// TestBorrowersPagination seeds 35 borrowers and pages through them
func TestBorrowersPagination(t *testing.T) {
	l := newTestLedger(t)

	borrowers := make([]common.Address, 35)
	for i := range borrowers {
		borrowers[i] = common.BytesToAddress([]byte{0x10, byte(i + 1)})
		if err := l.Deposit(token, borrowers[i], amt(int64(i+1))); err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
	}

	// Default page size is 10
	page, err := l.Borrowers(nil, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("default page size = %d, want 10", len(page))
	}
	for i, pos := range page {
		if pos.Borrower != borrowers[i] {
			t.Errorf("page[%d] = %s, want %s", i, pos.Borrower.Hex(), borrowers[i].Hex())
		}
	}

	// Oversized limits clamp to 30
	limit := uint32(100)
	page, err = l.Borrowers(nil, &limit)
	if err != nil {
		t.Fatalf("clamped page: %v", err)
	}
	if len(page) != 30 {
		t.Fatalf("clamped page size = %d, want 30", len(page))
	}

	// start_after excludes the cursor itself
	page, err = l.Borrowers(&borrowers[9], nil)
	if err != nil {
		t.Fatalf("cursor page: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("cursor page size = %d, want 10", len(page))
	}
	if page[0].Borrower != borrowers[10] {
		t.Errorf("cursor page starts at %s, want %s", page[0].Borrower.Hex(), borrowers[10].Hex())
	}

	// Last page is short
	page, err = l.Borrowers(&borrowers[29], nil)
	if err != nil {
		t.Fatalf("last page: %v", err)
	}
	if len(page) != 5 {
		t.Errorf("last page size = %d, want 5", len(page))
	}
}

func TestInstantiateIdempotent(t *testing.T) {
	l := newTestLedger(t)

	other := common.HexToAddress("0x0900000000000000000000000000000000000000")
	err := l.Instantiate(&Config{Owner: other, CollateralToken: other})
	if err != nil {
		t.Fatalf("re-instantiate: %v", err)
	}

	cfg, err := l.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Owner != owner {
		t.Errorf("re-instantiate overwrote config: owner = %s", cfg.Owner.Hex())
	}
}

func TestBorrowerInfoValidate(t *testing.T) {
	info := &BorrowerInfo{Balance: big.NewInt(10), Spendable: big.NewInt(11)}
	if err := info.Validate(); err == nil {
		t.Error("expected validation error for spendable > balance")
	}

	info = &BorrowerInfo{Balance: big.NewInt(-1), Spendable: big.NewInt(0)}
	if err := info.Validate(); err == nil {
		t.Error("expected validation error for negative balance")
	}

	info = NewBorrowerInfo()
	if err := info.Validate(); err != nil {
		t.Errorf("zero record should validate: %v", err)
	}
}
