package params

import (
	"math/big"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/moneymarket/pkg/custody"
	"github.com/uhyunpark/moneymarket/pkg/liquidation"
	"github.com/uhyunpark/moneymarket/pkg/rates"
)

type Node struct {
	DBPath  string
	APIAddr string
	LogFile string
}

type Custody struct {
	Owner             common.Address
	CollateralToken   common.Address
	Overseer          common.Address
	Market            common.Address
	Reward            common.Address
	LiquidationEngine common.Address
	StableDenom       string
	AssetName         string
	AssetSymbol       string
	AssetDecimals     uint8
}

type Liquidation struct {
	Owner                common.Address
	Oracle               common.Address
	StableDenom          string
	SafeRatio            decimal.Decimal
	BidFee               decimal.Decimal
	MaxPremiumRate       decimal.Decimal
	LiquidationThreshold *big.Int
	PriceTimeframe       uint64
}

type Distribution struct {
	Owner               common.Address
	EmissionCap         decimal.Decimal
	EmissionFloor       decimal.Decimal
	IncrementMultiplier decimal.Decimal
	DecrementMultiplier decimal.Decimal
}

type Interest struct {
	Owner              common.Address
	BaseRate           decimal.Decimal
	InterestMultiplier decimal.Decimal
}

type Config struct {
	Node         Node
	Custody      Custody
	Liquidation  Liquidation
	Distribution Distribution
	Interest     Interest
}

func Default() Config {
	owner := common.HexToAddress("0x0000000000000000000000000000000000000001")
	return Config{
		Node: Node{
			DBPath:  "data/moneymarket",
			APIAddr: ":8080",
			LogFile: "",
		},
		Custody: Custody{
			Owner:             owner,
			CollateralToken:   common.HexToAddress("0x0000000000000000000000000000000000000010"),
			Overseer:          common.HexToAddress("0x0000000000000000000000000000000000000011"),
			Market:            common.HexToAddress("0x0000000000000000000000000000000000000012"),
			Reward:            common.HexToAddress("0x0000000000000000000000000000000000000013"),
			LiquidationEngine: common.HexToAddress("0x0000000000000000000000000000000000000014"),
			StableDenom:       "uusd",
			AssetName:         "Bonded ETH",
			AssetSymbol:       "bETH",
			AssetDecimals:     18,
		},
		Liquidation: Liquidation{
			Owner:                owner,
			Oracle:               common.HexToAddress("0x0000000000000000000000000000000000000020"),
			StableDenom:          "uusd",
			SafeRatio:            decimal.RequireFromString("0.8"),
			BidFee:               decimal.RequireFromString("0.01"),
			MaxPremiumRate:       decimal.RequireFromString("0.3"),
			LiquidationThreshold: big.NewInt(500),
			PriceTimeframe:       60,
		},
		Distribution: Distribution{
			Owner:               owner,
			EmissionCap:         decimal.RequireFromString("100"),
			EmissionFloor:       decimal.RequireFromString("10"),
			IncrementMultiplier: decimal.RequireFromString("1.1"),
			DecrementMultiplier: decimal.RequireFromString("0.9"),
		},
		Interest: Interest{
			Owner:              owner,
			BaseRate:           decimal.RequireFromString("0.02"),
			InterestMultiplier: decimal.RequireFromString("0.5"),
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Node.DBPath = getEnv("DB_PATH", cfg.Node.DBPath)
	cfg.Node.APIAddr = getEnv("API_ADDR", cfg.Node.APIAddr)
	cfg.Node.LogFile = getEnv("LOG_FILE", cfg.Node.LogFile)

	loadAddr("CUSTODY_OWNER", &cfg.Custody.Owner)
	loadAddr("COLLATERAL_TOKEN", &cfg.Custody.CollateralToken)
	loadAddr("OVERSEER_ADDR", &cfg.Custody.Overseer)
	loadAddr("MARKET_ADDR", &cfg.Custody.Market)
	loadAddr("REWARD_ADDR", &cfg.Custody.Reward)
	loadAddr("LIQUIDATION_ENGINE_ADDR", &cfg.Custody.LiquidationEngine)
	cfg.Custody.StableDenom = getEnv("STABLE_DENOM", cfg.Custody.StableDenom)
	cfg.Custody.AssetName = getEnv("ASSET_NAME", cfg.Custody.AssetName)
	cfg.Custody.AssetSymbol = getEnv("ASSET_SYMBOL", cfg.Custody.AssetSymbol)
	if raw := os.Getenv("ASSET_DECIMALS"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 8); err == nil {
			cfg.Custody.AssetDecimals = uint8(v)
		}
	}

	loadAddr("LIQUIDATION_OWNER", &cfg.Liquidation.Owner)
	loadAddr("ORACLE_ADDR", &cfg.Liquidation.Oracle)
	cfg.Liquidation.StableDenom = getEnv("LIQUIDATION_STABLE_DENOM", cfg.Liquidation.StableDenom)
	loadDecimal("SAFE_RATIO", &cfg.Liquidation.SafeRatio)
	loadDecimal("BID_FEE", &cfg.Liquidation.BidFee)
	loadDecimal("MAX_PREMIUM_RATE", &cfg.Liquidation.MaxPremiumRate)
	if raw := os.Getenv("LIQUIDATION_THRESHOLD"); raw != "" {
		if v, ok := new(big.Int).SetString(raw, 10); ok {
			cfg.Liquidation.LiquidationThreshold = v
		}
	}
	if raw := os.Getenv("PRICE_TIMEFRAME_SEC"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.Liquidation.PriceTimeframe = v
		}
	}

	loadAddr("DISTRIBUTION_OWNER", &cfg.Distribution.Owner)
	loadDecimal("EMISSION_CAP", &cfg.Distribution.EmissionCap)
	loadDecimal("EMISSION_FLOOR", &cfg.Distribution.EmissionFloor)
	loadDecimal("INCREMENT_MULTIPLIER", &cfg.Distribution.IncrementMultiplier)
	loadDecimal("DECREMENT_MULTIPLIER", &cfg.Distribution.DecrementMultiplier)

	loadAddr("INTEREST_OWNER", &cfg.Interest.Owner)
	loadDecimal("BASE_RATE", &cfg.Interest.BaseRate)
	loadDecimal("INTEREST_MULTIPLIER", &cfg.Interest.InterestMultiplier)

	return cfg
}

// CustodyConfig builds the ledger config from node parameters
func (c Config) CustodyConfig() *custody.Config {
	return &custody.Config{
		Owner:             c.Custody.Owner,
		CollateralToken:   c.Custody.CollateralToken,
		Overseer:          c.Custody.Overseer,
		Market:            c.Custody.Market,
		Reward:            c.Custody.Reward,
		LiquidationEngine: c.Custody.LiquidationEngine,
		StableDenom:       c.Custody.StableDenom,
		AssetInfo: custody.AssetInfo{
			Name:     c.Custody.AssetName,
			Symbol:   c.Custody.AssetSymbol,
			Decimals: c.Custody.AssetDecimals,
		},
	}
}

// LiquidationConfig builds the bid book config from node parameters
func (c Config) LiquidationConfig() *liquidation.Config {
	return &liquidation.Config{
		Owner:                c.Liquidation.Owner,
		Oracle:               c.Liquidation.Oracle,
		StableDenom:          c.Liquidation.StableDenom,
		SafeRatio:            c.Liquidation.SafeRatio,
		BidFee:               c.Liquidation.BidFee,
		MaxPremiumRate:       c.Liquidation.MaxPremiumRate,
		LiquidationThreshold: c.Liquidation.LiquidationThreshold,
		PriceTimeframe:       c.Liquidation.PriceTimeframe,
	}
}

// DistributionConfig builds the emission model config from node parameters
func (c Config) DistributionConfig() *rates.DistributionConfig {
	return &rates.DistributionConfig{
		Owner:               c.Distribution.Owner,
		EmissionCap:         c.Distribution.EmissionCap,
		EmissionFloor:       c.Distribution.EmissionFloor,
		IncrementMultiplier: c.Distribution.IncrementMultiplier,
		DecrementMultiplier: c.Distribution.DecrementMultiplier,
	}
}

// InterestConfig builds the borrow curve config from node parameters
func (c Config) InterestConfig() *rates.InterestConfig {
	return &rates.InterestConfig{
		Owner:              c.Interest.Owner,
		BaseRate:           c.Interest.BaseRate,
		InterestMultiplier: c.Interest.InterestMultiplier,
	}
}

func loadAddr(key string, dst *common.Address) {
	if raw := os.Getenv(key); raw != "" && common.IsHexAddress(raw) {
		*dst = common.HexToAddress(raw)
	}
}

func loadDecimal(key string, dst *decimal.Decimal) {
	if raw := os.Getenv(key); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			*dst = d
		}
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
