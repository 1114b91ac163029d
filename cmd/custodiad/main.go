package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uhyunpark/moneymarket/params"
	"github.com/uhyunpark/moneymarket/pkg/api"
	"github.com/uhyunpark/moneymarket/pkg/asset"
	"github.com/uhyunpark/moneymarket/pkg/custody"
	"github.com/uhyunpark/moneymarket/pkg/liquidation"
	"github.com/uhyunpark/moneymarket/pkg/rates"
	"github.com/uhyunpark/moneymarket/pkg/storage"
	"github.com/uhyunpark/moneymarket/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logFile := cfg.Node.LogFile
	if logFile == "" {
		logFile = "data/custodiad.log"
	}

	logger, err := util.NewLogger(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	// ---- Storage ----
	db, err := storage.Open(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer db.Close()
	sugar.Infow("storage_opened", "path", cfg.Node.DBPath)

	// ---- Core managers ----
	ledger := custody.NewLedger(custody.NewStore(db), sugar)
	if err := ledger.Instantiate(cfg.CustodyConfig()); err != nil {
		sugar.Fatalw("custody_init_failed", "err", err)
	}

	book := liquidation.NewBidBook(liquidation.NewStore(db), sugar)
	if err := book.Instantiate(cfg.LiquidationConfig()); err != nil {
		sugar.Fatalw("liquidation_init_failed", "err", err)
	}

	dist := rates.NewDistributionModel(db)
	if err := dist.Instantiate(cfg.DistributionConfig()); err != nil {
		sugar.Fatalw("distribution_init_failed", "err", err)
	}

	interest := rates.NewInterestModel(db)
	if err := interest.Instantiate(cfg.InterestConfig()); err != nil {
		sugar.Fatalw("interest_init_failed", "err", err)
	}

	// ---- Asset whitelist ----
	// The custody contract manages a single collateral token; the registry
	// exposes it (and any future tokens) to the API layer.
	registry := asset.NewRegistry()
	if err := registry.Register(&asset.Asset{
		Address:  cfg.Custody.CollateralToken,
		Name:     cfg.Custody.AssetName,
		Symbol:   cfg.Custody.AssetSymbol,
		Decimals: cfg.Custody.AssetDecimals,
	}); err != nil {
		sugar.Fatalw("asset_register_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(ledger, book, dist, interest, registry)

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("custodiad_started",
		"collateral_token", cfg.Custody.CollateralToken.Hex(),
		"overseer", cfg.Custody.Overseer.Hex(),
		"stable_denom", cfg.Custody.StableDenom)

	<-ctx.Done()
	sugar.Info("shutting down")
}
