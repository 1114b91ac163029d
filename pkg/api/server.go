package api

import (
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/moneymarket/pkg/asset"
	"github.com/uhyunpark/moneymarket/pkg/custody"
	"github.com/uhyunpark/moneymarket/pkg/liquidation"
	"github.com/uhyunpark/moneymarket/pkg/rates"
)

// Server handles REST API and WebSocket connections
type Server struct {
	ledger   *custody.Ledger
	book     *liquidation.BidBook
	dist     *rates.DistributionModel
	interest *rates.InterestModel
	assets   *asset.Registry
	router   *mux.Router
	hub      *Hub      // WebSocket hub
	opLog    *os.File  // Operation audit log file
}

// NewServer creates a new API server
func NewServer(ledger *custody.Ledger, book *liquidation.BidBook, dist *rates.DistributionModel, interest *rates.InterestModel, assets *asset.Registry) *Server {
	// Open operation log file
	opLogPath := os.Getenv("OP_LOG_FILE")
	if opLogPath == "" {
		opLogPath = "data/operations.log"
	}

	os.MkdirAll("data", 0755)

	opLog, err := os.OpenFile(opLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[api] WARNING: failed to open op log file %s: %v", opLogPath, err)
		opLog = nil // Continue without op logging
	} else {
		log.Printf("[api] operation log: %s", opLogPath)
	}

	s := &Server{
		ledger:   ledger,
		book:     book,
		dist:     dist,
		interest: interest,
		assets:   assets,
		router:   mux.NewRouter(),
		hub:      NewHub(),
		opLog:    opLog,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Custody endpoints
	api.HandleFunc("/custody/config", s.handleGetCustodyConfig).Methods("GET")
	api.HandleFunc("/custody/config", s.handleUpdateCustodyConfig).Methods("POST")
	api.HandleFunc("/custody/borrowers", s.handleGetBorrowers).Methods("GET")
	api.HandleFunc("/custody/borrowers/{address}", s.handleGetBorrower).Methods("GET")
	api.HandleFunc("/custody/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/custody/withdraw", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/custody/lock", s.handleLock).Methods("POST")
	api.HandleFunc("/custody/unlock", s.handleUnlock).Methods("POST")
	api.HandleFunc("/custody/liquidate", s.handleLiquidate).Methods("POST")

	// Liquidation bid endpoints
	api.HandleFunc("/liquidation/config", s.handleGetLiquidationConfig).Methods("GET")
	api.HandleFunc("/liquidation/config", s.handleUpdateLiquidationConfig).Methods("POST")
	api.HandleFunc("/liquidation/bids", s.handlePlaceBid).Methods("POST")
	api.HandleFunc("/liquidation/bids/remove", s.handleRetractBid).Methods("POST")
	api.HandleFunc("/liquidation/bids/by-user/{bidder}", s.handleGetBidsByUser).Methods("GET")
	api.HandleFunc("/liquidation/bids/by-collateral/{collateral}", s.handleGetBidsByCollateral).Methods("GET")
	api.HandleFunc("/liquidation/bids/{bidder}/{collateral}", s.handleGetBid).Methods("GET")

	// Rate model endpoints
	api.HandleFunc("/rates/emission", s.handleEmissionRate).Methods("GET")
	api.HandleFunc("/rates/borrow", s.handleBorrowRate).Methods("GET")
	api.HandleFunc("/rates/distribution/config", s.handleGetDistributionConfig).Methods("GET")
	api.HandleFunc("/rates/distribution/config", s.handleUpdateDistributionConfig).Methods("POST")
	api.HandleFunc("/rates/interest/config", s.handleGetInterestConfig).Methods("GET")
	api.HandleFunc("/rates/interest/config", s.handleUpdateInterestConfig).Methods("POST")

	// Asset whitelist
	api.HandleFunc("/assets", s.handleGetAssets).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	// Start WebSocket hub
	go s.hub.Run()

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// ==============================
// Custody Handlers
// ==============================

func (s *Server) handleGetCustodyConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ledger.Config()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, CustodyConfigInfo{
		Owner:             cfg.Owner.Hex(),
		CollateralToken:   cfg.CollateralToken.Hex(),
		Overseer:          cfg.Overseer.Hex(),
		Market:            cfg.Market.Hex(),
		Reward:            cfg.Reward.Hex(),
		LiquidationEngine: cfg.LiquidationEngine.Hex(),
		StableDenom:       cfg.StableDenom,
		AssetName:         cfg.AssetInfo.Name,
		AssetSymbol:       cfg.AssetInfo.Symbol,
		AssetDecimals:     cfg.AssetInfo.Decimals,
	})
}

func (s *Server) handleUpdateCustodyConfig(w http.ResponseWriter, r *http.Request) {
	var req CustodyConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sender, ok := parseAddress(w, req.Sender, "sender")
	if !ok {
		return
	}

	var update custody.ConfigUpdate
	if req.Owner != "" {
		owner, ok := parseAddress(w, req.Owner, "owner")
		if !ok {
			return
		}
		update.Owner = &owner
	}
	if req.LiquidationEngine != "" {
		engine, ok := parseAddress(w, req.LiquidationEngine, "liquidationEngine")
		if !ok {
			return
		}
		update.LiquidationEngine = &engine
	}

	if err := s.ledger.UpdateConfig(sender, update); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("CUSTODY_CONFIG_UPDATE", map[string]interface{}{"sender": sender.Hex()})
	respondJSON(w, OperationResponse{Status: "ok"})
}

func (s *Server) handleGetBorrower(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"], "address")
	if !ok {
		return
	}

	info, err := s.ledger.Borrower(addr)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, BorrowerInfo{
		Borrower:  addr.Hex(),
		Balance:   info.Balance.String(),
		Spendable: info.Spendable.String(),
		Locked:    new(big.Int).Sub(info.Balance, info.Spendable).String(),
	})
}

func (s *Server) handleGetBorrowers(w http.ResponseWriter, r *http.Request) {
	startAfter, limit, ok := parsePageQuery(w, r)
	if !ok {
		return
	}

	positions, err := s.ledger.Borrowers(startAfter, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	borrowers := make([]BorrowerInfo, len(positions))
	for i, p := range positions {
		borrowers[i] = BorrowerInfo{
			Borrower:  p.Borrower.Hex(),
			Balance:   p.Balance.String(),
			Spendable: p.Spendable.String(),
			Locked:    new(big.Int).Sub(p.Balance, p.Spendable).String(),
		}
	}

	respondJSON(w, BorrowersResponse{Borrowers: borrowers})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sender, ok := parseAddress(w, req.Sender, "sender")
	if !ok {
		return
	}
	borrower, ok := parseAddress(w, req.Borrower, "borrower")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	if err := s.ledger.Deposit(sender, borrower, amount); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("DEPOSIT", map[string]interface{}{
		"borrower": borrower.Hex(),
		"amount":   amount.String(),
	})
	s.BroadcastCollateral("deposit", borrower, amount)

	respondJSON(w, OperationResponse{Status: "ok"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	borrower, ok := parseAddress(w, req.Borrower, "borrower")
	if !ok {
		return
	}

	var amount *big.Int
	if req.Amount != "" {
		var ok bool
		amount, ok = parseAmount(w, req.Amount)
		if !ok {
			return
		}
	}

	transfer, err := s.ledger.Withdraw(borrower, amount)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("WITHDRAW", map[string]interface{}{
		"borrower": borrower.Hex(),
		"amount":   transfer.Amount.String(),
	})
	s.BroadcastCollateral("withdraw", borrower, transfer.Amount)

	respondJSON(w, OperationResponse{
		Status: "ok",
		Transfer: &TransferInfo{
			Token:     transfer.Token.Hex(),
			Recipient: transfer.Recipient.Hex(),
			Amount:    transfer.Amount.String(),
		},
	})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	s.handleLockUnlock(w, r, "LOCK", s.ledger.Lock)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	s.handleLockUnlock(w, r, "UNLOCK", s.ledger.Unlock)
}

func (s *Server) handleLockUnlock(w http.ResponseWriter, r *http.Request, event string, op func(common.Address, common.Address, *big.Int) error) {
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sender, ok := parseAddress(w, req.Sender, "sender")
	if !ok {
		return
	}
	borrower, ok := parseAddress(w, req.Borrower, "borrower")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	if err := op(sender, borrower, amount); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation(event, map[string]interface{}{
		"borrower": borrower.Hex(),
		"amount":   amount.String(),
	})
	s.BroadcastCollateral(event, borrower, amount)

	respondJSON(w, OperationResponse{Status: "ok"})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req LiquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sender, ok := parseAddress(w, req.Sender, "sender")
	if !ok {
		return
	}
	liquidator, ok := parseAddress(w, req.Liquidator, "liquidator")
	if !ok {
		return
	}
	borrower, ok := parseAddress(w, req.Borrower, "borrower")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	transfer, err := s.ledger.Liquidate(sender, liquidator, borrower, amount)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("LIQUIDATE", map[string]interface{}{
		"borrower":   borrower.Hex(),
		"liquidator": liquidator.Hex(),
		"amount":     amount.String(),
	})
	s.BroadcastCollateral("liquidate", borrower, amount)

	respondJSON(w, OperationResponse{
		Status: "ok",
		Transfer: &TransferInfo{
			Token:     transfer.Token.Hex(),
			Recipient: transfer.Recipient.Hex(),
			Amount:    transfer.Amount.String(),
		},
	})
}

// ==============================
// Liquidation Bid Handlers
// ==============================

func (s *Server) handleGetLiquidationConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.book.Config()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, LiquidationConfigInfo{
		Owner:                cfg.Owner.Hex(),
		Oracle:               cfg.Oracle.Hex(),
		StableDenom:          cfg.StableDenom,
		SafeRatio:            cfg.SafeRatio.String(),
		BidFee:               cfg.BidFee.String(),
		MaxPremiumRate:       cfg.MaxPremiumRate.String(),
		LiquidationThreshold: cfg.LiquidationThreshold.String(),
		PriceTimeframe:       cfg.PriceTimeframe,
	})
}

func (s *Server) handleUpdateLiquidationConfig(w http.ResponseWriter, r *http.Request) {
	var req LiquidationConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sender, ok := parseAddress(w, req.Sender, "sender")
	if !ok {
		return
	}

	var update liquidation.ConfigUpdate
	if req.Owner != "" {
		owner, ok := parseAddress(w, req.Owner, "owner")
		if !ok {
			return
		}
		update.Owner = &owner
	}
	if req.Oracle != "" {
		oracle, ok := parseAddress(w, req.Oracle, "oracle")
		if !ok {
			return
		}
		update.Oracle = &oracle
	}
	if req.SafeRatio != "" {
		d, ok := parseDecimal(w, req.SafeRatio, "safeRatio")
		if !ok {
			return
		}
		update.SafeRatio = &d
	}
	if req.BidFee != "" {
		d, ok := parseDecimal(w, req.BidFee, "bidFee")
		if !ok {
			return
		}
		update.BidFee = &d
	}
	if req.MaxPremiumRate != "" {
		d, ok := parseDecimal(w, req.MaxPremiumRate, "maxPremiumRate")
		if !ok {
			return
		}
		update.MaxPremiumRate = &d
	}
	if req.LiquidationThreshold != "" {
		amount, ok := parseAmount(w, req.LiquidationThreshold)
		if !ok {
			return
		}
		update.LiquidationThreshold = amount
	}
	update.PriceTimeframe = req.PriceTimeframe

	if err := s.book.UpdateConfig(sender, update); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("LIQUIDATION_CONFIG_UPDATE", map[string]interface{}{"sender": sender.Hex()})
	respondJSON(w, OperationResponse{Status: "ok"})
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	bidder, ok := parseAddress(w, req.Bidder, "bidder")
	if !ok {
		return
	}
	collateral, ok := parseAddress(w, req.CollateralToken, "collateralToken")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	premium, ok := parseDecimal(w, req.PremiumRate, "premiumRate")
	if !ok {
		return
	}

	if s.assets != nil && !s.assets.Exists(collateral) {
		respondError(w, http.StatusBadRequest, "unknown collateral asset", collateral.Hex())
		return
	}

	if err := s.book.PlaceBid(bidder, collateral, amount, premium); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("BID_PLACE", map[string]interface{}{
		"bidder":     bidder.Hex(),
		"collateral": collateral.Hex(),
		"amount":     amount.String(),
	})
	s.BroadcastBid("place", bidder, collateral, amount)

	respondJSON(w, OperationResponse{Status: "ok"})
}

func (s *Server) handleRetractBid(w http.ResponseWriter, r *http.Request) {
	var req RetractBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	bidder, ok := parseAddress(w, req.Bidder, "bidder")
	if !ok {
		return
	}
	collateral, ok := parseAddress(w, req.CollateralToken, "collateralToken")
	if !ok {
		return
	}

	if err := s.book.RemoveBid(bidder, collateral); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("BID_RETRACT", map[string]interface{}{
		"bidder":     bidder.Hex(),
		"collateral": collateral.Hex(),
	})
	s.BroadcastBid("retract", bidder, collateral, nil)

	respondJSON(w, OperationResponse{Status: "ok"})
}

func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bidder, ok := parseAddress(w, vars["bidder"], "bidder")
	if !ok {
		return
	}
	collateral, ok := parseAddress(w, vars["collateral"], "collateral")
	if !ok {
		return
	}

	bid, err := s.book.Bid(bidder, collateral)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, BidInfo{
		CollateralToken: collateral.Hex(),
		Bidder:          bidder.Hex(),
		Amount:          bid.Amount.String(),
		PremiumRate:     bid.PremiumRate.String(),
	})
}

func (s *Server) handleGetBidsByUser(w http.ResponseWriter, r *http.Request) {
	bidder, ok := parseAddress(w, mux.Vars(r)["bidder"], "bidder")
	if !ok {
		return
	}
	startAfter, limit, ok := parsePageQuery(w, r)
	if !ok {
		return
	}

	views, err := s.book.BidsByUser(bidder, startAfter, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, bidsResponse(views))
}

func (s *Server) handleGetBidsByCollateral(w http.ResponseWriter, r *http.Request) {
	collateral, ok := parseAddress(w, mux.Vars(r)["collateral"], "collateral")
	if !ok {
		return
	}
	startAfter, limit, ok := parsePageQuery(w, r)
	if !ok {
		return
	}

	views, err := s.book.BidsByCollateral(collateral, startAfter, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, bidsResponse(views))
}

func bidsResponse(views []*liquidation.BidView) BidsResponse {
	bids := make([]BidInfo, len(views))
	for i, v := range views {
		bids[i] = BidInfo{
			CollateralToken: v.CollateralAsset.Hex(),
			Bidder:          v.Bidder.Hex(),
			Amount:          v.Amount.String(),
			PremiumRate:     v.PremiumRate.String(),
		}
	}
	return BidsResponse{Bids: bids}
}

// ==============================
// Rate Model Handlers
// ==============================

func (s *Server) handleEmissionRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deposit, ok := parseDecimal(w, q.Get("deposit_rate"), "deposit_rate")
	if !ok {
		return
	}
	target, ok := parseDecimal(w, q.Get("target_deposit_rate"), "target_deposit_rate")
	if !ok {
		return
	}
	threshold, ok := parseDecimal(w, q.Get("threshold_deposit_rate"), "threshold_deposit_rate")
	if !ok {
		return
	}
	current, ok := parseDecimal(w, q.Get("current_emission_rate"), "current_emission_rate")
	if !ok {
		return
	}

	rate, err := s.dist.EmissionRate(deposit, target, threshold, current)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, RateResponse{Rate: rate.String()})
}

func (s *Server) handleBorrowRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	balance, ok := parseAmount(w, q.Get("market_balance"))
	if !ok {
		return
	}
	liabilities, ok := parseAmount(w, q.Get("total_liabilities"))
	if !ok {
		return
	}
	reserves, ok := parseAmount(w, q.Get("total_reserves"))
	if !ok {
		return
	}

	rate, err := s.interest.BorrowRate(balance, liabilities, reserves)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, RateResponse{Rate: rate.String()})
}

func (s *Server) handleGetDistributionConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.dist.Config()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, map[string]string{
		"owner":               cfg.Owner.Hex(),
		"emissionCap":         cfg.EmissionCap.String(),
		"emissionFloor":       cfg.EmissionFloor.String(),
		"incrementMultiplier": cfg.IncrementMultiplier.String(),
		"decrementMultiplier": cfg.DecrementMultiplier.String(),
	})
}

func (s *Server) handleUpdateDistributionConfig(w http.ResponseWriter, r *http.Request) {
	var req DistributionConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sender, ok := parseAddress(w, req.Sender, "sender")
	if !ok {
		return
	}

	var update rates.DistributionConfigUpdate
	if req.Owner != "" {
		owner, ok := parseAddress(w, req.Owner, "owner")
		if !ok {
			return
		}
		update.Owner = &owner
	}
	if req.EmissionCap != "" {
		d, ok := parseDecimal(w, req.EmissionCap, "emissionCap")
		if !ok {
			return
		}
		update.EmissionCap = &d
	}
	if req.EmissionFloor != "" {
		d, ok := parseDecimal(w, req.EmissionFloor, "emissionFloor")
		if !ok {
			return
		}
		update.EmissionFloor = &d
	}
	if req.IncrementMultiplier != "" {
		d, ok := parseDecimal(w, req.IncrementMultiplier, "incrementMultiplier")
		if !ok {
			return
		}
		update.IncrementMultiplier = &d
	}
	if req.DecrementMultiplier != "" {
		d, ok := parseDecimal(w, req.DecrementMultiplier, "decrementMultiplier")
		if !ok {
			return
		}
		update.DecrementMultiplier = &d
	}

	if err := s.dist.UpdateConfig(sender, update); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("DISTRIBUTION_CONFIG_UPDATE", map[string]interface{}{"sender": sender.Hex()})
	respondJSON(w, OperationResponse{Status: "ok"})
}

func (s *Server) handleGetInterestConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.interest.Config()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, map[string]string{
		"owner":              cfg.Owner.Hex(),
		"baseRate":           cfg.BaseRate.String(),
		"interestMultiplier": cfg.InterestMultiplier.String(),
	})
}

func (s *Server) handleUpdateInterestConfig(w http.ResponseWriter, r *http.Request) {
	var req InterestConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sender, ok := parseAddress(w, req.Sender, "sender")
	if !ok {
		return
	}

	var update rates.InterestConfigUpdate
	if req.Owner != "" {
		owner, ok := parseAddress(w, req.Owner, "owner")
		if !ok {
			return
		}
		update.Owner = &owner
	}
	if req.BaseRate != "" {
		d, ok := parseDecimal(w, req.BaseRate, "baseRate")
		if !ok {
			return
		}
		update.BaseRate = &d
	}
	if req.InterestMultiplier != "" {
		d, ok := parseDecimal(w, req.InterestMultiplier, "interestMultiplier")
		if !ok {
			return
		}
		update.InterestMultiplier = &d
	}

	if err := s.interest.UpdateConfig(sender, update); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logOperation("INTEREST_CONFIG_UPDATE", map[string]interface{}{"sender": sender.Hex()})
	respondJSON(w, OperationResponse{Status: "ok"})
}

// ==============================
// Asset Handlers
// ==============================

func (s *Server) handleGetAssets(w http.ResponseWriter, r *http.Request) {
	list := s.assets.List()

	response := make([]AssetInfo, len(list))
	for i, a := range list {
		response[i] = AssetInfo{
			Address:  a.Address.Hex(),
			Name:     a.Name,
			Symbol:   a.Symbol,
			Decimals: a.Decimals,
		}
	}

	respondJSON(w, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods
// ==============================

// BroadcastCollateral broadcasts a borrower position change to WebSocket clients
func (s *Server) BroadcastCollateral(event string, borrower common.Address, amount *big.Int) {
	info, err := s.ledger.Borrower(borrower)
	if err != nil {
		return
	}

	update := CollateralUpdate{
		Type:      "collateral",
		Event:     event,
		Borrower:  borrower.Hex(),
		Balance:   info.Balance.String(),
		Spendable: info.Spendable.String(),
		Timestamp: time.Now().UnixMilli(),
	}
	if amount != nil {
		update.Amount = amount.String()
	}

	s.hub.BroadcastToChannel("custody:"+borrower.Hex(), update)
}

// BroadcastBid broadcasts a bid book change to WebSocket clients, on the
// bidder's channel and on the collateral asset's channel (mirroring the
// two query indices)
func (s *Server) BroadcastBid(event string, bidder, collateral common.Address, amount *big.Int) {
	update := BidUpdate{
		Type:            "bid",
		Event:           event,
		Bidder:          bidder.Hex(),
		CollateralToken: collateral.Hex(),
		Timestamp:       time.Now().UnixMilli(),
	}
	if amount != nil {
		update.Amount = amount.String()
	}

	s.hub.BroadcastToChannel("bids:"+bidder.Hex(), update)
	if collateral != bidder {
		s.hub.BroadcastToChannel("bids:"+collateral.Hex(), update)
	}
}

// ==============================
// Helper Functions
// ==============================

func parseAddress(w http.ResponseWriter, raw, field string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "invalid address", field)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func parseAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid amount", raw)
		return nil, false
	}
	return amount, true
}

func parseDecimal(w http.ResponseWriter, raw, field string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid decimal", field)
		return decimal.Zero, false
	}
	return d, true
}

func parsePageQuery(w http.ResponseWriter, r *http.Request) (*common.Address, *uint32, bool) {
	q := r.URL.Query()

	var startAfter *common.Address
	if raw := q.Get("start_after"); raw != "" {
		if !common.IsHexAddress(raw) {
			respondError(w, http.StatusBadRequest, "invalid address", "start_after")
			return nil, nil, false
		}
		addr := common.HexToAddress(raw)
		startAfter = &addr
	}

	var limit *uint32
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit", raw)
			return nil, nil, false
		}
		l := uint32(v)
		limit = &l
	}

	return startAfter, limit, true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// respondDomainError maps ledger/book errors to HTTP status codes
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, custody.ErrUnauthorized),
		errors.Is(err, liquidation.ErrUnauthorized),
		errors.Is(err, rates.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, liquidation.ErrBidNotFound):
		respondError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, custody.ErrNotInstantiated),
		errors.Is(err, liquidation.ErrNotInstantiated),
		errors.Is(err, rates.ErrNotInstantiated):
		respondError(w, http.StatusServiceUnavailable, "not instantiated", err.Error())
	default:
		var spendErr *custody.ExceedsSpendableError
		var lockErr *custody.ExceedsLockedError
		if errors.As(err, &spendErr) || errors.As(err, &lockErr) ||
			errors.Is(err, custody.ErrInvalidAmount) || errors.Is(err, liquidation.ErrInvalidAmount) {
			respondError(w, http.StatusBadRequest, "invalid operation", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// logOperation writes an operation event to the audit log file
func (s *Server) logOperation(eventType string, data map[string]interface{}) {
	if s.opLog == nil {
		return // Logging disabled
	}

	entry := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"event":     eventType,
		"data":      data,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[api] failed to marshal op log entry: %v", err)
		return
	}

	// One JSON object per line
	s.opLog.Write(jsonData)
	s.opLog.Write([]byte("\n"))
}
