// Package api exposes the auction house over JSON-HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"SealBid/internal/auction"
	"SealBid/internal/logger"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20 // 1 MB

	// maxSnapshotSize is the maximum accepted snapshot blob size in bytes.
	maxSnapshotSize = 256 << 20 // 256 MB
)

// Hash is the 32-byte identifier shared with the auction package.
type Hash = auction.Hash

// AuctionService is the surface the server consumes.
type AuctionService interface {
	CreateAuction(caller, custodian Hash, items []Hash, startTime, bidPeriod, revealPeriod, reservePrice uint64) (uint64, error)
	CommitBid(caller, custodian, itemSetKey, item Hash, commitment Hash, attached uint64) error
	RevealBid(caller, custodian, itemSetKey, item Hash, value uint64, nonce auction.Nonce) error
	EndRound(caller, custodian, itemSetKey Hash, items []Hash, startTime, bidPeriod, revealPeriod uint64) error
	WithdrawCollateral(caller, custodian, itemSetKey Hash, round uint64, item Hash) error
	WithdrawCollateralBeforeReveal(caller, custodian, itemSetKey Hash, round uint64, item Hash) error
	GetAuction(custodian, itemSetKey Hash) (*auction.Auction, error)
}

// Faucet mints native value for demo deployments. Optional.
type Faucet interface {
	Mint(account Hash, amount uint64) error
}

// Snapshots exports and restores the full state. Optional.
type Snapshots interface {
	Export() ([]byte, error)
	Import(data []byte) error
}

// Server is the HTTP API server.
type Server struct {
	addr    string         // addr is the HTTP listen address
	house   AuctionService // house executes auction operations
	faucet  Faucet         // faucet mints demo funds; nil disables /faucet
	snaps   Snapshots      // snaps serves /snapshot; nil disables it
	started time.Time
	server  *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, house AuctionService, faucet Faucet, snaps Snapshots) *Server {
	return &Server{
		addr:   addr,
		house:  house,
		faucet: faucet,
		snaps:  snaps,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auction", s.handleCreateAuction)
	mux.HandleFunc("GET /auction", s.handleGetAuction)
	mux.HandleFunc("POST /commit", s.handleCommitBid)
	mux.HandleFunc("POST /reveal", s.handleRevealBid)
	mux.HandleFunc("POST /endround", s.handleEndRound)
	mux.HandleFunc("POST /withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /withdraw-unrevealed", s.handleWithdrawBeforeReveal)
	mux.HandleFunc("POST /faucet", s.handleFaucet)
	mux.HandleFunc("GET /snapshot", s.handleSnapshotExport)
	mux.HandleFunc("POST /snapshot", s.handleSnapshotImport)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	s.started = time.Now()
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// createAuctionRequest is the POST /auction body.
type createAuctionRequest struct {
	Caller       string   `json:"caller"`
	Custodian    string   `json:"custodian"`
	Items        []string `json:"items"`
	StartTime    uint64   `json:"start_time"`
	BidPeriod    uint64   `json:"bid_period"`
	RevealPeriod uint64   `json:"reveal_period"`
	ReservePrice uint64   `json:"reserve_price"`
}

// handleCreateAuction handles POST /auction.
func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	caller, custodian, items, ok := parseParties(w, req.Caller, req.Custodian, req.Items)
	if !ok {
		return
	}

	round, err := s.house.CreateAuction(caller, custodian, items, req.StartTime, req.BidPeriod, req.RevealPeriod, req.ReservePrice)
	if err != nil {
		writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"round": round})
}

// handleGetAuction handles GET /auction?custodian=<hex>&key=<hex>.
func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	custodian, err := parseHash(r.URL.Query().Get("custodian"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("custodian: %v", err))
		return
	}

	key, err := parseHash(r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("key: %v", err))
		return
	}

	a, err := s.house.GetAuction(custodian, key)
	if err != nil {
		writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuctionDTO(a))
}

// commitBidRequest is the POST /commit body.
type commitBidRequest struct {
	Caller     string `json:"caller"`
	Custodian  string `json:"custodian"`
	ItemSetKey string `json:"item_set_key"`
	Item       string `json:"item"`
	Commitment string `json:"commitment"`
	Attached   uint64 `json:"attached"`
}

// handleCommitBid handles POST /commit.
func (s *Server) handleCommitBid(w http.ResponseWriter, r *http.Request) {
	var req commitBidRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields, ok := parseHashFields(w, map[string]string{
		"caller":       req.Caller,
		"custodian":    req.Custodian,
		"item_set_key": req.ItemSetKey,
		"item":         req.Item,
		"commitment":   req.Commitment,
	})
	if !ok {
		return
	}

	err := s.house.CommitBid(fields["caller"], fields["custodian"], fields["item_set_key"], fields["item"], fields["commitment"], req.Attached)
	if err != nil {
		writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

// revealBidRequest is the POST /reveal body.
type revealBidRequest struct {
	Caller     string `json:"caller"`
	Custodian  string `json:"custodian"`
	ItemSetKey string `json:"item_set_key"`
	Item       string `json:"item"`
	Value      uint64 `json:"value"`
	Nonce      string `json:"nonce"`
}

// handleRevealBid handles POST /reveal.
func (s *Server) handleRevealBid(w http.ResponseWriter, r *http.Request) {
	var req revealBidRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields, ok := parseHashFields(w, map[string]string{
		"caller":       req.Caller,
		"custodian":    req.Custodian,
		"item_set_key": req.ItemSetKey,
		"item":         req.Item,
	})
	if !ok {
		return
	}

	nonce, err := parseNonce(req.Nonce)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("nonce: %v", err))
		return
	}

	err = s.house.RevealBid(fields["caller"], fields["custodian"], fields["item_set_key"], fields["item"], req.Value, nonce)
	if err != nil {
		writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revealed"})
}

// endRoundRequest is the POST /endround body.
type endRoundRequest struct {
	Caller       string   `json:"caller"`
	Custodian    string   `json:"custodian"`
	ItemSetKey   string   `json:"item_set_key"`
	Items        []string `json:"items"`
	StartTime    uint64   `json:"start_time"`
	BidPeriod    uint64   `json:"bid_period"`
	RevealPeriod uint64   `json:"reveal_period"`
}

// handleEndRound handles POST /endround.
func (s *Server) handleEndRound(w http.ResponseWriter, r *http.Request) {
	var req endRoundRequest
	if !decodeBody(w, r, &req) {
		return
	}

	caller, custodian, items, ok := parseParties(w, req.Caller, req.Custodian, req.Items)
	if !ok {
		return
	}

	key, err := parseHash(req.ItemSetKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("item_set_key: %v", err))
		return
	}

	err = s.house.EndRound(caller, custodian, key, items, req.StartTime, req.BidPeriod, req.RevealPeriod)
	if err != nil {
		writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "round ended"})
}

// withdrawRequest is the body of both withdrawal endpoints.
type withdrawRequest struct {
	Caller     string `json:"caller"`
	Custodian  string `json:"custodian"`
	ItemSetKey string `json:"item_set_key"`
	Round      uint64 `json:"round"`
	Item       string `json:"item"`
}

// handleWithdraw handles POST /withdraw.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.withdraw(w, r, s.house.WithdrawCollateral)
}

// handleWithdrawBeforeReveal handles POST /withdraw-unrevealed.
func (s *Server) handleWithdrawBeforeReveal(w http.ResponseWriter, r *http.Request) {
	s.withdraw(w, r, s.house.WithdrawCollateralBeforeReveal)
}

// withdraw parses a withdrawal request and dispatches to the given variant.
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request, op func(caller, custodian, itemSetKey Hash, round uint64, item Hash) error) {
	var req withdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields, ok := parseHashFields(w, map[string]string{
		"caller":       req.Caller,
		"custodian":    req.Custodian,
		"item_set_key": req.ItemSetKey,
		"item":         req.Item,
	})
	if !ok {
		return
	}

	err := op(fields["caller"], fields["custodian"], fields["item_set_key"], req.Round, fields["item"])
	if err != nil {
		writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// faucetRequest is the POST /faucet body.
type faucetRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// handleFaucet handles POST /faucet for demo deployments.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	if s.faucet == nil {
		writeError(w, http.StatusNotFound, "faucet disabled")
		return
	}

	var req faucetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := parseHash(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("account: %v", err))
		return
	}

	if err := s.faucet.Mint(account, req.Amount); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "minted"})
}

// handleSnapshotExport handles GET /snapshot.
func (s *Server) handleSnapshotExport(w http.ResponseWriter, _ *http.Request) {
	if s.snaps == nil {
		writeError(w, http.StatusNotFound, "snapshots disabled")
		return
	}

	blob, err := s.snaps.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// handleSnapshotImport handles POST /snapshot with a raw snapshot body.
func (s *Server) handleSnapshotImport(w http.ResponseWriter, r *http.Request) {
	if s.snaps == nil {
		writeError(w, http.StatusNotFound, "snapshots disabled")
		return
	}

	blob, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.snaps.Import(blob); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("import snapshot: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"faucet":         s.faucet != nil,
		"snapshots":      s.snaps != nil,
	})
}

// decodeBody reads and decodes a JSON request body.
// Writes an error response and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return false
	}

	return true
}

// writeOpError maps an auction-house error to an HTTP status and writes it.
func writeOpError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps the auction error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrInvalidAuctionIndex):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrReentrancy):
		return http.StatusServiceUnavailable
	case errors.Is(err, auction.ErrNotInBidPeriod),
		errors.Is(err, auction.ErrNotInRevealPeriod),
		errors.Is(err, auction.ErrBidPeriodOngoing),
		errors.Is(err, auction.ErrRevealPeriodOngoing),
		errors.Is(err, auction.ErrCannotWithdraw),
		errors.Is(err, auction.ErrWithdrawAfterReveal),
		errors.Is(err, auction.ErrUnrevealedBid),
		errors.Is(err, auction.ErrAlreadyLeading):
		return http.StatusConflict
	case errors.Is(err, auction.ErrInvalidStartTime),
		errors.Is(err, auction.ErrBidPeriodTooShort),
		errors.Is(err, auction.ErrRevealPeriodTooShort),
		errors.Is(err, auction.ErrNoItems),
		errors.Is(err, auction.ErrZeroCommitment),
		errors.Is(err, auction.ErrInvalidOpening):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
