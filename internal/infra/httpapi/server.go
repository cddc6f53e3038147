package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"footy_go/internal/domain"
	"footy_go/internal/infra/storage"
	"footy_go/internal/ledger"
	"footy_go/internal/registry"

	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// History exposes the persisted trade and price records.
type History interface {
	TradesByAccount(accountID string, limit int) ([]domain.Trade, error)
	RecentPrices(instrumentID string, limit int) ([]storage.PriceTick, error)
}

// Server is the thin account-facing wrapper around the trading core.
type Server struct {
	registry *registry.Registry
	ledger   *ledger.Ledger
	history  History
}

// New creates the HTTP API over the core components. history may be nil;
// the history routes then report not found.
func New(reg *registry.Registry, led *ledger.Ledger, history History) *Server {
	return &Server{registry: reg, ledger: led, history: history}
}

// Register mounts all routes on the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /players", s.handlePlayers)
	mux.HandleFunc("POST /wallet", s.handleCreateWallet)
	mux.HandleFunc("GET /wallet/{account}", s.handleGetWallet)
	mux.HandleFunc("POST /wallet/deposit", s.handleDeposit)
	mux.HandleFunc("POST /wallet/deposit/confirm", s.handleConfirmDeposit)
	mux.HandleFunc("POST /wallet/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /trade", s.handleTrade)
	mux.HandleFunc("GET /trades/{account}", s.handleTradeHistory)
	mux.HandleFunc("GET /prices/{instrument}", s.handlePriceHistory)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

type walletRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.CreateWallet(req.AccountID))
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.ledger.GetWallet(r.PathValue("account"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	reference, err := s.ledger.RequestDeposit(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reference": reference})
}

func (s *Server) handleConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" || req.Reference == "" {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	wallet, err := s.ledger.ConfirmDeposit(r.Context(), req.AccountID, req.Reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	reference, err := s.ledger.Withdraw(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reference": reference})
}

type tradeRequest struct {
	AccountID    string `json:"account_id"`
	InstrumentID string `json:"instrument_id"`
	Side         string `json:"side"`
	Shares       int64  `json:"shares"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	var trade domain.Trade
	var err error
	switch req.Side {
	case "buy":
		trade, err = s.ledger.Buy(r.Context(), req.AccountID, req.InstrumentID, req.Shares)
	case "sell":
		trade, err = s.ledger.Sell(r.Context(), req.AccountID, req.InstrumentID, req.Shares)
	default:
		err = domain.ErrInvalidRequest
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleTradeHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, domain.ErrNotFound)
		return
	}
	trades, err := s.history.TradesByAccount(r.PathValue("account"), historyLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, domain.ErrNotFound)
		return
	}
	if _, err := s.registry.Get(r.PathValue("instrument")); err != nil {
		writeError(w, err)
		return
	}
	ticks, err := s.history.RecentPrices(r.PathValue("instrument"), historyLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticks)
}

func historyLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	return min(limit, maxHistoryLimit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Tier  string `json:"tier,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	var compErr *domain.ComplianceError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrFundingReplayed):
		status = http.StatusConflict
	case errors.As(err, &compErr):
		status = http.StatusForbidden
		resp.Tier = compErr.Tier
	case errors.Is(err, domain.ErrFundingUnconfirmed):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, resp)
}
