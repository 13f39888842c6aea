// Package api provides the HTTP handlers around the trading facade.
// Validation and business rejections map to client errors carrying the
// engine's reason string; resolution failures map to a retryable 502.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/venue"
)

// Handlers serves the venue REST surface.
type Handlers struct {
	facade *venue.Facade
}

// NewHandlers creates the handler set over a facade.
func NewHandlers(f *venue.Facade) *Handlers {
	return &Handlers{facade: f}
}

// Register mounts all routes on the given router.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/markets", h.ListMarkets)
	r.Get("/markets/{symbol}/history", h.PriceHistory)

	r.Post("/contracts/orders", h.PlaceContractOrder)
	r.Get("/contracts/positions/{userID}", h.ContractPositions)

	r.Get("/binary/strategies", h.BinaryStrategies)
	r.Post("/binary/orders", h.PlaceBinaryOrder)
	r.Get("/binary/statistics/{userID}", h.BinaryStatistics)

	r.Get("/funds/{code}", h.FundInfo)
	r.Get("/funds/{code}/nav", h.NavHistory)
	r.Post("/funds/{code}/subscribe", h.SubscribeFund)
	r.Post("/funds/{code}/redeem", h.RedeemFund)

	r.Post("/tick", h.Tick)
}

// --- Request types ---

// ContractOrderRequest is the JSON body for POST /contracts/orders.
type ContractOrderRequest struct {
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Direction string          `json:"direction"`
	Quantity  decimal.Decimal `json:"quantity"`
	Leverage  int             `json:"leverage"`
}

// BinaryOrderRequest is the JSON body for POST /binary/orders.
type BinaryOrderRequest struct {
	UserID     string          `json:"user_id"`
	StrategyID string          `json:"strategy_id"`
	Direction  string          `json:"direction"`
	Stake      decimal.Decimal `json:"stake"`
}

// FundAmountRequest is the JSON body for fund subscription/redemption.
type FundAmountRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"` // subscription amount
	Shares decimal.Decimal `json:"shares"` // redemption shares
}

// --- Handlers ---

// PlaceContractOrder handles POST /api/v1/contracts/orders.
func (h *Handlers) PlaceContractOrder(w http.ResponseWriter, r *http.Request) {
	var req ContractOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	order, err := h.facade.PlaceContractOrder(r.Context(), req.UserID, req.Symbol, req.Direction, req.Quantity, req.Leverage)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":        order.ID,
		"margin_used":     order.Margin,
		"execution_price": order.Price,
	})
}

// ContractPositions handles GET /api/v1/contracts/positions/{userID}.
func (h *Handlers) ContractPositions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, h.facade.ContractPositions(userID))
}

// BinaryStrategies handles GET /api/v1/binary/strategies.
func (h *Handlers) BinaryStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.facade.Binary.Strategies())
}

// PlaceBinaryOrder handles POST /api/v1/binary/orders.
func (h *Handlers) PlaceBinaryOrder(w http.ResponseWriter, r *http.Request) {
	var req BinaryOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	order, err := h.facade.PlaceBinaryOrder(r.Context(), req.UserID, req.StrategyID, req.Direction, req.Stake)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":         order.ID,
		"potential_payout": order.Payout,
		"entry_price":      order.EntryPrice,
		"expires_at":       order.ExpiresAt,
	})
}

// BinaryStatistics handles GET /api/v1/binary/statistics/{userID}.
func (h *Handlers) BinaryStatistics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, h.facade.BinaryStatistics(userID))
}

// SubscribeFund handles POST /api/v1/funds/{code}/subscribe.
func (h *Handlers) SubscribeFund(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req FundAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	tx, err := h.facade.SubscribeFund(r.Context(), req.UserID, code, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction_id": tx.ID,
		"shares":         tx.Shares,
		"nav":            tx.Nav,
		"fee":            tx.Fee,
	})
}

// RedeemFund handles POST /api/v1/funds/{code}/redeem.
func (h *Handlers) RedeemFund(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req FundAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	res, err := h.facade.RedeemFund(r.Context(), req.UserID, code, req.Shares)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction_id": res.Transaction.ID,
		"gross_amount":   res.GrossAmount,
		"net_amount":     res.NetAmount,
		"fee":            res.Fee,
	})
}

// ListMarkets handles GET /api/v1/markets.
func (h *Handlers) ListMarkets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.facade.MarketData())
}

// FundInfo handles GET /api/v1/funds/{code}.
func (h *Handlers) FundInfo(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	info, err := h.facade.FundInfo(code)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// PriceHistory handles GET /api/v1/markets/{symbol}/history.
func (h *Handlers) PriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.facade.PriceHistory(symbol, from, to)
	if err != nil {
		writeError(w, "unknown instrument: "+symbol, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// NavHistory handles GET /api/v1/funds/{code}/nav.
func (h *Handlers) NavHistory(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.facade.NavHistory(code, from, to)
	if err != nil {
		writeError(w, "unknown fund: "+code, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// Tick handles POST /api/v1/tick — the external scheduler's entry point.
func (h *Handlers) Tick(w http.ResponseWriter, r *http.Request) {
	h.facade.Tick(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

// parseRange reads optional RFC 3339 "from"/"to" query parameters.
func parseRange(r *http.Request) (from, to time.Time, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, errors.New("invalid from timestamp")
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, errors.New("invalid to timestamp")
		}
	}
	return from, to, nil
}

// writeEngineError maps the engine error taxonomy to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidation(err):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errs.IsBusiness(err):
		writeError(w, err.Error(), http.StatusConflict)
	case errs.IsResolution(err):
		writeError(w, err.Error(), http.StatusBadGateway)
	default:
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
