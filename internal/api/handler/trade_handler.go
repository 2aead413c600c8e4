package handler

import (
	"net/http"

	"github.com/betfeed/betfeed/internal/api/middleware"
	"github.com/betfeed/betfeed/internal/domain"
	"github.com/betfeed/betfeed/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TradeHandler serves buy/sell execution and the caller's position listing.
type TradeHandler struct {
	trades *service.TradeService
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades *service.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

// ──────────────────────────────────────────────────────────────────────────────
// Requests
// ──────────────────────────────────────────────────────────────────────────────

type buyRequest struct {
	Side        string `json:"side"         binding:"required,oneof=Yes No"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
}

type sellRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────────────────────────────────

// Buy handles POST /api/v1/markets/:id/buy.
func (h *TradeHandler) Buy(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid market id")
		return
	}

	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	receipt, err := h.trades.Buy(c.Request.Context(), domain.TradeRequest{
		UserID:      userID,
		MarketID:    marketID,
		Side:        domain.Side(req.Side),
		AmountCents: req.AmountCents,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, receipt)
}

// Sell handles POST /api/v1/markets/:id/sell.  The side is inferred from the
// caller's open position, so the request carries only the amount.
func (h *TradeHandler) Sell(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid market id")
		return
	}

	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	receipt, err := h.trades.Sell(c.Request.Context(), domain.TradeRequest{
		UserID:      userID,
		MarketID:    marketID,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, receipt)
}

// MyPositions handles GET /api/v1/positions — the caller's open positions
// with live valuation.
func (h *TradeHandler) MyPositions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	positions, err := h.trades.GetMyPositions(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, positions)
}
