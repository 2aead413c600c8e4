package handler

import (
	"net/http"

	"github.com/betfeed/betfeed/internal/api/middleware"
	"github.com/betfeed/betfeed/internal/config"
	"github.com/betfeed/betfeed/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MarketHandler serves market creation and the read side: feed, detail,
// listing, price history.
type MarketHandler struct {
	markets *service.MarketService
	cfg     *config.Config
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets *service.MarketService, cfg *config.Config) *MarketHandler {
	return &MarketHandler{markets: markets, cfg: cfg}
}

// ──────────────────────────────────────────────────────────────────────────────
// Requests
// ──────────────────────────────────────────────────────────────────────────────

type createMarketRequest struct {
	Description string `json:"description" binding:"required,min=3,max=280"`
	Icon        string `json:"icon"        binding:"required,max=16"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────────────────────────────────

// Create handles POST /api/v1/markets.
func (h *MarketHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	m, err := h.markets.CreateMarket(c.Request.Context(), userID, req.Description, req.Icon)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondCreated(c, m)
}

// Feed handles GET /api/v1/markets/feed — markets the caller holds no
// position in, newest first.
func (h *MarketHandler) Feed(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	limit, offset := parsePagination(c, h.cfg.Market.FeedPageLimit)
	markets, err := h.markets.GetFeed(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, markets, Meta{Limit: limit, Offset: offset})
}

// List handles GET /api/v1/markets — all markets, paginated.
func (h *MarketHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c, h.cfg.Market.FeedPageLimit)
	markets, total, err := h.markets.ListMarkets(c.Request.Context(), limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, markets, Meta{Limit: limit, Offset: offset, Total: total})
}

// GetByID handles GET /api/v1/markets/:id.
func (h *MarketHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid market id")
		return
	}

	m, err := h.markets.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, m)
}

// History handles GET /api/v1/markets/:id/history — the market's append-only
// price snapshot log, oldest first, for charting.
func (h *MarketHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid market id")
		return
	}

	snaps, err := h.markets.GetPriceHistory(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, snaps)
}
