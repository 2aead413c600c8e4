// Package api wires the HTTP surface: routes, middleware, and the WebSocket
// upgrade endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/betfeed/betfeed/internal/api/handler"
	"github.com/betfeed/betfeed/internal/api/middleware"
	"github.com/betfeed/betfeed/internal/config"
	"github.com/betfeed/betfeed/internal/service"
	"github.com/betfeed/betfeed/internal/ws"
	"github.com/gin-gonic/gin"
)

// Deps bundles everything the router needs.
type Deps struct {
	Cfg     *config.Config
	Markets *service.MarketService
	Trades  *service.TradeService
	Hub     *ws.Hub
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(corsMiddleware())

	// Trade endpoints get a tighter bucket than reads.
	readLimiter := middleware.NewRateLimiter(20, 40)
	tradeLimiter := middleware.NewRateLimiter(5, 10)

	marketHandler := handler.NewMarketHandler(d.Markets, d.Cfg)
	tradeHandler := handler.NewTradeHandler(d.Trades)

	// ── Health ────────────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	// ── WebSocket ─────────────────────────────────────────────────────────────
	r.GET("/ws", func(c *gin.Context) {
		d.Hub.ServeWs(c.Writer, c.Request)
	})

	// ── REST API ──────────────────────────────────────────────────────────────
	v1 := r.Group("/api/v1")
	v1.Use(readLimiter.Middleware())

	// Public reads: anyone can browse markets and charts.
	v1.GET("/markets", marketHandler.List)
	v1.GET("/markets/:id", marketHandler.GetByID)
	v1.GET("/markets/:id/history", marketHandler.History)

	// Authenticated routes.
	authed := v1.Group("")
	authed.Use(middleware.Auth(d.Cfg.JWT.AccessSecret))
	{
		authed.GET("/markets/feed", marketHandler.Feed)
		authed.POST("/markets", marketHandler.Create)
		authed.GET("/positions", tradeHandler.MyPositions)

		trades := authed.Group("")
		trades.Use(tradeLimiter.Middleware())
		{
			trades.POST("/markets/:id/buy", tradeHandler.Buy)
			trades.POST("/markets/:id/sell", tradeHandler.Sell)
		}
	}

	return r
}

// corsMiddleware allows cross-origin requests from the mobile/web clients.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
