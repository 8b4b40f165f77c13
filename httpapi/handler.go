// Package httpapi serves the coordinator's read/control surface as JSON over HTTP.
package httpapi

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spooky-finn/liquidity-bridge/domain"
	promclient "github.com/spooky-finn/liquidity-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/liquidity-bridge/usecase"
)

var logger = log.New(os.Stdout, "[httpapi] ", log.LstdFlags)

const maxDepth = 50

type Handler struct {
	coordinator usecase.MarketMonitor
	metrics     *promclient.Metrics
}

func NewHandler(coordinator usecase.MarketMonitor, metrics *promclient.Metrics) *Handler {
	return &Handler{
		coordinator: coordinator,
		metrics:     metrics,
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), PrometheusMiddleware(h.metrics))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	v1 := r.Group("/v1")
	{
		v1.GET("/status", h.GetStatus)
		v1.GET("/books", h.GetBooks)
		v1.GET("/history/spread", h.GetSpreadHistory)
		v1.GET("/history/slippage", h.GetSlippageHistory)
		v1.GET("/quote", h.GetQuote)
		v1.PUT("/market", h.SelectMarket)
		v1.PUT("/tracked-amount", h.SetTrackedAmount)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "liquidity-bridge",
	})
}

// GetStatus handles GET /v1/status.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.Status())
}

// GetBooks handles GET /v1/books?depth=N.
func (h *Handler) GetBooks(c *gin.Context) {
	depth, ok := queryLimit(c, "depth", maxDepth)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.coordinator.Books(depth))
}

// GetSpreadHistory handles GET /v1/history/spread?limit=N.
func (h *Handler) GetSpreadHistory(c *gin.Context) {
	limit, ok := queryLimit(c, "limit", 0)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": h.coordinator.SpreadHistory(limit)})
}

// GetSlippageHistory handles GET /v1/history/slippage?limit=N.
func (h *Handler) GetSlippageHistory(c *gin.Context) {
	limit, ok := queryLimit(c, "limit", 0)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": h.coordinator.SlippageHistory(limit)})
}

// GetQuote handles GET /v1/quote?amount=X[&side=buy|sell].
func (h *Handler) GetQuote(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
		return
	}

	var side domain.Side
	if raw := c.Query("side"); raw != "" {
		if side, err = domain.ParseSide(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	quote, err := h.coordinator.Quote(amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if side != "" {
		quote = quote.OnlySide(side)
	}
	c.JSON(http.StatusOK, quote)
}

type SelectMarketRequest struct {
	Market string `json:"market" binding:"required"`
}

// SelectMarket handles PUT /v1/market.
func (h *Handler) SelectMarket(c *gin.Context) {
	var req SelectMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.coordinator.SelectMarket(req.Market); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.coordinator.Status())
}

type SetTrackedAmountRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// SetTrackedAmount handles PUT /v1/tracked-amount.
func (h *Handler) SetTrackedAmount(c *gin.Context) {
	var req SetTrackedAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.coordinator.SetTrackedAmount(req.Amount); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trackedAmount": req.Amount})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownMarket):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Printf("%s %s failed: %s", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// queryLimit reads an optional non-negative integer parameter, capped at ceiling.
// Missing or 0 means ceiling. A ceiling of 0 means no cap, so 0 is passed on as "everything".
func queryLimit(c *gin.Context, name string, ceiling int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return ceiling, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a non-negative integer"})
		return 0, false
	}
	if v == 0 || (ceiling > 0 && v > ceiling) {
		return ceiling, true
	}
	return v, true
}
