package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"QuoteSentinel/internal/collector"
	"QuoteSentinel/internal/model"
	"QuoteSentinel/internal/store"
	"QuoteSentinel/internal/strategy"
)

// QuoteController serves held quotes, recommendations and watchlist commands.
type QuoteController struct {
	ctx   context.Context
	coord *collector.Coordinator
}

// NewQuoteController creates a new quote controller
func NewQuoteController(ctx context.Context, coord *collector.Coordinator) *QuoteController {
	return &QuoteController{ctx: ctx, coord: coord}
}

// Health reports liveness
// GET /health
func (qc *QuoteController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus returns batch progress and the watchlist
// GET /api/v1/status
func (qc *QuoteController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"busy":    qc.coord.Busy(),
		"status":  qc.coord.Status(),
		"symbols": qc.coord.Entries(),
	})
}

// GetSymbols returns the watchlist
// GET /api/v1/symbols
func (qc *QuoteController) GetSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": qc.coord.Symbols()})
}

type symbolRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// AddSymbol appends a symbol to the watchlist
// POST /api/v1/symbols
func (qc *QuoteController) AddSymbol(c *gin.Context) {
	var req symbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	sym := store.NormalizeSymbol(req.Symbol)
	if sym == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if !qc.coord.AddSymbol(c.Request.Context(), sym) {
		c.JSON(http.StatusConflict, gin.H{"error": "symbol already on the watchlist", "data": qc.coord.Symbols()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": qc.coord.Symbols()})
}

// RemoveSymbol drops a symbol from the watchlist
// DELETE /api/v1/symbols/:symbol
func (qc *QuoteController) RemoveSymbol(c *gin.Context) {
	if !qc.coord.RemoveSymbol(c.Request.Context(), c.Param("symbol")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not on the watchlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": qc.coord.Symbols()})
}

// GetQuotes returns the held enriched bars of a symbol
// GET /api/v1/quotes/:symbol?limit=N
func (qc *QuoteController) GetQuotes(c *gin.Context) {
	sym := store.NormalizeSymbol(c.Param("symbol"))
	bars := qc.coord.EnrichedBars(sym)
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for " + sym})
		return
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(bars) {
		bars = bars[len(bars)-limit:]
	}

	updated, _ := qc.coord.LastRefreshed(sym)
	source, _ := qc.coord.Source(sym)
	c.JSON(http.StatusOK, gin.H{
		"symbol":        sym,
		"lastRefreshed": updated,
		"source":        source,
		"data":          bars,
	})
}

// GetRecommendation evaluates the held bars of a symbol
// GET /api/v1/recommendation/:symbol
func (qc *QuoteController) GetRecommendation(c *gin.Context) {
	sym := store.NormalizeSymbol(c.Param("symbol"))
	rec := strategy.Recommend(qc.coord.EnrichedBars(sym))
	resp := gin.H{"symbol": sym, "data": rec}
	if updated, ok := qc.coord.LastRefreshed(sym); ok {
		resp["lastRefreshed"] = updated
	}
	c.JSON(http.StatusOK, resp)
}

type prefetchRequest struct {
	Symbols []string `json:"symbols"`
}

// TriggerPrefetch starts a background batch over the given symbols or the watchlist
// POST /api/v1/prefetch
func (qc *QuoteController) TriggerPrefetch(c *gin.Context) {
	var req prefetchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	symbols := store.NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		symbols = qc.coord.Symbols()
	}
	err := qc.coord.StartPrefetch(qc.ctx, symbols, func(_ *model.BatchSummary, err error) {
		if err != nil {
			log.Printf("[WARN] prefetch via api: %v", err)
		}
	})
	if errors.Is(err, collector.ErrBatchInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "symbols": symbols})
}
