package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evemgr/pricing-core/internal/config"
	"github.com/evemgr/pricing-core/internal/services"
)

type PriceHandler struct {
	pricing *services.PricingService
	fetcher *services.MarketDataService
	cfg     *config.Config
}

func NewPriceHandler(pricing *services.PricingService, fetcher *services.MarketDataService, cfg *config.Config) *PriceHandler {
	return &PriceHandler{pricing: pricing, fetcher: fetcher, cfg: cfg}
}

// GetPrices returns current snapshot prices for a comma-separated id list.
// A single id yields one record, multiple ids a map; missing snapshots are
// null entries, not errors.
func (h *PriceHandler) GetPrices(c *gin.Context) {
	typeIDs, err := parseTypeIDs(c.Query("type_ids"))
	if err != nil || len(typeIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type_ids must be a comma-separated list of ids"})
		return
	}

	market := c.DefaultQuery("market", h.cfg.Pricing.DefaultMarket)
	side := c.DefaultQuery("side", "both")

	if len(typeIDs) == 1 {
		price, err := h.pricing.GetPrice(typeIDs[0], market, side)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read prices"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"price": price})
		return
	}

	prices, err := h.pricing.GetPrices(typeIDs, market, side)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read prices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

// GetTrend classifies the recent mean-sell movement for one type
func (h *PriceHandler) GetTrend(c *gin.Context) {
	typeID, err := strconv.ParseInt(c.Query("type_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type_id is required"})
		return
	}

	market := c.DefaultQuery("market", h.cfg.Pricing.DefaultMarket)
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 {
		days = 7
	}

	trend, err := h.pricing.GetTrend(int32(typeID), market, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read trend"})
		return
	}
	c.JSON(http.StatusOK, trend)
}

type refreshRequest struct {
	Market  string  `json:"market"` // market key or "all"
	TypeIDs []int32 `json:"type_ids,omitempty"`
}

// RefreshPrices triggers a refresh cycle for one market or all of them,
// optionally restricted to a type id filter. The cycle runs synchronously;
// the response reports per-market outcomes.
func (h *PriceHandler) RefreshPrices(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Market == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market is required (a market key or \"all\")"})
		return
	}

	markets := []string{req.Market}
	if req.Market == "all" {
		markets = markets[:0]
		for name := range h.cfg.Pricing.Markets {
			markets = append(markets, name)
		}
	}

	results := make(map[string]string, len(markets))
	for _, market := range markets {
		var err error
		if len(req.TypeIDs) > 0 {
			err = h.pricing.RefreshTypes(c.Request.Context(), req.TypeIDs, market)
		} else {
			err = h.pricing.UpdatePrices(c.Request.Context(), market)
		}

		switch {
		case errors.Is(err, services.ErrUnknownMarket):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown market: " + market})
			return
		case err != nil:
			log.Printf("Refresh trigger: market %s failed: %v", market, err)
			results[market] = "failed"
		default:
			results[market] = "ok"
		}
	}

	h.pricing.InvalidateCache()
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetStatus reports the most recent refresh outcome per market
func (h *PriceHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"refreshes": h.fetcher.GetStatus()})
}

// Cleanup deletes expired appraisals and history past the retention window
func (h *PriceHandler) Cleanup(appraisals *services.AppraisalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		deletedHistory, err := h.pricing.CleanupHistory(h.cfg.Pricing.HistoryRetentionDays)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history cleanup failed"})
			return
		}

		deletedAppraisals, err := appraisals.DeleteExpired()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "appraisal cleanup failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"deleted_history":    deletedHistory,
			"deleted_appraisals": deletedAppraisals,
		})
	}
}

func parseTypeIDs(raw string) ([]int32, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int32, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, int32(id))
	}
	return ids, nil
}
