package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evemgr/pricing-core/internal/services"
)

type SubscriptionHandler struct {
	pricing *services.PricingService
}

func NewSubscriptionHandler(pricing *services.PricingService) *SubscriptionHandler {
	return &SubscriptionHandler{pricing: pricing}
}

type subscribeRequest struct {
	PluginName string  `json:"plugin_name" binding:"required"`
	TypeIDs    []int32 `json:"type_ids" binding:"required"`
	Market     string  `json:"market" binding:"required"`
	Priority   int     `json:"priority"`
}

// Subscribe registers type subscriptions for a plugin. Re-registering an
// existing (plugin, type, market) only updates the priority.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plugin_name, type_ids and market are required"})
		return
	}

	if req.Priority != 0 && (req.Priority < 1 || req.Priority > 10) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be between 1 and 10"})
		return
	}
	if req.Priority == 0 {
		req.Priority = 1
	}

	count, err := h.pricing.RegisterTypes(req.PluginName, req.TypeIDs, req.Market, req.Priority)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscribed": count})
}

type unsubscribeRequest struct {
	PluginName string  `json:"plugin_name" binding:"required"`
	TypeIDs    []int32 `json:"type_ids" binding:"required"`
	Market     string  `json:"market" binding:"required"`
}

// Unsubscribe removes a plugin's subscriptions for the given types
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plugin_name, type_ids and market are required"})
		return
	}

	count, err := h.pricing.UnregisterTypes(req.PluginName, req.TypeIDs, req.Market)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": count})
}
