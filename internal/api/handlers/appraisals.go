package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/evemgr/pricing-core/internal/services"
)

type AppraisalHandler struct {
	appraisals *services.AppraisalService
}

func NewAppraisalHandler(appraisals *services.AppraisalService) *AppraisalHandler {
	return &AppraisalHandler{appraisals: appraisals}
}

type createAppraisalRequest struct {
	RawInput   string  `json:"raw_input" binding:"required"`
	Market     string  `json:"market"`
	Percentage float64 `json:"percentage"`
	IsPrivate  bool    `json:"is_private"`
}

// CreateAppraisal parses, prices, and persists a submitted item list
func (h *AppraisalHandler) CreateAppraisal(c *gin.Context) {
	var req createAppraisalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw_input is required"})
		return
	}

	if req.Percentage != 0 && (req.Percentage < 1 || req.Percentage > 200) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percentage must be between 1 and 200"})
		return
	}

	opts := services.AppraisalOptions{
		Market:          req.Market,
		PricePercentage: req.Percentage,
		UserID:          requesterID(c),
		IsPrivate:       req.IsPrivate,
	}

	appraisal, err := h.appraisals.CreateAppraisal(c.Request.Context(), req.RawInput, opts)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyInput), errors.Is(err, services.ErrNoResolvableItems):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUnknownMarket):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create appraisal"})
		}
		return
	}

	response := gin.H{"appraisal": appraisal}
	if appraisal.IsPrivate {
		// Returned exactly once, at creation; it is never serialized again.
		response["private_token"] = appraisal.PrivateToken
	}
	c.JSON(http.StatusCreated, response)
}

// GetAppraisal fetches an appraisal by public id. Private appraisals need a
// matching token query parameter.
func (h *AppraisalHandler) GetAppraisal(c *gin.Context) {
	appraisal, err := h.appraisals.GetAppraisal(c.Param("id"), c.Query("token"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "appraisal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch appraisal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"appraisal": appraisal})
}

// ListAppraisals returns the requester's recent appraisals
func (h *AppraisalHandler) ListAppraisals(c *gin.Context) {
	userID := requesterID(c)
	if userID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	appraisals, err := h.appraisals.ListRecent(*userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list appraisals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"appraisals": appraisals})
}

// DeleteAppraisal removes an appraisal; only the owner or a privileged
// requester may do so.
func (h *AppraisalHandler) DeleteAppraisal(c *gin.Context) {
	privileged := c.GetHeader("X-Privileged") == "true"

	err := h.appraisals.DeleteAppraisal(c.Param("id"), requesterID(c), privileged)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "appraisal not found"})
		case errors.Is(err, services.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete appraisal"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// requesterID extracts the caller identity set by the fronting auth layer.
// Authentication itself is out of scope here.
func requesterID(c *gin.Context) *int64 {
	header := c.GetHeader("X-User-ID")
	if header == "" {
		return nil
	}
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
