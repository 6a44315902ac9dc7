package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/feed-service/internal/pipeline"
	"github.com/kosarica/feed-service/internal/types"
)

// GenerateRequest is the optional body of POST /generate
type GenerateRequest struct {
	SupplierID string `json:"supplierId,omitempty" jsonschema:"description=Refresh only this supplier"`
	Force      bool   `json:"force,omitempty" jsonschema:"description=Rewrite feeds even when unchanged"`
}

// GenerateResponse is returned when a refresh has been started
type GenerateResponse struct {
	RunID     string `json:"runId" jsonschema:"required"`
	Status    string `json:"status" jsonschema:"required"`
	StatusURL string `json:"statusUrl"`
}

// Generate starts a refresh in the background and returns immediately
// @Summary Start feed generation
// @Tags refresh
// @Accept json
// @Produce json
// @Param X-Internal-API-Key header string true "Internal API key"
// @Param request body GenerateRequest false "Optional filters"
// @Success 202 {object} GenerateResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 429 {object} map[string]string "Too many runs in progress"
// @Router /generate [post]
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	runID, err := h.refresher.Trigger(pipeline.RunOptions{
		Trigger:    types.TriggerManual,
		SupplierID: req.SupplierID,
		Force:      req.Force,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrTooManyTriggers) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error().Err(err).Msg("Failed to trigger refresh")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start generation"})
		return
	}

	h.logger.Info().Str("run_id", runID).Str("supplier_id", req.SupplierID).Msg("Generation started")
	c.JSON(http.StatusAccepted, GenerateResponse{
		RunID:     runID,
		Status:    "XML generation started",
		StatusURL: "/status",
	})
}
