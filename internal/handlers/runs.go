package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/feed-service/internal/types"
)

// ListRunsRequest represents query parameters for listing refresh runs
type ListRunsRequest struct {
	Limit int `form:"limit" json:"limit" binding:"omitempty,min=1,max=500" jsonschema:"minimum=1,maximum=500"`
}

// ListRunsResponse represents the response for listing refresh runs
type ListRunsResponse struct {
	Runs []types.RunSummary `json:"runs" jsonschema:"required"`
}

// ListRuns returns recent refresh runs
// @Summary List refresh runs
// @Tags refresh
// @Produce json
// @Param limit query int false "Number of runs to return" default(50) minimum(1) maximum(500)
// @Success 200 {object} ListRunsResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Run history disabled"
// @Router /runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run history is not configured"})
		return
	}

	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	runs, err := h.history.ListRecent(c.Request.Context(), req.Limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs})
}

// GetRunSuppliers returns the per-supplier results of a run
// @Summary Run supplier results
// @Tags refresh
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200 {object} map[string][]types.SupplierResult
// @Failure 404 {object} map[string]string "Run history disabled"
// @Router /runs/{runId}/suppliers [get]
func (h *Handler) GetRunSuppliers(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run history is not configured"})
		return
	}

	suppliers, err := h.history.GetSuppliers(c.Request.Context(), c.Param("runId"))
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", c.Param("runId")).Msg("Failed to load run suppliers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	if suppliers == nil {
		suppliers = []types.SupplierResult{}
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": suppliers})
}
