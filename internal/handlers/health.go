package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status" jsonschema:"required"`
	Database string `json:"database" jsonschema:"enum=connected,enum=disconnected,enum=not configured"`
}

// Root confirms the service is up
// @Summary Service banner
// @Tags service
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Google Sheet to XML API is running"})
}

// HealthCheck reports process and database health
// @Summary Health check
// @Tags service
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status: "ok",
	}

	if h.dbStatus != nil {
		if err := h.dbStatus(c.Request.Context()); err != nil {
			response.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = "connected"
	} else {
		response.Database = "not configured"
	}

	c.JSON(http.StatusOK, response)
}

// Status reports refresh progress
// @Summary Refresh status
// @Tags refresh
// @Produce json
// @Success 200 {object} pipeline.StatusSnapshot
// @Router /status [get]
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.refresher.Status())
}
