package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/feed-service/internal/runlog"
)

// ListLogsResponse lists per-run log files, newest first
type ListLogsResponse struct {
	Logs []runlog.File `json:"logs" jsonschema:"required"`
}

// ListLogs returns the per-run log files
// @Summary List run logs
// @Tags logs
// @Produce json
// @Success 200 {object} ListLogsResponse
// @Failure 404 {object} map[string]string "Run logs disabled"
// @Router /logs [get]
func (h *Handler) ListLogs(c *gin.Context) {
	if h.runlogs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run logs are disabled"})
		return
	}

	files, err := h.runlogs.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list run logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logs"})
		return
	}
	c.JSON(http.StatusOK, ListLogsResponse{Logs: files})
}

// GetLog streams one run log as plain text
// @Summary Read run log
// @Tags logs
// @Produce plain
// @Param filename path string true "Log file name"
// @Success 200 {string} string "log lines"
// @Failure 400 {object} map[string]string "Invalid name"
// @Failure 404 {object} map[string]string "Log not found"
// @Router /logs/{filename} [get]
func (h *Handler) GetLog(c *gin.Context) {
	if h.runlogs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run logs are disabled"})
		return
	}

	f, err := h.runlogs.Open(c.Param("filename"))
	if err != nil {
		switch {
		case errors.Is(err, runlog.ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log file name"})
		case errors.Is(err, os.ErrNotExist):
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
		default:
			h.logger.Error().Err(err).Msg("Failed to open run log")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open log"})
		}
		return
	}
	defer f.Close()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to stream run log")
	}
}
