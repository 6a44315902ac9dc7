package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/feed-service/internal/feed"
	"github.com/kosarica/feed-service/internal/storage"
)

// ListFilesResponse lists stored feeds
type ListFilesResponse struct {
	Files []string `json:"files" jsonschema:"required"`
}

// ListFiles returns the names of stored feeds
// @Summary List feeds
// @Tags files
// @Produce json
// @Success 200 {object} ListFilesResponse
// @Router /files [get]
func (h *Handler) ListFiles(c *gin.Context) {
	files, err := feed.List(c.Request.Context(), h.store)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list feeds")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}
	c.JSON(http.StatusOK, ListFilesResponse{Files: files})
}

// GetFileInfo returns size, checksum and production metadata of a feed
// @Summary Feed details
// @Tags files
// @Produce json
// @Param filename path string true "Feed file name"
// @Success 200 {object} storage.FileInfo
// @Failure 404 {object} map[string]string "File not found"
// @Router /files/{filename} [get]
func (h *Handler) GetFileInfo(c *gin.Context) {
	name, ok := h.feedName(c)
	if !ok {
		return
	}
	info, err := h.store.GetInfo(c.Request.Context(), name)
	if err != nil {
		h.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// OutputIndex renders an HTML page linking every feed
// @Summary Feed index page
// @Tags files
// @Produce html
// @Success 200 {string} string "HTML"
// @Router /output/ [get]
func (h *Handler) OutputIndex(c *gin.Context) {
	files, err := feed.List(c.Request.Context(), h.store)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list feeds")
		files = nil
	}
	c.HTML(http.StatusOK, "output", gin.H{"Files": files})
}

// ViewFile serves a feed inline
// @Summary View feed
// @Tags files
// @Produce xml
// @Param filename path string true "Feed file name"
// @Success 200 {string} string "XML"
// @Failure 404 {object} map[string]string "File not found"
// @Router /output/{filename} [get]
func (h *Handler) ViewFile(c *gin.Context) {
	h.serveFile(c, false)
}

// DownloadFile serves a feed as an attachment
// @Summary Download feed
// @Tags files
// @Produce xml
// @Param filename path string true "Feed file name"
// @Success 200 {string} string "XML"
// @Failure 404 {object} map[string]string "File not found"
// @Router /download/{filename} [get]
func (h *Handler) DownloadFile(c *gin.Context) {
	h.serveFile(c, true)
}

func (h *Handler) serveFile(c *gin.Context, attachment bool) {
	name, ok := h.feedName(c)
	if !ok {
		return
	}

	content, err := h.store.Get(c.Request.Context(), name)
	if err != nil {
		h.storageError(c, err)
		return
	}

	if attachment {
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	c.Data(http.StatusOK, feed.ContentType+"; charset=utf-8", content)
}

// DeleteFile removes one feed
// @Summary Delete feed
// @Tags files
// @Produce json
// @Param X-Internal-API-Key header string true "Internal API key"
// @Param filename path string true "Feed file name"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "File not found"
// @Router /files/{filename} [delete]
func (h *Handler) DeleteFile(c *gin.Context) {
	name, ok := h.feedName(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), name); err != nil {
		h.storageError(c, err)
		return
	}
	h.refresher.Forget(strings.TrimSuffix(name, feed.Extension))

	h.logger.Info().Str("file", name).Msg("Feed deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": name})
}

// DeleteAllFiles removes every feed
// @Summary Delete all feeds
// @Tags files
// @Produce json
// @Param X-Internal-API-Key header string true "Internal API key"
// @Success 200 {object} map[string]int
// @Router /files [delete]
func (h *Handler) DeleteAllFiles(c *gin.Context) {
	deleted, err := feed.DeleteAll(c.Request.Context(), h.store)
	h.refresher.ForgetAll()
	if err != nil {
		h.logger.Error().Err(err).Int("deleted", deleted).Msg("Failed to delete some feeds")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete some files", "deleted": deleted})
		return
	}

	h.logger.Info().Int("deleted", deleted).Msg("All feeds deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// feedName validates the :filename parameter and writes a 400 if it is not
// a feed file name
func (h *Handler) feedName(c *gin.Context) (string, bool) {
	name := c.Param("filename")
	if !strings.HasSuffix(name, feed.Extension) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return "", false
	}
	return name, true
}

func (h *Handler) storageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	case errors.Is(err, storage.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
	default:
		h.logger.Error().Err(err).Msg("Storage operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
	}
}
