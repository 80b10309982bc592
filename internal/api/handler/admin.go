package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haln/taskboard/internal/service"
)

// AdminHandler handles maintenance endpoints.
type AdminHandler struct {
	cleanupService *service.CleanupService
	retentionDays  int
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - cleanupService: cleanup service instance.
//   - retentionDays: default retention window when the request omits one.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(cleanupService *service.CleanupService, retentionDays int) *AdminHandler {
	return &AdminHandler{
		cleanupService: cleanupService,
		retentionDays:  retentionDays,
	}
}

// CleanupRequest is the body of POST /api/v1/admin/cleanup.
type CleanupRequest struct {
	RetentionDays int  `json:"retention_days"`
	DryRun        bool `json:"dry_run"`
}

// Cleanup handles POST /api/v1/admin/cleanup.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) Cleanup(c *gin.Context) {
	req := CleanupRequest{RetentionDays: h.retentionDays}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
	}
	if req.RetentionDays == 0 {
		req.RetentionDays = h.retentionDays
	}

	report, err := h.cleanupService.Run(c.Request.Context(), service.CleanupOptions{
		RetentionDays: req.RetentionDays,
		DryRun:        req.DryRun,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Cleanup failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
