package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/haln/taskboard/internal/api/middleware"
	"github.com/haln/taskboard/internal/domain"
	"github.com/haln/taskboard/internal/service"
)

// ExportHandler handles export job endpoints.
type ExportHandler struct {
	exportService *service.ExportService
}

// NewExportHandler creates a new export handler.
// Parameters:
//   - exportService: export service instance.
// Returns:
//   - *ExportHandler: initialized handler.
func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// CreateExportRequest is the body of POST /api/v1/exports.
type CreateExportRequest struct {
	Format  string            `json:"format" binding:"required"`
	Filters map[string]string `json:"filters"`
}

// CreateExport handles POST /api/v1/exports.
//
// Responds 202 for a newly created pending job and 200 when an equivalent
// completed export was served from cache.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	job, err := h.exportService.CreateExport(c.Request.Context(), req.Format, req.Filters)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFormat) || errors.Is(err, service.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create export: " + err.Error(),
		})
		return
	}

	status := http.StatusAccepted
	if job.Status == domain.ExportStatusCompleted {
		status = http.StatusOK
	}
	c.JSON(status, job)
}

// ListExports handles GET /api/v1/exports.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ExportHandler) ListExports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	jobs, total, err := h.exportService.ListJobs(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list exports: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exports": jobs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetExport handles GET /api/v1/exports/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ExportHandler) GetExport(c *gin.Context) {
	job, err := h.exportService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Export job not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get export: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// DownloadExport handles GET /api/v1/exports/:id/download.
//
// Maps job state to status codes: unknown job 404, job not yet completed
// 409, completed job whose artifact has been removed 410.
// Parameters:
//   - c: Gin request context.
// Returns: none (streams the artifact or writes a JSON error).
func (h *ExportHandler) DownloadExport(c *gin.Context) {
	reader, job, err := h.exportService.OpenArtifact(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Export job not found",
			})
		case errors.Is(err, service.ErrExportNotReady):
			c.JSON(http.StatusConflict, gin.H{
				"error":  "Export is not completed",
				"status": err.Error(),
			})
		case errors.Is(err, service.ErrArtifactMissing):
			c.JSON(http.StatusGone, gin.H{
				"error": "Export artifact is no longer available",
			})
		default:
			middleware.GetLogger(c).WithError(err).Error("Failed to open export artifact")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to open export artifact",
			})
		}
		return
	}
	defer reader.Close()

	contentType := "text/csv"
	if job.Format == domain.ExportFormatJSON {
		contentType = "application/json"
	}

	c.DataFromReader(http.StatusOK, -1, contentType, reader, map[string]string{
		"Content-Disposition": `attachment; filename="` + job.ResultName + `"`,
	})
}
