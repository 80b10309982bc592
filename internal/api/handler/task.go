package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/haln/taskboard/internal/service"
)

// TaskHandler handles task listing and stats endpoints.
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler creates a new task handler.
// Parameters:
//   - taskService: task service instance.
// Returns:
//   - *TaskHandler: initialized handler.
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// taskFilterKeys are the query parameters forwarded to the filter builder.
// Unknown query parameters (page, limit, anything else) never reach it.
var taskFilterKeys = []string{
	"status", "priority", "search",
	"dateFrom", "dateTo",
	"completedDateFrom", "completedDateTo",
}

// collectFilters extracts recognized filter parameters from the query string.
func collectFilters(c *gin.Context) map[string]string {
	filters := make(map[string]string)
	for _, key := range taskFilterKeys {
		if v := c.Query(key); v != "" {
			filters[key] = v
		}
	}
	return filters
}

// ListTasks handles GET /api/v1/tasks.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TaskHandler) ListTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), collectFilters(c), page, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list tasks: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TaskHandler) GetStats(c *gin.Context) {
	stats, err := h.taskService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
