package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/application/commands"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// CreateTaskRequest is the body of POST /api/v1/tasks.
type CreateTaskRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
	Recurring      bool   `json:"recurring"`
	RecurrenceRule string `json:"recurrence_rule"`
}

// TaskHandler serves the task routes.
type TaskHandler struct {
	service TaskService
	now     func() time.Time
}

// NewTaskHandler creates a handler over service.
func NewTaskHandler(service TaskService) *TaskHandler {
	return &TaskHandler{service: service, now: time.Now}
}

func (h *TaskHandler) Today(c *gin.Context) {
	tasks, err := h.service.Today(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Upcoming(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days must be a non-negative integer"})
			return
		}
		days = n
	}

	groups, err := h.service.Upcoming(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *TaskHandler) ListByDate(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.now().Format(domain.DateLayout)
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		respondError(c, domain.ErrInvalidDate)
		return
	}

	tasks, err := h.service.Day(c.Request.Context(), date, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task payload"})
		return
	}

	date := req.Date
	if date == "" {
		date = h.now().Format(domain.DateLayout)
	}

	task, err := h.service.Add(c.Request.Context(), commands.AddTaskCommand{
		Title:          req.Title,
		Description:    req.Description,
		Date:           date,
		Time:           req.Time,
		Kind:           req.Type,
		Priority:       req.Priority,
		Recurring:      req.Recurring,
		RecurrenceRule: req.RecurrenceRule,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Toggle(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	task, err := h.service.Toggle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Refresh reloads the task collection from the store.
func (h *TaskHandler) Refresh(c *gin.Context) {
	status, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HealthHandler reports the health registry.
type HealthHandler struct {
	registry *observability.HealthRegistry
}

// NewHealthHandler creates a handler over registry.
func NewHealthHandler(registry *observability.HealthRegistry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

func (h *HealthHandler) Check(c *gin.Context) {
	health := h.registry.Check(c.Request.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task id"})
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, ErrorResponse{Error: msg})
}
