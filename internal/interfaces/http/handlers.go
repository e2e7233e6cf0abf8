package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/application/service"
	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthChecker
	location *time.Location
	clock    port.Clock
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthChecker, location *time.Location, clock port.Clock, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		location: location,
		clock:    clock,
		logger:   logger,
	}
}

// GenerateRequest is the optional body of POST /runs/generate
type GenerateRequest struct {
	Date string `json:"date"`
}

// CancelTaskRequest is the body of POST /tasks/:id/cancel
type CancelTaskRequest struct {
	Reason string `json:"reason"`
	Scope  string `json:"scope"`
}

// AuditTaskRequest is the body of POST /tasks/:id/audit
type AuditTaskRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

// ListTasksRequest represents query parameters for listing tasks
type ListTasksRequest struct {
	Date       string `form:"date"`
	LocationID int64  `form:"location_id"`
	Status     string `form:"status"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	report := HealthReport{Status: "healthy", Version: "1.0.0"}
	if h.health != nil {
		report = h.health.Health(c.Request.Context())
	}
	report.Timestamp = h.clock.Now().UTC().Format(time.RFC3339)

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, Response{
		Success: report.Healthy(),
		Data:    report,
	})
}

// GenerateTasks handles POST /api/v1/runs/generate
func (h *Handlers) GenerateTasks(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}

	target := entity.DateOf(h.clock.Now(), h.location)
	if req.Date != "" {
		d, err := entity.ParseDate(req.Date)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		target = d
	}

	result, err := h.services.Materializer.Run(c.Request.Context(), target)
	if err != nil {
		h.writeError(c, "generate", err)
		return
	}

	skips := make([]SkipReasonResponse, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		skips = append(skips, SkipReasonResponse{AssignmentID: s.AssignmentID, Reason: s.Reason})
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Success:        true,
		GeneratedCount: result.Created,
		Message:        result.Message(),
		SkipReasons:    skips,
		RunID:          result.RunID,
	})
}

// CloseOverdue handles POST /api/v1/runs/close
func (h *Handlers) CloseOverdue(c *gin.Context) {
	result, err := h.services.Lifecycle.CloseOverdue(c.Request.Context())
	if err != nil {
		h.writeError(c, "close", err)
		return
	}

	c.JSON(http.StatusOK, CloseResponse{
		Success:      true,
		UpdatedCount: result.UpdatedCount,
		Message:      result.Message,
	})
}

// ListTasks handles GET /api/v1/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	var req ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	filter := port.TaskFilter{
		LocationID: req.LocationID,
		Status:     req.Status,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if req.Date != "" {
		d, err := entity.ParseDate(req.Date)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		filter.ScheduledDate = &d
	}

	tasks, err := h.services.Lifecycle.ListTasks(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*entity.TaskInstance{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tasks})
}

// GetTask handles GET /api/v1/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.services.Lifecycle.GetTask(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get task", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// GetHistory handles GET /api/v1/tasks/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	history, err := h.services.Lifecycle.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get history", err)
		return
	}
	if history == nil {
		history = []*entity.TaskHistory{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// StartTask handles POST /api/v1/tasks/:id/start
func (h *Handlers) StartTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.services.Lifecycle.Start(c.Request.Context(), id, callerFrom(c).ActorID)
	if err != nil {
		h.writeError(c, "start task", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// CompleteTask handles POST /api/v1/tasks/:id/complete
func (h *Handlers) CompleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.services.Lifecycle.Complete(c.Request.Context(), id, callerFrom(c).ActorID)
	if err != nil {
		h.writeError(c, "complete task", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// CancelTask handles POST /api/v1/tasks/:id/cancel
func (h *Handlers) CancelTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req CancelTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.services.Lifecycle.Cancel(c.Request.Context(), service.CancelRequest{
		TaskID:  id,
		ActorID: callerFrom(c).ActorID,
		Reason:  req.Reason,
		Scope:   req.Scope,
	})
	if err != nil {
		h.writeError(c, "cancel task", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// AuditTask handles POST /api/v1/tasks/:id/audit
func (h *Handlers) AuditTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req AuditTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	task, err := h.services.Audit.Review(c.Request.Context(), service.AuditRequest{
		TaskID:     id,
		ReviewerID: callerFrom(c).ActorID,
		Decision:   req.Decision,
		Note:       req.Note,
	})
	if err != nil {
		h.writeError(c, "audit task", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// ComplianceSummary handles GET /api/v1/compliance
func (h *Handlers) ComplianceSummary(c *gin.Context) {
	from, err := entity.ParseDate(c.Query("from"))
	if err != nil {
		badRequest(c, "from: "+err.Error())
		return
	}
	to, err := entity.ParseDate(c.Query("to"))
	if err != nil {
		badRequest(c, "to: "+err.Error())
		return
	}

	summary, err := h.services.Compliance.Summary(c.Request.Context(), from, to)
	if err != nil {
		h.writeError(c, "compliance summary", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ComplianceResponse{
			From:            entity.FormatDate(summary.From),
			To:              entity.FormatDate(summary.To),
			Total:           summary.Total,
			CompletedOnTime: summary.CompletedOnTime,
			CompletedLate:   summary.CompletedLate,
			Missed:          summary.Missed,
			Open:            summary.Open,
			OnTimeRate:      summary.OnTimeRate(),
		},
	})
}

// taskID parses the :id path parameter, writing a 400 when it is malformed
func taskID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid task ID")
		return 0, false
	}
	return id, true
}
