package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/routine-ops/internal/application/service"
	"github.com/garyjia/routine-ops/internal/domain/schedule"
	"github.com/garyjia/routine-ops/internal/infrastructure/worker"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthReport represents the health check response
type HealthReport struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Workers   []worker.Status   `json:"workers,omitempty"`
}

// Healthy reports whether every dependency is up
func (r HealthReport) Healthy() bool {
	return r.Status == "healthy"
}

// SkipReasonResponse is one assignment left out of a run
type SkipReasonResponse struct {
	AssignmentID int64               `json:"assignmentId"`
	Reason       schedule.SkipReason `json:"reason"`
}

// GenerateResponse is the body of POST /runs/generate
type GenerateResponse struct {
	Success        bool                 `json:"success"`
	GeneratedCount int                  `json:"generatedCount"`
	Message        string               `json:"message"`
	SkipReasons    []SkipReasonResponse `json:"skipReasons"`
	RunID          string               `json:"runId"`
}

// CloseResponse is the body of POST /runs/close
type CloseResponse struct {
	Success      bool   `json:"success"`
	UpdatedCount int    `json:"updatedCount"`
	Message      string `json:"message"`
}

// ComplianceResponse is the body of GET /compliance
type ComplianceResponse struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	Total           int     `json:"total"`
	CompletedOnTime int     `json:"completedOnTime"`
	CompletedLate   int     `json:"completedLate"`
	Missed          int     `json:"missed"`
	Open            int     `json:"open"`
	OnTimeRate      float64 `json:"onTimeRate"`
}

// statusFor maps service sentinels onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrCollaboratorRead):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its mapped status. Internal errors are logged
// and their detail withheld from the client.
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = op + " failed"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, Response{Success: false, Error: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}
