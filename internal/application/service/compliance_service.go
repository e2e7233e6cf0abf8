package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// ComplianceService reports task outcomes over a date range
type ComplianceService interface {
	Summary(ctx context.Context, from, to time.Time) (*entity.ComplianceSummary, error)
}

type complianceServiceImpl struct {
	taskRepo port.TaskRepository
}

// NewComplianceService creates a new ComplianceService
func NewComplianceService(taskRepo port.TaskRepository) ComplianceService {
	return &complianceServiceImpl{taskRepo: taskRepo}
}

func (s *complianceServiceImpl) Summary(ctx context.Context, from, to time.Time) (*entity.ComplianceSummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range ends before it starts", ErrInvalidInput)
	}
	summary, err := s.taskRepo.Summarize(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarize tasks: %w", err)
	}
	summary.From = from
	summary.To = to
	return summary, nil
}
