package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/routine-ops/internal/application/dispatcher"
	"github.com/garyjia/routine-ops/internal/application/port"
	appwf "github.com/garyjia/routine-ops/internal/application/workflow"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/domain/event"
	domainwf "github.com/garyjia/routine-ops/internal/domain/workflow"
	"github.com/garyjia/routine-ops/pkg/utils"
)

// CancelRequest asks to cancel one task, optionally with its assignment
type CancelRequest struct {
	TaskID  int64
	ActorID int64
	Reason  string
	Scope   string // instance or assignment-and-future; empty means instance
}

// CancelResult reports what a cancellation touched
type CancelResult struct {
	Task                  *entity.TaskInstance `json:"task"`
	AssignmentDeactivated bool                 `json:"assignmentDeactivated"`
	FutureCancelled       int                  `json:"futureCancelled"`
}

// CloseResult reports a closer pass
type CloseResult struct {
	UpdatedCount int    `json:"updatedCount"`
	Message      string `json:"message"`
}

// LifecycleService drives task instances through their lifecycle
type LifecycleService interface {
	GetTask(ctx context.Context, id int64) (*entity.TaskInstance, error)
	ListTasks(ctx context.Context, filter port.TaskFilter) ([]*entity.TaskInstance, error)
	GetHistory(ctx context.Context, id int64) ([]*entity.TaskHistory, error)

	Start(ctx context.Context, id, actorID int64) (*entity.TaskInstance, error)
	Complete(ctx context.Context, id, actorID int64) (*entity.TaskInstance, error)
	Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error)

	// CloseOverdue moves every open task past its deadline to missed
	CloseOverdue(ctx context.Context) (*CloseResult, error)
}

type lifecycleServiceImpl struct {
	taskRepo    port.TaskRepository
	historyRepo port.HistoryRepository
	assignments port.AssignmentRegistry
	txManager   port.TransactionManager
	engine      appwf.Engine
	dispatcher  dispatcher.Dispatcher
	clock       port.Clock
	logger      Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	taskRepo port.TaskRepository,
	historyRepo port.HistoryRepository,
	assignments port.AssignmentRegistry,
	txManager port.TransactionManager,
	engine appwf.Engine,
	d dispatcher.Dispatcher,
	clock port.Clock,
	logger Logger,
) LifecycleService {
	if clock == nil {
		clock = port.SystemClock{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &lifecycleServiceImpl{
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		assignments: assignments,
		txManager:   txManager,
		engine:      engine,
		dispatcher:  d,
		clock:       clock,
		logger:      logger,
	}
}

func (s *lifecycleServiceImpl) GetTask(ctx context.Context, id int64) (*entity.TaskInstance, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	return task, nil
}

func (s *lifecycleServiceImpl) ListTasks(ctx context.Context, filter port.TaskFilter) ([]*entity.TaskInstance, error) {
	if filter.Status != "" && !domainwf.TaskState(filter.Status).IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *lifecycleServiceImpl) GetHistory(ctx context.Context, id int64) ([]*entity.TaskHistory, error) {
	if _, err := s.GetTask(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.historyRepo.ListByTaskID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return records, nil
}

func (s *lifecycleServiceImpl) Start(ctx context.Context, id, actorID int64) (*entity.TaskInstance, error) {
	return s.fire(ctx, id, appwf.Transition{Trigger: domainwf.TriggerStart, ActorID: &actorID}, event.TypeTaskStarted)
}

func (s *lifecycleServiceImpl) Complete(ctx context.Context, id, actorID int64) (*entity.TaskInstance, error) {
	return s.fire(ctx, id, appwf.Transition{Trigger: domainwf.TriggerComplete, ActorID: &actorID}, event.TypeTaskCompleted)
}

func (s *lifecycleServiceImpl) fire(ctx context.Context, id int64, t appwf.Transition, eventType event.Type) (*entity.TaskInstance, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.engine.Fire(ctx, task, t)
	if err != nil {
		s.logger.Error("Task transition failed", "task_id", id, "trigger", t.Trigger, "status", task.Status, "error", err)
		return nil, translateTransitionErr(err)
	}

	s.logger.Info("Task transitioned", "task_id", id, "trigger", t.Trigger, "from", task.Status, "to", updated.Status)
	s.publish(ctx, eventType, updated)
	return updated, nil
}

func (s *lifecycleServiceImpl) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	scope := req.Scope
	if scope == "" {
		scope = entity.CancelScopeInstance
	}
	if scope != entity.CancelScopeInstance && scope != entity.CancelScopeAssignmentAndFuture {
		return nil, fmt.Errorf("%w: unknown cancellation scope %q", ErrInvalidInput, req.Scope)
	}
	reason := utils.SanitizeString(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation reason is required", ErrValidation)
	}
	if err := utils.ValidateText("reason", reason); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	task, err := s.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	transition := appwf.Transition{Trigger: domainwf.TriggerCancel, ActorID: &req.ActorID, Reason: reason}
	result := &CancelResult{}
	var cancelled []*entity.TaskInstance

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		updated, err := s.engine.Fire(txCtx, task, transition)
		if err != nil {
			return err
		}
		result.Task = updated
		cancelled = append(cancelled, updated)

		if scope != entity.CancelScopeAssignmentAndFuture {
			return nil
		}

		if err := s.assignments.Deactivate(txCtx, task.AssignmentID); err != nil {
			return fmt.Errorf("failed to deactivate assignment: %w", err)
		}
		result.AssignmentDeactivated = true

		future, err := s.taskRepo.ListOpenAfter(txCtx, task.AssignmentID, task.ScheduledDate)
		if err != nil {
			return fmt.Errorf("failed to list future tasks: %w", err)
		}
		for _, f := range future {
			u, err := s.engine.Fire(txCtx, f, transition)
			if errors.Is(err, appwf.ErrStaleStatus) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to cancel task %d: %w", f.ID, err)
			}
			result.FutureCancelled++
			cancelled = append(cancelled, u)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Cancellation failed", "task_id", req.TaskID, "scope", scope, "error", err)
		return nil, translateTransitionErr(err)
	}

	s.logger.Info("Task cancelled",
		"task_id", req.TaskID,
		"scope", scope,
		"assignment_deactivated", result.AssignmentDeactivated,
		"future_cancelled", result.FutureCancelled,
	)
	for _, c := range cancelled {
		s.publish(ctx, event.TypeTaskCancelled, c)
	}
	return result, nil
}

func (s *lifecycleServiceImpl) CloseOverdue(ctx context.Context) (*CloseResult, error) {
	now := s.clock.Now()
	overdue, err := s.taskRepo.ListOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}

	updated := 0
	for _, task := range overdue {
		missed, err := s.engine.Fire(ctx, task, appwf.Transition{Trigger: domainwf.TriggerMiss})
		if err != nil {
			// A completion that committed first wins the race.
			if errors.Is(err, appwf.ErrStaleStatus) || errors.Is(err, domainwf.ErrGuardFailed) {
				continue
			}
			s.logger.Error("Failed to mark task missed", "task_id", task.ID, "error", err)
			return nil, translateTransitionErr(err)
		}
		updated++
		s.publish(ctx, event.TypeTaskMissed, missed)
	}

	s.logger.Info("Closer pass completed", "overdue", len(overdue), "updated", updated)
	return &CloseResult{
		UpdatedCount: updated,
		Message:      fmt.Sprintf("%d tasks marked as missed", updated),
	}, nil
}

func (s *lifecycleServiceImpl) publish(ctx context.Context, t event.Type, task *entity.TaskInstance) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(t, task.ID, map[string]interface{}{
		"status":         task.Status,
		"assignment_id":  task.AssignmentID,
		"location_id":    task.LocationID,
		"scheduled_date": entity.FormatDate(task.ScheduledDate),
	}))
}
