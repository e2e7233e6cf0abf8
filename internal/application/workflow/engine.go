package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	domainwf "github.com/garyjia/routine-ops/internal/domain/workflow"
)

// ErrStaleStatus is returned when the stored status moved on between the
// read and the compare-and-set write.
var ErrStaleStatus = errors.New("task status changed concurrently")

// Transition describes who fires a trigger and why
type Transition struct {
	Trigger domainwf.TaskTrigger
	ActorID *int64 // nil for system actions
	Reason  string // cancellation reason
	Note    string // free text kept in history
}

// Engine advances task instances through their lifecycle
type Engine interface {
	// Fire applies t to task and persists the new status together with a
	// history row. The returned copy carries the new state.
	Fire(ctx context.Context, task *entity.TaskInstance, t Transition) (*entity.TaskInstance, error)
}

type engineImpl struct {
	taskRepo    port.TaskRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	clock       port.Clock
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithClock overrides the wall clock
func WithClock(clock port.Clock) EngineOption {
	return func(e *engineImpl) {
		e.clock = clock
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	taskRepo port.TaskRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		clock:       port.SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) Fire(ctx context.Context, task *entity.TaskInstance, t Transition) (*entity.TaskInstance, error) {
	previous := domainwf.TaskState(task.Status)
	if !previous.IsValid() {
		return nil, fmt.Errorf("invalid state in task %d: %s", task.ID, task.Status)
	}

	now := e.clock.Now()
	machine := BuildTaskStateMachine(previous, task.DueAt, now)
	if err := machine.Fire(ctx, t.Trigger); err != nil {
		return nil, err
	}
	next := machine.State()

	change := port.StatusChange{
		From: previous.String(),
		To:   next.String(),
		At:   now,
	}
	switch t.Trigger {
	case domainwf.TriggerComplete:
		change.CompletedAt = &now
		change.CompletedBy = t.ActorID
	case domainwf.TriggerCancel:
		change.CancelReason = t.Reason
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		applied, err := e.taskRepo.ChangeStatus(txCtx, task.ID, change)
		if err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}
		if !applied {
			return fmt.Errorf("%w: task %d is no longer %s", ErrStaleStatus, task.ID, previous)
		}

		note := t.Note
		if note == "" {
			note = t.Reason
		}
		history := &entity.TaskHistory{
			TaskID:         task.ID,
			ActorID:        t.ActorID,
			PreviousStatus: previous.String(),
			NewStatus:      next.String(),
			Action:         t.Trigger.String(),
			Note:           note,
			Timestamp:      now,
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated := *task
	updated.Status = next.String()
	updated.UpdatedAt = now
	if change.CompletedAt != nil {
		updated.CompletedAt = change.CompletedAt
		updated.CompletedBy = change.CompletedBy
	}
	if change.CancelReason != "" {
		updated.CancelReason = change.CancelReason
	}
	return &updated, nil
}
