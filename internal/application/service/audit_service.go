package service

import (
	"context"
	"fmt"

	"github.com/garyjia/routine-ops/internal/application/dispatcher"
	"github.com/garyjia/routine-ops/internal/application/port"
	appwf "github.com/garyjia/routine-ops/internal/application/workflow"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/domain/event"
	domainwf "github.com/garyjia/routine-ops/internal/domain/workflow"
	"github.com/garyjia/routine-ops/pkg/utils"
)

// AuditRequest is a reviewer's decision on a completed task
type AuditRequest struct {
	TaskID     int64
	ReviewerID int64
	Decision   string // approved or rejected
	Note       string
}

// AuditService records audit decisions on completed tasks. It never touches
// a task's primary status.
type AuditService interface {
	Review(ctx context.Context, req AuditRequest) (*entity.TaskInstance, error)
}

type auditServiceImpl struct {
	taskRepo    port.TaskRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	clock       port.Clock
	logger      Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(
	taskRepo port.TaskRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	clock port.Clock,
	logger Logger,
) AuditService {
	if clock == nil {
		clock = port.SystemClock{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &auditServiceImpl{
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		dispatcher:  d,
		clock:       clock,
		logger:      logger,
	}
}

func (s *auditServiceImpl) Review(ctx context.Context, req AuditRequest) (*entity.TaskInstance, error) {
	var trigger domainwf.AuditTrigger
	switch req.Decision {
	case entity.AuditDecisionApproved:
		trigger = domainwf.TriggerApprove
	case entity.AuditDecisionRejected:
		trigger = domainwf.TriggerReject
	default:
		return nil, fmt.Errorf("%w: unknown audit decision %q", ErrInvalidInput, req.Decision)
	}

	note := utils.SanitizeString(req.Note)
	if trigger == domainwf.TriggerReject && note == "" {
		return nil, fmt.Errorf("%w: a rejection needs a note", ErrValidation)
	}
	if err := utils.ValidateText("note", note); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	task, err := s.taskRepo.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, req.TaskID)
	}
	if !task.IsCompleted() {
		return nil, fmt.Errorf("%w: task %d is %s, only completed tasks can be audited",
			ErrInvalidTransition, task.ID, task.Status)
	}

	previous := domainwf.AuditState(task.AuditStatus)
	if !previous.IsValid() {
		return nil, fmt.Errorf("invalid audit state in task %d: %s", task.ID, task.AuditStatus)
	}
	machine := appwf.BuildAuditStateMachine(previous, note)
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, translateTransitionErr(err)
	}

	now := s.clock.Now()
	action := entity.ActionApprove
	if trigger == domainwf.TriggerReject {
		action = entity.ActionReject
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		applied, err := s.taskRepo.RecordAudit(txCtx, task.ID, port.AuditChange{
			Decision:  machine.State().String(),
			Notes:     note,
			AuditedBy: req.ReviewerID,
			At:        now,
		})
		if err != nil {
			return fmt.Errorf("failed to record audit: %w", err)
		}
		if !applied {
			return fmt.Errorf("%w: audit of task %d was already decided", ErrConflict, task.ID)
		}

		return s.historyRepo.Create(txCtx, &entity.TaskHistory{
			TaskID:         task.ID,
			ActorID:        &req.ReviewerID,
			PreviousStatus: previous.String(),
			NewStatus:      machine.State().String(),
			Action:         action,
			Note:           note,
			Timestamp:      now,
		})
	})
	if err != nil {
		s.logger.Error("Audit failed", "task_id", task.ID, "decision", req.Decision, "error", err)
		return nil, err
	}

	audited := *task
	audited.AuditStatus = machine.State().String()
	audited.AuditNotes = note
	audited.AuditedBy = &req.ReviewerID
	audited.AuditedAt = &now
	audited.UpdatedAt = now

	s.logger.Info("Task audited", "task_id", task.ID, "decision", audited.AuditStatus, "reviewer_id", req.ReviewerID)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeTaskAudited, task.ID, map[string]interface{}{
			"decision":    audited.AuditStatus,
			"reviewer_id": req.ReviewerID,
		}))
	}
	return &audited, nil
}
