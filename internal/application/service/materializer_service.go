package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/routine-ops/internal/application/dispatcher"
	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/domain/event"
	"github.com/garyjia/routine-ops/internal/domain/schedule"
)

// Skip records why one assignment produced no task in a run
type Skip struct {
	AssignmentID int64               `json:"assignmentId"`
	Reason       schedule.SkipReason `json:"reason"`
}

// RunResult summarizes one materializer run
type RunResult struct {
	RunID      string    `json:"runId"`
	TargetDate time.Time `json:"targetDate"`
	Candidates int       `json:"candidates"`
	Created    int       `json:"created"`
	Skipped    []Skip    `json:"skipped"`
}

// Message renders the run outcome for operators
func (r *RunResult) Message() string {
	return fmt.Sprintf("%d tasks generated for %s, %d skipped",
		r.Created, entity.FormatDate(r.TargetDate), len(r.Skipped))
}

// MaterializerService turns due assignments into task instances
type MaterializerService interface {
	// Run generates the tasks due on the civil date target. It is safe to
	// call repeatedly and concurrently for the same date.
	Run(ctx context.Context, target time.Time) (*RunResult, error)
}

// Collaborators groups the read-only sources a run snapshots
type Collaborators struct {
	Routines     port.RoutineCatalog
	Assignments  port.AssignmentRegistry
	Responsibles port.ResponsibleDirectory
	Absences     port.AbsenceLedger
	Exceptions   port.ExceptionLedger
}

type materializerServiceImpl struct {
	sources     Collaborators
	taskRepo    port.TaskRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	location    *time.Location
	clock       port.Clock
	logger      Logger
}

// NewMaterializerService creates a new MaterializerService. Deadlines are
// computed in location.
func NewMaterializerService(
	sources Collaborators,
	taskRepo port.TaskRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	location *time.Location,
	clock port.Clock,
	logger Logger,
) MaterializerService {
	if location == nil {
		location = time.UTC
	}
	if clock == nil {
		clock = port.SystemClock{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &materializerServiceImpl{
		sources:     sources,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		dispatcher:  d,
		location:    location,
		clock:       clock,
		logger:      logger,
	}
}

// snapshot is the point-in-time view of every leaf source for one run
type snapshot struct {
	assignments []*entity.Assignment
	routines    map[int64]*entity.Routine
	resolver    *schedule.Resolver
	exceptions  map[int64]bool
}

func (s *materializerServiceImpl) Run(ctx context.Context, target time.Time) (*RunResult, error) {
	target = entity.NewDate(target.Year(), target.Month(), target.Day())
	result := &RunResult{
		RunID:      uuid.NewString(),
		TargetDate: target,
		Skipped:    []Skip{},
	}

	snap, err := s.readSnapshot(ctx, target)
	if err != nil {
		s.logger.Error("Materializer run aborted", "run_id", result.RunID, "target_date", entity.FormatDate(target), "error", err)
		return nil, err
	}

	now := s.clock.Now()
	var candidates []*entity.TaskInstance

	for _, a := range snap.assignments {
		routine, ok := snap.routines[a.RoutineID]
		if !ok || !a.IsActive() {
			continue
		}
		result.Candidates++

		if snap.exceptions[a.ID] {
			result.Skipped = append(result.Skipped, Skip{AssignmentID: a.ID, Reason: schedule.SkipException})
			continue
		}

		due, anchor := schedule.IsDue(routine, target)
		if !due {
			continue
		}

		actorID, reason := snap.resolver.Resolve(a.LocationID, target)
		if reason != schedule.SkipNone {
			result.Skipped = append(result.Skipped, Skip{AssignmentID: a.ID, Reason: reason})
			continue
		}

		candidates = append(candidates, &entity.TaskInstance{
			AssignmentID:       a.ID,
			LocationID:         a.LocationID,
			ResponsibleActorID: actorID,
			ScheduledDate:      anchor,
			DueAt:              schedule.ComputeDueAt(routine, anchor, s.location),
			Routine:            entity.SnapshotOf(routine),
			Status:             entity.TaskStatusPending,
			AuditStatus:        entity.AuditStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	if len(candidates) > 0 {
		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			created, err := s.taskRepo.InsertIgnore(txCtx, candidates)
			if err != nil {
				return fmt.Errorf("failed to insert tasks: %w", err)
			}
			result.Created = created

			for _, task := range candidates {
				if task.ID == 0 {
					continue // already existed
				}
				history := &entity.TaskHistory{
					TaskID:    task.ID,
					NewStatus: entity.TaskStatusPending,
					Action:    entity.ActionGenerate,
					Note:      result.RunID,
					Timestamp: now,
				}
				if err := s.historyRepo.Create(txCtx, history); err != nil {
					return fmt.Errorf("failed to create history record: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("Materializer write failed", "run_id", result.RunID, "error", err)
			return nil, err
		}
	}

	for _, skip := range result.Skipped {
		s.logger.Info("Assignment omitted from run",
			"run_id", result.RunID,
			"target_date", entity.FormatDate(target),
			"assignment_id", skip.AssignmentID,
			"reason", string(skip.Reason),
		)
	}

	s.logger.Info("Materializer run completed",
		"run_id", result.RunID,
		"target_date", entity.FormatDate(target),
		"candidates", result.Candidates,
		"created", result.Created,
		"skipped", len(result.Skipped),
	)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeTasksGenerated, 0, map[string]interface{}{
			"target_date": entity.FormatDate(target),
			"created":     result.Created,
			"skipped":     len(result.Skipped),
		}, result.RunID))
	}

	return result, nil
}

// readSnapshot reads every leaf source. Any failure aborts the run before
// anything is written.
func (s *materializerServiceImpl) readSnapshot(ctx context.Context, target time.Time) (*snapshot, error) {
	assignments, err := s.sources.Assignments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: assignments: %w", ErrCollaboratorRead, err)
	}
	routines, err := s.sources.Routines.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: routines: %w", ErrCollaboratorRead, err)
	}
	bindings, err := s.sources.Responsibles.ListValidOn(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: responsibles: %w", ErrCollaboratorRead, err)
	}
	absences, err := s.sources.Absences.ListCovering(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: absences: %w", ErrCollaboratorRead, err)
	}
	exceptions, err := s.sources.Exceptions.ListOn(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: exceptions: %w", ErrCollaboratorRead, err)
	}

	snap := &snapshot{
		assignments: assignments,
		routines:    make(map[int64]*entity.Routine, len(routines)),
		resolver:    schedule.NewResolver(bindings, absences),
		exceptions:  make(map[int64]bool, len(exceptions)),
	}
	sort.Slice(snap.assignments, func(i, j int) bool { return snap.assignments[i].ID < snap.assignments[j].ID })
	for _, r := range routines {
		if r.Active {
			snap.routines[r.ID] = r
		}
	}
	for _, e := range exceptions {
		if e.Date.Equal(target) {
			snap.exceptions[e.AssignmentID] = true
		}
	}
	return snap, nil
}
