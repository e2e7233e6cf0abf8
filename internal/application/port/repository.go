package port

import (
	"context"
	"time"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// The catalog, registry, directory and ledgers are owned by other systems.
// This service reads them as point-in-time snapshots.

// RoutineCatalog reads routine definitions
type RoutineCatalog interface {
	GetByID(ctx context.Context, id int64) (*entity.Routine, error)
	ListActive(ctx context.Context) ([]*entity.Routine, error)
}

// AssignmentRegistry reads assignments and lets a cancellation deactivate one
type AssignmentRegistry interface {
	GetByID(ctx context.Context, id int64) (*entity.Assignment, error)
	ListActive(ctx context.Context) ([]*entity.Assignment, error)
	Deactivate(ctx context.Context, id int64) error
}

// ResponsibleDirectory lists the responsible bindings valid on a date
type ResponsibleDirectory interface {
	ListValidOn(ctx context.Context, date time.Time) ([]entity.ResponsibleBinding, error)
}

// AbsenceLedger lists the absences covering a date
type AbsenceLedger interface {
	ListCovering(ctx context.Context, date time.Time) ([]entity.Absence, error)
}

// ExceptionLedger lists the assignment exceptions recorded for a date
type ExceptionLedger interface {
	ListOn(ctx context.Context, date time.Time) ([]entity.AssignmentException, error)
}

// TaskFilter narrows a task listing. Zero values mean "any".
type TaskFilter struct {
	ScheduledDate *time.Time
	LocationID    int64
	Status        string
	Limit         int
	Offset        int
}

// StatusChange is a compare-and-set update of a task's primary status
type StatusChange struct {
	From         string
	To           string
	CompletedAt  *time.Time
	CompletedBy  *int64
	CancelReason string
	At           time.Time
}

// AuditChange is a compare-and-set update of a task's audit fields
type AuditChange struct {
	Decision  string
	Notes     string
	AuditedBy int64
	At        time.Time
}

// TaskRepository defines persistence operations for TaskInstance
type TaskRepository interface {
	// InsertIgnore inserts tasks, silently skipping any whose
	// (assignment_id, scheduled_date) already exists, and returns the number
	// of rows actually created.
	InsertIgnore(ctx context.Context, tasks []*entity.TaskInstance) (int, error)

	GetByID(ctx context.Context, id int64) (*entity.TaskInstance, error)
	List(ctx context.Context, filter TaskFilter) ([]*entity.TaskInstance, error)

	// ListOverdue returns open tasks whose deadline is before now
	ListOverdue(ctx context.Context, now time.Time) ([]*entity.TaskInstance, error)

	// ListOpenAfter returns open tasks of an assignment scheduled after date
	ListOpenAfter(ctx context.Context, assignmentID int64, date time.Time) ([]*entity.TaskInstance, error)

	// ChangeStatus applies change only if the stored status still equals
	// change.From. It reports whether the row was updated.
	ChangeStatus(ctx context.Context, id int64, change StatusChange) (bool, error)

	// RecordAudit applies change only while the audit is still pending and
	// the task is completed. It reports whether the row was updated.
	RecordAudit(ctx context.Context, id int64, change AuditChange) (bool, error)

	// Summarize counts outcomes of tasks scheduled in [from, to], ignoring
	// cancelled ones
	Summarize(ctx context.Context, from, to time.Time) (*entity.ComplianceSummary, error)
}

// HistoryRepository defines persistence operations for TaskHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.TaskHistory) error
	ListByTaskID(ctx context.Context, taskID int64) ([]*entity.TaskHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock supplies the current instant
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
