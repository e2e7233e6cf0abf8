package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/infrastructure/persistence/sqlite"
)

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task instance repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `
	id, assignment_id, location_id, responsible_actor_id, scheduled_date, due_at,
	routine_id, routine_name, frequency, priority, start_time, due_time,
	status, completed_at, completed_by, cancel_reason,
	audit_status, audit_notes, audited_by, audited_at, created_at, updated_at`

const openStatuses = `('pending', 'in_progress')`

// InsertIgnore inserts every task whose (assignment_id, scheduled_date) is
// still free. IDs are set only on the tasks that were actually created.
func (r *TaskRepository) InsertIgnore(ctx context.Context, tasks []*entity.TaskInstance) (int, error) {
	query := `
		INSERT OR IGNORE INTO task_instances (
			assignment_id, location_id, responsible_actor_id, scheduled_date, due_at,
			routine_id, routine_name, frequency, priority, start_time, due_time,
			status, audit_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	exec := sqlite.ExecutorFrom(ctx, r.db)

	created := 0
	for _, t := range tasks {
		status := t.Status
		if status == "" {
			status = entity.TaskStatusPending
		}
		auditStatus := t.AuditStatus
		if auditStatus == "" {
			auditStatus = entity.AuditStatusPending
		}

		result, err := exec.ExecContext(ctx, query,
			t.AssignmentID,
			t.LocationID,
			t.ResponsibleActorID,
			entity.FormatDate(t.ScheduledDate),
			formatInstant(t.DueAt),
			t.Routine.RoutineID,
			t.Routine.Name,
			string(t.Routine.Frequency),
			string(t.Routine.Priority),
			t.Routine.StartTime,
			t.Routine.DueTime,
			status,
			auditStatus,
			formatInstant(t.CreatedAt),
			formatInstant(t.UpdatedAt),
		)
		if err != nil {
			r.logger.Error("Failed to insert task",
				zap.Int64("assignment_id", t.AssignmentID),
				zap.String("scheduled_date", entity.FormatDate(t.ScheduledDate)),
				zap.Error(err))
			return created, fmt.Errorf("failed to insert task: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			continue
		}

		id, err := result.LastInsertId()
		if err != nil {
			return created, fmt.Errorf("failed to get last insert id: %w", err)
		}
		t.ID = id
		t.Status = status
		t.AuditStatus = auditStatus
		created++
	}

	return created, nil
}

// GetByID retrieves a task. Returns nil, nil when it does not exist.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entity.TaskInstance, error) {
	query := `SELECT ` + taskColumns + ` FROM task_instances WHERE id = ?`

	task, err := scanTask(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List returns tasks matching filter ordered by scheduled date then id
func (r *TaskRepository) List(ctx context.Context, filter port.TaskFilter) ([]*entity.TaskInstance, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ScheduledDate != nil {
		conditions = append(conditions, "scheduled_date = ?")
		args = append(args, entity.FormatDate(*filter.ScheduledDate))
	}
	if filter.LocationID != 0 {
		conditions = append(conditions, "location_id = ?")
		args = append(args, filter.LocationID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + taskColumns + ` FROM task_instances`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY scheduled_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.query(ctx, "list tasks", query, args...)
}

// ListOverdue returns open tasks whose deadline is strictly before now
func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*entity.TaskInstance, error) {
	query := `SELECT ` + taskColumns + ` FROM task_instances
		WHERE status IN ` + openStatuses + ` AND due_at < ?
		ORDER BY due_at, id`
	return r.query(ctx, "list overdue tasks", query, formatInstant(now))
}

// ListOpenAfter returns open tasks of an assignment scheduled after date
func (r *TaskRepository) ListOpenAfter(ctx context.Context, assignmentID int64, date time.Time) ([]*entity.TaskInstance, error) {
	query := `SELECT ` + taskColumns + ` FROM task_instances
		WHERE assignment_id = ? AND status IN ` + openStatuses + ` AND scheduled_date > ?
		ORDER BY scheduled_date, id`
	return r.query(ctx, "list open tasks", query, assignmentID, entity.FormatDate(date))
}

func (r *TaskRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*entity.TaskInstance, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var tasks []*entity.TaskInstance
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// ChangeStatus updates the status only while it still equals change.From
func (r *TaskRepository) ChangeStatus(ctx context.Context, id int64, change port.StatusChange) (bool, error) {
	query := `
		UPDATE task_instances
		SET status = ?,
			completed_at = COALESCE(?, completed_at),
			completed_by = COALESCE(?, completed_by),
			cancel_reason = CASE WHEN ? != '' THEN ? ELSE cancel_reason END,
			updated_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		change.To,
		nullInstant(change.CompletedAt),
		nullInt64(change.CompletedBy),
		change.CancelReason, change.CancelReason,
		formatInstant(change.At),
		id,
		change.From,
	)
	if err != nil {
		r.logger.Error("Failed to change task status",
			zap.Int64("id", id),
			zap.String("from", change.From),
			zap.String("to", change.To),
			zap.Error(err))
		return false, fmt.Errorf("failed to change task status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// RecordAudit stores an audit decision on a completed task with a pending audit
func (r *TaskRepository) RecordAudit(ctx context.Context, id int64, change port.AuditChange) (bool, error) {
	query := `
		UPDATE task_instances
		SET audit_status = ?, audit_notes = ?, audited_by = ?, audited_at = ?, updated_at = ?
		WHERE id = ? AND audit_status = 'pending' AND status IN ('completed_on_time', 'completed_late')
	`
	at := formatInstant(change.At)
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		change.Decision, change.Notes, change.AuditedBy, at, at, id,
	)
	if err != nil {
		r.logger.Error("Failed to record audit", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to record audit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// Summarize counts outcomes of tasks scheduled in [from, to]
func (r *TaskRepository) Summarize(ctx context.Context, from, to time.Time) (*entity.ComplianceSummary, error) {
	query := `
		SELECT status, COUNT(*)
		FROM task_instances
		WHERE scheduled_date >= ? AND scheduled_date <= ? AND status != 'cancelled'
		GROUP BY status
	`
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, entity.FormatDate(from), entity.FormatDate(to))
	if err != nil {
		r.logger.Error("Failed to summarize tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to summarize tasks: %w", err)
	}
	defer rows.Close()

	summary := &entity.ComplianceSummary{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary.Total += count
		switch status {
		case entity.TaskStatusCompletedOnTime:
			summary.CompletedOnTime = count
		case entity.TaskStatusCompletedLate:
			summary.CompletedLate = count
		case entity.TaskStatusMissed:
			summary.Missed = count
		default:
			summary.Open += count
		}
	}
	return summary, rows.Err()
}

func scanTask(row rowScanner) (*entity.TaskInstance, error) {
	var (
		t                      entity.TaskInstance
		scheduledDate, dueAt   string
		frequency, priority    string
		completedAt, auditedAt sql.NullString
		completedBy, auditedBy sql.NullInt64
		createdAt, updatedAt   string
	)
	err := row.Scan(
		&t.ID,
		&t.AssignmentID,
		&t.LocationID,
		&t.ResponsibleActorID,
		&scheduledDate,
		&dueAt,
		&t.Routine.RoutineID,
		&t.Routine.Name,
		&frequency,
		&priority,
		&t.Routine.StartTime,
		&t.Routine.DueTime,
		&t.Status,
		&completedAt,
		&completedBy,
		&t.CancelReason,
		&t.AuditStatus,
		&t.AuditNotes,
		&auditedBy,
		&auditedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Routine.Frequency = entity.FrequencyKind(frequency)
	t.Routine.Priority = entity.Priority(priority)
	t.CompletedBy = scanNullInt64(completedBy)
	t.AuditedBy = scanNullInt64(auditedBy)

	if t.ScheduledDate, err = entity.ParseDate(scheduledDate); err != nil {
		return nil, err
	}
	if t.DueAt, err = parseInstant(dueAt); err != nil {
		return nil, err
	}
	if t.CompletedAt, err = scanNullInstant(completedAt); err != nil {
		return nil, err
	}
	if t.AuditedAt, err = scanNullInstant(auditedAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseInstant(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseInstant(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

var _ port.TaskRepository = (*TaskRepository)(nil)
