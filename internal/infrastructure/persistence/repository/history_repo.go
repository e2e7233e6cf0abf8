package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new task history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, h *entity.TaskHistory) error {
	query := `
		INSERT INTO task_history (task_id, actor_id, previous_status, new_status, action, note, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		h.TaskID,
		nullInt64(h.ActorID),
		h.PreviousStatus,
		h.NewStatus,
		h.Action,
		h.Note,
		formatInstant(h.Timestamp),
	)
	if err != nil {
		r.logger.Error("Failed to create task history",
			zap.Int64("task_id", h.TaskID),
			zap.String("action", h.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create task history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id
	return nil
}

// ListByTaskID returns the trail of a task, oldest first
func (r *HistoryRepository) ListByTaskID(ctx context.Context, taskID int64) ([]*entity.TaskHistory, error) {
	query := `
		SELECT id, task_id, actor_id, previous_status, new_status, action, note, timestamp
		FROM task_history
		WHERE task_id = ?
		ORDER BY id
	`
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to list task history", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	defer rows.Close()

	var records []*entity.TaskHistory
	for rows.Next() {
		var (
			h         entity.TaskHistory
			actorID   sql.NullInt64
			timestamp string
		)
		if err := rows.Scan(&h.ID, &h.TaskID, &actorID, &h.PreviousStatus, &h.NewStatus, &h.Action, &h.Note, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan task history: %w", err)
		}
		h.ActorID = scanNullInt64(actorID)
		if h.Timestamp, err = parseInstant(timestamp); err != nil {
			return nil, err
		}
		records = append(records, &h)
	}
	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
