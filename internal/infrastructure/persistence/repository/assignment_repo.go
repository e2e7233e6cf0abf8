package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/infrastructure/persistence/sqlite"
)

// AssignmentRepository implements port.AssignmentRegistry
type AssignmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB, logger *zap.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *entity.Assignment) error {
	if a.Status == "" {
		a.Status = entity.AssignmentStatusActive
	}
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`INSERT INTO assignments (routine_id, location_id, status) VALUES (?, ?, ?)`,
		a.RoutineID, a.LocationID, a.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create assignment", zap.Int64("routine_id", a.RoutineID), zap.Error(err))
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// GetByID retrieves an assignment. Returns nil, nil when it does not exist.
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	var a entity.Assignment
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, routine_id, location_id, status FROM assignments WHERE id = ?`, id,
	).Scan(&a.ID, &a.RoutineID, &a.LocationID, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get assignment", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

// ListActive returns every active assignment
func (r *AssignmentRepository) ListActive(ctx context.Context) ([]*entity.Assignment, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT id, routine_id, location_id, status FROM assignments WHERE status = ? ORDER BY id`,
		entity.AssignmentStatusActive,
	)
	if err != nil {
		r.logger.Error("Failed to list assignments", zap.Error(err))
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*entity.Assignment
	for rows.Next() {
		var a entity.Assignment
		if err := rows.Scan(&a.ID, &a.RoutineID, &a.LocationID, &a.Status); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// Deactivate stops the materializer from producing tasks for an assignment
func (r *AssignmentRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE assignments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		entity.AssignmentStatusInactive, id,
	)
	if err != nil {
		r.logger.Error("Failed to deactivate assignment", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to deactivate assignment: %w", err)
	}
	r.logger.Info("Assignment deactivated", zap.Int64("id", id))
	return nil
}

var _ port.AssignmentRegistry = (*AssignmentRepository)(nil)
