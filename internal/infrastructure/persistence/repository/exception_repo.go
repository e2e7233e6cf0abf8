package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/infrastructure/persistence/sqlite"
)

// ExceptionRepository implements port.ExceptionLedger
type ExceptionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExceptionRepository creates a new assignment exception repository
func NewExceptionRepository(db *sql.DB, logger *zap.Logger) *ExceptionRepository {
	return &ExceptionRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an exception; recording the same one twice is a no-op
func (r *ExceptionRepository) Create(ctx context.Context, e *entity.AssignmentException) error {
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT OR IGNORE INTO assignment_exceptions (assignment_id, exception_date, reason)
		VALUES (?, ?, ?)
	`, e.AssignmentID, entity.FormatDate(e.Date), e.Reason)
	if err != nil {
		r.logger.Error("Failed to create exception", zap.Int64("assignment_id", e.AssignmentID), zap.Error(err))
		return fmt.Errorf("failed to create exception: %w", err)
	}
	return nil
}

// ListOn returns the exceptions recorded for date
func (r *ExceptionRepository) ListOn(ctx context.Context, date time.Time) ([]entity.AssignmentException, error) {
	day := entity.FormatDate(date)
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT assignment_id, exception_date, reason
		FROM assignment_exceptions
		WHERE exception_date = ?
	`, day)
	if err != nil {
		r.logger.Error("Failed to list exceptions", zap.String("date", day), zap.Error(err))
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []entity.AssignmentException
	for rows.Next() {
		var (
			e   entity.AssignmentException
			day string
		)
		if err := rows.Scan(&e.AssignmentID, &day, &e.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan exception: %w", err)
		}
		if e.Date, err = entity.ParseDate(day); err != nil {
			return nil, err
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}

var _ port.ExceptionLedger = (*ExceptionRepository)(nil)
