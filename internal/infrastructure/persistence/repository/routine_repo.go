package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/infrastructure/persistence/sqlite"
)

// RoutineRepository implements port.RoutineCatalog
type RoutineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoutineRepository creates a new routine repository
func NewRoutineRepository(db *sql.DB, logger *zap.Logger) *RoutineRepository {
	return &RoutineRepository{
		db:     db,
		logger: logger,
	}
}

const routineColumns = `
	id, name, frequency, execution_days, monthly_due_day, cutoff1_day, cutoff2_day,
	specific_dates, start_time, due_time, priority, active`

// Create stores a routine definition
func (r *RoutineRepository) Create(ctx context.Context, routine *entity.Routine) error {
	fields := entity.EncodeFrequency(routine.Frequency)

	dates := make([]string, len(fields.SpecificDates))
	for i, d := range fields.SpecificDates {
		dates[i] = entity.FormatDate(d)
	}

	query := `
		INSERT INTO routines (
			name, frequency, execution_days, monthly_due_day, cutoff1_day, cutoff2_day,
			specific_dates, start_time, due_time, priority, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		routine.Name,
		string(fields.Kind),
		fields.ExecutionDays,
		fields.MonthlyDueDay,
		fields.Cutoff1Day,
		fields.Cutoff2Day,
		strings.Join(dates, ","),
		nullTimeOfDay(routine.StartTime),
		nullTimeOfDay(routine.DueTime),
		string(routine.Priority),
		routine.Active,
	)
	if err != nil {
		r.logger.Error("Failed to create routine", zap.String("name", routine.Name), zap.Error(err))
		return fmt.Errorf("failed to create routine: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	routine.ID = id
	return nil
}

// GetByID retrieves a routine. Returns nil, nil when it does not exist.
func (r *RoutineRepository) GetByID(ctx context.Context, id int64) (*entity.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE id = ?`

	routine, err := scanRoutine(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get routine", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get routine: %w", err)
	}
	return routine, nil
}

// ListActive returns every active routine
func (r *RoutineRepository) ListActive(ctx context.Context) ([]*entity.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE active = 1 ORDER BY id`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list routines", zap.Error(err))
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	defer rows.Close()

	var routines []*entity.Routine
	for rows.Next() {
		routine, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, routine)
	}
	return routines, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoutine(row rowScanner) (*entity.Routine, error) {
	var (
		routine        entity.Routine
		kind, dates    string
		priority       string
		fields         entity.FrequencyFields
		start, dueTime sql.NullString
	)
	err := row.Scan(
		&routine.ID,
		&routine.Name,
		&kind,
		&fields.ExecutionDays,
		&fields.MonthlyDueDay,
		&fields.Cutoff1Day,
		&fields.Cutoff2Day,
		&dates,
		&start,
		&dueTime,
		&priority,
		&routine.Active,
	)
	if err != nil {
		return nil, err
	}

	fields.Kind = entity.FrequencyKind(kind)
	for _, s := range strings.Split(dates, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		d, err := entity.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("routine %d: %w", routine.ID, err)
		}
		fields.SpecificDates = append(fields.SpecificDates, d)
	}

	routine.Frequency, err = entity.DecodeFrequency(fields)
	if err != nil {
		return nil, fmt.Errorf("routine %d: %w", routine.ID, err)
	}
	routine.Priority = entity.Priority(priority)

	if routine.StartTime, err = scanTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("routine %d start time: %w", routine.ID, err)
	}
	if routine.DueTime, err = scanTimeOfDay(dueTime); err != nil {
		return nil, fmt.Errorf("routine %d due time: %w", routine.ID, err)
	}
	return &routine, nil
}

func nullTimeOfDay(t *entity.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func scanTimeOfDay(ns sql.NullString) (*entity.TimeOfDay, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := entity.ParseTimeOfDay(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var _ port.RoutineCatalog = (*RoutineRepository)(nil)
