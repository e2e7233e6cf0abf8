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

// AbsenceRepository implements port.AbsenceLedger
type AbsenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAbsenceRepository creates a new absence repository
func NewAbsenceRepository(db *sql.DB, logger *zap.Logger) *AbsenceRepository {
	return &AbsenceRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an absence
func (r *AbsenceRepository) Create(ctx context.Context, a *entity.Absence) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO absences (actor_id, date_from, date_to, policy, receptor_actor_id)
		VALUES (?, ?, ?, ?, ?)
	`, a.ActorID, entity.FormatDate(a.DateFrom), entity.FormatDate(a.DateTo), string(a.Policy), nullInt64(a.ReceptorActorID))
	if err != nil {
		r.logger.Error("Failed to create absence", zap.Int64("actor_id", a.ActorID), zap.Error(err))
		return fmt.Errorf("failed to create absence: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// ListCovering returns the absences that include date
func (r *AbsenceRepository) ListCovering(ctx context.Context, date time.Time) ([]entity.Absence, error) {
	day := entity.FormatDate(date)
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT id, actor_id, date_from, date_to, policy, receptor_actor_id
		FROM absences
		WHERE date_from <= ? AND date_to >= ?
		ORDER BY id
	`, day, day)
	if err != nil {
		r.logger.Error("Failed to list absences", zap.String("date", day), zap.Error(err))
		return nil, fmt.Errorf("failed to list absences: %w", err)
	}
	defer rows.Close()

	var absences []entity.Absence
	for rows.Next() {
		var (
			a        entity.Absence
			from, to string
			policy   string
			receptor sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.ActorID, &from, &to, &policy, &receptor); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		if a.DateFrom, err = entity.ParseDate(from); err != nil {
			return nil, err
		}
		if a.DateTo, err = entity.ParseDate(to); err != nil {
			return nil, err
		}
		a.Policy = entity.AbsencePolicy(policy)
		a.ReceptorActorID = scanNullInt64(receptor)
		absences = append(absences, a)
	}
	return absences, rows.Err()
}

var _ port.AbsenceLedger = (*AbsenceRepository)(nil)
