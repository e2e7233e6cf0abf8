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

// ResponsibleRepository implements port.ResponsibleDirectory
type ResponsibleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResponsibleRepository creates a new responsible directory repository
func NewResponsibleRepository(db *sql.DB, logger *zap.Logger) *ResponsibleRepository {
	return &ResponsibleRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a responsible binding
func (r *ResponsibleRepository) Create(ctx context.Context, b *entity.ResponsibleBinding) error {
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`INSERT INTO location_responsibles (location_id, actor_id, valid_from, valid_to) VALUES (?, ?, ?, ?)`,
		b.LocationID, b.ActorID, entity.FormatDate(b.ValidFrom), nullDate(b.ValidTo),
	)
	if err != nil {
		r.logger.Error("Failed to create responsible binding", zap.Int64("location_id", b.LocationID), zap.Error(err))
		return fmt.Errorf("failed to create responsible binding: %w", err)
	}
	return nil
}

// ListValidOn returns the bindings valid on date
func (r *ResponsibleRepository) ListValidOn(ctx context.Context, date time.Time) ([]entity.ResponsibleBinding, error) {
	day := entity.FormatDate(date)
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT location_id, actor_id, valid_from, valid_to
		FROM location_responsibles
		WHERE valid_from <= ? AND (valid_to IS NULL OR valid_to >= ?)
		ORDER BY location_id, valid_from
	`, day, day)
	if err != nil {
		r.logger.Error("Failed to list responsible bindings", zap.String("date", day), zap.Error(err))
		return nil, fmt.Errorf("failed to list responsible bindings: %w", err)
	}
	defer rows.Close()

	var bindings []entity.ResponsibleBinding
	for rows.Next() {
		var (
			b         entity.ResponsibleBinding
			validFrom string
			validTo   sql.NullString
		)
		if err := rows.Scan(&b.LocationID, &b.ActorID, &validFrom, &validTo); err != nil {
			return nil, fmt.Errorf("failed to scan responsible binding: %w", err)
		}
		if b.ValidFrom, err = entity.ParseDate(validFrom); err != nil {
			return nil, err
		}
		if b.ValidTo, err = scanNullDate(validTo); err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

var _ port.ResponsibleDirectory = (*ResponsibleRepository)(nil)
