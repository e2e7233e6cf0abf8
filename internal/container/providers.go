package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/application/dispatcher"
	"github.com/garyjia/routine-ops/internal/application/service"
	"github.com/garyjia/routine-ops/internal/application/workflow"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/infrastructure/persistence/repository"
	"github.com/garyjia/routine-ops/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/routine-ops/internal/infrastructure/worker"
	"github.com/garyjia/routine-ops/pkg/database"
)

// Worker names
const (
	GenerateJobName = "generate-tasks"
	CloseJobName    = "close-overdue"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Store          *database.DB
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, applies pending migrations and wraps
// the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	store, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Store:          store,
		SqlDB:          store.DB,
		TransactionMgr: sqlite.NewDB(store.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Routine:     repository.NewRoutineRepository(sqlDB, logger),
		Assignment:  repository.NewAssignmentRepository(sqlDB, logger),
		Responsible: repository.NewResponsibleRepository(sqlDB, logger),
		Absence:     repository.NewAbsenceRepository(sqlDB, logger),
		Exception:   repository.NewExceptionRepository(sqlDB, logger),
		Task:        repository.NewTaskRepository(sqlDB, logger),
		History:     repository.NewHistoryRepository(sqlDB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher and subscribes the
// structured audit log to every task event.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	adapter := &dispatcherLoggerAdapter{logger: logger.Named("events")}
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(adapter))
	d.Subscribe("audit-log", dispatcher.NewAuditLogHandler(adapter), dispatcher.AllTaskEvents...)
	return d
}

// ProvideServices creates the application services.
func ProvideServices(
	repos *RepositoryBundle,
	txManager *sqlite.DB,
	d dispatcher.Dispatcher,
	location *time.Location,
	logger *zap.Logger,
) (*ServiceBundle, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if txManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	svcLogger := &zapLoggerAdapter{logger: logger}
	engine := workflow.NewEngine(repos.Task, repos.History, txManager)

	return &ServiceBundle{
		Materializer: service.NewMaterializerService(
			service.Collaborators{
				Routines:     repos.Routine,
				Assignments:  repos.Assignment,
				Responsibles: repos.Responsible,
				Absences:     repos.Absence,
				Exceptions:   repos.Exception,
			},
			repos.Task, repos.History, txManager, d, location, nil, svcLogger,
		),
		Lifecycle:  service.NewLifecycleService(repos.Task, repos.History, repos.Assignment, txManager, engine, d, nil, svcLogger),
		Audit:      service.NewAuditService(repos.Task, repos.History, txManager, d, nil, svcLogger),
		Compliance: service.NewComplianceService(repos.Task),
	}, nil
}

// ProvideWorkers creates the daily generate and close jobs. With the
// scheduler disabled the manager has no workers.
func ProvideWorkers(cfg *SchedulerConfig, services *ServiceBundle, logger *zap.Logger) *worker.WorkerManager {
	manager := worker.NewWorkerManager(logger)
	if !cfg.Enabled {
		logger.Info("Scheduler disabled, daily jobs not registered")
		return manager
	}

	location := cfg.Location
	manager.Register(worker.NewDailyJob(worker.DailyJobConfig{
		Name:     GenerateJobName,
		At:       cfg.GenerateAt,
		Location: location,
		Timeout:  cfg.JobTimeout,
	}, func(ctx context.Context, now time.Time) error {
		result, err := services.Materializer.Run(ctx, entity.DateOf(now, location))
		if err != nil {
			return err
		}
		logger.Info(result.Message(), zap.String("run_id", result.RunID))
		return nil
	}, logger))

	manager.Register(worker.NewDailyJob(worker.DailyJobConfig{
		Name:     CloseJobName,
		At:       cfg.CloseAt,
		Location: location,
		Timeout:  cfg.JobTimeout,
	}, func(ctx context.Context, _ time.Time) error {
		result, err := services.Lifecycle.CloseOverdue(ctx)
		if err != nil {
			return err
		}
		logger.Info(result.Message, zap.Int("updated_count", result.UpdatedCount))
		return nil
	}, logger))

	return manager
}
