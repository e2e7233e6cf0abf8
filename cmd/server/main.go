package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/config"
	"github.com/garyjia/routine-ops/internal/container"
	httpapi "github.com/garyjia/routine-ops/internal/interfaces/http"
	"github.com/garyjia/routine-ops/pkg/utils"
)

const version = "1.0.0"

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "routine-server",
		Short:         "Serve the routine operations API and run the daily jobs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the YAML configuration file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func serve(configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting routine operations service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Scheduler.Timezone))

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server exited successfully")
	return nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		return err
	}

	app, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		app.Close()
		return err
	}
	defer app.Close()

	services := app.Services()
	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         containerCfg.Server.Host,
			Port:         containerCfg.Server.Port,
			ReadTimeout:  containerCfg.Server.ReadTimeout,
			WriteTimeout: containerCfg.Server.WriteTimeout,
			Location:     containerCfg.Scheduler.Location,
		},
		httpapi.Services{
			Materializer: services.Materializer,
			Lifecycle:    services.Lifecycle,
			Audit:        services.Audit,
			Compliance:   services.Compliance,
		},
		httpapi.AuthConfig{
			SchedulerSecret: containerCfg.Auth.SchedulerSecret,
			OperatorTokens:  containerCfg.Auth.OperatorTokens,
		},
		&containerHealth{app: app},
		nil,
		container.NewServiceLogger(logger.Named("http")),
	)

	// Blocks until a signal arrives or the listener fails
	return server.Start(ctx)
}

// containerHealth reports container component health over HTTP
type containerHealth struct {
	app *container.Container
}

func (h *containerHealth) Health(ctx context.Context) httpapi.HealthReport {
	status := h.app.Health(ctx)

	report := httpapi.HealthReport{
		Status:  "healthy",
		Version: version,
		Checks:  make(map[string]string, len(status.Components)),
		Workers: status.Workers,
	}
	if !status.Overall {
		report.Status = "unhealthy"
	}
	for name, component := range status.Components {
		switch {
		case !component.Healthy && component.Message != "":
			report.Checks[name] = component.Message
		case !component.Healthy:
			report.Checks[name] = "unhealthy"
		default:
			report.Checks[name] = "ok"
		}
	}
	return report
}
