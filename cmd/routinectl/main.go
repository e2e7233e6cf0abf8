// Command routinectl runs the daily scheduling operations on demand against
// the configured database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/config"
	"github.com/garyjia/routine-ops/internal/container"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/pkg/utils"
)

type options struct {
	configPath string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "routinectl",
		Short:         "Operate the routine task scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newGenerateCommand(opts, out),
		newCloseCommand(opts, out),
		newMigrateCommand(opts, out),
		newComplianceCommand(opts, out),
	)
	return root
}

func newGenerateCommand(opts *options, out io.Writer) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the tasks due on a date (default: today in the operating timezone)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(app *container.Container) error {
				target := entity.DateOf(timeNow(), app.Config().Scheduler.Location)
				if date != "" {
					parsed, err := entity.ParseDate(date)
					if err != nil {
						return fmt.Errorf("invalid --date: %w", err)
					}
					target = parsed
				}

				result, err := app.Services().Materializer.Run(cmd.Context(), target)
				if err != nil {
					return err
				}
				return writeJSON(out, map[string]interface{}{
					"success":        true,
					"generatedCount": result.Created,
					"message":        result.Message(),
					"skipReasons":    result.Skipped,
					"runId":          result.RunID,
				})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "civil date to generate, YYYY-MM-DD")
	return cmd
}

func newCloseCommand(opts *options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Mark every open task past its deadline as missed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(app *container.Container) error {
				result, err := app.Services().Lifecycle.CloseOverdue(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(out, map[string]interface{}{
					"success":      true,
					"updatedCount": result.UpdatedCount,
					"message":      result.Message,
				})
			})
		},
	}
}

func newMigrateCommand(opts *options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// starting the container applies migrations
			return withContainer(cmd.Context(), opts, func(app *container.Container) error {
				version, dirty, err := app.Store().SchemaVersion()
				if err != nil {
					return err
				}
				return writeJSON(out, map[string]interface{}{
					"version": version,
					"dirty":   dirty,
				})
			})
		},
	}
}

func newComplianceCommand(opts *options, out io.Writer) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Summarize task outcomes over a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := entity.ParseDate(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			toDate, err := entity.ParseDate(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			return withContainer(cmd.Context(), opts, func(app *container.Container) error {
				summary, err := app.Services().Compliance.Summary(cmd.Context(), fromDate, toDate)
				if err != nil {
					return err
				}
				return writeJSON(out, map[string]interface{}{
					"from":            entity.FormatDate(summary.From),
					"to":              entity.FormatDate(summary.To),
					"total":           summary.Total,
					"completedOnTime": summary.CompletedOnTime,
					"completedLate":   summary.CompletedLate,
					"missed":          summary.Missed,
					"open":            summary.Open,
					"onTimeRate":      summary.OnTimeRate(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first civil date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last civil date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// withContainer starts a container with the daily jobs disabled, runs fn
// and closes it.
func withContainer(ctx context.Context, opts *options, fn func(app *container.Container) error) error {
	logger := utils.NewCLILogger(opts.verbose)
	defer logger.Sync()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		return err
	}
	containerCfg.Scheduler.Enabled = false

	app, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		app.Close()
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Close failed", zap.Error(err))
		}
	}()

	return fn(app)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var timeNow = time.Now
