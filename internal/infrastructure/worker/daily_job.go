package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// JobFunc is the work a DailyJob performs. now is the instant the run fired.
type JobFunc func(ctx context.Context, now time.Time) error

// DailyJobConfig holds configuration for a daily job
type DailyJobConfig struct {
	Name     string
	At       entity.TimeOfDay
	Location *time.Location
	Timeout  time.Duration
}

// Status is a snapshot of a worker's run state
type Status struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
}

// DailyJob runs a JobFunc once a day at a fixed wall-clock time in the
// operating timezone.
type DailyJob struct {
	config DailyJobConfig
	job    JobFunc
	clock  port.Clock
	after  func(time.Duration) <-chan time.Time
	logger *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	nextRun   time.Time
	lastRun   time.Time
	lastError error
	runs      int
	failures  int
}

// DailyJobOption configures a DailyJob
type DailyJobOption func(*DailyJob)

// WithJobClock replaces the wall clock
func WithJobClock(clock port.Clock) DailyJobOption {
	return func(j *DailyJob) {
		j.clock = clock
	}
}

// WithTimer replaces time.After, letting tests fire the job on demand
func WithTimer(after func(time.Duration) <-chan time.Time) DailyJobOption {
	return func(j *DailyJob) {
		j.after = after
	}
}

// NewDailyJob creates a new daily job
func NewDailyJob(config DailyJobConfig, job JobFunc, logger *zap.Logger, opts ...DailyJobOption) *DailyJob {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}
	j := &DailyJob{
		config: config,
		job:    job,
		clock:  port.SystemClock{},
		after:  time.After,
		logger: logger,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name returns the worker name for identification
func (j *DailyJob) Name() string {
	return j.config.Name
}

// NextRun returns the first scheduled instant strictly after now
func (j *DailyJob) NextRun(now time.Time) time.Time {
	today := entity.DateOf(now, j.config.Location)
	next := j.config.At.On(today, j.config.Location)
	if !next.After(now) {
		next = j.config.At.On(today.AddDate(0, 0, 1), j.config.Location)
	}
	return next
}

// Start begins the scheduling loop
func (j *DailyJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.isRunning {
		j.mu.Unlock()
		return fmt.Errorf("%s already running", j.config.Name)
	}

	var loopCtx context.Context
	loopCtx, j.cancel = context.WithCancel(ctx)
	j.isRunning = true
	j.done = make(chan struct{})
	j.nextRun = j.NextRun(j.clock.Now())
	j.mu.Unlock()

	j.logger.Info("Daily job started",
		zap.String("job", j.config.Name),
		zap.String("at", j.config.At.String()),
		zap.String("timezone", j.config.Location.String()))

	go j.loop(loopCtx)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return
func (j *DailyJob) Stop() error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	cancel, done := j.cancel, j.done
	j.mu.Unlock()

	cancel()
	<-done

	status := j.Status()
	j.logger.Info("Daily job stopped",
		zap.String("job", j.config.Name),
		zap.Int("runs", status.Runs),
		zap.Int("failures", status.Failures))
	return nil
}

func (j *DailyJob) loop(ctx context.Context) {
	defer close(j.done)

	var fired time.Time
	for {
		now := j.clock.Now()
		// a wall clock stepped backwards must not repeat the slot that fired
		from := now
		if fired.After(from) {
			from = fired
		}
		next := j.NextRun(from)
		j.mu.Lock()
		j.nextRun = next
		j.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-j.after(next.Sub(now)):
			fired = next
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes the job immediately and records the outcome
func (j *DailyJob) RunOnce(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	startedAt := j.clock.Now()
	err := j.job(runCtx, startedAt)

	j.mu.Lock()
	j.lastRun = startedAt
	j.lastError = err
	j.runs++
	if err != nil {
		j.failures++
	}
	j.mu.Unlock()

	if err != nil {
		j.logger.Error("Daily job failed",
			zap.String("job", j.config.Name),
			zap.Time("started_at", startedAt),
			zap.Error(err))
		return err
	}
	j.logger.Info("Daily job completed",
		zap.String("job", j.config.Name),
		zap.Duration("duration", j.clock.Now().Sub(startedAt)))
	return nil
}

// Status reports the job's current state
func (j *DailyJob) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Status{
		Name:     j.config.Name,
		Running:  j.isRunning,
		NextRun:  j.nextRun,
		LastRun:  j.lastRun,
		Runs:     j.runs,
		Failures: j.failures,
	}
	if j.lastError != nil {
		s.LastError = j.lastError.Error()
	}
	return s
}
