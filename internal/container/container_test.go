package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/routine-ops/internal/domain/entity"
	"github.com/garyjia/routine-ops/internal/domain/event"
)

func testConfig(t *testing.T, schedulerEnabled bool) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "container.db")
	cfg.Scheduler.Enabled = schedulerEnabled
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Database.Path = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_StartWiresServices(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(testConfig(t, false), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())

	repos := c.Repositories()
	routine := &entity.Routine{Name: "Open checklist", Frequency: entity.Daily{}, Priority: entity.PriorityHigh, Active: true}
	require.NoError(t, repos.Routine.Create(ctx, routine))
	require.NoError(t, repos.Assignment.Create(ctx, &entity.Assignment{RoutineID: routine.ID, LocationID: 3}))
	require.NoError(t, repos.Responsible.Create(ctx, &entity.ResponsibleBinding{LocationID: 3, ActorID: 9, ValidFrom: entity.NewDate(2025, time.January, 1)}))

	result, err := c.Services().Materializer.Run(ctx, entity.NewDate(2025, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	assert.Contains(t, c.Dispatcher().Handlers(event.TypeTasksGenerated), "audit-log")

	health := c.Health(ctx)
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.Equal(t, "scheduler disabled", health.Components["workers"].Message)
	assert.Equal(t, 0, c.Workers().GetWorkerCount())

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(ctx))
}

func TestContainer_SchedulerRegistersDailyJobs(t *testing.T) {
	c, err := NewContainer(testConfig(t, true), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Equal(t, 2, c.Workers().GetWorkerCount())

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	require.Len(t, health.Workers, 2)
	names := []string{health.Workers[0].Name, health.Workers[1].Name}
	assert.ElementsMatch(t, []string{GenerateJobName, CloseJobName}, names)
	for _, w := range health.Workers {
		assert.True(t, w.Running)
		assert.False(t, w.NextRun.IsZero())
	}
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("task_id", int64(4), 17, "ignored", "dangling")
	require.Len(t, fields, 1)
	assert.Equal(t, "task_id", fields[0].Key)
}
