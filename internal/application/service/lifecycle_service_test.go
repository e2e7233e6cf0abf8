package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/routine-ops/internal/application/port"
	appwf "github.com/garyjia/routine-ops/internal/application/workflow"
	"github.com/garyjia/routine-ops/internal/domain/entity"
	domainwf "github.com/garyjia/routine-ops/internal/domain/workflow"
)

type lifecycleFixture struct {
	tasks       *memoryTaskRepo
	history     *memoryHistoryRepo
	assignments *mockAssignmentRegistry
	clock       *fixedClock
	svc         LifecycleService
}

var taskDueAt = time.Date(2025, time.June, 5, 18, 0, 0, 0, time.UTC)

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		tasks:   newMemoryTaskRepo(),
		history: &memoryHistoryRepo{},
		assignments: &mockAssignmentRegistry{assignments: []*entity.Assignment{
			{ID: 100, RoutineID: 1, LocationID: 10, Status: entity.AssignmentStatusActive},
		}},
		clock: &fixedClock{now: taskDueAt.Add(-time.Hour)},
	}
	tx := &mockTxManager{}
	engine := appwf.NewEngine(f.tasks, f.history, tx, appwf.WithClock(f.clock))
	f.svc = NewLifecycleService(f.tasks, f.history, f.assignments, tx, engine, nil, f.clock, &recordingLogger{})
	return f
}

func (f *lifecycleFixture) addTask(day int, status string) *entity.TaskInstance {
	return f.tasks.put(&entity.TaskInstance{
		AssignmentID:       100,
		LocationID:         10,
		ResponsibleActorID: 1,
		ScheduledDate:      entity.NewDate(2025, time.June, day),
		DueAt:              taskDueAt.AddDate(0, 0, day-5),
		Status:             status,
		AuditStatus:        entity.AuditStatusPending,
	})
}

func TestLifecycle_StartThenComplete(t *testing.T) {
	f := newLifecycleFixture()
	task := f.addTask(5, entity.TaskStatusPending)

	started, err := f.svc.Start(context.Background(), task.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusInProgress, started.Status)

	completed, err := f.svc.Complete(context.Background(), task.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCompletedOnTime, completed.Status)

	history, err := f.svc.GetHistory(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.ActionStart, history[0].Action)
	assert.Equal(t, entity.ActionComplete, history[1].Action)
}

func TestLifecycle_Lateness(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"exactly at deadline", taskDueAt, entity.TaskStatusCompletedOnTime},
		{"one second after deadline", taskDueAt.Add(time.Second), entity.TaskStatusCompletedLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLifecycleFixture()
			task := f.addTask(5, entity.TaskStatusPending)
			f.clock.now = tt.at

			completed, err := f.svc.Complete(context.Background(), task.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, completed.Status)
			require.NotNil(t, completed.CompletedAt)
			assert.True(t, tt.at.Equal(*completed.CompletedAt))
		})
	}
}

func TestLifecycle_NotFound(t *testing.T) {
	f := newLifecycleFixture()

	_, err := f.svc.Complete(context.Background(), 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLifecycle_CloseOverdue(t *testing.T) {
	f := newLifecycleFixture()
	overdue := f.addTask(5, entity.TaskStatusPending)
	inProgress := f.addTask(4, entity.TaskStatusInProgress)
	future := f.addTask(9, entity.TaskStatusPending)
	done := f.addTask(3, entity.TaskStatusCompletedOnTime)

	f.clock.now = time.Date(2025, time.June, 6, 0, 1, 0, 0, time.UTC)

	result, err := f.svc.CloseOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.UpdatedCount)
	assert.Equal(t, "2 tasks marked as missed", result.Message)

	for id, want := range map[int64]string{
		overdue.ID:    entity.TaskStatusMissed,
		inProgress.ID: entity.TaskStatusMissed,
		future.ID:     entity.TaskStatusPending,
		done.ID:       entity.TaskStatusCompletedOnTime,
	} {
		got, err := f.svc.GetTask(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "task %d", id)
	}

	again, err := f.svc.CloseOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.UpdatedCount)
}

func TestLifecycle_MissedIsFinal(t *testing.T) {
	f := newLifecycleFixture()
	task := f.addTask(5, entity.TaskStatusPending)
	f.clock.now = taskDueAt.Add(time.Hour)

	_, err := f.svc.CloseOverdue(context.Background())
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), task.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Start(context.Background(), task.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, _ := f.svc.GetTask(context.Background(), task.ID)
	assert.Equal(t, entity.TaskStatusMissed, got.Status)
}

func TestLifecycle_CompletionRacingCloser(t *testing.T) {
	f := newLifecycleFixture()
	task := f.addTask(5, entity.TaskStatusPending)

	// the completion commits first using a stale read held by the closer
	stale, _ := f.tasks.GetByID(context.Background(), task.ID)
	_, err := f.svc.Complete(context.Background(), task.ID, 1)
	require.NoError(t, err)

	f.clock.now = taskDueAt.Add(time.Minute)
	engine := appwf.NewEngine(f.tasks, f.history, &mockTxManager{}, appwf.WithClock(f.clock))
	_, err = engine.Fire(context.Background(), stale, appwf.Transition{Trigger: domainwf.TriggerMiss})
	assert.ErrorIs(t, err, appwf.ErrStaleStatus)

	got, _ := f.svc.GetTask(context.Background(), task.ID)
	assert.Equal(t, entity.TaskStatusCompletedOnTime, got.Status)
}

func TestLifecycle_Cancel(t *testing.T) {
	t.Run("validation happens before any change", func(t *testing.T) {
		f := newLifecycleFixture()
		task := f.addTask(5, entity.TaskStatusPending)

		_, err := f.svc.Cancel(context.Background(), CancelRequest{TaskID: task.ID, ActorID: 7, Reason: "   "})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = f.svc.Cancel(context.Background(), CancelRequest{TaskID: task.ID, ActorID: 7, Reason: "x", Scope: "everything"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		got, _ := f.svc.GetTask(context.Background(), task.ID)
		assert.Equal(t, entity.TaskStatusPending, got.Status)
	})

	t.Run("instance scope", func(t *testing.T) {
		f := newLifecycleFixture()
		task := f.addTask(5, entity.TaskStatusInProgress)
		later := f.addTask(6, entity.TaskStatusPending)

		result, err := f.svc.Cancel(context.Background(), CancelRequest{TaskID: task.ID, ActorID: 7, Reason: "store closed"})
		require.NoError(t, err)
		assert.Equal(t, entity.TaskStatusCancelled, result.Task.Status)
		assert.Equal(t, "store closed", result.Task.CancelReason)
		assert.False(t, result.AssignmentDeactivated)
		assert.Empty(t, f.assignments.deactivated)

		got, _ := f.svc.GetTask(context.Background(), later.ID)
		assert.Equal(t, entity.TaskStatusPending, got.Status)
	})

	t.Run("assignment and future scope", func(t *testing.T) {
		f := newLifecycleFixture()
		earlier := f.addTask(4, entity.TaskStatusPending)
		task := f.addTask(5, entity.TaskStatusPending)
		later := f.addTask(6, entity.TaskStatusPending)
		laterDone := f.addTask(7, entity.TaskStatusCompletedOnTime)

		result, err := f.svc.Cancel(context.Background(), CancelRequest{
			TaskID:  task.ID,
			ActorID: 7,
			Reason:  "location closed permanently",
			Scope:   entity.CancelScopeAssignmentAndFuture,
		})
		require.NoError(t, err)
		assert.True(t, result.AssignmentDeactivated)
		assert.Equal(t, 1, result.FutureCancelled)
		assert.Equal(t, []int64{100}, f.assignments.deactivated)

		for id, want := range map[int64]string{
			earlier.ID:   entity.TaskStatusPending,
			task.ID:      entity.TaskStatusCancelled,
			later.ID:     entity.TaskStatusCancelled,
			laterDone.ID: entity.TaskStatusCompletedOnTime,
		} {
			got, _ := f.svc.GetTask(context.Background(), id)
			assert.Equal(t, want, got.Status, "task %d", id)
		}
	})

	t.Run("terminal task cannot be cancelled", func(t *testing.T) {
		f := newLifecycleFixture()
		task := f.addTask(5, entity.TaskStatusMissed)

		_, err := f.svc.Cancel(context.Background(), CancelRequest{TaskID: task.ID, ActorID: 7, Reason: "late cleanup"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestLifecycle_ListTasksRejectsUnknownStatus(t *testing.T) {
	f := newLifecycleFixture()
	f.addTask(5, entity.TaskStatusPending)

	_, err := f.svc.ListTasks(context.Background(), port.TaskFilter{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	tasks, err := f.svc.ListTasks(context.Background(), port.TaskFilter{Status: entity.TaskStatusPending})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
