package workflow

import (
	"context"
	"errors"
	"testing"
)

type guardKey struct{}

func TestTaskState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		expected bool
	}{
		{StatePending, false},
		{StateInProgress, false},
		{StateCompletedOnTime, true},
		{StateCompletedLate, true},
		{StateMissed, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("TaskState.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTaskState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    TaskState
		expected bool
	}{
		{"valid state", StatePending, true},
		{"valid terminal state", StateMissed, true},
		{"invalid state", TaskState("INVALID"), false},
		{"empty state", TaskState(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("TaskState.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAuditState(t *testing.T) {
	if AuditPending.IsTerminal() {
		t.Error("pending audit should not be terminal")
	}
	if !AuditApproved.IsTerminal() || !AuditRejected.IsTerminal() {
		t.Error("decided audits should be terminal")
	}
	if AuditState("maybe").IsValid() {
		t.Error("unknown audit state should be invalid")
	}
}

func TestBuilder_ConfigureReturnsSameConfig(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()

	config := builder.Configure(StatePending)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(StatePending); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(TaskState("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(TaskState("INVALID"))
}

func TestStateConfig_PermitPanicsOnInvalidTarget(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	builder.Configure(StatePending).Permit(TriggerStart, TaskState("INVALID"))
}

func TestStateMachine_Permit(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()
	builder.Configure(StatePending).
		Permit(TriggerStart, StateInProgress)

	machine := builder.Build(StatePending)

	if !machine.CanFire(TriggerStart) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if machine.CanFire(TriggerMiss) {
		t.Error("CanFire() should return false for unconfigured trigger")
	}

	if err := machine.Fire(context.Background(), TriggerStart); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine.State() != StateInProgress {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateInProgress)
	}
}

func TestStateMachine_GuardsTriedInOrder(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()
	builder.Configure(StateInProgress).
		PermitIf(TriggerComplete, StateCompletedOnTime, func(ctx context.Context) bool {
			return ctx.Value(guardKey{}).(bool)
		}).
		PermitIf(TriggerComplete, StateCompletedLate, func(ctx context.Context) bool {
			return !ctx.Value(guardKey{}).(bool)
		})

	onTime := builder.Build(StateInProgress)
	if err := onTime.Fire(context.WithValue(context.Background(), guardKey{}, true), TriggerComplete); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if onTime.State() != StateCompletedOnTime {
		t.Errorf("State = %v, want %v", onTime.State(), StateCompletedOnTime)
	}

	late := builder.Build(StateInProgress)
	if err := late.Fire(context.WithValue(context.Background(), guardKey{}, false), TriggerComplete); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if late.State() != StateCompletedLate {
		t.Errorf("State = %v, want %v", late.State(), StateCompletedLate)
	}
}

func TestStateMachine_GuardFails(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()
	builder.Configure(StatePending).
		PermitIf(TriggerMiss, StateMissed, func(ctx context.Context) bool { return false })

	machine := builder.Build(StatePending)

	err := machine.Fire(context.Background(), TriggerMiss)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StatePending {
		t.Errorf("State should remain %v after failed Fire(), got %v", StatePending, machine.State())
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()
	builder.Configure(StatePending).
		Permit(TriggerStart, StateInProgress)

	machine := builder.Build(StateMissed)

	err := machine.Fire(context.Background(), TriggerStart)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != StateMissed {
		t.Errorf("State should remain %v, got %v", StateMissed, machine.State())
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder[TaskState, TaskTrigger]()
	builder.Configure(StatePending).
		Permit(TriggerStart, StateInProgress).
		Permit(TriggerCancel, StateCancelled)

	triggers := builder.Build(StatePending).PermittedTriggers()
	if len(triggers) != 2 {
		t.Fatalf("PermittedTriggers() returned %d triggers, want 2", len(triggers))
	}

	if got := builder.Build(StateCancelled).PermittedTriggers(); len(got) != 0 {
		t.Errorf("terminal state should have 0 permitted triggers, got %d", len(got))
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := NewBuilder[AuditState, AuditTrigger]()
	builder.Configure(AuditPending).
		Permit(TriggerApprove, AuditApproved)

	machine1 := builder.Build(AuditPending)
	machine2 := builder.Build(AuditPending)

	if err := machine1.Fire(context.Background(), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}

	if machine2.State() != AuditPending {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), AuditPending)
	}
	if machine1.State() != AuditApproved {
		t.Errorf("machine1 state = %v, want %v", machine1.State(), AuditApproved)
	}
}
