package workflow

import "context"

// StateLike is implemented by every state type a machine can hold
type StateLike interface {
	~string
	IsValid() bool
}

// TriggerLike is implemented by every trigger type a machine can fire
type TriggerLike interface {
	~string
}

// StateMachine tracks a current state and validates transitions
type StateMachine[S StateLike, T TriggerLike] interface {
	// State returns the current state
	State() S

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger T) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger T) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []T
}
