package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// Builder collects per-state transitions and produces independent machines
type Builder[S StateLike, T TriggerLike] struct {
	configurations map[S]*StateConfig[S, T]
}

// StateConfig configures the outgoing transitions of one state
type StateConfig[S StateLike, T TriggerLike] struct {
	transitions map[T][]transition[S]
}

type transition[S StateLike] struct {
	toState S
	guard   GuardFunc
}

type stateMachine[S StateLike, T TriggerLike] struct {
	currentState   S
	configurations map[S]*StateConfig[S, T]
}

// NewBuilder creates a new state machine builder
func NewBuilder[S StateLike, T TriggerLike]() *Builder[S, T] {
	return &Builder[S, T]{
		configurations: make(map[S]*StateConfig[S, T]),
	}
}

// Configure returns the configuration for state, creating it on first use
func (b *Builder[S, T]) Configure(state S) *StateConfig[S, T] {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", string(state)))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &StateConfig[S, T]{transitions: make(map[T][]transition[S])}
		b.configurations[state] = config
	}
	return config
}

// Build creates a machine in initialState. Machines built from the same
// builder do not share state.
func (b *Builder[S, T]) Build(initialState S) StateMachine[S, T] {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", string(initialState)))
	}

	configsCopy := make(map[S]*StateConfig[S, T], len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[T][]transition[S], len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition[S]{}, transitions...)
		}
		configsCopy[state] = &StateConfig[S, T]{transitions: transitionsCopy}
	}

	return &stateMachine[S, T]{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to transition to the target state
func (c *StateConfig[S, T]) Permit(trigger T, toState S) *StateConfig[S, T] {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard
// passes. Guards for the same trigger are tried in registration order.
func (c *StateConfig[S, T]) PermitIf(trigger T, toState S, guard GuardFunc) *StateConfig[S, T] {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", string(toState)))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition[S]{
		toState: toState,
		guard:   guard,
	})
	return c
}

func (m *stateMachine[S, T]) State() S {
	return m.currentState
}

// CanFire does not evaluate guards; it reports whether any transition exists
func (m *stateMachine[S, T]) CanFire(trigger T) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

func (m *stateMachine[S, T]) Fire(ctx context.Context, trigger T) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire %s from state %s (no configuration)",
			ErrInvalidTransition, string(trigger), string(m.currentState))
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire %s from state %s",
			ErrInvalidTransition, string(trigger), string(m.currentState))
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, string(trigger), string(m.currentState))
}

func (m *stateMachine[S, T]) PermittedTriggers() []T {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []T{}
	}

	triggers := make([]T, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
