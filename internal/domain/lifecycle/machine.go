package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// State is any string-backed status that knows whether it is valid
type State interface {
	~string
	IsValid() bool
}

// Trigger is any string-backed event name
type Trigger interface {
	~string
}

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// Machine tracks the current state of one record and validates transitions
type Machine[S State, T Trigger] interface {
	// State returns the current state
	State() S

	// CanFire returns true if the trigger has a transition from the current state
	CanFire(trigger T) bool

	// Fire executes the trigger, moving to the new state if allowed
	Fire(ctx context.Context, trigger T) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []T
}

type transition[S State] struct {
	toState S
	guard   GuardFunc
}

type machine[S State, T Trigger] struct {
	current     S
	transitions map[S]map[T][]transition[S]
}

func (m *machine[S, T]) State() S {
	return m.current
}

func (m *machine[S, T]) CanFire(trigger T) bool {
	return len(m.transitions[m.current][trigger]) > 0
}

func (m *machine[S, T]) Fire(ctx context.Context, trigger T) error {
	candidates := m.transitions[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine[S, T]) PermittedTriggers() []T {
	triggers := make([]T, 0, len(m.transitions[m.current]))
	for trigger := range m.transitions[m.current] {
		triggers = append(triggers, trigger)
	}
	return triggers
}
