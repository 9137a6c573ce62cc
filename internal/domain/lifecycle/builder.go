package lifecycle

import "fmt"

// Builder collects transitions and produces machines sharing them
type Builder[S State, T Trigger] struct {
	transitions map[S]map[T][]transition[S]
}

// StateConfig configures transitions leaving a single state
type StateConfig[S State, T Trigger] struct {
	from    S
	builder *Builder[S, T]
}

// NewBuilder creates an empty builder
func NewBuilder[S State, T Trigger]() *Builder[S, T] {
	return &Builder[S, T]{transitions: make(map[S]map[T][]transition[S])}
}

// Configure returns the configuration for a state, panicking on an unknown state
func (b *Builder[S, T]) Configure(state S) *StateConfig[S, T] {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.transitions[state]; !ok {
		b.transitions[state] = make(map[T][]transition[S])
	}
	return &StateConfig[S, T]{from: state, builder: b}
}

// Permit allows trigger to move from the configured state to toState
func (c *StateConfig[S, T]) Permit(trigger T, toState S) *StateConfig[S, T] {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows the transition only when guard passes. Guards are tried in registration order.
func (c *StateConfig[S, T]) PermitIf(trigger T, toState S, guard GuardFunc) *StateConfig[S, T] {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.builder.transitions[c.from][trigger] = append(c.builder.transitions[c.from][trigger], transition[S]{
		toState: toState,
		guard:   guard,
	})
	return c
}

// Build creates a machine starting at initial. Later builder changes do not affect it.
func (b *Builder[S, T]) Build(initial S) Machine[S, T] {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	snapshot := make(map[S]map[T][]transition[S], len(b.transitions))
	for state, byTrigger := range b.transitions {
		copied := make(map[T][]transition[S], len(byTrigger))
		for trigger, ts := range byTrigger {
			copied[trigger] = append([]transition[S]{}, ts...)
		}
		snapshot[state] = copied
	}

	return &machine[S, T]{current: initial, transitions: snapshot}
}
