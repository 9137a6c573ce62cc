package lifecycle

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanops/oms/internal/domain/entity"
)

type testState string

func (s testState) IsValid() bool {
	return s == "a" || s == "b" || s == "c"
}

type testTrigger string

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	b := NewBuilder[testState, testTrigger]()
	assert.Panics(t, func() { b.Configure("zzz") })
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	b := NewBuilder[testState, testTrigger]()
	assert.Panics(t, func() { b.Build("") })
}

func TestBuilder_PermitPanicsOnInvalidTarget(t *testing.T) {
	b := NewBuilder[testState, testTrigger]()
	assert.Panics(t, func() { b.Configure("a").Permit("go", "nowhere") })
}

func TestMachine_Fire(t *testing.T) {
	b := NewBuilder[testState, testTrigger]()
	b.Configure("a").Permit("next", "b")
	b.Configure("b").Permit("next", "c")

	m := b.Build("a")
	require.NoError(t, m.Fire(context.Background(), "next"))
	assert.Equal(t, testState("b"), m.State())
	require.NoError(t, m.Fire(context.Background(), "next"))
	assert.Equal(t, testState("c"), m.State())

	err := m.Fire(context.Background(), "next")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, testState("c"), m.State())
}

func TestMachine_GuardsTriedInOrder(t *testing.T) {
	allow := false
	b := NewBuilder[testState, testTrigger]()
	b.Configure("a").
		PermitIf("go", "b", func(context.Context) bool { return allow }).
		Permit("go", "c")

	m := b.Build("a")
	require.NoError(t, m.Fire(context.Background(), "go"))
	assert.Equal(t, testState("c"), m.State())

	allow = true
	m = b.Build("a")
	require.NoError(t, m.Fire(context.Background(), "go"))
	assert.Equal(t, testState("b"), m.State())
}

func TestMachine_AllGuardsFail(t *testing.T) {
	b := NewBuilder[testState, testTrigger]()
	b.Configure("a").PermitIf("go", "b", func(context.Context) bool { return false })

	m := b.Build("a")
	err := m.Fire(context.Background(), "go")
	assert.True(t, errors.Is(err, ErrGuardFailed))
	assert.Equal(t, testState("a"), m.State())
}

func TestMachine_BuildIsIsolatedFromLaterConfiguration(t *testing.T) {
	b := NewBuilder[testState, testTrigger]()
	b.Configure("a").Permit("go", "b")
	m := b.Build("a")

	b.Configure("a").Permit("jump", "c")

	assert.True(t, m.CanFire("go"))
	assert.False(t, m.CanFire("jump"))
}

func TestMachine_PermittedTriggers(t *testing.T) {
	b := NewBuilder[testState, testTrigger]()
	b.Configure("a").Permit("x", "b").Permit("y", "c")

	triggers := b.Build("a").PermittedTriggers()
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	assert.Equal(t, []testTrigger{"x", "y"}, triggers)
	assert.Empty(t, b.Build("c").PermittedTriggers())
}

func TestPayment(t *testing.T) {
	ctx := context.Background()

	m := Payment(entity.PaymentStatusUnmatched)
	require.NoError(t, m.Fire(ctx, TriggerMatch))
	assert.Equal(t, entity.PaymentStatusMatched, m.State())

	err := m.Fire(ctx, TriggerMatch)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.Fire(ctx, TriggerUnmatch))
	assert.Equal(t, entity.PaymentStatusUnmatched, m.State())
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		attempts int
		max      int
		expected entity.OutboxStatus
	}{
		{"first failure stays pending", 1, 5, entity.OutboxStatusPending},
		{"last allowed failure goes dead", 5, 5, entity.OutboxStatusDead},
		{"over the limit goes dead", 7, 5, entity.OutboxStatusDead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Outbox(entity.OutboxStatusPending, tt.attempts, tt.max)
			require.NoError(t, m.Fire(ctx, TriggerFailed))
			assert.Equal(t, tt.expected, m.State())
		})
	}

	m := Outbox(entity.OutboxStatusDead, 5, 5)
	assert.False(t, m.CanFire(TriggerDelivered))
	require.NoError(t, m.Fire(ctx, TriggerRetry))
	assert.Equal(t, entity.OutboxStatusPending, m.State())
}
