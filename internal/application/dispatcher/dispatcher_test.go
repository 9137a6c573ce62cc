package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanops/oms/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func TestSubscribe(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))
	noop := func(context.Context, *event.Event) error { return nil }

	d.Subscribe(event.TypeJobUpdated, noop)
	d.Subscribe(event.TypeJobUpdated, noop)
	d.SubscribeNamed(event.TypeStepCompleted, "trigger-executor", noop)

	handlers := d.ListHandlers(event.TypeJobUpdated)
	require.Len(t, handlers, 2)
	assert.Equal(t, "job.updated-handler-0", handlers[0].Name)
	assert.Equal(t, "job.updated-handler-1", handlers[1].Name)
	assert.Nil(t, handlers[0].Handler)

	named := d.ListHandlers(event.TypeStepCompleted)
	require.Len(t, named, 1)
	assert.Equal(t, "trigger-executor", named[0].Name)
	assert.Empty(t, d.ListHandlers(event.TypePaymentMatched))
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in registration order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string
		d.SubscribeNamed(event.TypeStepCompleted, "first", func(context.Context, *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.SubscribeNamed(event.TypeStepCompleted, "second", func(context.Context, *event.Event) error {
			order = append(order, "second")
			return nil
		})

		require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeStepCompleted, 1, nil)))
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("a failing handler does not stop the rest", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		boom := errors.New("boom")
		var ran atomic.Int32

		d.SubscribeNamed(event.TypeJobUpdated, "bad", func(context.Context, *event.Event) error { return boom })
		d.SubscribeNamed(event.TypeJobUpdated, "good", func(context.Context, *event.Event) error {
			ran.Add(1)
			return nil
		})

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeJobUpdated, 1, nil))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int32(1), ran.Load())
		assert.Equal(t, 1, logger.ErrorCount())
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeJobUpdated, func(context.Context, *event.Event) error { panic("kaboom") })

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeJobUpdated, 1, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")
	})

	t.Run("returns error when closed", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Close())
		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeJobUpdated, 1, nil))
		assert.ErrorIs(t, err, ErrClosed)
		assert.Error(t, d.Close())
	})
}

func TestDispatchAsync(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))
	var count atomic.Int32
	for i := 0; i < 3; i++ {
		d.SubscribeNamed(event.TypePaymentMatched, fmt.Sprintf("h%d", i), func(context.Context, *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			count.Add(1)
			return nil
		})
	}

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypePaymentMatched, 1, nil))
	require.NoError(t, d.Close())
	assert.Equal(t, int32(3), count.Load())

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypePaymentMatched, 1, nil))
	assert.Equal(t, int32(3), count.Load())
}

func TestConcurrentSubscribeAndDispatch(t *testing.T) {
	d := NewDispatcher()
	var wg sync.WaitGroup
	var calls atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeJobCreated, func(context.Context, *event.Event) error {
				calls.Add(1)
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), event.NewEvent(event.TypeJobCreated, 1, nil))
		}()
	}
	wg.Wait()

	calls.Store(0)
	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeJobCreated, 1, nil)))
	assert.Equal(t, int32(20), calls.Load())
}
