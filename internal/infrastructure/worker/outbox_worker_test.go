package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/infrastructure/persistence/sqlite"
	"github.com/scanops/oms/internal/testutil"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []port.EmailMessage
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg port.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newOutboxFixture(t *testing.T, deliverers map[entity.OutboxKind]Deliverer) (*OutboxWorker, port.OutboxRepository, *fakeClock) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repo := sqlite.NewOutboxRepository(db, zap.NewNop())

	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	w := NewOutboxWorker(OutboxWorkerConfig{
		BatchSize:         10,
		DeliveryTimeout:   time.Second,
		InitialBackoff:    time.Second,
		BackoffMultiplier: 2,
		MaxBackoff:        10 * time.Second,
	}, repo, deliverers, zap.NewNop())
	w.now = clock.Now
	return w, repo, clock
}

func enqueue(t *testing.T, repo port.OutboxRepository, kind entity.OutboxKind, payload interface{}, maxAttempts int, at time.Time) *entity.OutboxTask {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	task := &entity.OutboxTask{
		ID:            string(kind) + "-" + at.Format(time.RFC3339Nano),
		Kind:          kind,
		Payload:       raw,
		Status:        entity.OutboxStatusPending,
		MaxAttempts:   maxAttempts,
		NextAttemptAt: at,
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func TestOutboxWorker_DeliversEmail(t *testing.T) {
	sender := &recordingSender{}
	w, repo, clock := newOutboxFixture(t, Deliverers(sender, nil, nil))
	ctx := context.Background()

	task := enqueue(t, repo, entity.OutboxKindEmail, entity.EmailPayload{To: "ap@acme.test", Subject: "Done", HTML: "<p>ok</p>"}, 3, clock.Now())

	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ap@acme.test", sender.sent[0].To)
	assert.Equal(t, "Done", sender.sent[0].Subject)

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusDelivered, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Empty(t, stored.LastError)

	n, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxWorker_RetriesWithBackoffThenDies(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp unavailable")}
	w, repo, clock := newOutboxFixture(t, Deliverers(sender, nil, nil))
	ctx := context.Background()

	task := enqueue(t, repo, entity.OutboxKindEmail, entity.EmailPayload{To: "x@y.test"}, 3, clock.Now())

	_, err := w.RunOnce(ctx)
	require.NoError(t, err)
	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "smtp unavailable", stored.LastError)
	assert.WithinDuration(t, clock.Now().Add(time.Second), stored.NextAttemptAt, time.Millisecond)

	// not due yet
	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(time.Second)
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)
	stored, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Attempts)
	assert.WithinDuration(t, clock.Now().Add(2*time.Second), stored.NextAttemptAt, time.Millisecond)

	clock.Advance(2 * time.Second)
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)
	stored, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusDead, stored.Status)
	assert.Equal(t, 3, stored.Attempts)

	clock.Advance(time.Hour)
	n, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxWorker_UnroutedKindFails(t *testing.T) {
	w, repo, clock := newOutboxFixture(t, Deliverers(&recordingSender{}, nil, nil))
	ctx := context.Background()

	task := enqueue(t, repo, entity.OutboxKindChatMessage, entity.ChatMessagePayload{OpenID: "ou_1", Text: "hi"}, 1, clock.Now())

	_, err := w.RunOnce(ctx)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusDead, stored.Status)
	assert.Contains(t, stored.LastError, "no deliverer")
}

func TestOutboxWorker_DeliveryTimeout(t *testing.T) {
	slow := DelivererFunc(func(ctx context.Context, task *entity.OutboxTask) error {
		<-ctx.Done()
		return ctx.Err()
	})
	w, repo, clock := newOutboxFixture(t, map[entity.OutboxKind]Deliverer{entity.OutboxKindClientNotify: slow})
	w.config.DeliveryTimeout = 20 * time.Millisecond
	ctx := context.Background()

	task := enqueue(t, repo, entity.OutboxKindClientNotify, entity.ClientNotifyPayload{JobID: 7}, 2, clock.Now())

	_, err := w.RunOnce(ctx)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusPending, stored.Status)
	assert.Contains(t, stored.LastError, "deadline exceeded")
}

func TestOutboxWorker_Backoff(t *testing.T) {
	w := NewOutboxWorker(OutboxWorkerConfig{
		InitialBackoff:    time.Second,
		BackoffMultiplier: 2,
		MaxBackoff:        10 * time.Second,
	}, nil, nil, zap.NewNop())

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, expected := range want {
		assert.InDelta(t, float64(expected), float64(w.Backoff(i+1)), float64(time.Millisecond), "attempt %d", i+1)
	}
}

func TestOutboxWorker_StartStop(t *testing.T) {
	sender := &recordingSender{}
	w, repo, clock := newOutboxFixture(t, Deliverers(sender, nil, nil))
	w.config.PollInterval = 10 * time.Millisecond
	enqueue(t, repo, entity.OutboxKindEmail, entity.EmailPayload{To: "a@b.test"}, 3, clock.Now())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
