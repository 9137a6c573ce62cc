package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/lifecycle"
)

func TestOutboxService_Enqueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.outbox.Enqueue(ctx, entity.OutboxKindEmail, entity.EmailPayload{To: "a@b.test", Subject: "Hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, entity.OutboxStatusPending, task.Status)
	assert.Equal(t, 3, task.MaxAttempts)

	stored, err := env.outboxRepo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	var payload entity.EmailPayload
	require.NoError(t, json.Unmarshal(stored.Payload, &payload))
	assert.Equal(t, "a@b.test", payload.To)
}

func TestOutboxService_Retry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.outbox.Enqueue(ctx, entity.OutboxKindClientNotify, entity.ClientNotifyPayload{JobID: 1})
	require.NoError(t, err)

	_, err = env.outbox.Retry(ctx, task.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	task.Status = entity.OutboxStatusDead
	task.Attempts = 3
	task.LastError = "connection refused"
	require.NoError(t, env.outboxRepo.Update(ctx, task))

	retried, err := env.outbox.Retry(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusPending, retried.Status)
	assert.Equal(t, 0, retried.Attempts)

	dead, err := env.outbox.List(ctx, entity.OutboxStatusDead, 0)
	require.NoError(t, err)
	assert.Empty(t, dead)

	_, err = env.outbox.Retry(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.outbox.List(ctx, "stuck", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewOutboxService_DefaultMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	svc := NewOutboxService(env.outboxRepo, 0, env.logger)

	task, err := svc.Enqueue(context.Background(), entity.OutboxKindChatMessage, entity.ChatMessagePayload{OpenID: "ou"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAttempts, task.MaxAttempts)
}
