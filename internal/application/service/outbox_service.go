package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/lifecycle"
)

// DefaultMaxAttempts applies when the outbox is built without a limit
const DefaultMaxAttempts = 5

// OutboxService queues side effects and lets operators inspect and retry them
type OutboxService interface {
	port.Outbox
	List(ctx context.Context, status entity.OutboxStatus, limit int) ([]*entity.OutboxTask, error)
	// Retry moves a dead task back to pending with a fresh attempt budget
	Retry(ctx context.Context, id string) (*entity.OutboxTask, error)
}

type outboxServiceImpl struct {
	outboxRepo  port.OutboxRepository
	maxAttempts int
	logger      Logger
}

// NewOutboxService creates a new OutboxService
func NewOutboxService(outboxRepo port.OutboxRepository, maxAttempts int, logger Logger) OutboxService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &outboxServiceImpl{
		outboxRepo:  outboxRepo,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Enqueue stores a pending task. It joins the caller's transaction when ctx carries one.
func (s *outboxServiceImpl) Enqueue(ctx context.Context, kind entity.OutboxKind, payload interface{}) (*entity.OutboxTask, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	task := &entity.OutboxTask{
		ID:            uuid.NewString(),
		Kind:          kind,
		Payload:       raw,
		Status:        entity.OutboxStatusPending,
		MaxAttempts:   s.maxAttempts,
		NextAttemptAt: time.Now(),
	}
	if err := s.outboxRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Outbox task queued", "task_id", task.ID, "kind", kind)
	return task, nil
}

func (s *outboxServiceImpl) List(ctx context.Context, status entity.OutboxStatus, limit int) ([]*entity.OutboxTask, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown outbox status %q", ErrInvalidInput, status)
	}
	if limit <= 0 {
		limit = 100
	}
	return s.outboxRepo.List(ctx, status, limit)
}

func (s *outboxServiceImpl) Retry(ctx context.Context, id string) (*entity.OutboxTask, error) {
	task, err := s.outboxRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("outbox task %s: %w", id, ErrNotFound)
	}

	machine := lifecycle.Outbox(task.Status, task.Attempts, task.MaxAttempts)
	if err := machine.Fire(ctx, lifecycle.TriggerRetry); err != nil {
		return nil, fmt.Errorf("retry outbox task %s: %w", id, err)
	}

	task.Status = machine.State()
	task.Attempts = 0
	task.NextAttemptAt = time.Now()
	if err := s.outboxRepo.Update(ctx, task); err != nil {
		s.logger.Error("Failed to retry outbox task", "error", err, "task_id", id)
		return nil, err
	}

	s.logger.Info("Outbox task requeued", "task_id", id, "kind", task.Kind, "last_error", task.LastError)
	return task, nil
}
