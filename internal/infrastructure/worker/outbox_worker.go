package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/lifecycle"
)

// OutboxWorkerConfig holds configuration for the outbox worker
type OutboxWorkerConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	DeliveryTimeout time.Duration

	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultOutboxWorkerConfig returns default configuration
func DefaultOutboxWorkerConfig() OutboxWorkerConfig {
	return OutboxWorkerConfig{
		PollInterval:      5 * time.Second,
		BatchSize:         20,
		DeliveryTimeout:   10 * time.Second,
		InitialBackoff:    30 * time.Second,
		BackoffMultiplier: 2,
		MaxBackoff:        30 * time.Minute,
	}
}

// OutboxWorker delivers pending outbox tasks and reschedules failures
type OutboxWorker struct {
	config     OutboxWorkerConfig
	outboxRepo port.OutboxRepository
	deliverers map[entity.OutboxKind]Deliverer
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	delivered int
	failed    int
}

// NewOutboxWorker creates a new outbox worker
func NewOutboxWorker(
	config OutboxWorkerConfig,
	outboxRepo port.OutboxRepository,
	deliverers map[entity.OutboxKind]Deliverer,
	logger *zap.Logger,
) *OutboxWorker {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOutboxWorkerConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultOutboxWorkerConfig().PollInterval
	}
	return &OutboxWorker{
		config:     config,
		outboxRepo: outboxRepo,
		deliverers: deliverers,
		logger:     logger,
		now:        time.Now,
	}
}

// Name returns the worker name for identification
func (w *OutboxWorker) Name() string {
	return "OutboxWorker"
}

// Start begins the polling loop
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("outbox worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("OutboxWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(ctx)
	return nil
}

// Stop cancels the loop and waits for the in-flight batch to finish
func (w *OutboxWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done

	w.mu.Lock()
	w.logger.Info("OutboxWorker stopped",
		zap.Int("delivered_count", w.delivered),
		zap.Int("failed_count", w.failed))
	w.mu.Unlock()
	return nil
}

func (w *OutboxWorker) pollLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("Failed to process outbox batch", zap.Error(err))
			}
		}
	}
}

// RunOnce delivers one batch of due tasks and returns how many were attempted
func (w *OutboxWorker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.outboxRepo.ListDue(ctx, w.now(), w.config.BatchSize)
	if err != nil {
		return 0, err
	}

	for i, task := range tasks {
		if ctx.Err() != nil {
			return i, nil
		}
		w.process(ctx, task)
	}
	return len(tasks), nil
}

func (w *OutboxWorker) process(ctx context.Context, task *entity.OutboxTask) {
	err := w.deliver(ctx, task)

	task.Attempts++
	machine := lifecycle.Outbox(task.Status, task.Attempts, task.MaxAttempts)
	trigger := lifecycle.TriggerDelivered
	if err != nil {
		trigger = lifecycle.TriggerFailed
	}
	if ferr := machine.Fire(ctx, trigger); ferr != nil {
		w.logger.Error("Outbox task in unexpected state",
			zap.String("task_id", task.ID),
			zap.String("status", task.Status.String()),
			zap.Error(ferr))
		return
	}
	task.Status = machine.State()

	switch {
	case err == nil:
		task.LastError = ""
		w.logger.Info("Outbox task delivered",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.Int("attempts", task.Attempts))
	case task.Status == entity.OutboxStatusDead:
		task.LastError = err.Error()
		w.logger.Error("Outbox task dead after max attempts",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.Int("attempts", task.Attempts),
			zap.Error(err))
	default:
		task.LastError = err.Error()
		delay := w.Backoff(task.Attempts)
		task.NextAttemptAt = w.now().Add(delay)
		w.logger.Warn("Outbox delivery failed, rescheduled",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.Int("attempts", task.Attempts),
			zap.Duration("retry_in", delay),
			zap.Error(err))
	}

	w.mu.Lock()
	if err == nil {
		w.delivered++
	} else {
		w.failed++
	}
	w.mu.Unlock()

	// The outcome is recorded even when shutdown cancelled the delivery.
	if uerr := w.outboxRepo.Update(context.WithoutCancel(ctx), task); uerr != nil {
		w.logger.Error("Failed to record outbox outcome",
			zap.String("task_id", task.ID),
			zap.Error(uerr))
	}
}

func (w *OutboxWorker) deliver(ctx context.Context, task *entity.OutboxTask) error {
	d, ok := w.deliverers[task.Kind]
	if !ok {
		return fmt.Errorf("no deliverer for outbox kind %q", task.Kind)
	}

	if w.config.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.DeliveryTimeout)
		defer cancel()
	}
	return d.Deliver(ctx, task)
}

// Backoff returns the delay before the next attempt after the given number of failures
func (w *OutboxWorker) Backoff(attempts int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     w.config.InitialBackoff,
		RandomizationFactor: 0,
		Multiplier:          w.config.BackoffMultiplier,
		MaxInterval:         w.config.MaxBackoff,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.Reset()

	delay := b.InitialInterval
	for i := 0; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
