package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
)

// RecurringInvoiceSweeper flags recurring invoice intents whose due date has passed
type RecurringInvoiceSweeper struct {
	schedule   string
	batchSize  int
	intentRepo port.RecurringIntentRepository
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewRecurringInvoiceSweeper creates a sweeper running on a standard cron spec
func NewRecurringInvoiceSweeper(schedule string, intentRepo port.RecurringIntentRepository, logger *zap.Logger) *RecurringInvoiceSweeper {
	return &RecurringInvoiceSweeper{
		schedule:   schedule,
		batchSize:  100,
		intentRepo: intentRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// Name returns the worker name for identification
func (s *RecurringInvoiceSweeper) Name() string {
	return "RecurringInvoiceSweeper"
}

// Start registers the sweep on the cron schedule
func (s *RecurringInvoiceSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("recurring invoice sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("Recurring invoice sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid recurring schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("RecurringInvoiceSweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep
func (s *RecurringInvoiceSweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("RecurringInvoiceSweeper stopped")
	return nil
}

// Sweep marks every scheduled intent due by now and returns how many changed
func (s *RecurringInvoiceSweeper) Sweep(ctx context.Context) (int, error) {
	marked := 0
	for {
		intents, err := s.intentRepo.ListScheduledBefore(ctx, s.now(), s.batchSize)
		if err != nil {
			return marked, err
		}
		if len(intents) == 0 {
			return marked, nil
		}

		for _, intent := range intents {
			if err := s.intentRepo.MarkDue(ctx, intent.ID); err != nil {
				return marked, err
			}
			marked++
			s.logger.Info("Recurring invoice due",
				zap.Int64("intent_id", intent.ID),
				zap.Int64("job_id", intent.Job.ID()),
				zap.String("step_name", intent.StepName),
				zap.Float64("amount", intent.Amount),
				zap.Time("due_at", intent.DueAt))
		}

		if len(intents) < s.batchSize {
			return marked, nil
		}
	}
}
