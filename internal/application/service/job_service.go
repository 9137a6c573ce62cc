package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scanops/oms/internal/application/dispatcher"
	"github.com/scanops/oms/internal/application/pipeline"
	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/event"
	"github.com/scanops/oms/internal/domain/workflow"
)

// JobService manages jobs. Every write runs the job change pipeline and the
// resulting domain events inside one transaction.
type JobService interface {
	Create(ctx context.Context, job *entity.Job, actor string) (*entity.Job, error)
	// Update loads the stored job, applies mutate to a copy and writes the result
	Update(ctx context.Context, id int64, actor string, mutate func(job *entity.Job) error) (*entity.Job, error)
	CompleteStep(ctx context.Context, id int64, index int, actor, notes string) (*entity.Job, error)
	Get(ctx context.Context, id int64) (*entity.Job, error)
	List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error)
	// NotifyClient renders the client e-mail for a milestone and queues it
	NotifyClient(ctx context.Context, id int64, notificationType entity.NotificationType) (*entity.OutboxTask, error)
}

type jobServiceImpl struct {
	jobRepo      port.JobRepository
	templateRepo port.TemplateRepository
	clientRepo   port.ClientRepository
	pipeline     *pipeline.Pipeline
	dispatcher   dispatcher.Dispatcher
	renderer     port.EmailRenderer
	outbox       port.Outbox
	txManager    port.TransactionManager
	logger       Logger
}

// NewJobService creates a new JobService
func NewJobService(
	jobRepo port.JobRepository,
	templateRepo port.TemplateRepository,
	clientRepo port.ClientRepository,
	p *pipeline.Pipeline,
	d dispatcher.Dispatcher,
	renderer port.EmailRenderer,
	outbox port.Outbox,
	txManager port.TransactionManager,
	logger Logger,
) JobService {
	return &jobServiceImpl{
		jobRepo:      jobRepo,
		templateRepo: templateRepo,
		clientRepo:   clientRepo,
		pipeline:     p,
		dispatcher:   d,
		renderer:     renderer,
		outbox:       outbox,
		txManager:    txManager,
		logger:       logger,
	}
}

func (s *jobServiceImpl) pipelineContext(op pipeline.Operation, prev *entity.Job, actor string) *pipeline.Context {
	return &pipeline.Context{
		Op:        op,
		Previous:  prev,
		Actor:     actor,
		Now:       time.Now(),
		Templates: s.templateRepo,
		Clients:   s.clientRepo,
		Logger:    s.logger,
	}
}

func validateJob(job *entity.Job) error {
	if strings.TrimSpace(job.ModelName) == "" {
		return fmt.Errorf("%w: modelName is required", ErrInvalidInput)
	}
	if !job.Status.IsValid() {
		return fmt.Errorf("%w: unknown job status %q", ErrInvalidInput, job.Status)
	}
	if !job.InvoiceStatus.IsValid() {
		return fmt.Errorf("%w: unknown invoice status %q", ErrInvalidInput, job.InvoiceStatus)
	}
	return nil
}

// Create stores a new job after running the pipeline
func (s *jobServiceImpl) Create(ctx context.Context, job *entity.Job, actor string) (*entity.Job, error) {
	if job.Status == "" {
		job.Status = entity.JobStatusRequest
	}
	job.StripRelations()
	if err := validateJob(job); err != nil {
		return nil, err
	}

	var created *entity.Job
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		draft, err := s.pipeline.Run(txCtx, s.pipelineContext(pipeline.OpCreate, nil, actor), job)
		if err != nil {
			return fmt.Errorf("run job pipeline: %w", err)
		}
		created = draft.Job

		if created.JobID == "" {
			next, err := s.jobRepo.NextID(txCtx)
			if err != nil {
				return err
			}
			created.JobID = fmt.Sprintf("JOB-%05d", next)
		}

		if err := s.jobRepo.Create(txCtx, created); err != nil {
			return fmt.Errorf("create job: %w", err)
		}

		s.dispatch(txCtx, event.NewEvent(event.TypeJobCreated, created.ID, map[string]interface{}{
			event.KeyJob:   created,
			event.KeyActor: actor,
		}))
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create job", "error", err, "model_name", job.ModelName)
		return nil, err
	}

	s.logger.Info("Job created",
		"job_id", created.ID,
		"job_code", created.JobID,
		"template_id", created.WorkflowTemplate.ID(),
		"steps", len(created.WorkflowSteps),
	)
	return created, nil
}

// Update applies mutate to the stored job. Concurrent updates are last write wins.
func (s *jobServiceImpl) Update(ctx context.Context, id int64, actor string, mutate func(job *entity.Job) error) (*entity.Job, error) {
	var updated *entity.Job
	var completions int

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		prev, err := s.jobRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if prev == nil {
			return fmt.Errorf("job %d: %w", id, ErrNotFound)
		}

		next := prev.Clone()
		if err := mutate(next); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		next.StripRelations()
		next.ID = prev.ID
		next.CreatedAt = prev.CreatedAt
		if next.JobID == "" {
			next.JobID = prev.JobID
		}
		if err := validateJob(next); err != nil {
			return err
		}

		draft, err := s.pipeline.Run(txCtx, s.pipelineContext(pipeline.OpUpdate, prev, actor), next)
		if err != nil {
			return fmt.Errorf("run job pipeline: %w", err)
		}
		updated = draft.Job
		completions = len(draft.Completions)

		if err := s.jobRepo.Update(txCtx, updated); err != nil {
			return fmt.Errorf("update job: %w", err)
		}

		for _, evt := range s.updateEvents(prev, draft, actor) {
			s.dispatch(txCtx, evt)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidInput) {
			s.logger.Error("Failed to update job", "error", err, "job_id", id)
		}
		return nil, err
	}

	s.logger.Info("Job updated",
		"job_id", updated.ID,
		"status", updated.Status,
		"invoice_status", updated.InvoiceStatus,
		"completed_steps", completions,
	)
	return updated, nil
}

func (s *jobServiceImpl) updateEvents(prev *entity.Job, draft pipeline.Draft, actor string) []*event.Event {
	job := draft.Job
	correlationID := uuid.NewString()

	events := []*event.Event{
		event.NewEventWithCorrelation(event.TypeJobUpdated, job.ID, map[string]interface{}{
			event.KeyJob:   job,
			event.KeyActor: actor,
		}, correlationID),
	}
	if prev.Status != job.Status {
		events = append(events, event.NewEventWithCorrelation(event.TypeJobStatusChanged, job.ID, map[string]interface{}{
			event.KeyJob:       job,
			event.KeyActor:     actor,
			event.KeyOldStatus: prev.Status,
			event.KeyNewStatus: job.Status,
		}, correlationID))
	}
	for _, completion := range draft.Completions {
		events = append(events, event.NewStepCompleted(job, completion, actor, correlationID))
	}
	return events
}

// dispatch delivers an event to its handlers. Handler failures never fail the job write.
func (s *jobServiceImpl) dispatch(ctx context.Context, evt *event.Event) {
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Warn("Event handlers reported errors",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"job_id", evt.JobID,
			"error", err,
		)
	}
}

// CompleteStep marks one workflow step completed
func (s *jobServiceImpl) CompleteStep(ctx context.Context, id int64, index int, actor, notes string) (*entity.Job, error) {
	return s.Update(ctx, id, actor, func(job *entity.Job) error {
		if index < 0 || index >= len(job.WorkflowSteps) {
			return fmt.Errorf("step index %d out of range (job has %d steps)", index, len(job.WorkflowSteps))
		}
		step := &job.WorkflowSteps[index]
		if notes != "" {
			step.Notes = notes
		}
		if step.Completed {
			return nil
		}
		now := time.Now()
		step.Completed = true
		step.CompletedAt = &now
		step.CompletedBy = actor
		return nil
	})
}

func (s *jobServiceImpl) Get(ctx context.Context, id int64) (*entity.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get job", "error", err, "job_id", id)
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return job, nil
}

func (s *jobServiceImpl) List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error) {
	jobs, err := s.jobRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list jobs", "error", err)
		return nil, err
	}
	return jobs, nil
}

// NotifyClient queues the client-facing e-mail for a notification type
func (s *jobServiceImpl) NotifyClient(ctx context.Context, id int64, notificationType entity.NotificationType) (*entity.OutboxTask, error) {
	if !notificationType.IsValid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, notificationType)
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Client.IsSet() {
		s.logger.Info("Job has no client, notification skipped", "job_id", id, "type", notificationType)
		return nil, nil
	}
	client, err := s.clientRepo.GetByID(ctx, job.Client.ID())
	if err != nil {
		return nil, err
	}
	if client == nil || client.Email == "" {
		s.logger.Info("Client has no email address, notification skipped",
			"job_id", id,
			"client_id", job.Client.ID(),
			"type", notificationType,
		)
		return nil, nil
	}

	data := workflow.NewMessageData(job, client.Name, "")
	msg, err := s.renderer.RenderNotification(port.EmailData{
		ClientName:       client.Name,
		JobCode:          job.JobID,
		ModelName:        job.ModelName,
		TargetDate:       data.TargetDate,
		NotificationType: notificationType,
	})
	if err != nil {
		return nil, fmt.Errorf("render notification email: %w", err)
	}

	task, err := s.outbox.Enqueue(ctx, entity.OutboxKindEmail, entity.EmailPayload{
		To:      client.Email,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		JobID:   job.ID,
	})
	if err != nil {
		s.logger.Error("Failed to queue client notification", "error", err, "job_id", id)
		return nil, err
	}

	s.logger.Info("Client notification queued", "job_id", id, "type", notificationType, "task_id", task.ID)
	return task, nil
}
