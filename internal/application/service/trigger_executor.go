package service

import (
	"context"
	"fmt"
	"time"

	"github.com/scanops/oms/internal/application/dispatcher"
	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/event"
	"github.com/scanops/oms/internal/domain/workflow"
)

// TriggerExecutor runs the automations attached to completed workflow steps.
// It only writes rows, so it runs inside the job write's transaction.
type TriggerExecutor struct {
	userRepo         port.UserRepository
	techRepo         port.TechnicianRepository
	clientRepo       port.ClientRepository
	notificationRepo port.NotificationRepository
	intentRepo       port.RecurringIntentRepository
	outbox           port.Outbox
	renderer         port.EmailRenderer
	logger           Logger
}

// NewTriggerExecutor creates a new TriggerExecutor
func NewTriggerExecutor(
	userRepo port.UserRepository,
	techRepo port.TechnicianRepository,
	clientRepo port.ClientRepository,
	notificationRepo port.NotificationRepository,
	intentRepo port.RecurringIntentRepository,
	outbox port.Outbox,
	renderer port.EmailRenderer,
	logger Logger,
) *TriggerExecutor {
	return &TriggerExecutor{
		userRepo:         userRepo,
		techRepo:         techRepo,
		clientRepo:       clientRepo,
		notificationRepo: notificationRepo,
		intentRepo:       intentRepo,
		outbox:           outbox,
		renderer:         renderer,
		logger:           logger,
	}
}

// Register subscribes the executor to step completion events
func (e *TriggerExecutor) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeStepCompleted, "trigger-executor", e.Handle)
}

// Handle evaluates one completion. Each trigger is isolated: failures are logged and the rest still run.
func (e *TriggerExecutor) Handle(ctx context.Context, evt *event.Event) error {
	job := evt.Job()
	completion, ok := evt.Completion()
	if job == nil || !ok {
		return fmt.Errorf("event %s carries no job completion", evt.ID)
	}
	if completion.Template == nil {
		return nil
	}
	triggers := completion.Template.Triggers

	client := e.loadClient(ctx, job)
	clientName := ""
	if client != nil {
		clientName = client.Name
	}

	if triggers.SendNotification {
		if err := e.notifyStaff(ctx, job, completion, clientName); err != nil {
			e.logger.Error("Staff notification trigger failed", "error", err, "job_id", job.ID, "step", completion.StepName)
		}
	}
	if triggers.SendClientEmail {
		if err := e.emailClient(ctx, job, completion, client); err != nil {
			e.logger.Error("Client email trigger failed", "error", err, "job_id", job.ID, "step", completion.StepName)
		}
	}
	if triggers.CreateRecurringInvoice {
		if err := e.scheduleRecurringInvoice(ctx, job, completion); err != nil {
			e.logger.Error("Recurring invoice trigger failed", "error", err, "job_id", job.ID, "step", completion.StepName)
		}
	}
	return nil
}

func (e *TriggerExecutor) loadClient(ctx context.Context, job *entity.Job) *entity.Client {
	if !job.Client.IsSet() {
		return nil
	}
	client, err := e.clientRepo.GetByID(ctx, job.Client.ID())
	if err != nil {
		e.logger.Error("Failed to load job client", "error", err, "job_id", job.ID, "client_id", job.Client.ID())
		return nil
	}
	if client == nil {
		e.logger.Warn("Job client not found", "job_id", job.ID, "client_id", job.Client.ID())
	}
	return client
}

// recipients resolves roles to users. The tech role means the job's own technician.
func (e *TriggerExecutor) recipients(ctx context.Context, job *entity.Job, roles []string) ([]*entity.User, error) {
	seen := make(map[int64]bool)
	var users []*entity.User
	add := func(u *entity.User) {
		if u == nil || seen[u.ID] {
			return
		}
		seen[u.ID] = true
		users = append(users, u)
	}

	for _, r := range roles {
		role := entity.Role(r)
		switch {
		case role == entity.RoleTech:
			user, err := e.jobTechnicianUser(ctx, job)
			if err != nil {
				return nil, err
			}
			add(user)
		case role.IsValid():
			byRole, err := e.userRepo.ListByRole(ctx, role)
			if err != nil {
				return nil, err
			}
			for _, u := range byRole {
				add(u)
			}
		default:
			e.logger.Warn("Unknown notification recipient role", "job_id", job.ID, "role", r)
		}
	}
	return users, nil
}

func (e *TriggerExecutor) jobTechnicianUser(ctx context.Context, job *entity.Job) (*entity.User, error) {
	if !job.Tech.IsSet() {
		e.logger.Info("Job has no technician, tech recipient skipped", "job_id", job.ID)
		return nil, nil
	}
	tech, err := e.techRepo.GetByID(ctx, job.Tech.ID())
	if err != nil {
		return nil, err
	}
	if tech == nil || !tech.User.IsSet() {
		e.logger.Info("Technician has no linked user, tech recipient skipped", "job_id", job.ID, "tech_id", job.Tech.ID())
		return nil, nil
	}
	return e.userRepo.GetByID(ctx, tech.User.ID())
}

func (e *TriggerExecutor) notifyStaff(ctx context.Context, job *entity.Job, completion workflow.StepCompletionEvent, clientName string) error {
	triggers := completion.Template.Triggers
	users, err := e.recipients(ctx, job, triggers.NotificationRecipients)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	if len(users) == 0 {
		e.logger.Info("No notification recipients", "job_id", job.ID, "step", completion.StepName)
		return nil
	}

	title := fmt.Sprintf("%s: %s completed", job.JobID, completion.StepName)
	message := workflow.RenderMessage(triggers.NotificationMessage, workflow.NewMessageData(job, clientName, completion.StepName))

	for _, u := range users {
		n := &entity.Notification{
			User:       entity.Ref[entity.User](u.ID),
			Type:       entity.NotificationTypeWorkflowStep,
			Title:      title,
			Message:    message,
			RelatedJob: entity.Ref[entity.Job](job.ID),
		}
		if err := e.notificationRepo.Create(ctx, n); err != nil {
			e.logger.Error("Failed to store notification", "error", err, "job_id", job.ID, "user_id", u.ID)
			continue
		}
		if u.LarkOpenID == "" {
			continue
		}
		if _, err := e.outbox.Enqueue(ctx, entity.OutboxKindChatMessage, entity.ChatMessagePayload{
			OpenID: u.LarkOpenID,
			Text:   title + "\n" + message,
		}); err != nil {
			e.logger.Error("Failed to queue chat message", "error", err, "job_id", job.ID, "user_id", u.ID)
		}
	}

	e.logger.Info("Step notification sent", "job_id", job.ID, "step", completion.StepName, "recipients", len(users))
	return nil
}

func (e *TriggerExecutor) emailClient(ctx context.Context, job *entity.Job, completion workflow.StepCompletionEvent, client *entity.Client) error {
	if client == nil || client.Email == "" {
		return nil
	}

	tmpl := completion.Template.Triggers.EmailTemplate
	if tmpl == "" {
		tmpl = entity.EmailTemplateGeneric
	}
	data := workflow.NewMessageData(job, client.Name, completion.StepName)
	msg, err := e.renderer.Render(tmpl, port.EmailData{
		ClientName: client.Name,
		JobCode:    job.JobID,
		ModelName:  job.ModelName,
		StepName:   completion.StepName,
		TargetDate: data.TargetDate,
	})
	if err != nil {
		return fmt.Errorf("render %s email: %w", tmpl, err)
	}

	task, err := e.outbox.Enqueue(ctx, entity.OutboxKindEmail, entity.EmailPayload{
		To:      client.Email,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		JobID:   job.ID,
	})
	if err != nil {
		return err
	}
	e.logger.Info("Client email queued", "job_id", job.ID, "template", tmpl, "task_id", task.ID)
	return nil
}

// scheduleRecurringInvoice records when a follow-up invoice falls due. Invoices are not generated here.
func (e *TriggerExecutor) scheduleRecurringInvoice(ctx context.Context, job *entity.Job, completion workflow.StepCompletionEvent) error {
	triggers := completion.Template.Triggers
	amount := triggers.RecurringInvoiceAmount
	if amount == 0 {
		amount = job.QuotedTotal()
	}
	start := completion.CompletedAt
	if start.IsZero() {
		start = time.Now()
	}

	intent := &entity.RecurringInvoiceIntent{
		Job:       entity.Ref[entity.Job](job.ID),
		StepName:  completion.StepName,
		DelayDays: triggers.RecurringInvoiceDelay,
		Amount:    amount,
		DueAt:     start.AddDate(0, 0, triggers.RecurringInvoiceDelay),
	}
	if err := e.intentRepo.Create(ctx, intent); err != nil {
		return err
	}
	e.logger.Info("Recurring invoice scheduled",
		"job_id", job.ID,
		"step", completion.StepName,
		"amount", amount,
		"due_at", intent.DueAt,
	)
	return nil
}
