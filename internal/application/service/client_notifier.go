package service

import (
	"context"

	"github.com/scanops/oms/internal/application/dispatcher"
	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/event"
	"github.com/scanops/oms/internal/domain/workflow"
)

// ClientMilestoneNotifier turns completed steps into client notifications the
// client opted in to. Delivery goes through the outbox so a failing notify
// endpoint never affects the job write.
type ClientMilestoneNotifier struct {
	clientRepo port.ClientRepository
	outbox     port.Outbox
	logger     Logger
}

// NewClientMilestoneNotifier creates a new ClientMilestoneNotifier
func NewClientMilestoneNotifier(clientRepo port.ClientRepository, outbox port.Outbox, logger Logger) *ClientMilestoneNotifier {
	return &ClientMilestoneNotifier{
		clientRepo: clientRepo,
		outbox:     outbox,
		logger:     logger,
	}
}

// Register subscribes the notifier to step completion events
func (n *ClientMilestoneNotifier) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeStepCompleted, "client-milestone-notifier", n.Handle)
}

func (n *ClientMilestoneNotifier) Handle(ctx context.Context, evt *event.Event) error {
	job := evt.Job()
	completion, ok := evt.Completion()
	if job == nil || !ok {
		return nil
	}

	notificationType, matched := workflow.Classify(completion.StepName)
	if !matched || !job.Client.IsSet() {
		return nil
	}

	client, err := n.clientRepo.GetByID(ctx, job.Client.ID())
	if err != nil {
		return err
	}
	if client == nil {
		n.logger.Warn("Client not found, milestone notification skipped", "job_id", job.ID, "client_id", job.Client.ID())
		return nil
	}
	if !client.NotificationPreferences.Enabled(notificationType) {
		return nil
	}

	task, err := n.outbox.Enqueue(ctx, entity.OutboxKindClientNotify, entity.ClientNotifyPayload{
		JobID:    job.ID,
		Type:     notificationType,
		StepName: completion.StepName,
	})
	if err != nil {
		return err
	}
	n.logger.Info("Client milestone notification queued",
		"job_id", job.ID,
		"client_id", client.ID,
		"type", notificationType,
		"task_id", task.ID,
	)
	return nil
}
