package lifecycle

import (
	"context"

	"github.com/scanops/oms/internal/domain/entity"
)

// OutboxTrigger drives outbox delivery transitions
type OutboxTrigger string

const (
	TriggerDelivered OutboxTrigger = "DELIVERED"
	TriggerFailed    OutboxTrigger = "FAILED"
	TriggerRetry     OutboxTrigger = "RETRY"
)

// Outbox returns a delivery machine for a task. attempts counts the attempt
// being recorded; a failure with attempts remaining keeps the task pending.
func Outbox(current entity.OutboxStatus, attempts, maxAttempts int) Machine[entity.OutboxStatus, OutboxTrigger] {
	hasAttemptsLeft := func(context.Context) bool {
		return attempts < maxAttempts
	}

	b := NewBuilder[entity.OutboxStatus, OutboxTrigger]()
	b.Configure(entity.OutboxStatusPending).
		Permit(TriggerDelivered, entity.OutboxStatusDelivered).
		PermitIf(TriggerFailed, entity.OutboxStatusPending, hasAttemptsLeft).
		Permit(TriggerFailed, entity.OutboxStatusDead)
	b.Configure(entity.OutboxStatusDead).
		Permit(TriggerRetry, entity.OutboxStatusPending)

	return b.Build(current)
}
