package lifecycle

import "github.com/scanops/oms/internal/domain/entity"

// PaymentTrigger drives payment reconciliation transitions
type PaymentTrigger string

const (
	TriggerMatch   PaymentTrigger = "MATCH"
	TriggerUnmatch PaymentTrigger = "UNMATCH"
)

var paymentBuilder = func() *Builder[entity.PaymentStatus, PaymentTrigger] {
	b := NewBuilder[entity.PaymentStatus, PaymentTrigger]()
	b.Configure(entity.PaymentStatusUnmatched).
		Permit(TriggerMatch, entity.PaymentStatusMatched)
	b.Configure(entity.PaymentStatusMatched).
		Permit(TriggerUnmatch, entity.PaymentStatusUnmatched)
	return b
}()

// Payment returns a reconciliation machine positioned at the payment's current status
func Payment(current entity.PaymentStatus) Machine[entity.PaymentStatus, PaymentTrigger] {
	return paymentBuilder.Build(current)
}
