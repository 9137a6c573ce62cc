package entity

import "time"

// RecurringIntentStatus is the state of a recurring invoice intent
type RecurringIntentStatus string

const (
	RecurringIntentScheduled RecurringIntentStatus = "scheduled"
	RecurringIntentDue       RecurringIntentStatus = "due"
)

// RecurringInvoiceIntent records that a completed step asked for a follow-up invoice.
// Nothing generates the invoice yet; the sweeper only flags intents as due.
type RecurringInvoiceIntent struct {
	ID        int64                 `json:"id"`
	Job       Relation[Job]         `json:"job"`
	StepName  string                `json:"stepName"`
	DelayDays int                   `json:"delayDays"`
	Amount    float64               `json:"amount"`
	DueAt     time.Time             `json:"dueAt"`
	Status    RecurringIntentStatus `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
}
