package entity

// JobStatus represents where a job is in the capture lifecycle
type JobStatus string

const (
	JobStatusRequest   JobStatus = "request"
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusScanned   JobStatus = "scanned"
	JobStatusQC        JobStatus = "qc"
	JobStatusDone      JobStatus = "done"
	JobStatusArchived  JobStatus = "archived"
)

var validJobStatuses = map[JobStatus]bool{
	JobStatusRequest:   true,
	JobStatusScheduled: true,
	JobStatusScanned:   true,
	JobStatusQC:        true,
	JobStatusDone:      true,
	JobStatusArchived:  true,
}

// IsValid returns true if the status is a known job status
func (s JobStatus) IsValid() bool {
	return validJobStatuses[s]
}

// IsTerminal returns true for archived jobs
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusArchived
}

// String returns the string representation of the status
func (s JobStatus) String() string {
	return string(s)
}

// InvoiceStatus tracks billing progress of a job
type InvoiceStatus string

const (
	InvoiceStatusNone  InvoiceStatus = ""
	InvoiceStatusReady InvoiceStatus = "ready"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)

// IsValid returns true if the invoice status is known
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusNone, InvoiceStatusReady, InvoiceStatusSent, InvoiceStatusPaid:
		return true
	default:
		return false
	}
}

// AwaitingPayment reports whether an invoice exists or is due and has not been paid
func (s InvoiceStatus) AwaitingPayment() bool {
	return s == InvoiceStatusReady || s == InvoiceStatusSent
}

// String returns the string representation of the invoice status
func (s InvoiceStatus) String() string {
	return string(s)
}

// PaymentStatus represents reconciliation state of a bank deposit
type PaymentStatus string

const (
	PaymentStatusUnmatched PaymentStatus = "unmatched"
	PaymentStatusMatched   PaymentStatus = "matched"
)

// IsValid returns true if the payment status is known
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusUnmatched || s == PaymentStatusMatched
}

// String returns the string representation of the payment status
func (s PaymentStatus) String() string {
	return string(s)
}

// OutboxStatus represents delivery state of an outbox task
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	OutboxStatusDead      OutboxStatus = "dead"
)

// IsValid returns true if the outbox status is known
func (s OutboxStatus) IsValid() bool {
	switch s {
	case OutboxStatusPending, OutboxStatusDelivered, OutboxStatusDead:
		return true
	default:
		return false
	}
}

// String returns the string representation of the outbox status
func (s OutboxStatus) String() string {
	return string(s)
}
