package event

// Type identifies the type of domain event
type Type string

const (
	TypeJobCreated       Type = "job.created"
	TypeJobUpdated       Type = "job.updated"
	TypeJobStatusChanged Type = "job.status_changed"
	TypeStepCompleted    Type = "job.step_completed"
	TypePaymentMatched   Type = "payment.matched"
	TypePaymentUnmatched Type = "payment.unmatched"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeJobCreated,
		TypeJobUpdated,
		TypeJobStatusChanged,
		TypeStepCompleted,
		TypePaymentMatched,
		TypePaymentUnmatched:
		return true
	default:
		return false
	}
}
