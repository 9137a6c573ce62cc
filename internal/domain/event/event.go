package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/workflow"
)

// Payload keys carrying typed values
const (
	KeyJob        = "job"
	KeyCompletion = "completion"
	KeyPayment    = "payment"
	KeyActor      = "actor"
	KeyOldStatus  = "old_status"
	KeyNewStatus  = "new_status"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	JobID         int64                  `json:"job_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, jobID int64, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, jobID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, jobID int64, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		JobID:         jobID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// NewStepCompleted announces one newly completed workflow step on a stored job
func NewStepCompleted(job *entity.Job, completion workflow.StepCompletionEvent, actor, correlationID string) *Event {
	return NewEventWithCorrelation(TypeStepCompleted, job.ID, map[string]interface{}{
		KeyJob:        job,
		KeyCompletion: completion,
		KeyActor:      actor,
	}, correlationID)
}

// WithPayload returns a copy of the event with an added payload key
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	copied := *e
	copied.Payload = newPayload
	return &copied
}

// Job returns the job carried by the event, if any
func (e *Event) Job() *entity.Job {
	job, _ := e.Payload[KeyJob].(*entity.Job)
	return job
}

// Payment returns the payment carried by the event, if any
func (e *Event) Payment() *entity.Payment {
	p, _ := e.Payload[KeyPayment].(*entity.Payment)
	return p
}

// Completion returns the step completion carried by a step event
func (e *Event) Completion() (workflow.StepCompletionEvent, bool) {
	c, ok := e.Payload[KeyCompletion].(workflow.StepCompletionEvent)
	return c, ok
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case entity.JobStatus:
			return string(v)
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
