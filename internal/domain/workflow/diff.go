package workflow

import (
	"time"

	"github.com/scanops/oms/internal/domain/entity"
)

// StepCompletionEvent describes a step whose Completed flag went from false to true in one write
type StepCompletionEvent struct {
	Index       int                  `json:"index"`
	StepName    string               `json:"stepName"`
	CompletedBy string               `json:"completedBy,omitempty"`
	CompletedAt time.Time            `json:"completedAt"`
	Template    *entity.TemplateStep `json:"template,omitempty"`
}

// DetectCompletions compares steps index by index. A step with no counterpart
// in prev counts as previously incomplete. Events come back in array order.
func DetectCompletions(prev, next []entity.WorkflowStep) []StepCompletionEvent {
	var events []StepCompletionEvent
	for i, step := range next {
		if !step.Completed {
			continue
		}
		if i < len(prev) && prev[i].Completed {
			continue
		}
		ev := StepCompletionEvent{
			Index:       i,
			StepName:    step.StepName,
			CompletedBy: step.CompletedBy,
		}
		if step.CompletedAt != nil {
			ev.CompletedAt = *step.CompletedAt
		}
		events = append(events, ev)
	}
	return events
}
