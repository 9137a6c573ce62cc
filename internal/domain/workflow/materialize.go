package workflow

import "github.com/scanops/oms/internal/domain/entity"

// Materialize builds fresh job steps from a template, ordered by step order.
// Every step starts incomplete; nothing from a previous materialization survives.
func Materialize(tpl *entity.WorkflowTemplate) []entity.WorkflowStep {
	ordered := tpl.OrderedSteps()
	steps := make([]entity.WorkflowStep, len(ordered))
	for i, s := range ordered {
		steps[i] = entity.WorkflowStep{StepName: s.Name}
	}
	return steps
}
