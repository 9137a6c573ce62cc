// Package pipeline runs the ordered stages applied to every job write.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Operation is the kind of job write being processed
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// TemplateLookup fetches workflow templates, returning nil when absent
type TemplateLookup interface {
	GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error)
}

// ClientLookup fetches clients, returning nil when absent
type ClientLookup interface {
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
}

// Context carries what stages need to know about the write beyond the draft itself
type Context struct {
	Op        Operation
	Previous  *entity.Job
	Actor     string
	Now       time.Time
	Templates TemplateLookup
	Clients   ClientLookup
	Logger    Logger

	templates map[int64]*entity.WorkflowTemplate
}

// Template returns the template with the given id, caching lookups for the run
func (c *Context) Template(ctx context.Context, id int64) (*entity.WorkflowTemplate, error) {
	if tpl, ok := c.templates[id]; ok {
		return tpl, nil
	}
	tpl, err := c.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load workflow template %d: %w", id, err)
	}
	if c.templates == nil {
		c.templates = make(map[int64]*entity.WorkflowTemplate)
	}
	c.templates[id] = tpl
	return tpl, nil
}

// Draft is the job being written plus what the stages learned about it
type Draft struct {
	Job            *entity.Job
	Completions    []workflow.StepCompletionEvent
	Rematerialized bool
}

// StageFunc transforms a draft. Errors abort the write.
type StageFunc func(ctx context.Context, pc *Context, d Draft) (Draft, error)

// Stage is a named pipeline step
type Stage struct {
	Name string
	Run  StageFunc
}

// Pipeline applies stages in declaration order
type Pipeline struct {
	stages []Stage
}

// New creates a pipeline from the given stages
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Default is the job change pipeline. Materialization must precede completion
// detection so a template swap never fires triggers for the discarded steps.
func Default() *Pipeline {
	return New(
		Stage{"applyClientDefaultWorkflow", ApplyClientDefaultWorkflow},
		Stage{"populateWorkflowSteps", PopulateWorkflowSteps},
		Stage{"autoGenerateExpenses", AutoGenerateExpenses},
		Stage{"workflowStepCompletion", WorkflowStepCompletion},
		Stage{"updateInvoiceStatus", UpdateInvoiceStatus},
		Stage{"recalculateFinancials", RecalculateFinancials},
	)
}

// Stages lists stage names in execution order
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Run applies every stage to a copy of job
func (p *Pipeline) Run(ctx context.Context, pc *Context, job *entity.Job) (Draft, error) {
	if pc.Now.IsZero() {
		pc.Now = time.Now()
	}
	if pc.Op == OpUpdate && pc.Previous == nil {
		return Draft{}, fmt.Errorf("update pipeline requires the previous job")
	}

	d := Draft{Job: job.Clone()}
	for _, stage := range p.stages {
		var err error
		d, err = stage.Run(ctx, pc, d)
		if err != nil {
			return Draft{}, fmt.Errorf("stage %s: %w", stage.Name, err)
		}
	}
	return d, nil
}
