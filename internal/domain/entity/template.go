package entity

import (
	"sort"
	"time"
)

// Built-in client email templates
const (
	EmailTemplateJobComplete = "job-complete"
	EmailTemplateGeneric     = "generic"
)

// WorkflowTemplate is an ordered definition of the steps a job goes through
type WorkflowTemplate struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name" validate:"required,max=200"`
	JobType     string         `json:"jobType" validate:"max=100"`
	IsActive    bool           `json:"isActive"`
	Description string         `json:"description"`
	Steps       []TemplateStep `json:"steps" validate:"required,min=1,dive"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TemplateStep is a single step definition inside a workflow template
type TemplateStep struct {
	Name                 string       `json:"name" validate:"required,max=200"`
	Description          string       `json:"description"`
	Order                int          `json:"order"`
	StatusMapping        JobStatus    `json:"statusMapping,omitempty" validate:"omitempty,oneof=request scheduled scanned qc done archived"`
	RequiredRole         string       `json:"requiredRole,omitempty"`
	ActionLabel          string       `json:"actionLabel,omitempty"`
	RequiresDeliverables bool         `json:"requiresDeliverables"`
	Triggers             StepTriggers `json:"triggers"`
}

// StepTriggers are the automations fired when a step is completed
type StepTriggers struct {
	SendNotification       bool     `json:"sendNotification"`
	NotificationRecipients []string `json:"notificationRecipients,omitempty"`
	NotificationMessage    string   `json:"notificationMessage,omitempty"`
	SendClientEmail        bool     `json:"sendClientEmail"`
	EmailTemplate          string   `json:"emailTemplate,omitempty" validate:"omitempty,oneof=job-complete generic"`
	CreateInvoice          bool     `json:"createInvoice"`
	CreateRecurringInvoice bool     `json:"createRecurringInvoice"`
	RecurringInvoiceDelay  int      `json:"recurringInvoiceDelay,omitempty" validate:"gte=0"`
	RecurringInvoiceAmount float64  `json:"recurringInvoiceAmount,omitempty" validate:"gte=0"`
}

// OrderedSteps returns the steps sorted by Order; steps sharing an order keep their position
func (t *WorkflowTemplate) OrderedSteps() []TemplateStep {
	steps := make([]TemplateStep, len(t.Steps))
	copy(steps, t.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	return steps
}

// FindStep returns the first step with the given name
func (t *WorkflowTemplate) FindStep(name string) (*TemplateStep, bool) {
	for i := range t.Steps {
		if t.Steps[i].Name == name {
			step := t.Steps[i]
			return &step, true
		}
	}
	return nil, false
}

// DuplicateStepNames lists step names used more than once
func (t *WorkflowTemplate) DuplicateStepNames() []string {
	seen := make(map[string]int, len(t.Steps))
	var dups []string
	for _, s := range t.Steps {
		seen[s.Name]++
		if seen[s.Name] == 2 {
			dups = append(dups, s.Name)
		}
	}
	return dups
}
