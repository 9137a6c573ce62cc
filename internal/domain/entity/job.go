package entity

import "time"

// DiscountType selects how a job discount is computed
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Auto-generated expense categories mirrored from payout fields
const (
	ExpenseCategoryVendor   = "vendor"
	ExpenseCategoryTravel   = "travel"
	ExpenseCategoryOffHours = "off_hours"
)

// Job is a single capture engagement for a client
type Job struct {
	ID               int64                      `json:"id"`
	JobID            string                     `json:"jobId"`
	ModelName        string                     `json:"modelName"`
	Client           Relation[Client]           `json:"client"`
	Tech             Relation[Technician]       `json:"tech"`
	WorkflowTemplate Relation[WorkflowTemplate] `json:"workflowTemplate"`
	WorkflowSteps    []WorkflowStep             `json:"workflowSteps"`
	Status           JobStatus                  `json:"status"`
	InvoiceStatus    InvoiceStatus              `json:"invoiceStatus"`
	TargetDate       *time.Time                 `json:"targetDate,omitempty"`

	LineItems        []LineItem `json:"lineItems"`
	ExternalExpenses []Expense  `json:"externalExpenses"`
	Discount         *Discount  `json:"discount,omitempty"`
	TaxRate          float64    `json:"taxRate"`
	Subtotal         float64    `json:"subtotal"`
	DiscountAmount   float64    `json:"discountAmount"`
	TaxAmount        float64    `json:"taxAmount"`
	TotalWithTax     float64    `json:"totalWithTax"`
	VendorPrice      float64    `json:"vendorPrice"`
	TravelPayout     float64    `json:"travelPayout"`
	OffHoursPayout   float64    `json:"offHoursPayout"`
	TotalCosts       float64    `json:"totalCosts"`
	Margin           float64    `json:"margin"`
	MarginPercent    float64    `json:"marginPercent"`

	PaidAt    *time.Time `json:"paidAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// WorkflowStep is the per-job copy of a template step with completion state
type WorkflowStep struct {
	StepName    string     `json:"stepName"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	CompletedBy string     `json:"completedBy,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// LineItem is a billable line on the job quote
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"`
}

// Expense is a cost incurred for the job
type Expense struct {
	Description   string  `json:"description"`
	Category      string  `json:"category,omitempty"`
	Amount        float64 `json:"amount"`
	AutoGenerated bool    `json:"autoGenerated"`
}

// Discount applied before tax
type Discount struct {
	Type   DiscountType `json:"type"`
	Value  float64      `json:"value"`
	Amount float64      `json:"amount"`
}

// QuotedTotal is the amount the client is expected to pay
func (j *Job) QuotedTotal() float64 {
	if j.TotalWithTax != 0 {
		return j.TotalWithTax
	}
	return j.Subtotal
}

// ReferenceDate is the date used to compare a job against a payment
func (j *Job) ReferenceDate() time.Time {
	if j.TargetDate != nil {
		return *j.TargetDate
	}
	return j.UpdatedAt
}

// Clone returns a deep copy so stages can mutate a draft without touching the stored document
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.WorkflowSteps != nil {
		c.WorkflowSteps = make([]WorkflowStep, len(j.WorkflowSteps))
		for i, s := range j.WorkflowSteps {
			c.WorkflowSteps[i] = s
			c.WorkflowSteps[i].CompletedAt = cloneTime(s.CompletedAt)
		}
	}
	if j.LineItems != nil {
		c.LineItems = append([]LineItem(nil), j.LineItems...)
	}
	if j.ExternalExpenses != nil {
		c.ExternalExpenses = append([]Expense(nil), j.ExternalExpenses...)
	}
	if j.Discount != nil {
		d := *j.Discount
		c.Discount = &d
	}
	c.TargetDate = cloneTime(j.TargetDate)
	c.PaidAt = cloneTime(j.PaidAt)
	return &c
}

// StripRelations reduces relations to their IDs. Expanded documents come from
// callers and are never stored or trusted.
func (j *Job) StripRelations() {
	j.Client = j.Client.Bare()
	j.Tech = j.Tech.Bare()
	j.WorkflowTemplate = j.WorkflowTemplate.Bare()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// JobFilter narrows job listings
type JobFilter struct {
	Status        JobStatus
	InvoiceStatus []InvoiceStatus
	ClientID      int64
	Limit         int
	Offset        int
}
