package pipeline

import (
	"context"
	"fmt"

	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/finance"
	"github.com/scanops/oms/internal/domain/workflow"
)

// ApplyClientDefaultWorkflow assigns the client's default template to new jobs
// without one, and to updated jobs whose client changed. A new client with no
// default leaves the current template in place.
func ApplyClientDefaultWorkflow(ctx context.Context, pc *Context, d Draft) (Draft, error) {
	job := d.Job

	switch pc.Op {
	case OpCreate:
		if job.WorkflowTemplate.IsSet() || !job.Client.IsSet() {
			return d, nil
		}
	case OpUpdate:
		if job.Client.Same(pc.Previous.Client) || !job.Client.IsSet() {
			return d, nil
		}
	}

	client, err := pc.Clients.GetByID(ctx, job.Client.ID())
	if err != nil {
		return d, fmt.Errorf("load client %d: %w", job.Client.ID(), err)
	}
	if client == nil {
		pc.Logger.Warn("Client not found, default workflow not applied",
			"job_id", job.ID,
			"client_id", job.Client.ID(),
		)
		return d, nil
	}

	if !client.DefaultWorkflow.IsSet() {
		if pc.Op == OpUpdate {
			pc.Logger.Info("New client has no default workflow, keeping current template",
				"job_id", job.ID,
				"client_id", client.ID,
				"template_id", job.WorkflowTemplate.ID(),
			)
		}
		return d, nil
	}

	job.WorkflowTemplate = entity.Ref[entity.WorkflowTemplate](client.DefaultWorkflow.ID())
	pc.Logger.Info("Applied client default workflow",
		"job_id", job.ID,
		"client_id", client.ID,
		"template_id", client.DefaultWorkflow.ID(),
	)
	return d, nil
}

// PopulateWorkflowSteps rebuilds the job's steps whenever the template reference changes.
// The rebuild discards all previous step state.
func PopulateWorkflowSteps(ctx context.Context, pc *Context, d Draft) (Draft, error) {
	job := d.Job

	if pc.Op == OpUpdate && job.WorkflowTemplate.Same(pc.Previous.WorkflowTemplate) {
		return d, nil
	}
	if !job.WorkflowTemplate.IsSet() {
		if pc.Op == OpUpdate {
			pc.Logger.Info("Workflow template cleared, steps left untouched", "job_id", job.ID)
		}
		return d, nil
	}

	tpl, err := pc.Template(ctx, job.WorkflowTemplate.ID())
	if err != nil {
		return d, err
	}
	if tpl == nil {
		pc.Logger.Warn("Workflow template not found, steps not populated",
			"job_id", job.ID,
			"template_id", job.WorkflowTemplate.ID(),
		)
		return d, nil
	}

	if dups := tpl.DuplicateStepNames(); len(dups) > 0 {
		pc.Logger.Warn("Workflow template has duplicate step names, triggers match the first",
			"template_id", tpl.ID,
			"steps", dups,
		)
	}

	discarded := 0
	for _, s := range job.WorkflowSteps {
		if s.Completed || s.Notes != "" {
			discarded++
		}
	}

	job.WorkflowSteps = workflow.Materialize(tpl)
	d.Rematerialized = true
	pc.Logger.Info("Workflow steps populated",
		"job_id", job.ID,
		"template_id", tpl.ID,
		"step_count", len(job.WorkflowSteps),
		"discarded_steps", discarded,
	)
	return d, nil
}

// AutoGenerateExpenses mirrors payout fields into auto-generated expenses
func AutoGenerateExpenses(_ context.Context, _ *Context, d Draft) (Draft, error) {
	finance.SyncAutoExpenses(d.Job)
	return d, nil
}

// WorkflowStepCompletion detects newly completed steps and applies their status
// mapping and invoice flag. The remaining triggers travel with the completion
// events and are executed after the write.
func WorkflowStepCompletion(ctx context.Context, pc *Context, d Draft) (Draft, error) {
	if pc.Op != OpUpdate {
		return d, nil
	}
	job := d.Job

	events := workflow.DetectCompletions(pc.Previous.WorkflowSteps, job.WorkflowSteps)
	if len(events) == 0 {
		return d, nil
	}

	for i := range events {
		step := &job.WorkflowSteps[events[i].Index]
		if step.CompletedAt == nil {
			at := pc.Now
			step.CompletedAt = &at
		}
		if step.CompletedBy == "" {
			step.CompletedBy = pc.Actor
		}
		events[i].CompletedAt = *step.CompletedAt
		events[i].CompletedBy = step.CompletedBy
	}
	d.Completions = events

	if !job.WorkflowTemplate.IsSet() {
		pc.Logger.Info("Steps completed on job without workflow template, no triggers evaluated",
			"job_id", job.ID,
			"completed", len(events),
		)
		return d, nil
	}

	tpl, err := pc.Template(ctx, job.WorkflowTemplate.ID())
	if err != nil {
		return d, err
	}
	if tpl == nil {
		pc.Logger.Warn("Workflow template not found, no triggers evaluated",
			"job_id", job.ID,
			"template_id", job.WorkflowTemplate.ID(),
		)
		return d, nil
	}

	for i := range d.Completions {
		ev := &d.Completions[i]
		tplStep, ok := tpl.FindStep(ev.StepName)
		if !ok {
			pc.Logger.Warn("Completed step not in template, skipped",
				"job_id", job.ID,
				"template_id", tpl.ID,
				"step", ev.StepName,
			)
			continue
		}
		ev.Template = tplStep

		if mapping := tplStep.StatusMapping; mapping != "" {
			if mapping.IsValid() {
				pc.Logger.Info("Step status mapping applied",
					"job_id", job.ID,
					"step", ev.StepName,
					"from", job.Status,
					"to", mapping,
				)
				job.Status = mapping
			} else {
				pc.Logger.Warn("Ignoring invalid status mapping", "job_id", job.ID, "step", ev.StepName, "mapping", mapping)
			}
		}

		if tplStep.Triggers.CreateInvoice && job.InvoiceStatus != entity.InvoiceStatusPaid {
			job.InvoiceStatus = entity.InvoiceStatusReady
			pc.Logger.Info("Invoice marked ready", "job_id", job.ID, "step", ev.StepName)
		}
	}

	return d, nil
}

// UpdateInvoiceStatus marks finished template-less jobs as ready to invoice and
// keeps a paid invoice status from being overwritten.
func UpdateInvoiceStatus(_ context.Context, pc *Context, d Draft) (Draft, error) {
	job := d.Job

	if pc.Previous != nil && pc.Previous.InvoiceStatus == entity.InvoiceStatusPaid && job.InvoiceStatus != entity.InvoiceStatusPaid {
		pc.Logger.Warn("Ignoring invoice status change on paid job",
			"job_id", job.ID,
			"requested", job.InvoiceStatus,
		)
		job.InvoiceStatus = entity.InvoiceStatusPaid
		return d, nil
	}

	if job.Status == entity.JobStatusDone && !job.WorkflowTemplate.IsSet() && job.InvoiceStatus == entity.InvoiceStatusNone {
		job.InvoiceStatus = entity.InvoiceStatusReady
	}
	return d, nil
}

// RecalculateFinancials recomputes totals and margin
func RecalculateFinancials(_ context.Context, _ *Context, d Draft) (Draft, error) {
	finance.Calculate(d.Job)
	return d, nil
}
