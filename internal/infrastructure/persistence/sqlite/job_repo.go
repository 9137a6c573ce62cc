package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// JobRepository implements port.JobRepository
type JobRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sql.DB, logger *zap.Logger) port.JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

const jobColumns = `id, job_code, model_name, client_id, tech_id, workflow_template_id,
	workflow_steps, status, invoice_status, target_date, line_items, external_expenses,
	discount, tax_rate, subtotal, discount_amount, tax_amount, total_with_tax,
	vendor_price, travel_payout, off_hours_payout, total_costs, margin, margin_percent,
	paid_at, created_at, updated_at`

type jobColumnsJSON struct {
	steps, items, expenses string
	discount               interface{}
}

func encodeJobJSON(job *entity.Job) (*jobColumnsJSON, error) {
	var out jobColumnsJSON
	var err error
	steps := job.WorkflowSteps
	if steps == nil {
		steps = []entity.WorkflowStep{}
	}
	if out.steps, err = toJSON(steps); err != nil {
		return nil, err
	}
	items := job.LineItems
	if items == nil {
		items = []entity.LineItem{}
	}
	if out.items, err = toJSON(items); err != nil {
		return nil, err
	}
	expenses := job.ExternalExpenses
	if expenses == nil {
		expenses = []entity.Expense{}
	}
	if out.expenses, err = toJSON(expenses); err != nil {
		return nil, err
	}
	if job.Discount != nil {
		d, err := toJSON(job.Discount)
		if err != nil {
			return nil, err
		}
		out.discount = d
	}
	return &out, nil
}

// Create inserts a job and sets its ID and timestamps
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	cols, err := encodeJobJSON(job)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	query := `
		INSERT INTO jobs (
			job_code, model_name, client_id, tech_id, workflow_template_id,
			workflow_steps, status, invoice_status, target_date, line_items, external_expenses,
			discount, tax_rate, subtotal, discount_amount, tax_amount, total_with_tax,
			vendor_price, travel_payout, off_hours_payout, total_costs, margin, margin_percent,
			paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		job.JobID,
		job.ModelName,
		nullID(job.Client.ID()),
		nullID(job.Tech.ID()),
		nullID(job.WorkflowTemplate.ID()),
		cols.steps,
		job.Status,
		job.InvoiceStatus,
		nullTime(job.TargetDate),
		cols.items,
		cols.expenses,
		cols.discount,
		job.TaxRate,
		job.Subtotal,
		job.DiscountAmount,
		job.TaxAmount,
		job.TotalWithTax,
		job.VendorPrice,
		job.TravelPayout,
		job.OffHoursPayout,
		job.TotalCosts,
		job.Margin,
		job.MarginPercent,
		nullTime(job.PaidAt),
		utc(job.CreatedAt),
		job.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create job", zap.String("job_code", job.JobID), zap.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	job.ID = id
	return nil
}

// Update overwrites every column of the job (last write wins)
func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	cols, err := encodeJobJSON(job)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE jobs SET
			job_code = ?, model_name = ?, client_id = ?, tech_id = ?, workflow_template_id = ?,
			workflow_steps = ?, status = ?, invoice_status = ?, target_date = ?, line_items = ?,
			external_expenses = ?, discount = ?, tax_rate = ?, subtotal = ?, discount_amount = ?,
			tax_amount = ?, total_with_tax = ?, vendor_price = ?, travel_payout = ?,
			off_hours_payout = ?, total_costs = ?, margin = ?, margin_percent = ?, paid_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		job.JobID,
		job.ModelName,
		nullID(job.Client.ID()),
		nullID(job.Tech.ID()),
		nullID(job.WorkflowTemplate.ID()),
		cols.steps,
		job.Status,
		job.InvoiceStatus,
		nullTime(job.TargetDate),
		cols.items,
		cols.expenses,
		cols.discount,
		job.TaxRate,
		job.Subtotal,
		job.DiscountAmount,
		job.TaxAmount,
		job.TotalWithTax,
		job.VendorPrice,
		job.TravelPayout,
		job.OffHoursPayout,
		job.TotalCosts,
		job.Margin,
		job.MarginPercent,
		nullTime(job.PaidAt),
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update job", zap.Int64("job_id", job.ID), zap.Error(err))
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job not found: %d", job.ID)
	}
	return nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*entity.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	job, err := scanJob(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get job", zap.Int64("job_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns jobs matching the filter, newest first
func (r *JobRepository) List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error) {
	var where []string
	var args []interface{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(filter.InvoiceStatus) > 0 {
		placeholders := make([]string, len(filter.InvoiceStatus))
		for i, s := range filter.InvoiceStatus {
			placeholders[i] = "?"
			args = append(args, s)
		}
		where = append(where, "invoice_status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ClientID != 0 {
		where = append(where, "client_id = ?")
		args = append(args, filter.ClientID)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list jobs", zap.Error(err))
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// NextID returns the id the next inserted job will most likely receive
func (r *JobRepository) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := executorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'jobs'), 0) + 1`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to read job sequence: %w", err)
	}
	return next, nil
}

func scanJob(row rowScanner) (*entity.Job, error) {
	var job entity.Job
	var clientID, techID, templateID sql.NullInt64
	var steps, items, expenses string
	var discount sql.NullString
	var targetDate, paidAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.JobID,
		&job.ModelName,
		&clientID,
		&techID,
		&templateID,
		&steps,
		&job.Status,
		&job.InvoiceStatus,
		&targetDate,
		&items,
		&expenses,
		&discount,
		&job.TaxRate,
		&job.Subtotal,
		&job.DiscountAmount,
		&job.TaxAmount,
		&job.TotalWithTax,
		&job.VendorPrice,
		&job.TravelPayout,
		&job.OffHoursPayout,
		&job.TotalCosts,
		&job.Margin,
		&job.MarginPercent,
		&paidAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Client = entity.RefPtr[entity.Client](idPtr(clientID))
	job.Tech = entity.RefPtr[entity.Technician](idPtr(techID))
	job.WorkflowTemplate = entity.RefPtr[entity.WorkflowTemplate](idPtr(templateID))
	job.TargetDate = timePtr(targetDate)
	job.PaidAt = timePtr(paidAt)

	if err := fromJSON(steps, &job.WorkflowSteps); err != nil {
		return nil, err
	}
	if err := fromJSON(items, &job.LineItems); err != nil {
		return nil, err
	}
	if err := fromJSON(expenses, &job.ExternalExpenses); err != nil {
		return nil, err
	}
	if discount.Valid && discount.String != "" {
		job.Discount = &entity.Discount{}
		if err := fromJSON(discount.String, job.Discount); err != nil {
			return nil, err
		}
	}
	return &job, nil
}

// Verify interface compliance
var _ port.JobRepository = (*JobRepository)(nil)
