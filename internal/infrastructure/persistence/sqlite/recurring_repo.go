package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// RecurringIntentRepository implements port.RecurringIntentRepository
type RecurringIntentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecurringIntentRepository creates a new recurring invoice intent repository
func NewRecurringIntentRepository(db *sql.DB, logger *zap.Logger) port.RecurringIntentRepository {
	return &RecurringIntentRepository{db: db, logger: logger}
}

const intentColumns = `id, job_id, step_name, delay_days, amount, due_at, status, created_at`

func (r *RecurringIntentRepository) Create(ctx context.Context, intent *entity.RecurringInvoiceIntent) error {
	intent.CreatedAt = time.Now().UTC()
	if intent.Status == "" {
		intent.Status = entity.RecurringIntentScheduled
	}

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO recurring_invoice_intents (job_id, step_name, delay_days, amount, due_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, intent.Job.ID(), intent.StepName, intent.DelayDays, intent.Amount, utc(intent.DueAt), intent.Status, intent.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create recurring invoice intent", zap.Int64("job_id", intent.Job.ID()), zap.Error(err))
		return fmt.Errorf("failed to create recurring invoice intent: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	intent.ID = id
	return nil
}

func (r *RecurringIntentRepository) ListByJob(ctx context.Context, jobID int64) ([]*entity.RecurringInvoiceIntent, error) {
	return r.list(ctx, `SELECT `+intentColumns+` FROM recurring_invoice_intents WHERE job_id = ? ORDER BY id`, jobID)
}

// ListScheduledBefore returns scheduled intents due at or before the given time
func (r *RecurringIntentRepository) ListScheduledBefore(ctx context.Context, before time.Time, limit int) ([]*entity.RecurringInvoiceIntent, error) {
	return r.list(ctx, `
		SELECT `+intentColumns+` FROM recurring_invoice_intents
		WHERE status = ? AND due_at <= ?
		ORDER BY due_at, id LIMIT ?
	`, entity.RecurringIntentScheduled, utc(before), limit)
}

func (r *RecurringIntentRepository) MarkDue(ctx context.Context, id int64) error {
	_, err := executorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE recurring_invoice_intents SET status = ? WHERE id = ?`, entity.RecurringIntentDue, id)
	if err != nil {
		r.logger.Error("Failed to mark recurring invoice intent due", zap.Int64("intent_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark recurring invoice intent due: %w", err)
	}
	return nil
}

func (r *RecurringIntentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.RecurringInvoiceIntent, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list recurring invoice intents", zap.Error(err))
		return nil, fmt.Errorf("failed to list recurring invoice intents: %w", err)
	}
	defer rows.Close()

	var out []*entity.RecurringInvoiceIntent
	for rows.Next() {
		var in entity.RecurringInvoiceIntent
		var jobID int64
		if err := rows.Scan(&in.ID, &jobID, &in.StepName, &in.DelayDays, &in.Amount, &in.DueAt, &in.Status, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring invoice intent: %w", err)
		}
		in.Job = entity.Ref[entity.Job](jobID)
		out = append(out, &in)
	}
	return out, rows.Err()
}

var _ port.RecurringIntentRepository = (*RecurringIntentRepository)(nil)
