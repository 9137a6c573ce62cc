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

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

const paymentColumns = `id, client_id, amount, payment_date, reference, source, status,
	matched_job_id, matched_invoice_id, matched_at, created_at`

func (r *PaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = entity.PaymentStatusUnmatched
	}

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO payments (client_id, amount, payment_date, reference, source, status,
			matched_job_id, matched_invoice_id, matched_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullID(p.Client.ID()),
		p.Amount,
		utc(p.PaymentDate),
		p.Reference,
		p.Source,
		p.Status,
		nullID(p.MatchedJob.ID()),
		nullID(p.MatchedInvoice.ID()),
		nullTime(p.MatchedAt),
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", zap.Float64("amount", p.Amount), zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	p.ID = id
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *entity.Payment) error {
	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		UPDATE payments
		SET client_id = ?, amount = ?, payment_date = ?, reference = ?, source = ?, status = ?,
			matched_job_id = ?, matched_invoice_id = ?, matched_at = ?
		WHERE id = ?
	`,
		nullID(p.Client.ID()),
		p.Amount,
		utc(p.PaymentDate),
		p.Reference,
		p.Source,
		p.Status,
		nullID(p.MatchedJob.ID()),
		nullID(p.MatchedInvoice.ID()),
		nullTime(p.MatchedAt),
		p.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update payment", zap.Int64("payment_id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("payment not found: %d", p.ID)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	p, err := scanPayment(executorFor(ctx, r.db).QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment", zap.Int64("payment_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) List(ctx context.Context, filter entity.PaymentFilter) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1 = 1`
	var args []interface{}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ClientID != 0 {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	query += ` ORDER BY payment_date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var p entity.Payment
	var clientID, jobID, invoiceID sql.NullInt64
	var matchedAt sql.NullTime
	err := row.Scan(&p.ID, &clientID, &p.Amount, &p.PaymentDate, &p.Reference, &p.Source, &p.Status,
		&jobID, &invoiceID, &matchedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Client = entity.RefPtr[entity.Client](idPtr(clientID))
	p.MatchedJob = entity.RefPtr[entity.Job](idPtr(jobID))
	p.MatchedInvoice = entity.RefPtr[entity.Invoice](idPtr(invoiceID))
	p.MatchedAt = timePtr(matchedAt)
	return &p, nil
}

var _ port.PaymentRepository = (*PaymentRepository)(nil)
