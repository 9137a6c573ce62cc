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

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	inv.CreatedAt = time.Now().UTC()
	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = inv.CreatedAt
	}

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO invoices (number, job_id, client_id, amount, status, file_path, issued_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.Number, inv.Job.ID(), nullID(inv.Client.ID()), inv.Amount, inv.Status, inv.FilePath, utc(inv.IssuedAt), inv.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create invoice",
			zap.String("number", inv.Number),
			zap.Int64("job_id", inv.Job.ID()),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inv.ID = id
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	inv, err := scanInvoice(executorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, number, job_id, client_id, amount, status, file_path, issued_at, created_at
		FROM invoices WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("invoice_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) ListByJob(ctx context.Context, jobID int64) ([]*entity.Invoice, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, `
		SELECT id, number, job_id, client_id, amount, status, file_path, issued_at, created_at
		FROM invoices WHERE job_id = ? ORDER BY id
	`, jobID)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Int64("job_id", jobID), zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *InvoiceRepository) UpdateFilePath(ctx context.Context, id int64, path string) error {
	if _, err := executorFor(ctx, r.db).ExecContext(ctx, `UPDATE invoices SET file_path = ? WHERE id = ?`, path, id); err != nil {
		r.logger.Error("Failed to update invoice file path", zap.Int64("invoice_id", id), zap.Error(err))
		return fmt.Errorf("failed to update invoice file path: %w", err)
	}
	return nil
}

// NextID returns the id the next inserted invoice will most likely receive
func (r *InvoiceRepository) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := executorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'invoices'), 0) + 1`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to read invoice sequence: %w", err)
	}
	return next, nil
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var jobID int64
	var clientID sql.NullInt64
	if err := row.Scan(&inv.ID, &inv.Number, &jobID, &clientID, &inv.Amount, &inv.Status, &inv.FilePath, &inv.IssuedAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.Job = entity.Ref[entity.Job](jobID)
	inv.Client = entity.RefPtr[entity.Client](idPtr(clientID))
	return &inv, nil
}

var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
