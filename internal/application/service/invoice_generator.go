package service

import (
	"context"
	"fmt"
	"time"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/finance"
)

// invoiceGenerator issues a numbered invoice row and renders its workbook.
// The workbook is best effort: a storage failure leaves the invoice without a file.
type invoiceGenerator struct {
	invoiceRepo  port.InvoiceRepository
	clientRepo   port.ClientRepository
	spreadsheets port.Spreadsheets
	storage      port.FileStorage
	dir          string
	logger       Logger
}

// NewInvoiceGenerator creates the local InvoiceGenerator
func NewInvoiceGenerator(
	invoiceRepo port.InvoiceRepository,
	clientRepo port.ClientRepository,
	spreadsheets port.Spreadsheets,
	storage port.FileStorage,
	dir string,
	logger Logger,
) port.InvoiceGenerator {
	if dir == "" {
		dir = "invoices"
	}
	return &invoiceGenerator{
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		spreadsheets: spreadsheets,
		storage:      storage,
		dir:          dir,
		logger:       logger,
	}
}

func (g *invoiceGenerator) Generate(ctx context.Context, job *entity.Job, payment *entity.Payment) (*entity.Invoice, error) {
	next, err := g.invoiceRepo.NextID(ctx)
	if err != nil {
		return nil, err
	}

	clientRef := job.Client
	if !clientRef.IsSet() {
		clientRef = payment.Client
	}
	invoice := &entity.Invoice{
		Number:   fmt.Sprintf("INV-%05d", next),
		Job:      entity.Ref[entity.Job](job.ID),
		Client:   entity.Ref[entity.Client](clientRef.ID()),
		Amount:   finance.Round(payment.Amount),
		Status:   entity.InvoiceRecordPaid,
		IssuedAt: time.Now(),
	}
	if err := g.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	if path, err := g.writeWorkbook(ctx, invoice, job, payment); err != nil {
		g.logger.Warn("Invoice workbook not written", "error", err, "invoice", invoice.Number, "job_id", job.ID)
	} else {
		invoice.FilePath = path
		if err := g.invoiceRepo.UpdateFilePath(ctx, invoice.ID, path); err != nil {
			return nil, err
		}
	}

	g.logger.Info("Invoice issued", "invoice", invoice.Number, "job_id", job.ID, "amount", invoice.Amount, "file", invoice.FilePath)
	return invoice, nil
}

func (g *invoiceGenerator) writeWorkbook(ctx context.Context, invoice *entity.Invoice, job *entity.Job, payment *entity.Payment) (string, error) {
	var client *entity.Client
	if invoice.Client.IsSet() {
		c, err := g.clientRepo.GetByID(ctx, invoice.Client.ID())
		if err != nil {
			return "", err
		}
		client = c
	}

	content, err := g.spreadsheets.InvoiceWorkbook(port.InvoiceWorkbookData{
		Invoice: invoice,
		Job:     job,
		Client:  client,
		Payment: payment,
	})
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("%s/%s.xlsx", g.dir, invoice.Number)
	if err := g.storage.Save(ctx, path, content); err != nil {
		return "", err
	}
	return path, nil
}
