package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

const (
	invoiceSheet = "Invoice"
	jobsSheet    = "Jobs"
	dateLayout   = "2006-01-02"

	// built-in excel number format "#,##0.00"
	moneyFormat = 4
)

// Workbooks builds xlsx documents and reads bank statements
type Workbooks struct {
	companyName string
	logger      *zap.Logger
}

// New creates a Workbooks printing companyName on invoices
func New(companyName string, logger *zap.Logger) *Workbooks {
	return &Workbooks{companyName: companyName, logger: logger}
}

var _ port.Spreadsheets = (*Workbooks)(nil)

type styles struct {
	bold, header, money, total int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"305496"}},
	}); err != nil {
		return s, err
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: moneyFormat}); err != nil {
		return s, err
	}
	s.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: moneyFormat})
	return s, err
}

// InvoiceWorkbook renders a single-sheet invoice for a paid job
func (w *Workbooks) InvoiceWorkbook(data port.InvoiceWorkbookData) ([]byte, error) {
	if data.Invoice == nil || data.Job == nil {
		return nil, fmt.Errorf("invoice workbook needs an invoice and a job")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	inv, job := data.Invoice, data.Job
	clientName, clientEmail := "", ""
	if data.Client != nil {
		clientName, clientEmail = data.Client.Name, data.Client.Email
	}

	header := [][]interface{}{
		{w.companyName},
		{},
		{"Invoice", inv.Number},
		{"Issued", inv.IssuedAt.Format(dateLayout)},
		{"Bill to", clientName},
		{"E-mail", clientEmail},
		{"Job", job.JobID},
		{"Model", job.ModelName},
	}
	for i, row := range header {
		if err := f.SetSheetRow(invoiceSheet, cell(1, i+1), &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetCellStyle(invoiceSheet, "A1", "A1", st.bold)
	_ = f.SetCellStyle(invoiceSheet, "A3", "A8", st.bold)

	row := len(header) + 2
	if err := f.SetSheetRow(invoiceSheet, cell(1, row), &[]interface{}{"Description", "Quantity", "Unit price", "Amount"}); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(invoiceSheet, cell(1, row), cell(4, row), st.header)

	first := row + 1
	for _, item := range job.LineItems {
		row++
		if err := f.SetSheetRow(invoiceSheet, cell(1, row), &[]interface{}{item.Description, item.Quantity, item.UnitPrice, item.Amount}); err != nil {
			return nil, err
		}
	}
	if row >= first {
		_ = f.SetCellStyle(invoiceSheet, cell(3, first), cell(4, row), st.money)
	}

	row++
	summary := []summaryLine{
		{"Subtotal", job.Subtotal},
		{"Discount", -job.DiscountAmount},
		{"Tax", job.TaxAmount},
		{"Total", job.TotalWithTax},
	}
	if data.Payment != nil {
		summary = append(summary, summaryLine{"Paid", data.Payment.Amount})
	}
	for _, s := range summary {
		row++
		if err := f.SetSheetRow(invoiceSheet, cell(3, row), &[]interface{}{s.label, s.value}); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(invoiceSheet, cell(3, row), cell(3, row), st.bold)
		_ = f.SetCellStyle(invoiceSheet, cell(4, row), cell(4, row), st.total)
	}

	if p := data.Payment; p != nil {
		row += 2
		if err := f.SetSheetRow(invoiceSheet, cell(1, row), &[]interface{}{"Payment received", p.PaymentDate.Format(dateLayout), p.Reference}); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(invoiceSheet, "A", "A", 36)
	_ = f.SetColWidth(invoiceSheet, "B", "D", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write invoice workbook: %w", err)
	}
	w.logger.Debug("Invoice workbook rendered",
		zap.String("invoice", inv.Number),
		zap.Int("line_items", len(job.LineItems)))
	return buf.Bytes(), nil
}

type summaryLine struct {
	label string
	value float64
}

var jobColumns = []interface{}{
	"Job ID", "Model", "Status", "Invoice status", "Target date",
	"Subtotal", "Discount", "Tax", "Total", "Costs", "Margin", "Margin %",
}

// JobReport renders one row per job with its financial columns
func (w *Workbooks) JobReport(jobs []*entity.Job) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", jobsSheet); err != nil {
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	if err := f.SetSheetRow(jobsSheet, "A1", &jobColumns); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(jobsSheet, "A1", cell(len(jobColumns), 1), st.header)

	for i, job := range jobs {
		target := ""
		if job.TargetDate != nil {
			target = job.TargetDate.Format(dateLayout)
		}
		row := []interface{}{
			job.JobID, job.ModelName, string(job.Status), string(job.InvoiceStatus), target,
			job.Subtotal, job.DiscountAmount, job.TaxAmount, job.TotalWithTax,
			job.TotalCosts, job.Margin, job.MarginPercent,
		}
		if err := f.SetSheetRow(jobsSheet, cell(1, i+2), &row); err != nil {
			return nil, err
		}
	}
	if len(jobs) > 0 {
		_ = f.SetCellStyle(jobsSheet, cell(6, 2), cell(len(jobColumns), len(jobs)+1), st.money)
	}

	_ = f.SetColWidth(jobsSheet, "A", "B", 18)
	_ = f.SetColWidth(jobsSheet, "C", "L", 14)
	_ = f.SetPanes(jobsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write job report: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
