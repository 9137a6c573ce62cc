package port

import (
	"context"
	"io"
	"time"

	"github.com/scanops/oms/internal/domain/entity"
)

// EmailMessage is a rendered e-mail ready to send
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers e-mail
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailData is the view model for client e-mail templates
type EmailData struct {
	ClientName       string
	JobCode          string
	ModelName        string
	StepName         string
	TargetDate       string
	NotificationType entity.NotificationType
}

// EmailRenderer turns a template name and job data into subject and HTML
type EmailRenderer interface {
	Render(template string, data EmailData) (*EmailMessage, error)
	RenderNotification(data EmailData) (*EmailMessage, error)
}

// ChatMessenger posts plain-text messages to a staff chat account
type ChatMessenger interface {
	SendText(ctx context.Context, openID, text string) error
}

// ClientNotifier asks the notify endpoint to inform a client about a milestone
type ClientNotifier interface {
	Notify(ctx context.Context, jobID int64, notificationType entity.NotificationType) error
}

// Outbox records side effects for delivery after commit
type Outbox interface {
	Enqueue(ctx context.Context, kind entity.OutboxKind, payload interface{}) (*entity.OutboxTask, error)
}

// InvoiceGenerator issues the invoice document for a confirmed payment match
type InvoiceGenerator interface {
	Generate(ctx context.Context, job *entity.Job, payment *entity.Payment) (*entity.Invoice, error)
}

// StatementRow is one deposit read from a bank statement
type StatementRow struct {
	Line      int
	Date      time.Time
	Amount    float64
	Reference string
	ClientID  int64
}

// InvoiceWorkbookData is everything printed on an invoice workbook
type InvoiceWorkbookData struct {
	Invoice *entity.Invoice
	Job     *entity.Job
	Client  *entity.Client
	Payment *entity.Payment
}

// StatementFormat names a bank statement file format
type StatementFormat string

const (
	StatementCSV  StatementFormat = "csv"
	StatementXLSX StatementFormat = "xlsx"
)

// Spreadsheets builds xlsx documents and reads bank statements
type Spreadsheets interface {
	InvoiceWorkbook(data InvoiceWorkbookData) ([]byte, error)
	JobReport(jobs []*entity.Job) ([]byte, error)
	ReadStatement(r io.Reader, format StatementFormat) ([]StatementRow, []StatementError, error)
}

// StatementError describes a statement line that could not be read
type StatementError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
