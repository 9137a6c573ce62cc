package port

import (
	"context"
	"time"

	"github.com/scanops/oms/internal/domain/entity"
)

// Repositories return (nil, nil) when a row does not exist.

// JobRepository defines persistence operations for Job
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id int64) (*entity.Job, error)
	List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error)
	NextID(ctx context.Context) (int64, error)
}

// TemplateRepository defines persistence operations for WorkflowTemplate
type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.WorkflowTemplate) error
	Update(ctx context.Context, tpl *entity.WorkflowTemplate) error
	GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]*entity.WorkflowTemplate, error)
}

// ClientRepository defines persistence operations for Client
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	Update(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
	List(ctx context.Context) ([]*entity.Client, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
}

// TechnicianRepository defines persistence operations for Technician
type TechnicianRepository interface {
	Create(ctx context.Context, tech *entity.Technician) error
	GetByID(ctx context.Context, id int64) (*entity.Technician, error)
	List(ctx context.Context) ([]*entity.Technician, error)
}

// NotificationRepository defines persistence operations for staff Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByID(ctx context.Context, id int64) (*entity.Notification, error)
	List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// PaymentRepository defines persistence operations for Payment
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	Update(ctx context.Context, p *entity.Payment) error
	GetByID(ctx context.Context, id int64) (*entity.Payment, error)
	List(ctx context.Context, filter entity.PaymentFilter) ([]*entity.Payment, error)
}

// InvoiceRepository defines persistence operations for Invoice
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	ListByJob(ctx context.Context, jobID int64) ([]*entity.Invoice, error)
	UpdateFilePath(ctx context.Context, id int64, path string) error
	NextID(ctx context.Context) (int64, error)
}

// RecurringIntentRepository defines persistence operations for RecurringInvoiceIntent
type RecurringIntentRepository interface {
	Create(ctx context.Context, intent *entity.RecurringInvoiceIntent) error
	ListByJob(ctx context.Context, jobID int64) ([]*entity.RecurringInvoiceIntent, error)
	ListScheduledBefore(ctx context.Context, before time.Time, limit int) ([]*entity.RecurringInvoiceIntent, error)
	MarkDue(ctx context.Context, id int64) error
}

// OutboxRepository defines persistence operations for OutboxTask
type OutboxRepository interface {
	Create(ctx context.Context, task *entity.OutboxTask) error
	GetByID(ctx context.Context, id string) (*entity.OutboxTask, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxTask, error)
	List(ctx context.Context, status entity.OutboxStatus, limit int) ([]*entity.OutboxTask, error)
	Update(ctx context.Context, task *entity.OutboxTask) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
