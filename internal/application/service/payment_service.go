package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/scanops/oms/internal/application/dispatcher"
	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/event"
	"github.com/scanops/oms/internal/domain/finance"
	"github.com/scanops/oms/internal/domain/lifecycle"
)

// DefaultCandidateLimit caps match candidates when no limit is configured
const DefaultCandidateLimit = 10

// ImportResult reports the outcome of a bank statement import
type ImportResult struct {
	Imported []*entity.Payment      `json:"imported"`
	Skipped  []port.StatementError `json:"skipped"`
}

// PaymentService records deposits and reconciles them against finished jobs
type PaymentService interface {
	Create(ctx context.Context, p *entity.Payment) (*entity.Payment, error)
	Get(ctx context.Context, id int64) (*entity.Payment, error)
	List(ctx context.Context, filter entity.PaymentFilter) ([]*entity.Payment, error)
	Import(ctx context.Context, r io.Reader, format port.StatementFormat) (*ImportResult, error)

	// Candidates ranks jobs awaiting payment by how well they fit the deposit
	Candidates(ctx context.Context, paymentID int64) ([]entity.MatchCandidate, error)
	ConfirmMatch(ctx context.Context, paymentID, jobID int64) (*entity.Payment, error)
	Unmatch(ctx context.Context, paymentID int64) (*entity.Payment, error)
}

type paymentServiceImpl struct {
	paymentRepo    port.PaymentRepository
	jobRepo        port.JobRepository
	invoices       port.InvoiceGenerator
	spreadsheets   port.Spreadsheets
	dispatcher     dispatcher.Dispatcher
	txManager      port.TransactionManager
	candidateLimit int
	logger         Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo port.PaymentRepository,
	jobRepo port.JobRepository,
	invoices port.InvoiceGenerator,
	spreadsheets port.Spreadsheets,
	d dispatcher.Dispatcher,
	txManager port.TransactionManager,
	candidateLimit int,
	logger Logger,
) PaymentService {
	if candidateLimit <= 0 {
		candidateLimit = DefaultCandidateLimit
	}
	return &paymentServiceImpl{
		paymentRepo:    paymentRepo,
		jobRepo:        jobRepo,
		invoices:       invoices,
		spreadsheets:   spreadsheets,
		dispatcher:     d,
		txManager:      txManager,
		candidateLimit: candidateLimit,
		logger:         logger,
	}
}

func checkPayment(p *entity.Payment) error {
	if math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) || p.Amount <= 0 {
		return fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}
	if p.PaymentDate.IsZero() {
		return fmt.Errorf("%w: paymentDate is required", ErrInvalidInput)
	}
	return nil
}

func (s *paymentServiceImpl) Create(ctx context.Context, p *entity.Payment) (*entity.Payment, error) {
	if err := checkPayment(p); err != nil {
		return nil, err
	}
	p.Amount = finance.Round(p.Amount)
	p.Status = entity.PaymentStatusUnmatched
	p.MatchedJob = entity.Relation[entity.Job]{}
	p.MatchedInvoice = entity.Relation[entity.Invoice]{}
	p.MatchedAt = nil
	if p.Source == "" {
		p.Source = entity.PaymentSourceManual
	}

	if err := s.paymentRepo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to create payment", "error", err, "amount", p.Amount)
		return nil, err
	}
	s.logger.Info("Payment recorded", "payment_id", p.ID, "amount", p.Amount, "source", p.Source)
	return p, nil
}

func (s *paymentServiceImpl) Get(ctx context.Context, id int64) (*entity.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("payment %d: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *paymentServiceImpl) List(ctx context.Context, filter entity.PaymentFilter) ([]*entity.Payment, error) {
	return s.paymentRepo.List(ctx, filter)
}

// Import stores every readable deposit of a statement in one transaction
func (s *paymentServiceImpl) Import(ctx context.Context, r io.Reader, format port.StatementFormat) (*ImportResult, error) {
	source := entity.PaymentSourceCSV
	switch format {
	case port.StatementCSV:
	case port.StatementXLSX:
		source = entity.PaymentSourceXLSX
	default:
		return nil, fmt.Errorf("%w: unsupported statement format %q", ErrInvalidInput, format)
	}

	rows, skipped, err := s.spreadsheets.ReadStatement(r, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	result := &ImportResult{Skipped: skipped}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, row := range rows {
			p := &entity.Payment{
				Client:      entity.Ref[entity.Client](row.ClientID),
				Amount:      finance.Round(row.Amount),
				PaymentDate: row.Date,
				Reference:   row.Reference,
				Source:      source,
			}
			if err := checkPayment(p); err != nil {
				result.Skipped = append(result.Skipped, port.StatementError{Line: row.Line, Reason: err.Error()})
				continue
			}
			if err := s.paymentRepo.Create(txCtx, p); err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			result.Imported = append(result.Imported, p)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to import statement", "error", err, "format", format)
		return nil, err
	}

	s.logger.Info("Statement imported",
		"format", format,
		"imported", len(result.Imported),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (s *paymentServiceImpl) Candidates(ctx context.Context, paymentID int64) ([]entity.MatchCandidate, error) {
	p, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != entity.PaymentStatusUnmatched {
		return nil, fmt.Errorf("payment %d: %w", paymentID, ErrPaymentAlreadyMatched)
	}

	jobs, err := s.jobRepo.List(ctx, entity.JobFilter{
		Status:        entity.JobStatusDone,
		InvoiceStatus: []entity.InvoiceStatus{entity.InvoiceStatusReady, entity.InvoiceStatusSent},
		ClientID:      p.Client.ID(),
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs awaiting payment: %w", err)
	}

	candidates := RankCandidates(p, jobs)
	if len(candidates) > s.candidateLimit {
		candidates = candidates[:s.candidateLimit]
	}
	return candidates, nil
}

// RankCandidates orders jobs by closeness in days to the payment date, then
// by absolute amount difference, then by job id.
func RankCandidates(p *entity.Payment, jobs []*entity.Job) []entity.MatchCandidate {
	candidates := make([]entity.MatchCandidate, 0, len(jobs))
	for _, job := range jobs {
		quoted := finance.Round(job.QuotedTotal())
		jobDate := job.ReferenceDate()
		candidates = append(candidates, entity.MatchCandidate{
			JobID:        job.ID,
			JobCode:      job.JobID,
			ModelName:    job.ModelName,
			ClientID:     job.Client.ID(),
			QuotedTotal:  quoted,
			Delta:        finance.Round(quoted - p.Amount),
			JobDate:      jobDate,
			DaysApart:    daysApart(jobDate, p.PaymentDate),
			InvoiceState: job.InvoiceStatus.String(),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.DaysApart != b.DaysApart {
			return a.DaysApart < b.DaysApart
		}
		if da, db := math.Abs(a.Delta), math.Abs(b.Delta); da != db {
			return da < db
		}
		return a.JobID < b.JobID
	})
	return candidates
}

// daysApart counts calendar days between two instants in UTC
func daysApart(a, b time.Time) int {
	day := func(t time.Time) time.Time {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	diff := day(a).Sub(day(b)).Hours() / 24
	return int(math.Abs(math.Round(diff)))
}

// ConfirmMatch reconciles a payment with a job, issuing the invoice and marking the job paid
func (s *paymentServiceImpl) ConfirmMatch(ctx context.Context, paymentID, jobID int64) (*entity.Payment, error) {
	var matched *entity.Payment
	var paidJob *entity.Job

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.Get(txCtx, paymentID)
		if err != nil {
			return err
		}
		machine := lifecycle.Payment(p.Status)
		if err := machine.Fire(txCtx, lifecycle.TriggerMatch); err != nil {
			if errors.Is(err, lifecycle.ErrInvalidTransition) {
				return fmt.Errorf("payment %d: %w", paymentID, ErrPaymentAlreadyMatched)
			}
			return err
		}

		job, err := s.jobRepo.GetByID(txCtx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job %d: %w", jobID, ErrNotFound)
		}
		if job.InvoiceStatus == entity.InvoiceStatusPaid {
			return fmt.Errorf("%w: job %s is already paid", ErrInvalidInput, job.JobID)
		}
		if job.Status != entity.JobStatusDone || !job.InvoiceStatus.AwaitingPayment() {
			return fmt.Errorf("%w: job %s is not awaiting payment (status %s, invoice %q)",
				ErrInvalidInput, job.JobID, job.Status, job.InvoiceStatus)
		}
		if p.Client.IsSet() && job.Client.IsSet() && !p.Client.Same(job.Client) {
			s.logger.Warn("Matching payment to a job of another client",
				"payment_id", p.ID,
				"payment_client", p.Client.ID(),
				"job_client", job.Client.ID(),
			)
		}

		invoice, err := s.invoices.Generate(txCtx, job, p)
		if err != nil {
			return fmt.Errorf("generate invoice: %w", err)
		}

		now := time.Now()
		p.Status = machine.State()
		p.MatchedJob = entity.Ref[entity.Job](job.ID)
		p.MatchedInvoice = entity.Ref[entity.Invoice](invoice.ID)
		p.MatchedAt = &now
		if !p.Client.IsSet() {
			p.Client = job.Client
		}
		if err := s.paymentRepo.Update(txCtx, p); err != nil {
			return err
		}

		job.InvoiceStatus = entity.InvoiceStatusPaid
		job.PaidAt = &now
		if err := s.jobRepo.Update(txCtx, job); err != nil {
			return err
		}

		matched, paidJob = p, job
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPaymentAlreadyMatched) && !errors.Is(err, ErrInvalidInput) {
			s.logger.Error("Failed to confirm payment match", "error", err, "payment_id", paymentID, "job_id", jobID)
		}
		return nil, err
	}

	s.logger.Info("Payment matched",
		"payment_id", matched.ID,
		"job_id", paidJob.ID,
		"invoice_id", matched.MatchedInvoice.ID(),
	)
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), event.NewEvent(event.TypePaymentMatched, paidJob.ID, map[string]interface{}{
		event.KeyPayment: matched,
		event.KeyJob:     paidJob,
	}))
	return matched, nil
}

// Unmatch reverses a match. The issued invoice is kept and the job returns to awaiting payment.
func (s *paymentServiceImpl) Unmatch(ctx context.Context, paymentID int64) (*entity.Payment, error) {
	var unmatched *entity.Payment
	var jobID int64

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.Get(txCtx, paymentID)
		if err != nil {
			return err
		}
		machine := lifecycle.Payment(p.Status)
		if err := machine.Fire(txCtx, lifecycle.TriggerUnmatch); err != nil {
			return fmt.Errorf("payment %d: %w", paymentID, err)
		}

		jobID = p.MatchedJob.ID()
		if jobID != 0 {
			job, err := s.jobRepo.GetByID(txCtx, jobID)
			if err != nil {
				return err
			}
			if job != nil {
				job.InvoiceStatus = entity.InvoiceStatusSent
				job.PaidAt = nil
				if err := s.jobRepo.Update(txCtx, job); err != nil {
					return err
				}
			} else {
				s.logger.Warn("Matched job no longer exists", "payment_id", p.ID, "job_id", jobID)
			}
		}

		p.Status = machine.State()
		p.MatchedJob = entity.Relation[entity.Job]{}
		p.MatchedInvoice = entity.Relation[entity.Invoice]{}
		p.MatchedAt = nil
		if err := s.paymentRepo.Update(txCtx, p); err != nil {
			return err
		}
		unmatched = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment unmatched", "payment_id", paymentID, "job_id", jobID)
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), event.NewEvent(event.TypePaymentUnmatched, jobID, map[string]interface{}{
		event.KeyPayment: unmatched,
	}))
	return unmatched, nil
}

// NewPaymentMatchedHandler mirrors confirmed matches to admins with a chat account
func NewPaymentMatchedHandler(userRepo port.UserRepository, outbox port.Outbox, logger Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		p, job := evt.Payment(), evt.Job()
		if p == nil || job == nil {
			return nil
		}
		admins, err := userRepo.ListByRole(ctx, entity.RoleAdmin)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("Payment of %.2f matched to %s (%s)", p.Amount, job.JobID, job.ModelName)
		for _, admin := range admins {
			if admin.LarkOpenID == "" {
				continue
			}
			if _, err := outbox.Enqueue(ctx, entity.OutboxKindChatMessage, entity.ChatMessagePayload{
				OpenID: admin.LarkOpenID,
				Text:   text,
			}); err != nil {
				logger.Error("Failed to queue payment announcement", "error", err, "user_id", admin.ID)
			}
		}
		return nil
	}
}
