package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/event"
	"github.com/scanops/oms/internal/domain/lifecycle"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (env *testEnv) doneJob(t *testing.T, clientID int64, total float64, target time.Time) *entity.Job {
	t.Helper()
	job, err := env.jobSvc.Create(context.Background(), &entity.Job{
		ModelName:  "Job",
		Client:     entity.Ref[entity.Client](clientID),
		Status:     entity.JobStatusDone,
		TargetDate: &target,
		LineItems:  []entity.LineItem{{Description: "Scan", Quantity: 1, UnitPrice: total}},
	}, "ops")
	require.NoError(t, err)
	require.Equal(t, entity.InvoiceStatusReady, job.InvoiceStatus)
	return job
}

func TestPaymentService_ExactMatchCandidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.mustClient(t, &entity.Client{Name: "Acme"})
	job := env.doneJob(t, client.ID, 500, day(2024, 3, 1))

	p, err := env.paymentSvc.Create(ctx, &entity.Payment{
		Client:      entity.Ref[entity.Client](client.ID),
		Amount:      500,
		PaymentDate: day(2024, 3, 4),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentSourceManual, p.Source)

	candidates, err := env.paymentSvc.Candidates(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, job.ID, candidates[0].JobID)
	assert.Equal(t, 0.0, candidates[0].Delta)
	assert.Equal(t, 3, candidates[0].DaysApart)

	matched, err := env.paymentSvc.ConfirmMatch(ctx, p.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusMatched, matched.Status)
	assert.Equal(t, job.ID, matched.MatchedJob.ID())
	require.NotNil(t, matched.MatchedAt)

	stored, err := env.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusMatched, stored.Status)

	paidJob, err := env.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paidJob.InvoiceStatus)
	assert.NotNil(t, paidJob.PaidAt)

	invoice, err := env.invoices.GetByID(ctx, matched.MatchedInvoice.ID())
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, "INV-00001", invoice.Number)
	assert.Equal(t, "invoices/INV-00001.xlsx", invoice.FilePath)
	assert.True(t, env.storage.Exists(ctx, invoice.FilePath))

	_, err = env.paymentSvc.Candidates(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPaymentAlreadyMatched)
	_, err = env.paymentSvc.ConfirmMatch(ctx, p.ID, job.ID)
	assert.ErrorIs(t, err, ErrPaymentAlreadyMatched)
}

func TestPaymentService_CandidateRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acme := env.mustClient(t, &entity.Client{Name: "Acme"})
	other := env.mustClient(t, &entity.Client{Name: "Other"})

	far := env.doneJob(t, acme.ID, 500, day(2024, 1, 1))
	nearBigDelta := env.doneJob(t, acme.ID, 900, day(2024, 3, 2))
	nearSmallDelta := env.doneJob(t, acme.ID, 510, day(2024, 3, 8))
	foreign := env.doneJob(t, other.ID, 500, day(2024, 3, 5))
	_, err := env.jobSvc.Create(ctx, &entity.Job{ModelName: "open", Client: entity.Ref[entity.Client](acme.ID)}, "ops")
	require.NoError(t, err)

	p, err := env.paymentSvc.Create(ctx, &entity.Payment{Client: entity.Ref[entity.Client](acme.ID), Amount: 500, PaymentDate: day(2024, 3, 5)})
	require.NoError(t, err)

	candidates, err := env.paymentSvc.Candidates(ctx, p.ID)
	require.NoError(t, err)
	var ids []int64
	for _, c := range candidates {
		ids = append(ids, c.JobID)
	}
	assert.Equal(t, []int64{nearSmallDelta.ID, nearBigDelta.ID, far.ID}, ids)
	assert.Equal(t, 10.0, candidates[0].Delta)
	assert.Equal(t, 400.0, candidates[1].Delta)

	anyClient, err := env.paymentSvc.Create(ctx, &entity.Payment{Amount: 500, PaymentDate: day(2024, 3, 5)})
	require.NoError(t, err)
	candidates, err = env.paymentSvc.Candidates(ctx, anyClient.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 4)
	assert.Equal(t, foreign.ID, candidates[0].JobID)
}

func TestRankCandidates_TieBreaksOnJobID(t *testing.T) {
	date := day(2024, 6, 1)
	p := &entity.Payment{Amount: 100, PaymentDate: date}
	jobs := []*entity.Job{
		{ID: 9, TotalWithTax: 110, TargetDate: &date},
		{ID: 4, TotalWithTax: 90, TargetDate: &date},
		{ID: 7, Subtotal: 100, TargetDate: &date},
	}

	ranked := RankCandidates(p, jobs)
	require.Len(t, ranked, 3)
	assert.Equal(t, int64(7), ranked[0].JobID)
	assert.Equal(t, 100.0, ranked[0].QuotedTotal)
	assert.Equal(t, int64(4), ranked[1].JobID)
	assert.Equal(t, -10.0, ranked[1].Delta)
	assert.Equal(t, int64(9), ranked[2].JobID)
}

func TestPaymentService_Unmatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.mustClient(t, &entity.Client{Name: "Acme"})
	job := env.doneJob(t, client.ID, 250, day(2024, 2, 1))

	p, err := env.paymentSvc.Create(ctx, &entity.Payment{Amount: 250, PaymentDate: day(2024, 2, 2)})
	require.NoError(t, err)

	_, err = env.paymentSvc.Unmatch(ctx, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	matched, err := env.paymentSvc.ConfirmMatch(ctx, p.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, client.ID, matched.Client.ID())
	invoiceID := matched.MatchedInvoice.ID()

	unmatched, err := env.paymentSvc.Unmatch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusUnmatched, unmatched.Status)
	assert.False(t, unmatched.MatchedJob.IsSet())
	assert.False(t, unmatched.MatchedInvoice.IsSet())
	assert.Nil(t, unmatched.MatchedAt)

	reopened, err := env.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusSent, reopened.InvoiceStatus)
	assert.Nil(t, reopened.PaidAt)

	invoice, err := env.invoices.GetByID(ctx, invoiceID)
	require.NoError(t, err)
	assert.NotNil(t, invoice)

	candidates, err := env.paymentSvc.Candidates(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestPaymentService_ConfirmMatchRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.mustClient(t, &entity.Client{Name: "Acme"})
	job := env.doneJob(t, client.ID, 250, day(2024, 2, 1))
	p, err := env.paymentSvc.Create(ctx, &entity.Payment{Amount: 250, PaymentDate: day(2024, 2, 2)})
	require.NoError(t, err)

	_, err = env.paymentSvc.ConfirmMatch(ctx, p.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := env.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusUnmatched, stored.Status)

	env.storage.err = errors.New("disk full")
	matched, err := env.paymentSvc.ConfirmMatch(ctx, p.ID, job.ID)
	require.NoError(t, err)
	invoice, err := env.invoices.GetByID(ctx, matched.MatchedInvoice.ID())
	require.NoError(t, err)
	assert.Empty(t, invoice.FilePath)
}

func TestPaymentService_ConfirmMatchRequiresJobAwaitingPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.mustClient(t, &entity.Client{Name: "Acme"})
	open, err := env.jobSvc.Create(ctx, &entity.Job{
		ModelName: "open",
		Client:    entity.Ref[entity.Client](client.ID),
		LineItems: []entity.LineItem{{Description: "Scan", Quantity: 1, UnitPrice: 250}},
	}, "ops")
	require.NoError(t, err)
	p, err := env.paymentSvc.Create(ctx, &entity.Payment{Amount: 250, PaymentDate: day(2024, 2, 2)})
	require.NoError(t, err)

	_, err = env.paymentSvc.ConfirmMatch(ctx, p.ID, open.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	stored, err := env.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusUnmatched, stored.Status)
	assert.False(t, stored.MatchedJob.IsSet())

	job, err := env.jobs.GetByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Empty(t, job.InvoiceStatus)
	assert.Nil(t, job.PaidAt)

	done := env.doneJob(t, client.ID, 250, day(2024, 2, 1))
	matched, err := env.paymentSvc.ConfirmMatch(ctx, p.ID, done.ID)
	require.NoError(t, err)
	assert.Equal(t, done.ID, matched.MatchedJob.ID())
}

func TestPaymentService_MatchedAnnouncement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustUser(t, &entity.User{Name: "Ann", Email: "ann@example.test", Role: entity.RoleAdmin, LarkOpenID: "ou_ann"})
	env.mustUser(t, &entity.User{Name: "Bob", Email: "bob@example.test", Role: entity.RoleAdmin})
	done := make(chan struct{})
	handler := NewPaymentMatchedHandler(env.users, env.outbox, env.logger)
	env.dispatcher.SubscribeNamed(event.TypePaymentMatched, "payment-announcer", func(ctx context.Context, evt *event.Event) error {
		defer close(done)
		return handler(ctx, evt)
	})

	client := env.mustClient(t, &entity.Client{Name: "Acme"})
	job := env.doneJob(t, client.ID, 250, day(2024, 2, 1))
	p, err := env.paymentSvc.Create(ctx, &entity.Payment{Amount: 250, PaymentDate: day(2024, 2, 2)})
	require.NoError(t, err)
	_, err = env.paymentSvc.ConfirmMatch(ctx, p.ID, job.ID)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("payment.matched handler did not run")
	}
	chats := env.tasks(t, entity.OutboxKindChatMessage)
	require.Len(t, chats, 1)
	assert.Contains(t, string(chats[0].Payload), "ou_ann")
}

func TestPaymentService_Import(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.sheets.rows = []port.StatementRow{
		{Line: 2, Date: day(2024, 4, 1), Amount: 120.004, Reference: "DEP-1"},
		{Line: 3, Date: day(2024, 4, 2), Amount: -50, Reference: "FEE"},
		{Line: 4, Date: day(2024, 4, 3), Amount: 80, Reference: "DEP-2", ClientID: 3},
	}
	env.sheets.skipped = []port.StatementError{{Line: 5, Reason: "invalid date"}}

	result, err := env.paymentSvc.Import(ctx, strings.NewReader(""), port.StatementXLSX)
	require.NoError(t, err)
	require.Len(t, result.Imported, 2)
	assert.Equal(t, 120.0, result.Imported[0].Amount)
	assert.Equal(t, entity.PaymentSourceXLSX, result.Imported[0].Source)
	assert.Equal(t, int64(3), result.Imported[1].Client.ID())
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 3, result.Skipped[1].Line)

	stored, err := env.paymentSvc.List(ctx, entity.PaymentFilter{Status: entity.PaymentStatusUnmatched})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = env.paymentSvc.Import(ctx, strings.NewReader(""), "pdf")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPaymentService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.paymentSvc.Create(context.Background(), &entity.Payment{Amount: 0, PaymentDate: time.Now()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.paymentSvc.Create(context.Background(), &entity.Payment{Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.paymentSvc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
