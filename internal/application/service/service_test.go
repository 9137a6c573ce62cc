package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/dispatcher"
	"github.com/scanops/oms/internal/application/pipeline"
	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
	"github.com/scanops/oms/internal/domain/event"
	"github.com/scanops/oms/internal/infrastructure/persistence/sqlite"
	"github.com/scanops/oms/internal/testutil"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) hasWarn(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.warns {
		if w == msg {
			return true
		}
	}
	return false
}

type mockRenderer struct {
	renderFunc func(template string, data port.EmailData) (*port.EmailMessage, error)
	rendered   []string
}

func (m *mockRenderer) Render(template string, data port.EmailData) (*port.EmailMessage, error) {
	m.rendered = append(m.rendered, template)
	if m.renderFunc != nil {
		return m.renderFunc(template, data)
	}
	return &port.EmailMessage{
		Subject: fmt.Sprintf("%s: %s", data.JobCode, data.StepName),
		HTML:    "<p>" + data.ClientName + "</p>",
	}, nil
}

func (m *mockRenderer) RenderNotification(data port.EmailData) (*port.EmailMessage, error) {
	m.rendered = append(m.rendered, string(data.NotificationType))
	return &port.EmailMessage{
		Subject: fmt.Sprintf("%s update", data.JobCode),
		HTML:    "<p>" + string(data.NotificationType) + "</p>",
	}, nil
}

type mockSpreadsheets struct {
	rows    []port.StatementRow
	skipped []port.StatementError
	err     error
}

func (m *mockSpreadsheets) InvoiceWorkbook(data port.InvoiceWorkbookData) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []byte("xlsx:" + data.Invoice.Number), nil
}

func (m *mockSpreadsheets) JobReport(jobs []*entity.Job) ([]byte, error) {
	return []byte(fmt.Sprintf("jobs:%d", len(jobs))), nil
}

func (m *mockSpreadsheets) ReadStatement(r io.Reader, format port.StatementFormat) ([]port.StatementRow, []port.StatementError, error) {
	return m.rows, m.skipped, m.err
}

type mockStorage struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return content, nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, err := m.Read(ctx, path)
	return err == nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/tmp/" + relativePath
}

// testEnv wires the services against a real migrated database
type testEnv struct {
	jobs          port.JobRepository
	templates     port.TemplateRepository
	clients       port.ClientRepository
	users         port.UserRepository
	techs         port.TechnicianRepository
	notifications port.NotificationRepository
	payments      port.PaymentRepository
	invoices      port.InvoiceRepository
	intents       port.RecurringIntentRepository
	outboxRepo    port.OutboxRepository

	dispatcher dispatcher.Dispatcher
	outbox     OutboxService
	jobSvc     JobService
	paymentSvc PaymentService
	renderer   *mockRenderer
	sheets     *mockSpreadsheets
	storage    *mockStorage
	logger     *mockLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	zl := zap.NewNop()
	env := &testEnv{
		jobs:          sqlite.NewJobRepository(db, zl),
		templates:     sqlite.NewTemplateRepository(db, zl),
		clients:       sqlite.NewClientRepository(db, zl),
		users:         sqlite.NewUserRepository(db, zl),
		techs:         sqlite.NewTechnicianRepository(db, zl),
		notifications: sqlite.NewNotificationRepository(db, zl),
		payments:      sqlite.NewPaymentRepository(db, zl),
		invoices:      sqlite.NewInvoiceRepository(db, zl),
		intents:       sqlite.NewRecurringIntentRepository(db, zl),
		outboxRepo:    sqlite.NewOutboxRepository(db, zl),
		renderer:      &mockRenderer{},
		sheets:        &mockSpreadsheets{},
		storage:       &mockStorage{},
		logger:        &mockLogger{},
	}
	tx := sqlite.NewDB(db, zl)

	env.dispatcher = dispatcher.NewDispatcher()
	t.Cleanup(func() { _ = env.dispatcher.Close() })
	env.outbox = NewOutboxService(env.outboxRepo, 3, env.logger)

	NewTriggerExecutor(env.users, env.techs, env.clients, env.notifications, env.intents, env.outbox, env.renderer, env.logger).
		Register(env.dispatcher)
	NewClientMilestoneNotifier(env.clients, env.outbox, env.logger).Register(env.dispatcher)

	env.jobSvc = NewJobService(env.jobs, env.templates, env.clients, pipeline.Default(), env.dispatcher, env.renderer, env.outbox, tx, env.logger)

	generator := NewInvoiceGenerator(env.invoices, env.clients, env.sheets, env.storage, "invoices", env.logger)
	env.paymentSvc = NewPaymentService(env.payments, env.jobs, generator, env.sheets, env.dispatcher, tx, 5, env.logger)
	return env
}

func (env *testEnv) mustTemplate(t *testing.T, tpl *entity.WorkflowTemplate) *entity.WorkflowTemplate {
	t.Helper()
	tpl.IsActive = true
	if err := env.templates.Create(context.Background(), tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func (env *testEnv) mustClient(t *testing.T, c *entity.Client) *entity.Client {
	t.Helper()
	if err := env.clients.Create(context.Background(), c); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func (env *testEnv) mustUser(t *testing.T, u *entity.User) *entity.User {
	t.Helper()
	if err := env.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (env *testEnv) tasks(t *testing.T, kind entity.OutboxKind) []*entity.OutboxTask {
	t.Helper()
	all, err := env.outboxRepo.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	var out []*entity.OutboxTask
	for _, task := range all {
		if task.Kind == kind {
			out = append(out, task)
		}
	}
	return out
}

// recordEvents captures dispatched events of the given types
func recordEvents(d dispatcher.Dispatcher, types ...event.Type) *[]*event.Event {
	var mu sync.Mutex
	var got []*event.Event
	for _, typ := range types {
		d.Subscribe(typ, func(ctx context.Context, evt *event.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, evt)
			return nil
		})
	}
	return &got
}
