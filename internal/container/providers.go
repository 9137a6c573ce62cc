package container

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/dispatcher"
	"github.com/scanops/oms/internal/application/pipeline"
	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/application/service"
	"github.com/scanops/oms/internal/domain/event"
	"github.com/scanops/oms/internal/infrastructure/external/email"
	infraLark "github.com/scanops/oms/internal/infrastructure/external/lark"
	"github.com/scanops/oms/internal/infrastructure/external/notify"
	"github.com/scanops/oms/internal/infrastructure/persistence/migrations"
	"github.com/scanops/oms/internal/infrastructure/persistence/sqlite"
	"github.com/scanops/oms/internal/infrastructure/spreadsheet"
	"github.com/scanops/oms/internal/infrastructure/storage"
	"github.com/scanops/oms/internal/infrastructure/worker"
	"github.com/scanops/oms/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ExternalBundle holds the outbound transports. Nil members are disabled.
type ExternalBundle struct {
	Lark      *infraLark.Client
	Email     port.EmailSender
	Chat      port.ChatMessenger
	Notifier  port.ClientNotifier
	Renderer  port.EmailRenderer
	Documents port.FileStorage
	Sheets    port.Spreadsheets
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &DatabaseBundle{
		SqlDB:          sqlDB,
		TransactionMgr: sqlite.NewDB(sqlDB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Job:          sqlite.NewJobRepository(sqlDB, logger),
		Template:     sqlite.NewTemplateRepository(sqlDB, logger),
		Client:       sqlite.NewClientRepository(sqlDB, logger),
		User:         sqlite.NewUserRepository(sqlDB, logger),
		Technician:   sqlite.NewTechnicianRepository(sqlDB, logger),
		Notification: sqlite.NewNotificationRepository(sqlDB, logger),
		Payment:      sqlite.NewPaymentRepository(sqlDB, logger),
		Invoice:      sqlite.NewInvoiceRepository(sqlDB, logger),
		Recurring:    sqlite.NewRecurringIntentRepository(sqlDB, logger),
		Outbox:       sqlite.NewOutboxRepository(sqlDB, logger),
	}, nil
}

// ProvideExternal builds the transports and document stores named by the config.
func ProvideExternal(cfg *Config, logger *zap.Logger) (*ExternalBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	bundle := &ExternalBundle{
		Renderer:  email.NewRenderer(),
		Documents: storage.NewDocumentStore(cfg.Storage.Dir, logger),
		Sheets:    spreadsheet.New(cfg.Storage.CompanyName, logger),
		Email:     email.NewLogSender(logger),
	}

	if cfg.Lark.Enabled() {
		bundle.Lark = infraLark.NewClient(infraLark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, logger)
		bundle.Chat = infraLark.NewMessenger(bundle.Lark)
		if cfg.Email.UseLark {
			bundle.Email = infraLark.NewEmailSender(bundle.Lark)
		}
	} else {
		logger.Warn("Lark credentials not configured, staff chat messages will not be delivered")
	}

	if cfg.Notify.BaseURL != "" {
		bundle.Notifier = notify.NewClient(notify.Config{
			BaseURL: cfg.Notify.BaseURL,
			Token:   cfg.Notify.Token,
			Timeout: cfg.Notify.Timeout,
		}, logger)
	} else {
		logger.Warn("Notify base URL not configured, client milestone notifications will not be delivered")
	}

	return bundle, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger})), nil
}

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	External   *ExternalBundle
	Dispatcher dispatcher.Dispatcher
	Config     *Config
	Logger     *zap.Logger
}

// ProvideServices creates the application services and registers the event handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.External == nil || deps.Dispatcher == nil || deps.Config == nil {
		return nil, fmt.Errorf("service dependencies are incomplete")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	r := deps.Repos
	ext := deps.External
	log := &zapLoggerAdapter{logger: deps.Logger}

	outbox := service.NewOutboxService(r.Outbox, deps.Config.Worker.OutboxMaxAttempts, log)

	service.NewTriggerExecutor(r.User, r.Technician, r.Client, r.Notification, r.Recurring, outbox, ext.Renderer, log).
		Register(deps.Dispatcher)
	service.NewClientMilestoneNotifier(r.Client, outbox, log).Register(deps.Dispatcher)
	deps.Dispatcher.SubscribeNamed(event.TypePaymentMatched, "payment-announcer",
		service.NewPaymentMatchedHandler(r.User, outbox, log))

	generator := service.NewInvoiceGenerator(r.Invoice, r.Client, ext.Sheets, ext.Documents, deps.Config.Storage.InvoiceDir, log)

	return &ServiceBundle{
		Jobs: service.NewJobService(r.Job, r.Template, r.Client, pipeline.Default(),
			deps.Dispatcher, ext.Renderer, outbox, deps.TxManager, log),
		Templates:     service.NewTemplateService(r.Template, log),
		Directory:     service.NewDirectoryService(r.Client, r.User, r.Technician, r.Template, log),
		Notifications: service.NewNotificationService(r.Notification, log),
		Payments: service.NewPaymentService(r.Payment, r.Job, generator, ext.Sheets,
			deps.Dispatcher, deps.TxManager, deps.Config.Payments.CandidateLimit, log),
		Outbox:  outbox,
		Reports: service.NewReportService(r.Job, ext.Sheets, log),
	}, nil
}

// WorkerDeps contains dependencies for creating workers.
type WorkerDeps struct {
	Repos     *RepositoryBundle
	External  *ExternalBundle
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers registers the outbox worker and the recurring invoice sweeper.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil || deps.Repos == nil || deps.External == nil || deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker dependencies are incomplete")
	}

	cfg := deps.WorkerCfg
	manager := worker.NewManager(deps.Logger)

	deliverers := worker.Deliverers(deps.External.Email, deps.External.Chat, deps.External.Notifier)
	manager.Register(worker.NewOutboxWorker(worker.OutboxWorkerConfig{
		PollInterval:      cfg.OutboxPollInterval,
		BatchSize:         cfg.OutboxBatchSize,
		DeliveryTimeout:   cfg.OutboxDeliveryTimeout,
		InitialBackoff:    cfg.InitialBackoff,
		BackoffMultiplier: cfg.BackoffMultiplier,
		MaxBackoff:        cfg.MaxBackoff,
	}, deps.Repos.Outbox, deliverers, deps.Logger))

	manager.Register(worker.NewRecurringInvoiceSweeper(cfg.RecurringSchedule, deps.Repos.Recurring, deps.Logger))

	return manager, nil
}
