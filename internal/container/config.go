// Package container provides dependency injection and lifecycle management
// for the order management service.
package container

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Lark     LarkConfig
	Email    EmailConfig
	Notify   NotifyConfig
	Storage  StorageConfig
	Server   ServerConfig
	Worker   WorkerConfig
	Payments PaymentsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// LarkConfig holds Lark app credentials. Empty credentials disable staff chat.
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// Enabled reports whether a Lark client can be built
func (l LarkConfig) Enabled() bool {
	return l.AppID != "" && l.AppSecret != ""
}

// EmailConfig selects the e-mail transport.
type EmailConfig struct {
	// UseLark sends client e-mail through Lark; otherwise e-mail is only logged
	UseLark bool
}

// NotifyConfig holds the client notify endpoint settings.
// An empty BaseURL disables client milestone notifications.
type NotifyConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// StorageConfig holds generated document settings.
type StorageConfig struct {
	// Dir is the base directory for generated documents
	Dir string

	// InvoiceDir is the invoice folder under Dir
	InvoiceDir string

	// CompanyName printed on invoices and reports
	CompanyName string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// Outbox delivery
	OutboxPollInterval    time.Duration
	OutboxBatchSize       int
	OutboxDeliveryTimeout time.Duration
	OutboxMaxAttempts     int

	// Retry backoff
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration

	// RecurringSchedule is a standard cron spec for the recurring invoice sweep
	RecurringSchedule string
}

// PaymentsConfig holds payment matching settings.
type PaymentsConfig struct {
	CandidateLimit int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/oms.db",
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Dir:         "data/documents",
			InvoiceDir:  "invoices",
			CompanyName: "ScanOps",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			OutboxPollInterval:    5 * time.Second,
			OutboxBatchSize:       20,
			OutboxDeliveryTimeout: 10 * time.Second,
			OutboxMaxAttempts:     5,
			InitialBackoff:        30 * time.Second,
			BackoffMultiplier:     2,
			MaxBackoff:            30 * time.Minute,
			RecurringSchedule:     "@every 1h",
		},
		Payments: PaymentsConfig{
			CandidateLimit: 10,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage directory is required")
	}
	if c.Email.UseLark && !c.Lark.Enabled() {
		return fmt.Errorf("lark credentials are required for lark e-mail")
	}
	if _, err := cron.ParseStandard(c.Worker.RecurringSchedule); err != nil {
		return fmt.Errorf("invalid recurring schedule: %w", err)
	}
	return nil
}
