package config

import (
	"github.com/scanops/oms/internal/container"
)

// ToContainerConfig converts the file-based Config into the container's configuration
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
		Email: container.EmailConfig{
			UseLark: c.Email.Provider == EmailProviderLark,
		},
		Notify: container.NotifyConfig{
			BaseURL: c.Notify.BaseURL,
			Token:   c.Notify.Token,
			Timeout: c.Notify.Timeout,
		},
		Storage: container.StorageConfig{
			Dir:         c.Storage.Dir,
			InvoiceDir:  c.Invoice.Dir,
			CompanyName: c.Invoice.CompanyName,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Worker: container.WorkerConfig{
			OutboxPollInterval:    c.Outbox.PollInterval,
			OutboxBatchSize:       c.Outbox.BatchSize,
			OutboxDeliveryTimeout: c.Outbox.DeliveryTimeout,
			OutboxMaxAttempts:     c.Outbox.MaxAttempts,
			InitialBackoff:        c.Outbox.InitialBackoff,
			BackoffMultiplier:     c.Outbox.Multiplier,
			MaxBackoff:            c.Outbox.MaxBackoff,
			RecurringSchedule:     c.Recurring.Schedule,
		},
		Payments: container.PaymentsConfig{
			CandidateLimit: c.Payments.CandidateLimit,
		},
	}
}
