package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/oms.db", cfg.Database.Path)
	assert.Equal(t, EmailProviderLog, cfg.Email.Provider)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Outbox.InitialBackoff)
	assert.Equal(t, "@every 1h", cfg.Recurring.Schedule)
	assert.Equal(t, 10, cfg.Payments.CandidateLimit)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LARK_APP_ID", "cli_test")
	t.Setenv("LARK_APP_SECRET", "secret")
	t.Setenv("OMS_NOTIFY_TOKEN", "s3cret")
	t.Setenv("OMS_SERVER_PORT", "9090")

	path := writeConfig(t, `
server:
  port: 8081
email:
  provider: lark
outbox:
  max_attempts: 3
  initial_backoff: 1s
recurring:
  schedule: "0 6 * * *"
invoice:
  company_name: Acme Scanning
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "cli_test", cfg.Lark.AppID)
	assert.True(t, cfg.Lark.Enabled())
	assert.Equal(t, "s3cret", cfg.Notify.Token)
	assert.Equal(t, EmailProviderLark, cfg.Email.Provider)
	assert.Equal(t, 3, cfg.Outbox.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Outbox.InitialBackoff)
	assert.Equal(t, "0 6 * * *", cfg.Recurring.Schedule)
	assert.Equal(t, "Acme Scanning", cfg.Invoice.CompanyName)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Path: "oms.db"},
			Email:     EmailConfig{Provider: EmailProviderLog},
			Outbox:    OutboxConfig{MaxAttempts: 5, Multiplier: 2},
			Recurring: RecurringConfig{Schedule: "@every 1h"},
			Storage:   StorageConfig{Dir: "documents"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "lark provider without credentials", mutate: func(c *Config) { c.Email.Provider = EmailProviderLark }, wantErr: "lark.app_id"},
		{name: "lark provider with credentials", mutate: func(c *Config) {
			c.Email.Provider = EmailProviderLark
			c.Lark = LarkConfig{AppID: "id", AppSecret: "secret"}
		}},
		{name: "unknown provider", mutate: func(c *Config) { c.Email.Provider = "smtp" }, wantErr: "unknown email.provider"},
		{name: "zero attempts", mutate: func(c *Config) { c.Outbox.MaxAttempts = 0 }, wantErr: "outbox.max_attempts"},
		{name: "shrinking backoff", mutate: func(c *Config) { c.Outbox.Multiplier = 0.5 }, wantErr: "outbox.multiplier"},
		{name: "bad schedule", mutate: func(c *Config) { c.Recurring.Schedule = "whenever" }, wantErr: "recurring.schedule"},
		{name: "missing storage dir", mutate: func(c *Config) { c.Storage.Dir = "" }, wantErr: "storage.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg := &Config{
		Email:    EmailConfig{Provider: EmailProviderLark},
		Storage:  StorageConfig{Dir: "docs"},
		Invoice:  InvoiceConfig{Dir: "inv", CompanyName: "Acme"},
		Outbox:   OutboxConfig{MaxAttempts: 4, Multiplier: 3},
		Payments: PaymentsConfig{CandidateLimit: 7},
	}

	cc := cfg.ToContainerConfig()
	assert.True(t, cc.Email.UseLark)
	assert.Equal(t, "docs", cc.Storage.Dir)
	assert.Equal(t, "inv", cc.Storage.InvoiceDir)
	assert.Equal(t, "Acme", cc.Storage.CompanyName)
	assert.Equal(t, 4, cc.Worker.OutboxMaxAttempts)
	assert.Equal(t, 3.0, cc.Worker.BackoffMultiplier)
	assert.Equal(t, 7, cc.Payments.CandidateLimit)
}
