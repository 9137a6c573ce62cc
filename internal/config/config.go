package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Email     EmailConfig     `mapstructure:"email"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Recurring RecurringConfig `mapstructure:"recurring"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Payments  PaymentsConfig  `mapstructure:"payments"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// LarkConfig holds Lark app credentials used for staff chat and e-mail
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// Enabled reports whether Lark credentials are configured
func (l LarkConfig) Enabled() bool {
	return l.AppID != "" && l.AppSecret != ""
}

// EmailConfig selects the e-mail transport
type EmailConfig struct {
	// Provider is "lark" or "log"
	Provider string `mapstructure:"provider"`
}

// NotifyConfig holds the client notify endpoint settings
type NotifyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OutboxConfig holds outbox delivery settings
type OutboxConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
}

// RecurringConfig holds the recurring invoice sweep schedule
type RecurringConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// StorageConfig holds the generated document directory
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// InvoiceConfig holds invoice document settings
type InvoiceConfig struct {
	// Dir is the invoice folder relative to storage.dir
	Dir         string `mapstructure:"dir"`
	CompanyName string `mapstructure:"company_name"`
}

// PaymentsConfig holds payment matching settings
type PaymentsConfig struct {
	CandidateLimit int `mapstructure:"candidate_limit"`
}

const (
	EmailProviderLark = "lark"
	EmailProviderLog  = "log"
)

// Load reads configuration from an optional YAML file, a .env file and the environment.
// An empty configPath loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("OMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/oms.db")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("email.provider", EmailProviderLog)

	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.batch_size", 20)
	v.SetDefault("outbox.delivery_timeout", 10*time.Second)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.initial_backoff", 30*time.Second)
	v.SetDefault("outbox.multiplier", 2.0)
	v.SetDefault("outbox.max_backoff", 30*time.Minute)

	v.SetDefault("recurring.schedule", "@every 1h")

	v.SetDefault("storage.dir", "data/documents")
	v.SetDefault("invoice.dir", "invoices")
	v.SetDefault("invoice.company_name", "ScanOps")

	v.SetDefault("payments.candidate_limit", 10)
}

// bindEnvVars binds credentials that live outside the OMS_ prefix
func bindEnvVars(v *viper.Viper) error {
	return errors.Join(
		v.BindEnv("lark.app_id", "LARK_APP_ID"),
		v.BindEnv("lark.app_secret", "LARK_APP_SECRET"),
		v.BindEnv("notify.token", "OMS_NOTIFY_TOKEN"),
	)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Email.Provider {
	case EmailProviderLog:
	case EmailProviderLark:
		if !c.Lark.Enabled() {
			return fmt.Errorf("lark.app_id and lark.app_secret are required when email.provider is lark")
		}
	default:
		return fmt.Errorf("unknown email.provider %q", c.Email.Provider)
	}

	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox.max_attempts must be positive")
	}
	if c.Outbox.Multiplier < 1 {
		return fmt.Errorf("outbox.multiplier must be at least 1")
	}

	if _, err := cron.ParseStandard(c.Recurring.Schedule); err != nil {
		return fmt.Errorf("recurring.schedule is invalid: %w", err)
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}

	return nil
}
