package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"rent-manager"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP       HTTPConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	RabbitMQ   RabbitMQConfig
	Storage    StorageConfig
	Mail       MailConfig
	Billing    BillingConfig
	Validation ValidationConfig
	Anomaly    AnomalyConfig
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"15s"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL         string `env:"DATABASE_URL,required"`
	MaxConns    int32  `env:"DATABASE_MAX_CONNS" envDefault:"0"`
	AutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET,required"`
	JWTTTL       time.Duration `env:"JWT_TTL" envDefault:"24h"`
	ResetCodeTTL time.Duration `env:"RESET_CODE_TTL" envDefault:"15m"`
}

// RabbitMQConfig holds RabbitMQ connection and queue settings. An empty URL disables AMQP.
type RabbitMQConfig struct {
	URL              string `env:"RABBITMQ_URL"`
	IngestExchange   string `env:"RABBITMQ_INGEST_EXCHANGE" envDefault:"rent-manager.ingest.exchange"`
	IngestQueue      string `env:"RABBITMQ_INGEST_QUEUE" envDefault:"rent-manager.ingest.queue"`
	IngestRoutingKey string `env:"RABBITMQ_INGEST_ROUTING_KEY" envDefault:"meter.reading.raw"`
	DLQQueue         string `env:"RABBITMQ_DLQ_QUEUE" envDefault:"rent-manager.ingest.dlq"`
	EventsExchange   string `env:"RABBITMQ_EVENTS_EXCHANGE" envDefault:"rent-manager.events.exchange"`
	PrefetchCount    int    `env:"RABBITMQ_PREFETCH" envDefault:"10"`
}

// Enabled reports whether a broker is configured.
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

type StorageConfig struct {
	Backend  string `env:"STORAGE_BACKEND" envDefault:"local"` // local | gcs
	Bucket   string `env:"STORAGE_BUCKET"`                     // required when STORAGE_BACKEND=gcs
	LocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/uploads"`
}

// MailConfig holds SMTP settings. An empty host logs emails instead of sending them.
type MailConfig struct {
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	DefaultSender string `env:"MAIL_DEFAULT_SENDER" envDefault:"noreply@rent-manager.local"`
}

type BillingConfig struct {
	StripeAPIKey    string `env:"STRIPE_API_KEY"`
	Currency        string `env:"BILLING_CURRENCY" envDefault:"inr"`
	ReferencePrefix string `env:"PAYMENT_REFERENCE_PREFIX" envDefault:"RENT"`
}

// ValidationConfig holds validation settings
type ValidationConfig struct {
	TimestampToleranceMinutes int `env:"VALIDATION_TIMESTAMP_TOLERANCE_MINUTES" envDefault:"10080"`
}

// AnomalyConfig holds anomaly detection settings
type AnomalyConfig struct {
	SpikeThreshold            float64 `env:"ANOMALY_SPIKE_THRESHOLD" envDefault:"3.0"`
	MinDataPointsForDetection int     `env:"ANOMALY_MIN_DATA_POINTS" envDefault:"3"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.Storage.Backend {
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_DIR is required when STORAGE_BACKEND=local"))
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET is required when STORAGE_BACKEND=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE_BACKEND %q (use local or gcs)", c.Storage.Backend))
	}
	if c.Auth.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.Auth.ResetCodeTTL <= 0 {
		errs = append(errs, errors.New("RESET_CODE_TTL must be positive"))
	}
	if c.RabbitMQ.PrefetchCount <= 0 {
		errs = append(errs, errors.New("RABBITMQ_PREFETCH must be positive"))
	}

	return errors.Join(errs...)
}

// LoadDotEnv loads the first .env file found in the working directory or up to two
// parents. It returns the absolute path loaded, or "" when none exists.
func LoadDotEnv() string {
	envPaths := []string{
		".env",       // current working directory (pods/containers)
		"../../.env", // running from bin/ subdirectory
	}
	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		envPaths = append(envPaths,
			filepath.Join(workDir, ".env"),
			filepath.Join(parentDir, ".env"),
			filepath.Join(filepath.Dir(parentDir), ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			absPath, _ := filepath.Abs(envPath)
			return absPath
		}
	}
	return ""
}
