package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/anomaly"
	"github.com/septivank/rent-manager/internal/auth"
	"github.com/septivank/rent-manager/internal/blob"
	"github.com/septivank/rent-manager/internal/charge"
	"github.com/septivank/rent-manager/internal/config"
	"github.com/septivank/rent-manager/internal/db"
	"github.com/septivank/rent-manager/internal/mail"
	"github.com/septivank/rent-manager/internal/maintenance"
	"github.com/septivank/rent-manager/internal/mq"
	"github.com/septivank/rent-manager/internal/payments"
	"github.com/septivank/rent-manager/internal/rates"
	"github.com/septivank/rent-manager/internal/readings"
	"github.com/septivank/rent-manager/internal/repository"
	"github.com/septivank/rent-manager/internal/repository/postgres"
	"github.com/septivank/rent-manager/internal/roster"
	"github.com/septivank/rent-manager/internal/secrets"
	"github.com/septivank/rent-manager/internal/service"
	"github.com/septivank/rent-manager/internal/transport/httpapi"
	"github.com/septivank/rent-manager/internal/validator"
)

// ProvideDBPool creates the PostgreSQL pool, migrating on start when enabled
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, db.PoolConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		AutoMigrate: cfg.Database.AutoMigrate,
	})
}

// ProvideStore exposes the PostgreSQL store as the repository interface
func ProvideStore(pool *db.Pool) repository.Store {
	return postgres.NewStore(pool)
}

// ProvideBlobStore selects the image store for STORAGE_BACKEND
func ProvideBlobStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewClient(context.Background())
		if err != nil {
			return nil, fmt.Errorf("[STORAGE] failed to create GCS client: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		logger.Info("using GCS image storage", zap.String("bucket", cfg.Storage.Bucket))
		return blob.NewGCSStore(client, cfg.Storage.Bucket), nil
	default:
		logger.Info("using local image storage", zap.String("dir", cfg.Storage.LocalDir))
		return blob.NewLocalStore(cfg.Storage.LocalDir), nil
	}
}

// ProvideMailer sends through SMTP when a host is configured and logs otherwise
func ProvideMailer(cfg *config.Config, logger *zap.Logger) mail.Dispatcher {
	if cfg.Mail.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		return mail.NewLogDispatcher(logger)
	}
	return mail.NewSMTPDispatcher(mail.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.SMTPUsername,
		Password: cfg.Mail.SMTPPassword,
		From:     cfg.Mail.DefaultSender,
	})
}

// ProvideChargeProvider uses Stripe when an API key is configured
func ProvideChargeProvider(cfg *config.Config, logger *zap.Logger) charge.Provider {
	if cfg.Billing.StripeAPIKey == "" {
		logger.Warn("STRIPE_API_KEY not set, card payments are disabled")
		return charge.Unconfigured{}
	}
	return charge.NewStripeProvider(cfg.Billing.StripeAPIKey, logger)
}

func ProvideRates() *rates.Registry { return rates.NewRegistry() }

func ProvideReadings() *readings.Ledger { return readings.NewLedger() }

func ProvidePayments(provider charge.Provider, cfg *config.Config) *payments.Ledger {
	return payments.NewLedger(provider, cfg.Billing.Currency, cfg.Billing.ReferencePrefix)
}

func ProvideRoster() *roster.Roster { return roster.New() }

func ProvideMaintenance() *maintenance.Service { return maintenance.NewService() }

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.TimestampToleranceMinutes)
}

// ProvideAnomalyDetector creates a new anomaly detector instance
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection)
}

func ProvideTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	return auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, cfg.ServiceName)
}

func ProvideSecrets() *secrets.Source { return secrets.New() }

// ProvideMQConnection dials RabbitMQ. It returns a nil connection when no
// broker is configured.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if !cfg.RabbitMQ.Enabled() {
		logger.Info("RABBITMQ_URL not set, AMQP ingest and events are disabled")
		return nil, nil
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the domain event publisher
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (mq.EventPublisher, error) {
	if conn == nil {
		return mq.NopPublisher{}, nil
	}

	pub, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

// ProvideService assembles the application service
func ProvideService(
	store repository.Store,
	rateRegistry *rates.Registry,
	readingLedger *readings.Ledger,
	paymentLedger *payments.Ledger,
	r *roster.Roster,
	m *maintenance.Service,
	v *validator.Validator,
	detector *anomaly.Detector,
	tokens *auth.TokenIssuer,
	src *secrets.Source,
	mailer mail.Dispatcher,
	blobs blob.Store,
	events mq.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *service.Service {
	return service.New(service.Deps{
		Store:        store,
		Rates:        rateRegistry,
		Readings:     readingLedger,
		Payments:     paymentLedger,
		Roster:       r,
		Maintenance:  m,
		Validator:    v,
		Detector:     detector,
		Tokens:       tokens,
		Secrets:      src,
		Mailer:       mailer,
		Blobs:        blobs,
		Events:       events,
		ResetCodeTTL: cfg.Auth.ResetCodeTTL,
		Logger:       logger,
	})
}

func ProvideHTTPServer(svc *service.Service, tokens *auth.TokenIssuer, cfg *config.Config, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(svc, tokens, logger, cfg.HTTP.RequestTimeout)
}
