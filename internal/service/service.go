// Package service exposes the application operations. Each operation runs in
// one transaction and publishes its domain events only after commit.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/anomaly"
	"github.com/septivank/rent-manager/internal/auth"
	"github.com/septivank/rent-manager/internal/blob"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/logging"
	"github.com/septivank/rent-manager/internal/mail"
	"github.com/septivank/rent-manager/internal/maintenance"
	"github.com/septivank/rent-manager/internal/metrics"
	"github.com/septivank/rent-manager/internal/mq"
	"github.com/septivank/rent-manager/internal/payments"
	"github.com/septivank/rent-manager/internal/rates"
	"github.com/septivank/rent-manager/internal/readings"
	"github.com/septivank/rent-manager/internal/repository"
	"github.com/septivank/rent-manager/internal/roster"
	"github.com/septivank/rent-manager/internal/secrets"
	"github.com/septivank/rent-manager/internal/validator"
)

const (
	// recentPaymentsLimit caps the payment lists on both dashboards.
	recentPaymentsLimit = 10
	// anomalyWindow is how many earlier deltas form the spike baseline.
	anomalyWindow = 10
	// tenantCodeAttempts bounds the retry loop for unique tenant codes.
	tenantCodeAttempts = 10
)

// Deps are the collaborators a Service needs.
type Deps struct {
	Store        repository.Store
	Rates        *rates.Registry
	Readings     *readings.Ledger
	Payments     *payments.Ledger
	Roster       *roster.Roster
	Maintenance  *maintenance.Service
	Validator    *validator.Validator
	Detector     *anomaly.Detector
	Tokens       *auth.TokenIssuer
	Secrets      *secrets.Source
	Mailer       mail.Dispatcher
	Blobs        blob.Store
	Events       mq.EventPublisher
	ResetCodeTTL time.Duration
	Logger       *zap.Logger
}

type Service struct {
	store        repository.Store
	rates        *rates.Registry
	readings     *readings.Ledger
	payments     *payments.Ledger
	roster       *roster.Roster
	maintenance  *maintenance.Service
	validator    *validator.Validator
	detector     *anomaly.Detector
	tokens       *auth.TokenIssuer
	secrets      *secrets.Source
	mailer       mail.Dispatcher
	blobs        blob.Store
	events       mq.EventPublisher
	resetCodeTTL time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func New(d Deps) *Service {
	events := d.Events
	if events == nil {
		events = mq.NopPublisher{}
	}
	return &Service{
		store:        d.Store,
		rates:        d.Rates,
		readings:     d.Readings,
		payments:     d.Payments,
		roster:       d.Roster,
		maintenance:  d.Maintenance,
		validator:    d.Validator,
		detector:     d.Detector,
		tokens:       d.Tokens,
		secrets:      d.Secrets,
		mailer:       d.Mailer,
		blobs:        d.Blobs,
		events:       events,
		resetCodeTTL: d.ResetCodeTTL,
		logger:       d.Logger,
		now:          time.Now,
	}
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, s.logger)
}

// publish sends committed events. Failures are logged and counted only.
func (s *Service) publish(ctx context.Context, events ...mq.Event) {
	for _, ev := range events {
		if err := s.events.Publish(ctx, ev); err != nil {
			metrics.EventPublishFailuresTotal.WithLabelValues(ev.Type).Inc()
			s.log(ctx).Warn("failed to publish event",
				zap.Error(err),
				zap.String("event_type", ev.Type),
				zap.String("event_id", ev.ID),
			)
		}
	}
}

// Authenticate resolves verified token claims to the current account. Tokens of
// deleted accounts or with a stale role are refused.
func (s *Service) Authenticate(ctx context.Context, claims auth.Claims) (domain.Account, error) {
	var acct domain.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		acct, err = tx.Accounts().Get(ctx, claims.AccountID)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if acct.Role() != claims.Role {
		return nil, domain.Unauthorized("role changed since token was issued")
	}
	return acct, nil
}

// AsOwner narrows acct to an Owner or fails with an Unauthorized error.
func AsOwner(acct domain.Account) (domain.Owner, error) {
	owner, ok := acct.(domain.Owner)
	if !ok {
		return domain.Owner{}, domain.Unauthorized("owner account required")
	}
	return owner, nil
}

// AsTenant narrows acct to a Tenant or fails with an Unauthorized error.
func AsTenant(acct domain.Account) (domain.Tenant, error) {
	tenant, ok := acct.(domain.Tenant)
	if !ok {
		return domain.Tenant{}, domain.Unauthorized("tenant account required")
	}
	return tenant, nil
}
