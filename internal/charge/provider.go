// Package charge creates card payment intents with an external processor.
package charge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by Unconfigured for every request.
var ErrNotConfigured = errors.New("card payments are not configured")

// Request describes the amount to reserve.
type Request struct {
	// AmountMinor is in the currency's smallest unit.
	AmountMinor int64
	Currency    string
	TenantID    int64
}

// Intent is a client-confirmable handle returned by the processor.
type Intent struct {
	ID           string
	ClientSecret string
}

// Provider creates charge intents.
type Provider interface {
	CreateIntent(ctx context.Context, req Request) (Intent, error)
}

// StripeProvider creates Stripe PaymentIntents.
type StripeProvider struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeProvider creates a new StripeProvider
func NewStripeProvider(apiKey string, logger *zap.Logger) *StripeProvider {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeProvider{api: sc, logger: logger}
}

// CreateIntent creates a PaymentIntent tagged with the tenant id.
func (p *StripeProvider) CreateIntent(ctx context.Context, req Request) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(req.TenantID, 10))

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		p.logger.Error("stripe payment intent creation failed",
			zap.Error(err),
			zap.Int64("tenant_id", req.TenantID),
			zap.Int64("amount_minor", req.AmountMinor),
		)
		return Intent{}, fmt.Errorf("failed to create payment intent: %w", err)
	}

	p.logger.Debug("stripe payment intent created", zap.String("intent_id", pi.ID))
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// Unconfigured rejects every card charge. Used when no processor key is set.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, Request) (Intent, error) {
	return Intent{}, ErrNotConfigured
}
