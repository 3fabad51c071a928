package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/billing"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/metrics"
	"github.com/septivank/rent-manager/internal/mq"
	"github.com/septivank/rent-manager/internal/payments"
	"github.com/septivank/rent-manager/internal/repository"
)

// Bill is the unrounded breakdown for a tenant plus the inputs it came from.
type Bill struct {
	Breakdown   billing.Breakdown
	Electricity billing.Usage
	Water       billing.Usage
	TenantCount int
	// Period is nil when the tenant has no readings at all.
	Period *billing.Period
}

// Display is the breakdown with every component rounded to two decimals.
func (b Bill) Display() billing.Breakdown {
	return b.Breakdown.Rounded()
}

// MeterStatus summarises one meter for the tenant dashboard.
type MeterStatus struct {
	Meter       domain.MeterType
	Latest      *domain.Reading
	Previous    *domain.Reading
	Consumption *float64
	Rate        *float64
}

type TenantDashboard struct {
	Tenant domain.Tenant
	Bill   Bill
	Meters []MeterStatus
	// CurrentPayment covers Bill.Period, if any charge was created for it.
	CurrentPayment *domain.Payment
	RecentPayments []domain.Payment
}

// ComputeBill prices the tenant's latest consumption at the owner's current rates.
func (s *Service) ComputeBill(ctx context.Context, tenant domain.Tenant) (Bill, error) {
	var bill Bill
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		bill, err = s.computeBill(ctx, tx, tenant)
		return err
	})
	return bill, err
}

func (s *Service) computeBill(ctx context.Context, tx repository.Tx, tenant domain.Tenant) (Bill, error) {
	owner, err := s.roster.OwnerOf(ctx, tx, tenant)
	if err != nil {
		return Bill{}, err
	}

	usage := make(map[domain.MeterType]billing.Usage, len(domain.MeterTypes))
	for _, meter := range domain.MeterTypes {
		u, err := s.readings.Pair(ctx, tx, tenant.ID, meter)
		if err != nil {
			return Bill{}, err
		}
		if u.Rate, err = s.rates.BillingRate(ctx, tx, owner.ID, meter); err != nil {
			return Bill{}, err
		}
		usage[meter] = u
	}

	count, err := s.roster.Size(ctx, tx, owner.ID)
	if err != nil {
		return Bill{}, err
	}

	bill := Bill{
		Electricity: usage[domain.MeterElectricity],
		Water:       usage[domain.MeterWater],
		TenantCount: count,
	}
	bill.Breakdown = billing.Calculate(billing.Input{
		Rent:        tenant.RentAmount,
		Electricity: bill.Electricity,
		Water:       bill.Water,
		TenantCount: count,
	})
	if p, ok := billing.PeriodOf(bill.Electricity, bill.Water); ok {
		bill.Period = &p
	}
	return bill, nil
}

// Dashboard returns the tenant's bill, meter summary and recent payments.
func (s *Service) Dashboard(ctx context.Context, tenant domain.Tenant) (TenantDashboard, error) {
	dash := TenantDashboard{Tenant: tenant}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		bill, err := s.computeBill(ctx, tx, tenant)
		if err != nil {
			return err
		}
		dash.Bill = bill
		dash.Meters = []MeterStatus{
			meterStatus(domain.MeterElectricity, bill.Electricity),
			meterStatus(domain.MeterWater, bill.Water),
		}

		if bill.Period != nil {
			if dash.CurrentPayment, err = s.payments.Covering(ctx, tx, tenant.ID, *bill.Period); err != nil {
				return err
			}
		}

		dash.RecentPayments, err = s.payments.History(ctx, tx, tenant.ID, recentPaymentsLimit)
		return err
	})
	return dash, err
}

func meterStatus(meter domain.MeterType, u billing.Usage) MeterStatus {
	ms := MeterStatus{Meter: meter, Latest: u.Latest, Previous: u.Previous, Rate: u.Rate}
	if delta, ok := u.Consumption(); ok {
		ms.Consumption = &delta
	}
	return ms
}

// CreateCharge bills the tenant's current period and records a pending payment.
func (s *Service) CreateCharge(ctx context.Context, tenant domain.Tenant, method string) (payments.Handle, error) {
	var handle payments.Handle
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		bill, err := s.computeBill(ctx, tx, tenant)
		if err != nil {
			return err
		}
		handle, err = s.payments.CreatePendingCharge(ctx, tx, tenant, bill.Breakdown, bill.Period, domain.PaymentMethod(method))
		return err
	})
	if err != nil {
		return payments.Handle{}, err
	}

	if handle.Payment.Method == domain.MethodCard {
		handle, err = s.openCardIntent(ctx, handle)
		if err != nil {
			return payments.Handle{}, err
		}
	}

	p := handle.Payment
	metrics.PaymentsCreatedTotal.WithLabelValues(string(p.Method)).Inc()
	s.log(ctx).Info("payment created",
		zap.Int64("payment_id", p.ID),
		zap.Int64("tenant_id", tenant.ID),
		zap.String("method", string(p.Method)),
		zap.Float64("amount", p.Amount),
	)
	s.publish(ctx, mq.NewEvent(mq.EventPaymentCreated, paymentEvent(p)))
	return handle, nil
}

// openCardIntent opens the provider intent for a committed pending card
// payment. A provider failure voids the payment so the period can be charged again.
func (s *Service) openCardIntent(ctx context.Context, handle payments.Handle) (payments.Handle, error) {
	p := handle.Payment
	logger := s.log(ctx).With(zap.Int64("payment_id", p.ID), zap.Int64("tenant_id", p.TenantID))

	intent, err := s.payments.RequestIntent(ctx, p)
	if err != nil {
		metrics.ChargeProviderErrorsTotal.Inc()
		logger.Error("charge provider failed", zap.Error(err))
		voidErr := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return s.payments.Void(ctx, tx, p.ID)
		})
		if voidErr != nil {
			logger.Error("failed to void payment after provider failure", zap.Error(voidErr))
		}
		return payments.Handle{}, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err = s.payments.AttachIntent(ctx, tx, p.ID, intent)
		return err
	})
	if err != nil {
		logger.Error("card intent opened but not recorded", zap.String("intent_id", intent.ID), zap.Error(err))
		return payments.Handle{}, err
	}

	handle.Payment = p
	handle.Reference = intent.ID
	handle.ClientSecret = intent.ClientSecret
	return handle, nil
}

// TransitionPayment completes or rejects a pending payment of one of owner's tenants.
func (s *Service) TransitionPayment(ctx context.Context, owner domain.Owner, paymentID int64, action string) (domain.Payment, error) {
	var payment domain.Payment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := tx.Payments().Get(ctx, paymentID)
		if err != nil {
			return err
		}
		if _, err := s.roster.Tenant(ctx, tx, owner, p.TenantID); errors.Is(err, domain.ErrNotFound) {
			return repository.ErrPaymentNotFound
		} else if err != nil {
			return err
		}
		payment, err = s.payments.Transition(ctx, tx, paymentID, domain.PaymentAction(action))
		return err
	})
	if err != nil {
		return domain.Payment{}, err
	}

	metrics.PaymentTransitionsTotal.WithLabelValues(string(payment.Status)).Inc()
	s.log(ctx).Info("payment status changed",
		zap.Int64("payment_id", payment.ID),
		zap.String("status", string(payment.Status)),
	)

	eventType := mq.EventPaymentCompleted
	if payment.Status == domain.PaymentRejected {
		eventType = mq.EventPaymentRejected
	}
	s.publish(ctx, mq.NewEvent(eventType, paymentEvent(payment)))
	return payment, nil
}

type paymentPayload struct {
	PaymentID int64   `json:"payment_id"`
	TenantID  int64   `json:"tenant_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Status    string  `json:"status"`
	Reference string  `json:"reference"`
}

func paymentEvent(p domain.Payment) paymentPayload {
	return paymentPayload{
		PaymentID: p.ID,
		TenantID:  p.TenantID,
		Amount:    p.Amount,
		Method:    string(p.Method),
		Status:    string(p.Status),
		Reference: p.ExternalReference,
	}
}
