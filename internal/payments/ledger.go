// Package payments records charges against tenants and guards their status.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/septivank/rent-manager/internal/billing"
	"github.com/septivank/rent-manager/internal/charge"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

// ReferenceLayout is the compact timestamp embedded in manual payment references.
const ReferenceLayout = "20060102150405"

// ErrPeriodAlreadyCharged is returned when a pending or completed payment covers the period.
var ErrPeriodAlreadyCharged = domain.StateViolation("period_already_charged", "a payment already covers the current billing period")

// Handle is what the tenant needs to finish paying.
type Handle struct {
	Payment domain.Payment
	// ClientSecret is set for card payments only.
	ClientSecret string
	// Reference is the processor intent id for card payments, or the manual
	// reconciliation reference otherwise.
	Reference string
}

type Ledger struct {
	provider charge.Provider
	currency string
	prefix   string
	now      func() time.Time
}

func NewLedger(provider charge.Provider, currency, referencePrefix string) *Ledger {
	return &Ledger{
		provider: provider,
		currency: currency,
		prefix:   referencePrefix,
		now:      time.Now,
	}
}

// Reference formats a manual payment reference: prefix, compact timestamp, tenant id.
func Reference(prefix string, at time.Time, tenantID int64) string {
	return prefix + at.Format(ReferenceLayout) + strconv.FormatInt(tenantID, 10)
}

// CreatePendingCharge records a pending payment for b and binds it to period.
// When period is nil the tenant has no readings and the charge is rent only.
// Card payments are recorded without a reference; the caller opens the intent
// with RequestIntent once this transaction has committed.
func (l *Ledger) CreatePendingCharge(ctx context.Context, tx repository.Tx, tenant domain.Tenant, b billing.Breakdown, period *billing.Period, method domain.PaymentMethod) (Handle, error) {
	if _, ok := domain.ParsePaymentMethod(string(method)); !ok {
		return Handle{}, domain.Invalid("payment_method", "must be card, bank_transfer or cash")
	}

	if period != nil {
		covering, err := l.Covering(ctx, tx, tenant.ID, *period)
		if err != nil {
			return Handle{}, err
		}
		if covering != nil && covering.Status.Active() {
			return Handle{}, ErrPeriodAlreadyCharged
		}
	}

	now := l.now().UTC().Truncate(time.Microsecond)
	handle := Handle{}
	if method != domain.MethodCard {
		handle.Reference = Reference(l.prefix, now, tenant.ID)
	}

	p, err := tx.Payments().Create(ctx, domain.Payment{
		TenantID:             tenant.ID,
		Amount:               b.Total,
		RentComponent:        b.Rent,
		ElectricityComponent: b.Electricity,
		WaterComponent:       b.Water,
		Timestamp:            now,
		Method:               method,
		Status:               domain.PaymentPending,
		ExternalReference:    handle.Reference,
	})
	if err != nil {
		return Handle{}, err
	}
	handle.Payment = p

	if period != nil {
		_, err := tx.Periods().Bind(ctx, domain.BillingPeriod{
			TenantID:    tenant.ID,
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
			PaymentID:   p.ID,
		})
		if errors.Is(err, repository.ErrPeriodTaken) {
			return Handle{}, ErrPeriodAlreadyCharged
		}
		if err != nil {
			return Handle{}, err
		}
	}

	return handle, nil
}

// RequestIntent asks the provider to open a card intent for p. It runs
// outside any transaction.
func (l *Ledger) RequestIntent(ctx context.Context, p domain.Payment) (charge.Intent, error) {
	intent, err := l.provider.CreateIntent(ctx, charge.Request{
		AmountMinor: billing.MinorUnits(p.Amount),
		Currency:    l.currency,
		TenantID:    p.TenantID,
	})
	if err != nil {
		return charge.Intent{}, domain.ExternalProvider("payment provider could not create the charge", err)
	}
	return intent, nil
}

// AttachIntent stores the intent id as the payment's external reference.
func (l *Ledger) AttachIntent(ctx context.Context, tx repository.Tx, paymentID int64, intent charge.Intent) (domain.Payment, error) {
	return tx.Payments().SetReference(ctx, paymentID, intent.ID)
}

// Void deletes a payment whose intent could not be opened, freeing its period.
func (l *Ledger) Void(ctx context.Context, tx repository.Tx, paymentID int64) error {
	return tx.Payments().Delete(ctx, paymentID)
}

// Transition applies an owner decision to a pending payment. Completed and
// rejected are terminal.
func (l *Ledger) Transition(ctx context.Context, tx repository.Tx, paymentID int64, action domain.PaymentAction) (domain.Payment, error) {
	target, ok := action.Target()
	if !ok {
		return domain.Payment{}, domain.Invalid("action", "must be complete or reject")
	}

	p, err := tx.Payments().Get(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if p.Status != domain.PaymentPending {
		return p, notPending(p.Status)
	}

	updated, err := tx.Payments().UpdateStatus(ctx, paymentID, domain.PaymentPending, target, l.now().UTC())
	if errors.Is(err, repository.ErrStatusMismatch) {
		return updated, notPending(updated.Status)
	}
	return updated, err
}

// MarkCompleted is Transition with ActionComplete.
func (l *Ledger) MarkCompleted(ctx context.Context, tx repository.Tx, paymentID int64) (domain.Payment, error) {
	return l.Transition(ctx, tx, paymentID, domain.ActionComplete)
}

// MarkRejected is Transition with ActionReject.
func (l *Ledger) MarkRejected(ctx context.Context, tx repository.Tx, paymentID int64) (domain.Payment, error) {
	return l.Transition(ctx, tx, paymentID, domain.ActionReject)
}

// History returns the tenant's payments, newest first.
func (l *Ledger) History(ctx context.Context, tx repository.Tx, tenantID int64, limit int) ([]domain.Payment, error) {
	return tx.Payments().ListByTenant(ctx, tenantID, limit)
}

// Covering returns the payment bound to the tenant's period, or nil.
func (l *Ledger) Covering(ctx context.Context, tx repository.Tx, tenantID int64, period billing.Period) (*domain.Payment, error) {
	bp, err := tx.Periods().Find(ctx, tenantID, period.Start, period.End)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := tx.Payments().Get(ctx, bp.PaymentID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func notPending(status domain.PaymentStatus) error {
	return domain.StateViolation("payment_not_pending", fmt.Sprintf("payment is already %s", status))
}
