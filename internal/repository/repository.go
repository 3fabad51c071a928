// Package repository defines the record-store contract used by every
// component. All access happens through a Tx handed out by Store.WithinTx;
// there is no ambient session.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/septivank/rent-manager/internal/domain"
)

// ErrStatusMismatch is returned by conditional updates whose expected current status no longer holds.
var ErrStatusMismatch = errors.New("repository: status mismatch")

// ErrPeriodTaken is returned by Bind when the period's payment is still pending or completed.
var ErrPeriodTaken = errors.New("repository: billing period already bound")

// Lookup failures shared by every implementation.
var (
	ErrAccountNotFound     = domain.NotFound("account_not_found", "account not found")
	ErrTenantNotFound      = domain.NotFound("tenant_not_found", "tenant not found")
	ErrReadingNotFound     = domain.NotFound("reading_not_found", "no reading found")
	ErrRateNotFound        = domain.NotFound("rate_not_set", "no rate set yet")
	ErrPaymentNotFound     = domain.NotFound("payment_not_found", "payment not found")
	ErrPeriodNotFound      = domain.NotFound("billing_period_not_found", "billing period not found")
	ErrMaintenanceNotFound = domain.NotFound("maintenance_request_not_found", "request not found")
	ErrResetCodeNotFound   = domain.NotFound("reset_code_not_found", "no reset code issued")

	ErrEmailTaken      = domain.Conflict("email_taken", "email already registered")
	ErrTenantCodeTaken = domain.Conflict("tenant_code_taken", "tenant code already in use")
)

// Store opens units of work.
type Store interface {
	// WithinTx runs fn inside a transaction. A non-nil error from fn rolls
	// every write back; otherwise the transaction commits.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the per-entity repositories bound to one transaction.
type Tx interface {
	Accounts() AccountRepository
	Readings() ReadingRepository
	Rates() RateRepository
	Payments() PaymentRepository
	Periods() BillingPeriodRepository
	Maintenance() MaintenanceRepository
	ResetCodes() ResetCodeRepository
}

// AccountRepository persists owners and tenants.
type AccountRepository interface {
	CreateOwner(ctx context.Context, o domain.Owner) (domain.Owner, error)
	CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	FindByTenantCode(ctx context.Context, code string) (domain.Tenant, error)
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	ListTenants(ctx context.Context, ownerID int64) ([]domain.Tenant, error)
	CountTenants(ctx context.Context, ownerID int64) (int, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	// DeleteTenant removes the tenant and everything it owns.
	DeleteTenant(ctx context.Context, id int64) error
}

// ReadingRepository is append-only.
type ReadingRepository interface {
	Append(ctx context.Context, r domain.Reading) (domain.Reading, error)
	// Latest orders by timestamp then id, both descending.
	Latest(ctx context.Context, tenantID int64, meter domain.MeterType) (domain.Reading, error)
	// PreviousBefore returns the newest reading strictly older than ts; equal
	// timestamps resolve to the lowest id.
	PreviousBefore(ctx context.Context, tenantID int64, meter domain.MeterType, ts time.Time) (domain.Reading, error)
	ListByTenant(ctx context.Context, tenantID int64, meter domain.MeterType, limit int) ([]domain.Reading, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Reading, error)
}

// RateRepository is append-only.
type RateRepository interface {
	Append(ctx context.Context, r domain.RateRecord) (domain.RateRecord, error)
	// Current returns the record with the greatest effective_from, ties resolved to the highest id.
	Current(ctx context.Context, ownerID int64, meter domain.MeterType) (domain.RateRecord, error)
	History(ctx context.Context, ownerID int64, meter domain.MeterType) ([]domain.RateRecord, error)
}

// PaymentRepository stores charges; only the status and external reference are mutable.
type PaymentRepository interface {
	Create(ctx context.Context, p domain.Payment) (domain.Payment, error)
	Get(ctx context.Context, id int64) (domain.Payment, error)
	SetReference(ctx context.Context, id int64, reference string) (domain.Payment, error)
	// Delete removes a payment together with its billing-period binding.
	Delete(ctx context.Context, id int64) error
	// UpdateStatus moves a payment from -> to, failing with ErrStatusMismatch when its status is not from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, at time.Time) (domain.Payment, error)
	ListByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.Payment, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]domain.Payment, error)
	CountByOwner(ctx context.Context, ownerID int64, status domain.PaymentStatus) (int, error)
}

// BillingPeriodRepository keys payments by reading interval.
type BillingPeriodRepository interface {
	Find(ctx context.Context, tenantID int64, start, end time.Time) (domain.BillingPeriod, error)
	// Bind creates the period, or repoints it at paymentID when the payment it
	// is bound to was rejected. Any other binding fails with ErrPeriodTaken.
	Bind(ctx context.Context, p domain.BillingPeriod) (domain.BillingPeriod, error)
}

type MaintenanceRepository interface {
	Create(ctx context.Context, r domain.MaintenanceRequest) (domain.MaintenanceRequest, error)
	Get(ctx context.Context, id int64) (domain.MaintenanceRequest, error)
	Update(ctx context.Context, r domain.MaintenanceRequest) (domain.MaintenanceRequest, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]domain.MaintenanceRequest, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.MaintenanceRequest, error)
}

type ResetCodeRepository interface {
	Create(ctx context.Context, c domain.ResetCode) (domain.ResetCode, error)
	// LatestUnused returns the most recently created unused code for email.
	LatestUnused(ctx context.Context, email string) (domain.ResetCode, error)
	MarkUsed(ctx context.Context, id int64) error
	// RecordFailedAttempt counts a wrong guess and retires the code once
	// maxAttempts is reached.
	RecordFailedAttempt(ctx context.Context, id int64, maxAttempts int) (domain.ResetCode, error)
}
