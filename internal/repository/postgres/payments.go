package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

const paymentColumns = `p.id, p.tenant_id, p.amount, p.rent_component, p.electricity_component, p.water_component,
	p.paid_at, p.method, p.status, p.external_reference, p.created_at, p.updated_at`

type payments struct {
	tx pgx.Tx
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.Amount,
		&p.RentComponent,
		&p.ElectricityComponent,
		&p.WaterComponent,
		&p.Timestamp,
		&p.Method,
		&p.Status,
		&p.ExternalReference,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r payments) Create(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	query := `
		INSERT INTO payments (
			tenant_id, amount, rent_component, electricity_component, water_component,
			paid_at, method, status, external_reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.tx.QueryRow(ctx, query,
		p.TenantID,
		p.Amount,
		p.RentComponent,
		p.ElectricityComponent,
		p.WaterComponent,
		p.Timestamp,
		p.Method,
		p.Status,
		p.ExternalReference,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to insert payment: %w", err)
	}
	return p, nil
}

func (r payments) Get(ctx context.Context, id int64) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1`

	p, err := scanPayment(r.tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, repository.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (r payments) SetReference(ctx context.Context, id int64, reference string) (domain.Payment, error) {
	query := `
		UPDATE payments p
		SET external_reference = $2, updated_at = NOW()
		WHERE p.id = $1
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.tx.QueryRow(ctx, query, id, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, repository.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to set payment reference: %w", err)
	}
	return p, nil
}

// Delete relies on ON DELETE CASCADE to drop the billing-period binding.
func (r payments) Delete(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrPaymentNotFound
	}
	return nil
}

// UpdateStatus only touches rows still in the from status, so of two racing
// transitions exactly one observes a row.
func (r payments) UpdateStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, at time.Time) (domain.Payment, error) {
	query := `
		UPDATE payments p
		SET status = $3, updated_at = $4
		WHERE p.id = $1 AND p.status = $2
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.tx.QueryRow(ctx, query, id, from, to, at))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("failed to update payment status: %w", err)
	}

	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return domain.Payment{}, getErr
	}
	return current, repository.ErrStatusMismatch
}

func (r payments) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (r payments) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		WHERE p.tenant_id = $1
		ORDER BY p.paid_at DESC, p.id DESC
		LIMIT NULLIF($2, 0)
	`
	return r.list(ctx, query, tenantID, max(limit, 0))
}

func (r payments) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN accounts a ON a.id = p.tenant_id
		WHERE a.owner_id = $1
		ORDER BY p.paid_at DESC, p.id DESC
		LIMIT NULLIF($2, 0)
	`
	return r.list(ctx, query, ownerID, max(limit, 0))
}

func (r payments) CountByOwner(ctx context.Context, ownerID int64, status domain.PaymentStatus) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM payments p
		JOIN accounts a ON a.id = p.tenant_id
		WHERE a.owner_id = $1 AND p.status = $2
	`

	var n int
	if err := r.tx.QueryRow(ctx, query, ownerID, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return n, nil
}

type periods struct {
	tx pgx.Tx
}

func (r periods) Find(ctx context.Context, tenantID int64, start, end time.Time) (domain.BillingPeriod, error) {
	query := `
		SELECT id, tenant_id, period_start, period_end, payment_id, created_at
		FROM billing_periods
		WHERE tenant_id = $1 AND period_start = $2 AND period_end = $3
	`

	var bp domain.BillingPeriod
	err := r.tx.QueryRow(ctx, query, tenantID, start, end).Scan(
		&bp.ID, &bp.TenantID, &bp.PeriodStart, &bp.PeriodEnd, &bp.PaymentID, &bp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BillingPeriod{}, repository.ErrPeriodNotFound
	}
	if err != nil {
		return domain.BillingPeriod{}, fmt.Errorf("failed to find billing period: %w", err)
	}
	return bp, nil
}

// Bind waits on the period's unique key when another transaction is binding
// it, then only repoints the row if the payment it holds was rejected. Zero
// returned rows mean the period is still charged.
func (r periods) Bind(ctx context.Context, bp domain.BillingPeriod) (domain.BillingPeriod, error) {
	query := `
		INSERT INTO billing_periods (tenant_id, period_start, period_end, payment_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT billing_periods_key
		DO UPDATE SET payment_id = EXCLUDED.payment_id
		WHERE EXISTS (
			SELECT 1 FROM payments p
			WHERE p.id = billing_periods.payment_id AND p.status = 'rejected'
		)
		RETURNING id, created_at
	`

	err := r.tx.QueryRow(ctx, query, bp.TenantID, bp.PeriodStart, bp.PeriodEnd, bp.PaymentID).Scan(&bp.ID, &bp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BillingPeriod{}, repository.ErrPeriodTaken
	}
	if err != nil {
		return domain.BillingPeriod{}, fmt.Errorf("failed to bind billing period: %w", err)
	}
	return bp, nil
}
