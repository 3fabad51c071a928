package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

const maintenanceColumns = `m.id, m.tenant_id, m.title, m.description, m.priority, m.status, m.owner_notes, m.created_at, m.updated_at`

type maintenance struct {
	tx pgx.Tx
}

func scanMaintenance(row pgx.Row) (domain.MaintenanceRequest, error) {
	var m domain.MaintenanceRequest
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.Title,
		&m.Description,
		&m.Priority,
		&m.Status,
		&m.OwnerNotes,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r maintenance) Create(ctx context.Context, m domain.MaintenanceRequest) (domain.MaintenanceRequest, error) {
	query := `
		INSERT INTO maintenance_requests (tenant_id, title, description, priority, status, owner_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.tx.QueryRow(ctx, query, m.TenantID, m.Title, m.Description, m.Priority, m.Status, m.OwnerNotes).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.MaintenanceRequest{}, fmt.Errorf("failed to insert maintenance request: %w", err)
	}
	return m, nil
}

func (r maintenance) Get(ctx context.Context, id int64) (domain.MaintenanceRequest, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests m WHERE m.id = $1`

	m, err := scanMaintenance(r.tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MaintenanceRequest{}, repository.ErrMaintenanceNotFound
	}
	if err != nil {
		return domain.MaintenanceRequest{}, fmt.Errorf("failed to get maintenance request: %w", err)
	}
	return m, nil
}

func (r maintenance) Update(ctx context.Context, m domain.MaintenanceRequest) (domain.MaintenanceRequest, error) {
	query := `
		UPDATE maintenance_requests
		SET status = $2, owner_notes = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.tx.Exec(ctx, query, m.ID, m.Status, m.OwnerNotes, m.UpdatedAt)
	if err != nil {
		return domain.MaintenanceRequest{}, fmt.Errorf("failed to update maintenance request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.MaintenanceRequest{}, repository.ErrMaintenanceNotFound
	}
	return m, nil
}

func (r maintenance) list(ctx context.Context, query string, arg int64) ([]domain.MaintenanceRequest, error) {
	rows, err := r.tx.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance requests: %w", err)
	}
	defer rows.Close()

	var out []domain.MaintenanceRequest
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance request: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (r maintenance) ListByTenant(ctx context.Context, tenantID int64) ([]domain.MaintenanceRequest, error) {
	query := `
		SELECT ` + maintenanceColumns + `
		FROM maintenance_requests m
		WHERE m.tenant_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`
	return r.list(ctx, query, tenantID)
}

func (r maintenance) ListByOwner(ctx context.Context, ownerID int64) ([]domain.MaintenanceRequest, error) {
	query := `
		SELECT ` + maintenanceColumns + `
		FROM maintenance_requests m
		JOIN accounts a ON a.id = m.tenant_id
		WHERE a.owner_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`
	return r.list(ctx, query, ownerID)
}

type resetCodes struct {
	tx pgx.Tx
}

func (r resetCodes) Create(ctx context.Context, c domain.ResetCode) (domain.ResetCode, error) {
	query := `
		INSERT INTO password_reset_codes (account_id, email, code, expires_at, used)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	c.Email = strings.ToLower(c.Email)
	err := r.tx.QueryRow(ctx, query, c.AccountID, c.Email, c.Code, c.ExpiresAt, c.Used).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return domain.ResetCode{}, fmt.Errorf("failed to insert reset code: %w", err)
	}
	return c, nil
}

func (r resetCodes) LatestUnused(ctx context.Context, email string) (domain.ResetCode, error) {
	query := `
		SELECT id, account_id, email, code, created_at, expires_at, used, attempts
		FROM password_reset_codes
		WHERE email = $1 AND NOT used
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var c domain.ResetCode
	err := r.tx.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&c.ID, &c.AccountID, &c.Email, &c.Code, &c.CreatedAt, &c.ExpiresAt, &c.Used, &c.Attempts,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResetCode{}, repository.ErrResetCodeNotFound
	}
	if err != nil {
		return domain.ResetCode{}, fmt.Errorf("failed to query reset code: %w", err)
	}
	return c, nil
}

func (r resetCodes) MarkUsed(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE password_reset_codes SET used = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark reset code used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrResetCodeNotFound
	}
	return nil
}

func (r resetCodes) RecordFailedAttempt(ctx context.Context, id int64, maxAttempts int) (domain.ResetCode, error) {
	query := `
		UPDATE password_reset_codes
		SET attempts = attempts + 1, used = used OR attempts + 1 >= $2
		WHERE id = $1
		RETURNING id, account_id, email, code, created_at, expires_at, used, attempts
	`

	var c domain.ResetCode
	err := r.tx.QueryRow(ctx, query, id, maxAttempts).Scan(
		&c.ID, &c.AccountID, &c.Email, &c.Code, &c.CreatedAt, &c.ExpiresAt, &c.Used, &c.Attempts,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResetCode{}, repository.ErrResetCodeNotFound
	}
	if err != nil {
		return domain.ResetCode{}, fmt.Errorf("failed to record reset code attempt: %w", err)
	}
	return c, nil
}
