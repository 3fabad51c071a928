package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/septivank/rent-manager/internal/db"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

type accounts struct {
	tx pgx.Tx
}

func mapAccountConflict(err error) error {
	switch {
	case isUniqueViolation(err, "accounts_email_key"):
		return repository.ErrEmailTaken
	case isUniqueViolation(err, "accounts_tenant_code_key"):
		return repository.ErrTenantCodeTaken
	}
	return err
}

func (r accounts) CreateOwner(ctx context.Context, o domain.Owner) (domain.Owner, error) {
	query := `
		INSERT INTO accounts (role, name, email, password_hash)
		VALUES ('owner', $1, $2, $3)
		RETURNING id, created_at
	`

	o.Email = strings.ToLower(strings.TrimSpace(o.Email))
	err := r.tx.QueryRow(ctx, query, o.Name, db.NullString(o.Email), o.PasswordHash).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if mapped := mapAccountConflict(err); mapped != err {
			return domain.Owner{}, mapped
		}
		return domain.Owner{}, fmt.Errorf("failed to create owner: %w", err)
	}
	return o, nil
}

func (r accounts) CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error) {
	query := `
		INSERT INTO accounts (role, owner_id, tenant_code, name, email, rent_amount, password_hash)
		VALUES ('tenant', $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	err := r.tx.QueryRow(ctx, query,
		t.OwnerID,
		t.TenantCode,
		t.Name,
		db.NullString(t.Email),
		t.RentAmount,
		t.PasswordHash,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if mapped := mapAccountConflict(err); mapped != err {
			return domain.Tenant{}, mapped
		}
		return domain.Tenant{}, fmt.Errorf("failed to create tenant: %w", err)
	}
	return t, nil
}

func (r accounts) scanOne(ctx context.Context, where string, arg any) (db.AccountRow, error) {
	query := `SELECT ` + db.AccountColumns + ` FROM accounts WHERE ` + where

	var row db.AccountRow
	err := r.tx.QueryRow(ctx, query, arg).Scan(row.ScanTargets()...)
	return row, err
}

func (r accounts) Get(ctx context.Context, id int64) (domain.Account, error) {
	row, err := r.scanOne(ctx, "id = $1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.ToAccount(), nil
}

func (r accounts) FindByTenantCode(ctx context.Context, code string) (domain.Tenant, error) {
	row, err := r.scanOne(ctx, "role = 'tenant' AND tenant_code = $1", code)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tenant{}, repository.ErrTenantNotFound
	}
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("failed to find tenant by code: %w", err)
	}
	return row.ToTenant(), nil
}

func (r accounts) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, repository.ErrAccountNotFound
	}
	row, err := r.scanOne(ctx, "email = $1", email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return row.ToAccount(), nil
}

func (r accounts) ListTenants(ctx context.Context, ownerID int64) ([]domain.Tenant, error) {
	query := `SELECT ` + db.AccountColumns + ` FROM accounts WHERE role = 'tenant' AND owner_id = $1 ORDER BY id`

	rows, err := r.tx.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var row db.AccountRow
		if err := rows.Scan(row.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, row.ToTenant())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return tenants, nil
}

func (r accounts) CountTenants(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE role = 'tenant' AND owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return n, nil
}

func (r accounts) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE accounts SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

// DeleteTenant relies on ON DELETE CASCADE for readings, payments, periods,
// maintenance requests and reset codes.
func (r accounts) DeleteTenant(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND role = 'tenant'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrTenantNotFound
	}
	return nil
}
