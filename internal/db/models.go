package db

import (
	"time"

	"github.com/septivank/rent-manager/internal/domain"
)

// AccountRow is a row of the accounts table. Owners and tenants share it; the
// role column decides which nullable columns are populated.
type AccountRow struct {
	ID           int64
	Role         string
	OwnerID      *int64
	TenantCode   *string
	Name         string
	Email        *string
	RentAmount   float64
	PasswordHash string
	CreatedAt    time.Time
}

// ToAccount converts the row into the matching domain variant.
func (r AccountRow) ToAccount() domain.Account {
	if r.Role == domain.RoleOwner {
		return domain.Owner{
			ID:           r.ID,
			Name:         r.Name,
			Email:        deref(r.Email),
			PasswordHash: r.PasswordHash,
			CreatedAt:    r.CreatedAt,
		}
	}
	return r.ToTenant()
}

// ToTenant converts the row into a domain.Tenant regardless of role.
func (r AccountRow) ToTenant() domain.Tenant {
	var ownerID int64
	if r.OwnerID != nil {
		ownerID = *r.OwnerID
	}
	return domain.Tenant{
		ID:           r.ID,
		OwnerID:      ownerID,
		TenantCode:   deref(r.TenantCode),
		Name:         r.Name,
		Email:        deref(r.Email),
		RentAmount:   r.RentAmount,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// ScanTargets returns pointers in AccountColumns order.
func (r *AccountRow) ScanTargets() []any {
	return []any{
		&r.ID,
		&r.Role,
		&r.OwnerID,
		&r.TenantCode,
		&r.Name,
		&r.Email,
		&r.RentAmount,
		&r.PasswordHash,
		&r.CreatedAt,
	}
}

// AccountColumns lists the accounts columns read by ScanTargets.
const AccountColumns = `id, role, owner_id, tenant_code, name, email, rent_amount, password_hash, created_at`

// NullString maps "" to SQL NULL.
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
