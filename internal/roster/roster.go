// Package roster answers questions about an owner's set of tenants.
package roster

import (
	"context"
	"errors"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

type Roster struct{}

func New() *Roster {
	return &Roster{}
}

// Size is the number of tenants currently linked to the owner. It is read at
// billing time, so removing a tenant changes the water share of every other tenant.
func (r *Roster) Size(ctx context.Context, tx repository.Tx, ownerID int64) (int, error) {
	return tx.Accounts().CountTenants(ctx, ownerID)
}

// Members lists the owner's tenants in registration order.
func (r *Roster) Members(ctx context.Context, tx repository.Tx, owner domain.Owner) ([]domain.Tenant, error) {
	return tx.Accounts().ListTenants(ctx, owner.ID)
}

// Tenant loads tenantID and checks it is on owner's roster. Tenants of other
// owners are reported as not found.
func (r *Roster) Tenant(ctx context.Context, tx repository.Tx, owner domain.Owner, tenantID int64) (domain.Tenant, error) {
	acct, err := tx.Accounts().Get(ctx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Tenant{}, repository.ErrTenantNotFound
	}
	if err != nil {
		return domain.Tenant{}, err
	}
	tenant, ok := acct.(domain.Tenant)
	if !ok || !tenant.BelongsTo(owner) {
		return domain.Tenant{}, repository.ErrTenantNotFound
	}
	return tenant, nil
}

// OwnerOf loads the owner a tenant belongs to.
func (r *Roster) OwnerOf(ctx context.Context, tx repository.Tx, tenant domain.Tenant) (domain.Owner, error) {
	acct, err := tx.Accounts().Get(ctx, tenant.OwnerID)
	if err != nil {
		return domain.Owner{}, err
	}
	owner, ok := acct.(domain.Owner)
	if !ok {
		return domain.Owner{}, repository.ErrAccountNotFound
	}
	return owner, nil
}
