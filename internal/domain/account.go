package domain

import "time"

// Role names as persisted.
const (
	RoleOwner  = "owner"
	RoleTenant = "tenant"
)

// Account is either an Owner or a Tenant. The set of variants is closed.
type Account interface {
	AccountID() int64
	Role() string
	DisplayName() string
	Credentials() string
	isAccount()
}

// Owner manages a roster of tenants and issues rates.
type Owner struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (o Owner) AccountID() int64 { return o.ID }
func (o Owner) Role() string { return RoleOwner }
func (o Owner) DisplayName() string { return o.Name }
func (o Owner) Credentials() string { return o.PasswordHash }
func (Owner) isAccount() {}

// Tenant belongs to exactly one owner and pays rent plus metered utilities.
type Tenant struct {
	ID           int64
	OwnerID      int64
	TenantCode   string
	Name         string
	Email        string
	RentAmount   float64
	PasswordHash string
	CreatedAt    time.Time
}

func (t Tenant) AccountID() int64 { return t.ID }
func (t Tenant) Role() string { return RoleTenant }
func (t Tenant) DisplayName() string { return t.Name }
func (t Tenant) Credentials() string { return t.PasswordHash }
func (Tenant) isAccount() {}

// BelongsTo reports whether the tenant is on the owner's roster.
func (t Tenant) BelongsTo(o Owner) bool {
	return t.OwnerID == o.ID
}
