package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

type accounts struct{ *tx }

func (r accounts) CreateOwner(ctx context.Context, o domain.Owner) (domain.Owner, error) {
	if _, err := r.FindByEmail(ctx, o.Email); err == nil {
		return domain.Owner{}, repository.ErrEmailTaken
	}
	o.ID = r.st.nextID()
	o.Email = strings.ToLower(o.Email)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now()
	}
	r.st.accounts[o.ID] = o
	return o, nil
}

func (r accounts) CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error) {
	if _, ok := r.st.accounts[t.OwnerID].(domain.Owner); !ok {
		return domain.Tenant{}, repository.ErrAccountNotFound
	}
	if _, err := r.FindByTenantCode(ctx, t.TenantCode); err == nil {
		return domain.Tenant{}, repository.ErrTenantCodeTaken
	}
	if t.Email != "" {
		if _, err := r.FindByEmail(ctx, t.Email); err == nil {
			return domain.Tenant{}, repository.ErrEmailTaken
		}
	}
	t.ID = r.st.nextID()
	t.Email = strings.ToLower(t.Email)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	r.st.accounts[t.ID] = t
	return t, nil
}

func (r accounts) Get(_ context.Context, id int64) (domain.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return a, nil
}

func (r accounts) FindByTenantCode(_ context.Context, code string) (domain.Tenant, error) {
	for _, a := range r.st.accounts {
		if t, ok := a.(domain.Tenant); ok && t.TenantCode == code {
			return t, nil
		}
	}
	return domain.Tenant{}, repository.ErrTenantNotFound
}

func (r accounts) FindByEmail(_ context.Context, email string) (domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, repository.ErrAccountNotFound
	}
	for _, a := range r.st.accounts {
		switch v := a.(type) {
		case domain.Owner:
			if v.Email == email {
				return v, nil
			}
		case domain.Tenant:
			if v.Email == email {
				return v, nil
			}
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r accounts) ListTenants(_ context.Context, ownerID int64) ([]domain.Tenant, error) {
	var out []domain.Tenant
	for _, a := range r.st.accounts {
		if t, ok := a.(domain.Tenant); ok && t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Tenant) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r accounts) CountTenants(ctx context.Context, ownerID int64) (int, error) {
	tenants, err := r.ListTenants(ctx, ownerID)
	return len(tenants), err
}

func (r accounts) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	switch v := r.st.accounts[id].(type) {
	case domain.Owner:
		v.PasswordHash = hash
		r.st.accounts[id] = v
	case domain.Tenant:
		v.PasswordHash = hash
		r.st.accounts[id] = v
	default:
		return repository.ErrAccountNotFound
	}
	return nil
}

func (r accounts) DeleteTenant(_ context.Context, id int64) error {
	if _, ok := r.st.accounts[id].(domain.Tenant); !ok {
		return repository.ErrTenantNotFound
	}
	delete(r.st.accounts, id)
	r.st.readings = slices.DeleteFunc(r.st.readings, func(x domain.Reading) bool { return x.TenantID == id })
	r.st.periods = slices.DeleteFunc(r.st.periods, func(x domain.BillingPeriod) bool { return x.TenantID == id })
	r.st.resetCodes = slices.DeleteFunc(r.st.resetCodes, func(x domain.ResetCode) bool { return x.AccountID == id })
	for pid, p := range r.st.payments {
		if p.TenantID == id {
			delete(r.st.payments, pid)
		}
	}
	for mid, m := range r.st.maintenance {
		if m.TenantID == id {
			delete(r.st.maintenance, mid)
		}
	}
	return nil
}

func (t *tx) ownerOf(tenantID int64) int64 {
	if tenant, ok := t.st.accounts[tenantID].(domain.Tenant); ok {
		return tenant.OwnerID
	}
	return 0
}

type readings struct{ *tx }

func (r readings) Append(_ context.Context, rd domain.Reading) (domain.Reading, error) {
	rd.ID = r.st.nextID()
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = r.now()
	}
	r.st.readings = append(r.st.readings, rd)
	return rd, nil
}

func (r readings) Latest(_ context.Context, tenantID int64, meter domain.MeterType) (domain.Reading, error) {
	var (
		best  domain.Reading
		found bool
	)
	for _, rd := range r.st.readings {
		if rd.TenantID != tenantID || rd.MeterType != meter {
			continue
		}
		if !found || rd.After(best) {
			best, found = rd, true
		}
	}
	if !found {
		return domain.Reading{}, repository.ErrReadingNotFound
	}
	return best, nil
}

func (r readings) PreviousBefore(_ context.Context, tenantID int64, meter domain.MeterType, ts time.Time) (domain.Reading, error) {
	var (
		best  domain.Reading
		found bool
	)
	for _, rd := range r.st.readings {
		if rd.TenantID != tenantID || rd.MeterType != meter || !rd.Timestamp.Before(ts) {
			continue
		}
		switch {
		case !found, rd.Timestamp.After(best.Timestamp):
			best, found = rd, true
		case rd.Timestamp.Equal(best.Timestamp) && rd.ID < best.ID:
			best = rd
		}
	}
	if !found {
		return domain.Reading{}, repository.ErrReadingNotFound
	}
	return best, nil
}

func (r readings) ListByTenant(_ context.Context, tenantID int64, meter domain.MeterType, limit int) ([]domain.Reading, error) {
	var out []domain.Reading
	for _, rd := range r.st.readings {
		if rd.TenantID == tenantID && (meter == "" || rd.MeterType == meter) {
			out = append(out, rd)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r readings) ListByOwner(_ context.Context, ownerID int64) ([]domain.Reading, error) {
	var out []domain.Reading
	for _, rd := range r.st.readings {
		if r.ownerOf(rd.TenantID) == ownerID {
			out = append(out, rd)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(rs []domain.Reading) {
	slices.SortFunc(rs, func(a, b domain.Reading) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

type rates struct{ *tx }

func (r rates) Append(_ context.Context, rec domain.RateRecord) (domain.RateRecord, error) {
	rec.ID = r.st.nextID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	r.st.rates = append(r.st.rates, rec)
	return rec, nil
}

func (r rates) Current(ctx context.Context, ownerID int64, meter domain.MeterType) (domain.RateRecord, error) {
	history, _ := r.History(ctx, ownerID, meter)
	if len(history) == 0 {
		return domain.RateRecord{}, repository.ErrRateNotFound
	}
	return history[0], nil
}

func (r rates) History(_ context.Context, ownerID int64, meter domain.MeterType) ([]domain.RateRecord, error) {
	var out []domain.RateRecord
	for _, rec := range r.st.rates {
		if rec.OwnerID == ownerID && rec.MeterType == meter {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b domain.RateRecord) int {
		if c := b.EffectiveFrom.Compare(a.EffectiveFrom); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

type payments struct{ *tx }

func (r payments) Create(_ context.Context, p domain.Payment) (domain.Payment, error) {
	if _, ok := r.st.accounts[p.TenantID].(domain.Tenant); !ok {
		return domain.Payment{}, repository.ErrTenantNotFound
	}
	p.ID = r.st.nextID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	p.UpdatedAt = p.CreatedAt
	r.st.payments[p.ID] = p
	return p, nil
}

func (r payments) Get(_ context.Context, id int64) (domain.Payment, error) {
	p, ok := r.st.payments[id]
	if !ok {
		return domain.Payment{}, repository.ErrPaymentNotFound
	}
	return p, nil
}

func (r payments) SetReference(_ context.Context, id int64, reference string) (domain.Payment, error) {
	p, ok := r.st.payments[id]
	if !ok {
		return domain.Payment{}, repository.ErrPaymentNotFound
	}
	p.ExternalReference = reference
	p.UpdatedAt = r.now()
	r.st.payments[id] = p
	return p, nil
}

func (r payments) Delete(_ context.Context, id int64) error {
	if _, ok := r.st.payments[id]; !ok {
		return repository.ErrPaymentNotFound
	}
	delete(r.st.payments, id)
	r.st.periods = slices.DeleteFunc(r.st.periods, func(x domain.BillingPeriod) bool { return x.PaymentID == id })
	return nil
}

func (r payments) UpdateStatus(_ context.Context, id int64, from, to domain.PaymentStatus, at time.Time) (domain.Payment, error) {
	p, ok := r.st.payments[id]
	if !ok {
		return domain.Payment{}, repository.ErrPaymentNotFound
	}
	if p.Status != from {
		return p, repository.ErrStatusMismatch
	}
	p.Status = to
	p.UpdatedAt = at
	r.st.payments[id] = p
	return p, nil
}

func (r payments) list(match func(domain.Payment) bool, limit int) []domain.Payment {
	var out []domain.Payment
	for _, p := range r.st.payments {
		if match(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Payment) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r payments) ListByTenant(_ context.Context, tenantID int64, limit int) ([]domain.Payment, error) {
	return r.list(func(p domain.Payment) bool { return p.TenantID == tenantID }, limit), nil
}

func (r payments) ListByOwner(_ context.Context, ownerID int64, limit int) ([]domain.Payment, error) {
	return r.list(func(p domain.Payment) bool { return r.ownerOf(p.TenantID) == ownerID }, limit), nil
}

func (r payments) CountByOwner(_ context.Context, ownerID int64, status domain.PaymentStatus) (int, error) {
	return len(r.list(func(p domain.Payment) bool {
		return r.ownerOf(p.TenantID) == ownerID && p.Status == status
	}, 0)), nil
}

type periods struct{ *tx }

func (r periods) Find(_ context.Context, tenantID int64, start, end time.Time) (domain.BillingPeriod, error) {
	for _, p := range r.st.periods {
		if p.TenantID == tenantID && p.PeriodStart.Equal(start) && p.PeriodEnd.Equal(end) {
			return p, nil
		}
	}
	return domain.BillingPeriod{}, repository.ErrPeriodNotFound
}

func (r periods) Bind(_ context.Context, bp domain.BillingPeriod) (domain.BillingPeriod, error) {
	for i, p := range r.st.periods {
		if p.TenantID == bp.TenantID && p.PeriodStart.Equal(bp.PeriodStart) && p.PeriodEnd.Equal(bp.PeriodEnd) {
			if bound, ok := r.st.payments[p.PaymentID]; ok && bound.Status != domain.PaymentRejected {
				return p, repository.ErrPeriodTaken
			}
			p.PaymentID = bp.PaymentID
			r.st.periods[i] = p
			return p, nil
		}
	}
	bp.ID = r.st.nextID()
	if bp.CreatedAt.IsZero() {
		bp.CreatedAt = r.now()
	}
	r.st.periods = append(r.st.periods, bp)
	return bp, nil
}

type maintenance struct{ *tx }

func (r maintenance) Create(_ context.Context, m domain.MaintenanceRequest) (domain.MaintenanceRequest, error) {
	m.ID = r.st.nextID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}
	m.UpdatedAt = m.CreatedAt
	r.st.maintenance[m.ID] = m
	return m, nil
}

func (r maintenance) Get(_ context.Context, id int64) (domain.MaintenanceRequest, error) {
	m, ok := r.st.maintenance[id]
	if !ok {
		return domain.MaintenanceRequest{}, repository.ErrMaintenanceNotFound
	}
	return m, nil
}

func (r maintenance) Update(_ context.Context, m domain.MaintenanceRequest) (domain.MaintenanceRequest, error) {
	if _, ok := r.st.maintenance[m.ID]; !ok {
		return domain.MaintenanceRequest{}, repository.ErrMaintenanceNotFound
	}
	r.st.maintenance[m.ID] = m
	return m, nil
}

func (r maintenance) list(match func(domain.MaintenanceRequest) bool) []domain.MaintenanceRequest {
	var out []domain.MaintenanceRequest
	for _, m := range r.st.maintenance {
		if match(m) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b domain.MaintenanceRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (r maintenance) ListByTenant(_ context.Context, tenantID int64) ([]domain.MaintenanceRequest, error) {
	return r.list(func(m domain.MaintenanceRequest) bool { return m.TenantID == tenantID }), nil
}

func (r maintenance) ListByOwner(_ context.Context, ownerID int64) ([]domain.MaintenanceRequest, error) {
	return r.list(func(m domain.MaintenanceRequest) bool { return r.ownerOf(m.TenantID) == ownerID }), nil
}

type resetCodes struct{ *tx }

func (r resetCodes) Create(_ context.Context, c domain.ResetCode) (domain.ResetCode, error) {
	c.ID = r.st.nextID()
	c.Email = strings.ToLower(c.Email)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	r.st.resetCodes = append(r.st.resetCodes, c)
	return c, nil
}

func (r resetCodes) LatestUnused(_ context.Context, email string) (domain.ResetCode, error) {
	email = strings.ToLower(email)
	var (
		best  domain.ResetCode
		found bool
	)
	for _, c := range r.st.resetCodes {
		if c.Email != email || c.Used {
			continue
		}
		if !found || c.CreatedAt.After(best.CreatedAt) || (c.CreatedAt.Equal(best.CreatedAt) && c.ID > best.ID) {
			best, found = c, true
		}
	}
	if !found {
		return domain.ResetCode{}, repository.ErrResetCodeNotFound
	}
	return best, nil
}

func (r resetCodes) MarkUsed(_ context.Context, id int64) error {
	for i, c := range r.st.resetCodes {
		if c.ID == id {
			c.Used = true
			r.st.resetCodes[i] = c
			return nil
		}
	}
	return repository.ErrResetCodeNotFound
}

func (r resetCodes) RecordFailedAttempt(_ context.Context, id int64, maxAttempts int) (domain.ResetCode, error) {
	for i, c := range r.st.resetCodes {
		if c.ID == id {
			c.Attempts++
			if c.Attempts >= maxAttempts {
				c.Used = true
			}
			r.st.resetCodes[i] = c
			return c, nil
		}
	}
	return domain.ResetCode{}, repository.ErrResetCodeNotFound
}
