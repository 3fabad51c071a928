package httpapi

import (
	"time"

	"github.com/septivank/rent-manager/internal/billing"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/service"
)

const uploadsPrefix = "/api/uploads/"

type accountView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	IsOwner    bool   `json:"is_owner"`
	TenantCode string `json:"tenant_id,omitempty"`
}

func toAccountView(acct domain.Account) accountView {
	v := accountView{
		ID:      acct.AccountID(),
		Name:    acct.DisplayName(),
		Role:    acct.Role(),
		IsOwner: acct.Role() == domain.RoleOwner,
	}
	if t, ok := acct.(domain.Tenant); ok {
		v.TenantCode = t.TenantCode
	}
	return v
}

type tenantView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	TenantCode string    `json:"tenant_id"`
	Email      string    `json:"email,omitempty"`
	RentAmount float64   `json:"rent_amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTenantView(t domain.Tenant) tenantView {
	return tenantView{
		ID:         t.ID,
		Name:       t.Name,
		TenantCode: t.TenantCode,
		Email:      t.Email,
		RentAmount: t.RentAmount,
		CreatedAt:  t.CreatedAt,
	}
}

// imageURL is empty for readings without a stored image, including seed readings.
func imageURL(path string) string {
	if path == "" || path == domain.SeedImagePath {
		return ""
	}
	return uploadsPrefix + path
}

type readingView struct {
	ID         int64     `json:"id"`
	TenantCode string    `json:"tenant_id,omitempty"`
	TenantName string    `json:"tenant_name,omitempty"`
	MeterType  string    `json:"meter_type"`
	Value      float64   `json:"reading_value"`
	Date       time.Time `json:"reading_date"`
	ImagePath  string    `json:"image_path,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	Flag       string    `json:"flag,omitempty"`
	FlagReason string    `json:"flag_reason,omitempty"`
}

func toReadingView(r domain.Reading) readingView {
	return readingView{
		ID:        r.ID,
		MeterType: string(r.MeterType),
		Value:     r.Value,
		Date:      r.Timestamp,
		ImagePath: r.ImagePath,
		ImageURL:  imageURL(r.ImagePath),
	}
}

type meterView struct {
	Current     float64    `json:"current"`
	Previous    *float64   `json:"previous"`
	Consumption *float64   `json:"consumption"`
	Rate        *float64   `json:"rate_per_unit"`
	Date        time.Time  `json:"date"`
	PreviousAt  *time.Time `json:"previous_date,omitempty"`
	HasImage    bool       `json:"has_image"`
	ImageURL    string     `json:"image_url,omitempty"`
}

func toMeterView(m service.MeterStatus) *meterView {
	if m.Latest == nil {
		return nil
	}
	v := &meterView{
		Current:     m.Latest.Value,
		Consumption: m.Consumption,
		Rate:        m.Rate,
		Date:        m.Latest.Timestamp,
		ImageURL:    imageURL(m.Latest.ImagePath),
	}
	v.HasImage = v.ImageURL != ""
	if m.Previous != nil {
		prev, at := m.Previous.Value, m.Previous.Timestamp
		v.Previous, v.PreviousAt = &prev, &at
	}
	return v
}

type billView struct {
	billing.Breakdown
	TenantCount int        `json:"tenant_count"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

func toBillView(b service.Bill) billView {
	v := billView{Breakdown: b.Display(), TenantCount: b.TenantCount}
	if b.Period != nil {
		v.PeriodStart, v.PeriodEnd = &b.Period.Start, &b.Period.End
	}
	return v
}

type paymentView struct {
	ID          int64     `json:"id"`
	TenantCode  string    `json:"tenant_id,omitempty"`
	TenantName  string    `json:"tenant_name,omitempty"`
	Amount      float64   `json:"amount"`
	Rent        float64   `json:"rent_component"`
	Electricity float64   `json:"electricity_component"`
	Water       float64   `json:"water_component"`
	Date        time.Time `json:"date"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	Reference   string    `json:"reference"`
}

// toPaymentView rounds amounts for display; the stored payment keeps full precision.
func toPaymentView(p domain.Payment) paymentView {
	return paymentView{
		ID:          p.ID,
		Amount:      billing.Round2(p.Amount),
		Rent:        billing.Round2(p.RentComponent),
		Electricity: billing.Round2(p.ElectricityComponent),
		Water:       billing.Round2(p.WaterComponent),
		Date:        p.Timestamp,
		Method:      string(p.Method),
		Status:      string(p.Status),
		Reference:   p.ExternalReference,
	}
}

func toOwnerPaymentViews(list []service.OwnerPayment) []paymentView {
	out := make([]paymentView, 0, len(list))
	for _, op := range list {
		v := toPaymentView(op.Payment)
		v.TenantCode, v.TenantName = op.TenantCode, op.TenantName
		out = append(out, v)
	}
	return out
}

type rateView struct {
	ID            int64     `json:"id"`
	RateType      string    `json:"rate_type"`
	RatePerUnit   float64   `json:"rate_per_unit"`
	EffectiveFrom time.Time `json:"effective_from"`
}

func toRateView(r domain.RateRecord) rateView {
	return rateView{
		ID:            r.ID,
		RateType:      string(r.MeterType),
		RatePerUnit:   r.RatePerUnit,
		EffectiveFrom: r.EffectiveFrom,
	}
}

type maintenanceView struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_account_id"`
	TenantCode  string    `json:"tenant_id,omitempty"`
	TenantName  string    `json:"tenant_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	OwnerNotes  string    `json:"owner_notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toMaintenanceView(m domain.MaintenanceRequest) maintenanceView {
	return maintenanceView{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Title:       m.Title,
		Description: m.Description,
		Priority:    string(m.Priority),
		Status:      string(m.Status),
		OwnerNotes:  m.OwnerNotes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
