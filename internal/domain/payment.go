package domain

import "time"

// PaymentMethod is how the tenant intends to pay.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
)

// ParsePaymentMethod validates s.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(s); m {
	case MethodCard, MethodBankTransfer, MethodCash:
		return m, true
	}
	return "", false
}

// PaymentStatus tracks owner reconciliation.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRejected  PaymentStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentRejected
}

// Active reports whether the payment still occupies its billing period.
func (s PaymentStatus) Active() bool {
	return s == PaymentPending || s == PaymentCompleted
}

// PaymentAction is an owner decision on a pending payment.
type PaymentAction string

const (
	ActionComplete PaymentAction = "complete"
	ActionReject   PaymentAction = "reject"
)

// Target returns the status an action moves a pending payment to.
func (a PaymentAction) Target() (PaymentStatus, bool) {
	switch a {
	case ActionComplete:
		return PaymentCompleted, true
	case ActionReject:
		return PaymentRejected, true
	}
	return "", false
}

// Payment is a charge against a tenant. The amount breakdown never changes after creation.
type Payment struct {
	ID                   int64
	TenantID             int64
	Amount               float64
	RentComponent        float64
	ElectricityComponent float64
	WaterComponent       float64
	Timestamp            time.Time
	Method               PaymentMethod
	Status               PaymentStatus
	ExternalReference    string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// BillingPeriod binds one reading interval of a tenant to the payment covering it.
// (TenantID, PeriodStart, PeriodEnd) is unique.
type BillingPeriod struct {
	ID          int64
	TenantID    int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	PaymentID   int64
	CreatedAt   time.Time
}
