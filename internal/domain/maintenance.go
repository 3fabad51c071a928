package domain

import "time"

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceClosed     MaintenanceStatus = "closed"
)

// ParseMaintenanceStatus validates s.
func ParseMaintenanceStatus(s string) (MaintenanceStatus, bool) {
	switch st := MaintenanceStatus(s); st {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted, MaintenanceClosed:
		return st, true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates s.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

// MaintenanceAction is a tenant's verdict on completed work. Owners move
// requests forward through an override instead.
type MaintenanceAction string

const (
	MaintenanceApprove  MaintenanceAction = "approve"
	MaintenanceReject   MaintenanceAction = "reject"
)

type MaintenanceRequest struct {
	ID          int64
	TenantID    int64
	Title       string
	Description string
	Priority    Priority
	Status      MaintenanceStatus
	OwnerNotes  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResetCode is a one-time password-reset OTP.
type ResetCode struct {
	ID        int64
	AccountID int64
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	// Attempts counts wrong guesses against this code.
	Attempts int
}

// Valid reports whether the code can still be redeemed at now.
func (c ResetCode) Valid(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
