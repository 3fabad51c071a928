// Package maintenance runs the repair request workflow.
//
//	pending -> in_progress -> completed -> closed
//	                 ^             |
//	                 +--- reject --+
//
// Owners move a request forward by overriding its status. Tenants may only
// approve or reject completed work.
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

type transition struct {
	from domain.MaintenanceStatus
	to   domain.MaintenanceStatus
}

var transitions = map[domain.MaintenanceAction]transition{
	domain.MaintenanceApprove: {from: domain.MaintenanceCompleted, to: domain.MaintenanceClosed},
	domain.MaintenanceReject:  {from: domain.MaintenanceCompleted, to: domain.MaintenanceInProgress},
}

// Apply returns the status action leads to from current.
func Apply(current domain.MaintenanceStatus, action domain.MaintenanceAction) (domain.MaintenanceStatus, error) {
	tr, ok := transitions[action]
	if !ok {
		return "", domain.Invalid("action", "must be approve or reject")
	}
	if current != tr.from {
		return "", domain.StateViolation("invalid_maintenance_transition",
			fmt.Sprintf("can only %s %s requests", action, strings.ReplaceAll(string(tr.from), "_", " ")))
	}
	return tr.to, nil
}

// NewRequest is a tenant's repair request.
type NewRequest struct {
	Title       string
	Description string
	Priority    string
}

// Override is an owner edit. Nil fields are left unchanged.
type Override struct {
	Status     *domain.MaintenanceStatus
	OwnerNotes *string
}

type Service struct {
	now func() time.Time
}

func NewService() *Service {
	return &Service{now: time.Now}
}

// Open files a pending request for tenant.
func (s *Service) Open(ctx context.Context, tx repository.Tx, tenant domain.Tenant, in NewRequest) (domain.MaintenanceRequest, error) {
	fields := domain.FieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fields.Add("title", "is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		fields.Add("description", "is required")
	}
	priority, ok := domain.ParsePriority(in.Priority)
	if !ok {
		fields.Add("priority", "must be low, medium or high")
	}
	if err := fields.Err(); err != nil {
		return domain.MaintenanceRequest{}, err
	}

	return tx.Maintenance().Create(ctx, domain.MaintenanceRequest{
		TenantID:    tenant.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		Status:      domain.MaintenancePending,
		CreatedAt:   s.now().UTC(),
	})
}

// Transition applies a guarded action to a request owned by tenant.
func (s *Service) Transition(ctx context.Context, tx repository.Tx, tenant domain.Tenant, requestID int64, action domain.MaintenanceAction) (domain.MaintenanceRequest, error) {
	req, err := tx.Maintenance().Get(ctx, requestID)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	if req.TenantID != tenant.ID {
		return domain.MaintenanceRequest{}, domain.Unauthorized("request belongs to another tenant")
	}

	next, err := Apply(req.Status, action)
	if err != nil {
		return req, err
	}
	req.Status = next
	req.UpdatedAt = s.now().UTC()
	return tx.Maintenance().Update(ctx, req)
}

// Override sets status and notes without consulting the state machine. The
// request must belong to one of owner's tenants.
func (s *Service) Override(ctx context.Context, tx repository.Tx, owner domain.Owner, requestID int64, o Override) (domain.MaintenanceRequest, error) {
	req, err := s.forOwner(ctx, tx, owner, requestID)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	if o.Status != nil {
		if _, ok := domain.ParseMaintenanceStatus(string(*o.Status)); !ok {
			return domain.MaintenanceRequest{}, domain.Invalid("status", "must be pending, in_progress, completed or closed")
		}
		req.Status = *o.Status
	}
	if o.OwnerNotes != nil {
		req.OwnerNotes = *o.OwnerNotes
	}
	req.UpdatedAt = s.now().UTC()
	return tx.Maintenance().Update(ctx, req)
}

// Get loads a request visible to acct: its tenant, or that tenant's owner.
func (s *Service) Get(ctx context.Context, tx repository.Tx, acct domain.Account, requestID int64) (domain.MaintenanceRequest, error) {
	switch a := acct.(type) {
	case domain.Owner:
		return s.forOwner(ctx, tx, a, requestID)
	case domain.Tenant:
		req, err := tx.Maintenance().Get(ctx, requestID)
		if err != nil {
			return domain.MaintenanceRequest{}, err
		}
		if req.TenantID != a.ID {
			return domain.MaintenanceRequest{}, domain.Unauthorized("request belongs to another tenant")
		}
		return req, nil
	}
	return domain.MaintenanceRequest{}, domain.Unauthorized("unknown account")
}

func (s *Service) forOwner(ctx context.Context, tx repository.Tx, owner domain.Owner, requestID int64) (domain.MaintenanceRequest, error) {
	req, err := tx.Maintenance().Get(ctx, requestID)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	acct, err := tx.Accounts().Get(ctx, req.TenantID)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	if tenant, ok := acct.(domain.Tenant); !ok || !tenant.BelongsTo(owner) {
		return domain.MaintenanceRequest{}, domain.Unauthorized("request belongs to another owner's tenant")
	}
	return req, nil
}
