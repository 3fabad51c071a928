package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/maintenance"
	"github.com/septivank/rent-manager/internal/mq"
	"github.com/septivank/rent-manager/internal/repository"
)

// OpenMaintenanceRequest files a new pending request for tenant.
func (s *Service) OpenMaintenanceRequest(ctx context.Context, tenant domain.Tenant, in maintenance.NewRequest) (domain.MaintenanceRequest, error) {
	var req domain.MaintenanceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		req, err = s.maintenance.Open(ctx, tx, tenant, in)
		return err
	})
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}

	s.log(ctx).Info("maintenance request opened",
		zap.Int64("request_id", req.ID),
		zap.Int64("tenant_id", tenant.ID),
		zap.String("priority", string(req.Priority)),
	)
	return req, nil
}

// TransitionMaintenanceRequest applies a tenant verdict (approve or reject) to completed work.
func (s *Service) TransitionMaintenanceRequest(ctx context.Context, tenant domain.Tenant, requestID int64, action string) (domain.MaintenanceRequest, error) {
	var from domain.MaintenanceStatus
	var req domain.MaintenanceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := s.maintenance.Get(ctx, tx, tenant, requestID)
		if err != nil {
			return err
		}
		from = current.Status
		req, err = s.maintenance.Transition(ctx, tx, tenant, requestID, domain.MaintenanceAction(action))
		return err
	})
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}

	s.statusChanged(ctx, req, from)
	return req, nil
}

// OverrideMaintenanceRequest lets the owner set any status and notes.
func (s *Service) OverrideMaintenanceRequest(ctx context.Context, owner domain.Owner, requestID int64, o maintenance.Override) (domain.MaintenanceRequest, error) {
	var from domain.MaintenanceStatus
	var req domain.MaintenanceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := s.maintenance.Get(ctx, tx, owner, requestID)
		if err != nil {
			return err
		}
		from = current.Status
		req, err = s.maintenance.Override(ctx, tx, owner, requestID, o)
		return err
	})
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}

	if req.Status != from {
		s.statusChanged(ctx, req, from)
	}
	return req, nil
}

func (s *Service) statusChanged(ctx context.Context, req domain.MaintenanceRequest, from domain.MaintenanceStatus) {
	s.log(ctx).Info("maintenance request status changed",
		zap.Int64("request_id", req.ID),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)),
	)
	s.publish(ctx, mq.NewEvent(mq.EventMaintenanceStatusChanged, maintenancePayload{
		RequestID: req.ID,
		TenantID:  req.TenantID,
		From:      string(from),
		To:        string(req.Status),
	}))
}

type maintenancePayload struct {
	RequestID int64  `json:"request_id"`
	TenantID  int64  `json:"tenant_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// MaintenanceRequest loads a request visible to acct.
func (s *Service) MaintenanceRequest(ctx context.Context, acct domain.Account, requestID int64) (domain.MaintenanceRequest, error) {
	var req domain.MaintenanceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		req, err = s.maintenance.Get(ctx, tx, acct, requestID)
		return err
	})
	return req, err
}

// TenantMaintenanceRequests lists tenant's requests, newest first.
func (s *Service) TenantMaintenanceRequests(ctx context.Context, tenant domain.Tenant) ([]domain.MaintenanceRequest, error) {
	var out []domain.MaintenanceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Maintenance().ListByTenant(ctx, tenant.ID)
		return err
	})
	return out, err
}

// OwnerMaintenanceRequest is a request together with the tenant that filed it.
type OwnerMaintenanceRequest struct {
	Request    domain.MaintenanceRequest
	TenantCode string
	TenantName string
}

// OwnerMaintenanceRequests lists requests across owner's tenants, newest first.
func (s *Service) OwnerMaintenanceRequests(ctx context.Context, owner domain.Owner) ([]OwnerMaintenanceRequest, error) {
	var out []OwnerMaintenanceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tenants, err := s.roster.Members(ctx, tx, owner)
		if err != nil {
			return err
		}
		byID := make(map[int64]domain.Tenant, len(tenants))
		for _, t := range tenants {
			byID[t.ID] = t
		}

		list, err := tx.Maintenance().ListByOwner(ctx, owner.ID)
		if err != nil {
			return err
		}
		out = make([]OwnerMaintenanceRequest, 0, len(list))
		for _, r := range list {
			t := byID[r.TenantID]
			out = append(out, OwnerMaintenanceRequest{Request: r, TenantCode: t.TenantCode, TenantName: t.Name})
		}
		return nil
	})
	return out, err
}
