package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/maintenance"
)

type openMaintenanceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (s *Server) openMaintenanceRequest(w http.ResponseWriter, r *http.Request) {
	var req openMaintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	m, err := s.svc.OpenMaintenanceRequest(r.Context(), tenant(r), maintenance.NewRequest{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaintenanceView(m))
}

func (s *Server) tenantMaintenanceRequests(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.TenantMaintenanceRequests(r.Context(), tenant(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	out := make([]maintenanceView, 0, len(list))
	for _, m := range list {
		out = append(out, toMaintenanceView(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ownerMaintenanceRequests(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.OwnerMaintenanceRequests(r.Context(), owner(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	out := make([]maintenanceView, 0, len(list))
	for _, om := range list {
		v := toMaintenanceView(om.Request)
		v.TenantCode, v.TenantName = om.TenantCode, om.TenantName
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) maintenanceRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	m, err := s.svc.MaintenanceRequest(r.Context(), accountFrom(r.Context()), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceView(m))
}

func (s *Server) transitionMaintenanceRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	m, err := s.svc.TransitionMaintenanceRequest(r.Context(), tenant(r), id, chi.URLParam(r, "action"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceView(m))
}

// overrideRequest uses pointers so absent fields are left unchanged.
type overrideRequest struct {
	Status     *string `json:"status"`
	OwnerNotes *string `json:"owner_notes"`
}

func (s *Server) overrideMaintenanceRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	o := maintenance.Override{OwnerNotes: req.OwnerNotes}
	if req.Status != nil {
		st := domain.MaintenanceStatus(*req.Status)
		o.Status = &st
	}

	m, err := s.svc.OverrideMaintenanceRequest(r.Context(), owner(r), id, o)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceView(m))
}
