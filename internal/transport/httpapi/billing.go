package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/septivank/rent-manager/internal/billing"
	"github.com/septivank/rent-manager/internal/domain"
)

type tenantDashboardView struct {
	Tenant         tenantView            `json:"tenant"`
	Billing        billView              `json:"billing"`
	MeterReadings  map[string]*meterView `json:"meter_readings"`
	PaymentStatus  *paymentView          `json:"payment_status"`
	PaymentHistory []paymentView         `json:"payment_history"`
}

func (s *Server) tenantDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.Dashboard(r.Context(), tenant(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	view := tenantDashboardView{
		Tenant:         toTenantView(dash.Tenant),
		Billing:        toBillView(dash.Bill),
		MeterReadings:  make(map[string]*meterView, len(dash.Meters)),
		PaymentHistory: make([]paymentView, 0, len(dash.RecentPayments)),
	}
	for _, m := range dash.Meters {
		view.MeterReadings[string(m.Meter)] = toMeterView(m)
	}
	if dash.CurrentPayment != nil {
		p := toPaymentView(*dash.CurrentPayment)
		view.PaymentStatus = &p
	}
	for _, p := range dash.RecentPayments {
		view.PaymentHistory = append(view.PaymentHistory, toPaymentView(p))
	}
	writeJSON(w, http.StatusOK, view)
}

type createPaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type createPaymentResponse struct {
	PaymentID    int64   `json:"payment_id"`
	Amount       float64 `json:"amount"`
	Method       string  `json:"method"`
	Status       string  `json:"status"`
	Reference    string  `json:"reference"`
	ClientSecret string  `json:"client_secret,omitempty"`
	Message      string  `json:"message,omitempty"`
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	handle, err := s.svc.CreateCharge(r.Context(), tenant(r), req.PaymentMethod)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	p := handle.Payment
	resp := createPaymentResponse{
		PaymentID:    p.ID,
		Amount:       billing.Round2(p.Amount),
		Method:       string(p.Method),
		Status:       string(p.Status),
		Reference:    handle.Reference,
		ClientSecret: handle.ClientSecret,
	}
	if p.Method != domain.MethodCard {
		resp.Message = fmt.Sprintf("Please use reference %s when making the payment", handle.Reference)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) ownerPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.OwnerPayments(r.Context(), owner(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOwnerPaymentViews(list))
}

func (s *Server) transitionPayment(action domain.PaymentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		p, err := s.svc.TransitionPayment(r.Context(), owner(r), id, string(action))
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		msg := "Payment accepted"
		if p.Status == domain.PaymentRejected {
			msg = "Payment rejected"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": msg,
			"status":  string(p.Status),
			"payment": toPaymentView(p),
		})
	}
}

type updateRateRequest struct {
	RateType      string     `json:"rate_type"`
	RatePerUnit   float64    `json:"rate_per_unit"`
	EffectiveFrom *time.Time `json:"effective_from"`
}

func (s *Server) updateRate(w http.ResponseWriter, r *http.Request) {
	var req updateRateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	var from time.Time
	if req.EffectiveFrom != nil {
		from = *req.EffectiveFrom
	}
	rec, err := s.svc.SetRate(r.Context(), owner(r), req.RateType, req.RatePerUnit, from)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("%s rate updated", rec.MeterType),
		"rate":    toRateView(rec),
	})
}

type electricityRateRequest struct {
	Rate float64 `json:"rate"`
}

func (s *Server) setElectricityRate(w http.ResponseWriter, r *http.Request) {
	var req electricityRateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	rec, err := s.svc.SetRate(r.Context(), owner(r), string(domain.MeterElectricity), req.Rate, time.Time{})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Rate updated successfully",
		"rate":    toRateView(rec),
	})
}

func (s *Server) electricityRate(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.CurrentRate(r.Context(), owner(r), string(domain.MeterElectricity))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRateView(rec))
}

func (s *Server) rateHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.RateHistory(r.Context(), owner(r), chi.URLParam(r, "meter"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	out := make([]rateView, 0, len(list))
	for _, rec := range list {
		out = append(out, toRateView(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
