package httpapi

import (
	"net/http"
	"time"

	"github.com/septivank/rent-manager/internal/service"
)

type loginRequest struct {
	Identifier string `json:"tenant_id"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      accountView `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	sess, err := s.svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      toAccountView(sess.Account),
	})
}

type registerOwnerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) registerOwner(w http.ResponseWriter, r *http.Request) {
	var req registerOwnerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	o, err := s.svc.RegisterOwner(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Owner registered successfully",
		"owner":   toAccountView(o),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.svc.ChangePassword(r.Context(), accountFrom(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully")
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	msg, err := s.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.svc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset successfully")
}

type registerTenantRequest struct {
	Name                      string  `json:"name"`
	Email                     string  `json:"email"`
	RentAmount                float64 `json:"rent_amount"`
	InitialElectricityReading float64 `json:"initial_electricity_reading"`
	InitialWaterReading       float64 `json:"initial_water_reading"`
}

type registeredTenantView struct {
	tenantView
	Password string `json:"password"`
}

func (s *Server) registerTenant(w http.ResponseWriter, r *http.Request) {
	var req registerTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	reg, err := s.svc.RegisterTenant(r.Context(), owner(r), service.NewTenant{
		Name:                      req.Name,
		Email:                     req.Email,
		RentAmount:                req.RentAmount,
		InitialElectricityReading: req.InitialElectricityReading,
		InitialWaterReading:       req.InitialWaterReading,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Tenant registered successfully",
		"tenant":  registeredTenantView{tenantView: toTenantView(reg.Tenant), Password: reg.Password},
	})
}

func (s *Server) ownerTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.svc.Tenants(r.Context(), owner(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	out := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.svc.DeleteTenant(r.Context(), owner(r), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Tenant deleted successfully")
}

type ownerDashboardView struct {
	TotalTenants      int           `json:"total_tenants"`
	TotalRent         float64       `json:"total_rent"`
	CompletedPayments int           `json:"completed_payments"`
	RecentPayments    []paymentView `json:"recent_payments"`
}

func (s *Server) ownerDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.OwnerDashboard(r.Context(), owner(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ownerDashboardView{
		TotalTenants:      dash.TotalTenants,
		TotalRent:         dash.TotalRent,
		CompletedPayments: dash.CompletedPayments,
		RecentPayments:    toOwnerPaymentViews(dash.RecentPayments),
	})
}
