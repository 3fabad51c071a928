// Package httpapi serves the rent manager JSON API over chi.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/auth"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/metrics"
	"github.com/septivank/rent-manager/internal/service"
)

// maxUploadBytes caps a reading submission including its image.
const maxUploadBytes = 10 << 20

type Server struct {
	svc            *service.Service
	tokens         *auth.TokenIssuer
	logger         *zap.Logger
	requestTimeout time.Duration
}

func NewServer(svc *service.Service, tokens *auth.TokenIssuer, logger *zap.Logger, requestTimeout time.Duration) *Server {
	return &Server{
		svc:            svc,
		tokens:         tokens,
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

// Routes builds the router. Everything except health and metrics lives under /api.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		requestLogger(s.logger),
		jsonRecoverer(s.logger),
		metrics.Middleware(),
	)
	if s.requestTimeout > 0 {
		r.Use(chimw.Timeout(s.requestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register_owner", s.registerOwner)
		r.Post("/request_password_reset", s.requestPasswordReset)
		r.Post("/verify_otp_and_reset_password", s.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/change_password", s.changePassword)
			r.Get("/uploads/*", s.readingImage)
			r.Get("/maintenance-requests/{id}", s.maintenanceRequest)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(domain.RoleTenant))

				r.Post("/submit_reading", s.submitReading)
				r.Get("/tenant/dashboard", s.tenantDashboard)
				r.Post("/create_payment", s.createPayment)
				r.Post("/maintenance-requests", s.openMaintenanceRequest)
				r.Get("/maintenance-requests/tenant", s.tenantMaintenanceRequests)
				r.Post("/maintenance-requests/{id}/{action}", s.transitionMaintenanceRequest)
				r.Patch("/maintenance-requests/{id}/{action}", s.transitionMaintenanceRequest)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(domain.RoleOwner))

				r.Post("/register_tenant", s.registerTenant)
				r.Get("/owner/dashboard", s.ownerDashboard)
				r.Get("/owner/tenants", s.ownerTenants)
				r.Delete("/owner/tenants/{id}", s.deleteTenant)
				r.Get("/owner/meter_readings", s.ownerReadings)
				r.Get("/owner/payments", s.ownerPayments)
				r.Post("/owner/payments/{id}/accept", s.transitionPayment(domain.ActionComplete))
				r.Post("/owner/payments/{id}/reject", s.transitionPayment(domain.ActionReject))
				r.Post("/update_rate", s.updateRate)
				r.Get("/owner/electricity_rate", s.electricityRate)
				r.Post("/owner/electricity_rate", s.setElectricityRate)
				r.Get("/owner/rates/{meter}", s.rateHistory)
				r.Get("/maintenance-requests/owner", s.ownerMaintenanceRequests)
				r.Patch("/maintenance-requests/{id}", s.overrideMaintenanceRequest)
			})
		})
	})

	return r
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("body", "must be a valid JSON object")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

func owner(r *http.Request) domain.Owner {
	o, _ := accountFrom(r.Context()).(domain.Owner)
	return o
}

func tenant(r *http.Request) domain.Tenant {
	t, _ := accountFrom(r.Context()).(domain.Tenant)
	return t
}
