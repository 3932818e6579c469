package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/barangay-nit/eservices/internal/admin"
	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/schedule"
	"github.com/barangay-nit/eservices/internal/status"
	"github.com/barangay-nit/eservices/internal/tracking"
)

type RouterConfig struct {
	Certificates *certificate.Service
	Appointments *appointment.Service
	Slots        *schedule.Calculator
	Status       *status.Service
	Auth         *auth.Service
	Admin        *admin.Gateway
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	CORSOrigins  []string
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Get("/services", listServicesHandler(cfg.Slots.Catalog()))

		r.Post("/certificates", submitCertificateHandler(cfg.Certificates))
		r.Get("/certificates/track/{trackingId}", trackHandler(cfg.Status, tracking.KindCertificate))

		r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
		r.Get("/appointments/available-slots", availableSlotsHandler(cfg.Slots))
		r.Get("/appointments/track/{trackingId}", trackHandler(cfg.Status, tracking.KindAppointment))

		r.Get("/track/{kind}/{trackingId}", trackHandler(cfg.Status, ""))

		r.Post("/auth/login", loginHandler(cfg.Auth))

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireStaff(cfg.Auth))

			r.Get("/dashboard", dashboardHandler(cfg.Admin))

			r.Get("/certificates", listCertificatesHandler(cfg.Admin))
			r.Get("/certificates/{id}", getCertificateHandler(cfg.Admin))
			r.Post("/certificates/{id}/approve", approveCertificateHandler(cfg.Admin))
			r.Post("/certificates/{id}/reject", rejectCertificateHandler(cfg.Admin))

			r.Get("/appointments", listAppointmentsHandler(cfg.Admin, cfg.Slots))
			r.Get("/appointments/{id}", getAppointmentHandler(cfg.Admin))
			r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Admin))
			r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Admin))
			r.Post("/appointments/{id}/no-show", noShowAppointmentHandler(cfg.Admin))
		})
	})

	return r
}
