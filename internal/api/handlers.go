package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/schedule"
	"github.com/barangay-nit/eservices/internal/status"
	"github.com/barangay-nit/eservices/internal/tracking"
)

func submitCertificateHandler(svc *certificate.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in certificate.SubmitInput
		if !decodeJSON(w, r, &in) {
			return
		}

		req, err := svc.Submit(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, SubmittedResponse{
			Message:    "Certificate request submitted",
			TrackingID: req.TrackingID,
			ID:         req.ID,
			Status:     string(req.Status),
		})
	}
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in appointment.BookInput
		if !decodeJSON(w, r, &in) {
			return
		}

		appt, err := svc.Book(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, SubmittedResponse{
			Message:    "Appointment booked",
			TrackingID: appt.TrackingID,
			ID:         appt.ID,
			Status:     string(appt.Status),
		})
	}
}

func availableSlotsHandler(calc *schedule.Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		dateStr := strings.TrimSpace(q.Get("date"))
		service := strings.TrimSpace(q.Get("service"))
		if dateStr == "" || service == "" {
			writeError(w, http.StatusBadRequest, "invalid_slot_query", "date and service are required")
			return
		}

		date, err := schedule.ParseDate(dateStr, calc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_query", "date must be YYYY-MM-DD")
			return
		}

		slots, err := calc.AvailableSlots(r.Context(), date, service)
		if err != nil {
			handleError(w, r, err)
			return
		}

		canonical, _ := calc.Catalog().Canonical(service)
		resp := SlotsResponse{
			Date:           date.Format(schedule.DateLayout),
			Service:        canonical,
			AvailableSlots: make([]string, 0, len(slots)),
		}
		for _, s := range slots {
			resp.AvailableSlots = append(resp.AvailableSlots, s.String())
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func listServicesHandler(catalog *schedule.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := catalog.Services()
		resp := make([]ServiceResponse, 0, len(services))
		for _, s := range services {
			resp = append(resp, toServiceResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// trackHandler serves /api/track/{kind}/{trackingId}. A fixed kind is used
// for the per-kind alias routes.
func trackHandler(svc *status.Service, fixed tracking.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := fixed
		if kind == "" {
			k, ok := tracking.ParseKind(strings.ToUpper(chi.URLParam(r, "kind")))
			if !ok {
				handleError(w, r, domain.ErrNotFound)
				return
			}
			kind = k
		}

		view, err := svc.Lookup(r.Context(), kind, strings.TrimSpace(chi.URLParam(r, "trackingId")))
		if err != nil {
			handleError(w, r, err)
			return
		}

		if view.Certificate != nil {
			writeJSON(w, http.StatusOK, view.Certificate)
			return
		}
		writeJSON(w, http.StatusOK, view.Appointment)
	}
}

func loginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		token, sess, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			Token:     token,
			ExpiresAt: sess.ExpiresAt,
			Username:  sess.Username,
			Role:      sess.Role,
		})
	}
}
