package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/barangay-nit/eservices/internal/admin"
	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/schedule"
)

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// session returns whatever RequireStaff stored; the gateway decides whether
// it is good enough.
func session(r *http.Request) auth.Session {
	sess, _ := auth.SessionFrom(r.Context())
	return sess
}

func approveCertificateHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}

		var req ApproveRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}

		updated, err := gw.ApproveCertificate(r.Context(), session(r), id, req.Remarks)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCertificateResponse(updated))
	}
}

func rejectCertificateHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}

		var req ReasonRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}

		updated, err := gw.RejectCertificate(r.Context(), session(r), id, req.Reason)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCertificateResponse(updated))
	}
}

func confirmAppointmentHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}

		updated, err := gw.ConfirmAppointment(r.Context(), session(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

func cancelAppointmentHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}

		var req ReasonRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}

		updated, err := gw.CancelAppointment(r.Context(), session(r), id, req.Reason)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

func noShowAppointmentHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}

		updated, err := gw.MarkNoShow(r.Context(), session(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

func getCertificateHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}

		req, err := gw.GetCertificate(r.Context(), session(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCertificateResponse(req))
	}
}

func getAppointmentHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}

		appt, err := gw.GetAppointment(r.Context(), session(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}

func listCertificatesHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pageParams(r)
		f := certificate.ListFilter{Limit: limit, Offset: offset}

		if raw := r.URL.Query().Get("status"); raw != "" {
			st, ok := certificate.ParseStatus(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown certificate status")
				return
			}
			f.Status = &st
		}

		items, total, err := gw.ListCertificates(r.Context(), session(r), f)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := ListResponse[CertificateResponse]{
			Items:  make([]CertificateResponse, 0, len(items)),
			Total:  total,
			Limit:  clampLimit(limit),
			Offset: max(offset, 0),
		}
		for i := range items {
			resp.Items = append(resp.Items, toCertificateResponse(&items[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(gw *admin.Gateway, calc *schedule.Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pageParams(r)
		f := appointment.ListFilter{Limit: limit, Offset: offset}

		q := r.URL.Query()
		if raw := q.Get("status"); raw != "" {
			st, ok := appointment.ParseStatus(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown appointment status")
				return
			}
			f.Status = &st
		}
		if raw := q.Get("date"); raw != "" {
			d, err := schedule.ParseDate(raw, calc.Location())
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			f.Date = &d
		}

		items, total, err := gw.ListAppointments(r.Context(), session(r), f)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := ListResponse[AppointmentResponse]{
			Items:  make([]AppointmentResponse, 0, len(items)),
			Total:  total,
			Limit:  clampLimit(limit),
			Offset: max(offset, 0),
		}
		for i := range items {
			resp.Items = append(resp.Items, toAppointmentResponse(&items[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func dashboardHandler(gw *admin.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := gw.Stats(r.Context(), session(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
