package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/barangay-nit/eservices/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for bodies that may be absent. An empty
// body, chunked or not, leaves dst untouched.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// handleError maps the workflow's error kinds onto HTTP. Not-found and
// unauthorized answers are deliberately generic.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Details: domain.ErrValidation.Error(),
			Fields:  ve.Fields,
		})
	case errors.Is(err, domain.ErrInvalidSlotQuery):
		writeError(w, http.StatusBadRequest, "invalid_slot_query", err.Error())
	case errors.Is(err, domain.ErrUnknownService):
		writeError(w, http.StatusBadRequest, "unknown_service", err.Error())
	case errors.Is(err, domain.ErrMissingReason):
		writeError(w, http.StatusBadRequest, "missing_reason", domain.ErrMissingReason.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", domain.ErrSlotUnavailable.Error())
	case errors.Is(err, domain.ErrGenerationExhausted):
		log.Printf("tracking id generation exhausted request_id=%s: %v", GetRequestID(r.Context()), err)
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusServiceUnavailable, "generation_exhausted", "please try again later")
	default:
		log.Printf("internal error request_id=%s path=%s: %v", GetRequestID(r.Context()), r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
