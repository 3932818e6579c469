package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/domain"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs method, path, status, duration, request ID and the
// acting staff member when there is one.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		holder := &actorHolder{}
		ctx := context.WithValue(r.Context(), actorKey, holder)

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		log.Printf(
			"method=%s path=%s status=%d duration=%s request_id=%s actor=%s",
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			time.Since(start),
			GetRequestID(r.Context()),
			holder.name,
		)
	})
}

const actorKey contextKey = "actor"

type actorHolder struct{ name string }

// RequireStaff verifies the bearer token and stores the session in the
// request context. Requests without a valid token never reach the handler.
func RequireStaff(verifier *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				handleError(w, r, domain.ErrUnauthorized)
				return
			}

			sess, err := verifier.Verify(token)
			if err != nil {
				log.Printf("rejected staff token request_id=%s: %v", GetRequestID(r.Context()), err)
				handleError(w, r, domain.ErrUnauthorized)
				return
			}

			if h, ok := r.Context().Value(actorKey).(*actorHolder); ok {
				h.name = sess.Username
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
