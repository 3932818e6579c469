package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds shared by every workflow package. Handlers map them to HTTP
// responses with errors.Is, so wrap them with %w rather than replacing them.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrSlotUnavailable     = errors.New("slot is no longer available")
	ErrNotFound            = errors.New("no record found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrGenerationExhausted = errors.New("tracking id sequence exhausted for today")
	ErrMissingReason       = errors.New("a reason is required")
	ErrInvalidSlotQuery    = errors.New("date is outside the booking window")
	ErrUnknownService      = errors.New("unknown service")
)

// ValidationError carries per-field problems for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return ErrValidation.Error() + " (" + strings.Join(parts, ", ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransitionError explains which edge was refused. It unwraps to
// ErrInvalidTransition so callers only need errors.Is.
type TransitionError struct {
	Entity string
	From   string
	Action string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
