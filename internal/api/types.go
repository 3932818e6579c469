package api

import (
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/schedule"
)

type SubmittedResponse struct {
	Message    string `json:"message"`
	TrackingID string `json:"trackingId"`
	ID         int64  `json:"id"`
	Status     string `json:"status"`
}

type SlotsResponse struct {
	Date           string   `json:"date"`
	Service        string   `json:"service"`
	AvailableSlots []string `json:"availableSlots"`
}

type ServiceResponse struct {
	Name        string   `json:"name"`
	Days        []string `json:"days"`
	Windows     []string `json:"windows"`
	SlotMinutes int      `json:"slotMinutes"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

type ApproveRequest struct {
	Remarks string `json:"remarks"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

// CertificateResponse is the staff view of a request, including the fields
// the public tracking view hides.
type CertificateResponse struct {
	ID              int64      `json:"id"`
	TrackingID      string     `json:"trackingId"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	CertificateType string     `json:"certificateType"`
	Purpose         string     `json:"purpose"`
	IDType          string     `json:"idType"`
	IDNumber        string     `json:"idNumber"`
	IDFileRef       *string    `json:"idFileRef,omitempty"`
	DateNeeded      *string    `json:"dateNeeded,omitempty"`
	Status          string     `json:"status"`
	Remarks         string     `json:"remarks"`
	ProcessedBy     *string    `json:"processedBy,omitempty"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type AppointmentResponse struct {
	ID            int64      `json:"id"`
	TrackingID    string     `json:"trackingId"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	ServiceType   string     `json:"serviceType"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	HealthConcern string     `json:"healthConcern,omitempty"`
	Status        string     `json:"status"`
	Remarks       string     `json:"remarks"`
	ProcessedBy   *string    `json:"processedBy,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
	NoShowAt      *time.Time `json:"noShowAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func toCertificateResponse(r *certificate.Request) CertificateResponse {
	resp := CertificateResponse{
		ID:              r.ID,
		TrackingID:      r.TrackingID,
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		CertificateType: r.CertificateType,
		Purpose:         r.Purpose,
		IDType:          r.IDType,
		IDNumber:        r.IDNumber,
		IDFileRef:       r.IDFileRef,
		Status:          string(r.Status),
		Remarks:         r.Remarks,
		ProcessedBy:     r.ProcessedBy,
		ProcessedAt:     r.ProcessedAt,
		CreatedAt:       r.CreatedAt,
	}
	if r.DateNeeded != nil {
		d := r.DateNeeded.Format(schedule.DateLayout)
		resp.DateNeeded = &d
	}
	return resp
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		TrackingID:    a.TrackingID,
		Name:          a.Name,
		Email:         a.Email,
		Phone:         a.Phone,
		ServiceType:   a.ServiceType,
		Date:          a.Date.Format(schedule.DateLayout),
		Time:          a.Time.String(),
		HealthConcern: a.HealthConcern,
		Status:        string(a.Status),
		Remarks:       a.Remarks,
		ProcessedBy:   a.ProcessedBy,
		ConfirmedAt:   a.ConfirmedAt,
		CancelledAt:   a.CancelledAt,
		NoShowAt:      a.NoShowAt,
		CreatedAt:     a.CreatedAt,
	}
}

func toServiceResponse(s schedule.Service) ServiceResponse {
	resp := ServiceResponse{Name: s.Name, SlotMinutes: s.SlotMinutes}
	for _, d := range s.Days {
		resp.Days = append(resp.Days, d.String())
	}
	for _, w := range s.Windows {
		resp.Windows = append(resp.Windows, w.Start.String()+"-"+w.End.String())
	}
	return resp
}
