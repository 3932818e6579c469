package appointment

import (
	"time"

	"github.com/barangay-nit/eservices/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusNoShow:
		return Status(s), true
	}
	return "", false
}

// Active appointments hold their slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
)

type Appointment struct {
	ID            int64
	TrackingID    string
	Name          string
	Email         string
	Phone         string
	ServiceType   string
	Date          time.Time
	Time          schedule.TimeOfDay
	HealthConcern string
	Status        Status
	Remarks       string
	ProcessedBy   *string
	ConfirmedAt   *time.Time
	CancelledAt   *time.Time
	NoShowAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StartsAt is the slot start in the date's location.
func (a Appointment) StartsAt() time.Time {
	return a.Time.On(a.Date)
}

type Transition struct {
	ID      int64
	Action  string
	From    Status
	To      Status
	Remarks string
	Actor   string
	At      time.Time
}

type ListFilter struct {
	Status *Status
	Date   *time.Time
	Limit  int
	Offset int
}

type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"noShow"`
	Today     int `json:"today"`
}
