package certificate

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), true
	}
	return "", false
}

// Terminal statuses never move again.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

const (
	EventRequestSubmitted = "CERTIFICATE_SUBMITTED"
	EventRequestApproved  = "CERTIFICATE_APPROVED"
	EventRequestRejected  = "CERTIFICATE_REJECTED"
)

const (
	TypeBarangayClearance       = "Barangay Clearance"
	TypeIndigency               = "Certificate of Indigency"
	TypeResidency               = "Certificate of Residency"
	TypeBusinessPermitClearance = "Business Permit Clearance"
)

var Types = []string{
	TypeBarangayClearance,
	TypeIndigency,
	TypeResidency,
	TypeBusinessPermitClearance,
}

var IDTypes = []string{
	"Driver's License",
	"Passport",
	"SSS ID",
	"PhilHealth ID",
	"Voter's ID",
	"National ID",
	"Postal ID",
	"TIN ID",
	"PRC ID",
	"Other Government ID",
}

type Request struct {
	ID              int64
	TrackingID      string
	Name            string
	Email           string
	Phone           string
	CertificateType string
	Purpose         string
	IDType          string
	IDNumber        string
	IDFileRef       *string
	DateNeeded      *time.Time
	Status          Status
	Remarks         string
	ProcessedBy     *string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transition is a conditional status change: it applies only while the
// record is still in From.
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
	Limit  int
	Offset int
}

type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}
