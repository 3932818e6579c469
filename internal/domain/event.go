package domain

import "time"

// Event is one row of the audit trail written alongside every submission
// and status transition.
type Event struct {
	Type       string
	Entity     string
	RecordID   int64
	TrackingID string
	Actor      string
	Payload    []byte
	CreatedAt  time.Time
}
