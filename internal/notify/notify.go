// Package notify tells residents about their requests. Delivery is
// best-effort: a failed notice is logged and never undoes the change that
// triggered it.
package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

type Event string

const (
	CertificateReceived  Event = "certificate_received"
	CertificateApproved  Event = "certificate_approved"
	CertificateRejected  Event = "certificate_rejected"
	AppointmentReceived  Event = "appointment_received"
	AppointmentConfirmed Event = "appointment_confirmed"
)

const sendTimeout = 15 * time.Second

// Notice is one message to a resident. Item is the certificate type or the
// service name. Date and Time are set for appointments, Reason for
// rejections.
type Notice struct {
	Event      Event
	Email      string
	Name       string
	TrackingID string
	Item       string
	Date       time.Time
	Time       string
	Reason     string
}

type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Send delivers n and logs any failure. It outlives a cancelled request
// context but gives up after sendTimeout.
func Send(ctx context.Context, notifier Notifier, n Notice) {
	if notifier == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := notifier.Notify(sendCtx, n); err != nil {
		log.Printf("notification failed event=%s tracking_id=%s: %v", n.Event, n.TrackingID, err)
	}
}

// LogNotifier writes notices to the process log instead of sending them.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notice) error {
	subject, err := Subject(n)
	if err != nil {
		return err
	}
	log.Printf("notify event=%s to=%s tracking_id=%s subject=%q", n.Event, n.Email, n.TrackingID, subject)
	return nil
}

// Recorder keeps every notice it is given. Err, when set, is returned from
// each Notify after recording.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	Err     error
}

func (r *Recorder) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return r.Err
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}
