package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const dateLayout = "January 02, 2006"

var subjects = map[Event]string{
	CertificateReceived:  "Certificate Request Received - %s",
	CertificateApproved:  "Certificate Approved - %s",
	CertificateRejected:  "Certificate Request Update - %s",
	AppointmentReceived:  "Appointment Request Received - %s",
	AppointmentConfirmed: "Appointment Confirmed - %s",
}

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<p>Dear {{.Name}},</p>
{{template "content" .}}
<p>Tracking ID: <strong>{{.TrackingID}}</strong></p>
<p>You can check the status of your request anytime on the barangay portal using this tracking ID.</p>
<p style="font-size: 12px; color: #777;">Barangay NIT e-Services. This is an automated message, please do not reply.</p>
</div>
</body>
</html>{{end}}`

var bodies = map[Event]string{
	CertificateReceived: `{{define "content"}}<p>We have received your request for a <strong>{{.Item}}</strong>. It is now under review by barangay staff.</p>{{end}}`,
	CertificateApproved: `{{define "content"}}<p>Your request for a <strong>{{.Item}}</strong> has been approved. Please bring a valid ID when you claim it at the barangay hall.</p>{{end}}`,
	CertificateRejected: `{{define "content"}}<p>We are sorry, your request for a <strong>{{.Item}}</strong> could not be approved.</p>
<p>Reason: {{.Reason}}</p>
<p>You may submit a new request once the issue above is addressed.</p>{{end}}`,
	AppointmentReceived: `{{define "content"}}<p>We have received your appointment request for <strong>{{.Item}}</strong> on {{date .Date}} at {{.Time}}. Staff will confirm it shortly.</p>{{end}}`,
	AppointmentConfirmed: `{{define "content"}}<p>Your appointment for <strong>{{.Item}}</strong> on {{date .Date}} at {{.Time}} is confirmed. Please arrive ten minutes early.</p>{{end}}`,
}

var templates = func() map[Event]*template.Template {
	funcs := template.FuncMap{"date": func(t time.Time) string { return t.Format(dateLayout) }}
	out := make(map[Event]*template.Template, len(bodies))
	for ev, body := range bodies {
		out[ev] = template.Must(template.Must(template.New(string(ev)).Funcs(funcs).Parse(layout)).Parse(body))
	}
	return out
}()

func Subject(n Notice) (string, error) {
	format, ok := subjects[n.Event]
	if !ok {
		return "", fmt.Errorf("unknown notification event %q", n.Event)
	}
	return fmt.Sprintf(format, n.Item), nil
}

// Render returns the subject and HTML body for n.
func Render(n Notice) (subject, body string, err error) {
	subject, err = Subject(n)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := templates[n.Event].ExecuteTemplate(&buf, "layout", n); err != nil {
		return "", "", fmt.Errorf("render %s: %w", n.Event, err)
	}
	return subject, buf.String(), nil
}
