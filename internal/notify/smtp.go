package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // "Barangay NIT <noreply@barangaynit.com>"
}

// SMTPNotifier mails each notice as HTML over STARTTLS.
type SMTPNotifier struct {
	client *mail.Client
	from   string
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client %s: %w", cfg.Host, err)
	}

	// Fail at startup on a bad sender rather than on the first notice.
	if err := mail.NewMsg().From(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", cfg.From, err)
	}

	return &SMTPNotifier{client: client, from: cfg.From}, nil
}

func (s *SMTPNotifier) Notify(ctx context.Context, n Notice) error {
	msg, err := s.message(n)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", n.Event, n.Email, err)
	}
	return nil
}

func (s *SMTPNotifier) message(n Notice) (*mail.Msg, error) {
	subject, body, err := Render(n)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if err := msg.AddToFormat(strings.ReplaceAll(n.Name, `"`, ""), n.Email); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", n.Email, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}
