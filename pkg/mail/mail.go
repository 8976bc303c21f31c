// Package mail is the outbound email collaborator used to deliver signup
// confirmation codes. Delivery failures always propagate to the caller.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/critiquelabs/critique/pkg/observability"
)

// Sender delivers a single message. Implementations must return an error on
// delivery failure rather than swallowing it; signup surfaces that error.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender creates a sender for the given relay. Username may be empty
// for relays that accept unauthenticated submission.
func NewSMTPSender(host, port, from, username, password string) *SMTPSender {
	s := &SMTPSender{
		addr: host + ":" + port,
		from: from,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

// Send delivers the message. The context is consulted before dialing;
// net/smtp itself does not support cancellation mid-send.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// InstrumentedSender counts delivery outcomes around an inner Sender.
type InstrumentedSender struct {
	inner   Sender
	metrics *observability.Metrics
}

// NewInstrumentedSender wraps a sender with the mail counters.
func NewInstrumentedSender(inner Sender, metrics *observability.Metrics) *InstrumentedSender {
	return &InstrumentedSender{inner: inner, metrics: metrics}
}

func (s *InstrumentedSender) Send(ctx context.Context, to, subject, body string) error {
	if err := s.inner.Send(ctx, to, subject, body); err != nil {
		s.metrics.MailErrorsTotal.Inc()
		return err
	}
	s.metrics.MailSentTotal.Inc()
	return nil
}
