package client

import (
	"context"
	"log"
)

// Mailer hands a rendered document to the delivery transport. Delivery is
// fire-and-forget: failures are logged, never retried here.
type Mailer interface {
	Send(ctx context.Context, to, subject string, htmlBody []byte) error
}

type logMailer struct{}

// NewLogMailer returns a Mailer that only logs the handoff. The real
// transport lives outside this service.
func NewLogMailer() Mailer {
	return &logMailer{}
}

func (m *logMailer) Send(ctx context.Context, to, subject string, htmlBody []byte) error {
	log.Printf("mail handoff: to=%s subject=%q bytes=%d", to, subject, len(htmlBody))
	return nil
}
