// Package notify sends best-effort notifications to customers and to the
// operations team. Failures here never fail an order: the caller records
// the attempt and moves on.
package notify

import "context"

// Message is a rendered notification ready for a sender.
type Message struct {
	To       []string
	From     string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a rendered message over one channel (SMTP, chat, ...).
type Sender interface {
	// Send delivers the message and returns a provider message ID when
	// the channel has one.
	Send(ctx context.Context, msg *Message) (string, error)
}
