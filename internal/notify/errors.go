package notify

import "errors"

var (
	// ErrMissingRecipient is returned when a message has no recipients.
	ErrMissingRecipient = errors.New("notify: message has no recipients")

	// ErrMissingSMTPHost is returned when the SMTP host is not configured.
	ErrMissingSMTPHost = errors.New("notify: SMTP host is required")
)
