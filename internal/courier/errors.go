package courier

import "errors"

var (
	// ErrMissingCredentials is returned when carrier credentials are missing.
	ErrMissingCredentials = errors.New("courier: client ID and secret are required")

	// ErrAWBNotFound is returned when an AWB is unknown to the carrier.
	ErrAWBNotFound = errors.New("courier: AWB not found")

	// ErrLabelNotReady is returned when a label is not yet available for download.
	ErrLabelNotReady = errors.New("courier: label not ready")

	// ErrMissingRecipient is returned when the recipient address is incomplete.
	ErrMissingRecipient = errors.New("courier: recipient name, phone and city are required")
)
