package notify

import (
	"context"
	"fmt"
)

// MockSender is a mock notification sender for testing.
type MockSender struct {
	// SendFunc allows customizing send behavior
	SendFunc func(ctx context.Context, msg *Message) (string, error)

	// Sent stores delivered messages in order
	Sent []*Message

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockSender creates a new mock sender.
func NewMockSender() *MockSender {
	return &MockSender{
		Sent:    []*Message{},
		CallLog: []string{},
	}
}

// Send records the message.
func (m *MockSender) Send(ctx context.Context, msg *Message) (string, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("Send(%v, %s)", msg.To, msg.Subject))

	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}

	if len(msg.To) == 0 {
		return "", ErrMissingRecipient
	}
	m.Sent = append(m.Sent, msg)
	return fmt.Sprintf("msg-%d", len(m.Sent)), nil
}
