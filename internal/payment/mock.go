package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock payment provider for testing.
// Simulates hosted checkout sessions without calling the provider API.
type MockProvider struct {
	// CreateSessionFunc allows customizing session creation behavior
	CreateSessionFunc func(ctx context.Context, params CreateSessionParams) (*Session, error)

	// GetSessionFunc allows customizing session retrieval behavior
	GetSessionFunc func(ctx context.Context, sessionID string) (*Session, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior
	VerifyWebhookSignatureFunc func(payload []byte, signature string, secret string) error

	// Sessions stores created sessions for retrieval
	Sessions map[string]*Session

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock payment provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Sessions: make(map[string]*Session),
		CallLog:  []string{},
	}
}

// CreateSession creates a mock checkout session.
func (m *MockProvider) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateSession(%s, %s)", params.Amount, params.Currency))

	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, params)
	}

	// Default mock behavior: create an open, unpaid session
	sess := &Session{
		ID:            "cs_" + uuid.New().String(),
		URL:           "https://checkout.example.com/pay/" + uuid.New().String(),
		Status:        "open",
		PaymentStatus: "unpaid",
		Amount:        params.Amount,
		Currency:      params.Currency,
		Metadata:      params.Metadata,
		CreatedAt:     time.Now(),
	}

	m.Sessions[sess.ID] = sess
	return sess, nil
}

// GetSession retrieves a mock checkout session.
func (m *MockProvider) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetSession(%s)", sessionID))

	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}

	sess, exists := m.Sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// VerifyWebhookSignature verifies a mock webhook signature.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature, secret)
	}

	if signature == "invalid" {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// MarkPaid flips a stored session to the paid state, standing in for the
// asynchronous provider-side capture.
func (m *MockProvider) MarkPaid(sessionID string) {
	if sess, ok := m.Sessions[sessionID]; ok {
		sess.Status = "complete"
		sess.PaymentStatus = "paid"
	}
}
