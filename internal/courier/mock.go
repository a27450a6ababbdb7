package courier

import (
	"context"
	"fmt"
	"time"
)

// MockProvider is a mock carrier for testing.
type MockProvider struct {
	// CreateAWBFunc allows customizing AWB registration behavior
	CreateAWBFunc func(ctx context.Context, params CreateAWBParams) (*AWB, error)

	// TrackAWBFunc allows customizing tracking behavior
	TrackAWBFunc func(ctx context.Context, awb string) (*TrackingInfo, error)

	// DownloadLabelFunc allows customizing label download behavior
	DownloadLabelFunc func(ctx context.Context, labelRef string) ([]byte, error)

	// AWBs stores registered shipments keyed by AWB number
	AWBs map[string]*AWB

	// Tracking stores tracking states keyed by AWB number
	Tracking map[string]*TrackingInfo

	// CallLog tracks method calls for test assertions
	CallLog []string

	nextAWB int
}

// NewMockProvider creates a new mock carrier.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		AWBs:     make(map[string]*AWB),
		Tracking: make(map[string]*TrackingInfo),
		CallLog:  []string{},
		nextAWB:  7000000,
	}
}

// CreateAWB registers a mock shipment.
func (m *MockProvider) CreateAWB(ctx context.Context, params CreateAWBParams) (*AWB, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateAWB(%s, cod=%s)", params.OrderNumber, params.CODAmount.StringFixed(2)))

	if m.CreateAWBFunc != nil {
		return m.CreateAWBFunc(ctx, params)
	}

	if params.Recipient.Name == "" || params.Recipient.Phone == "" || params.Recipient.City == "" {
		return nil, ErrMissingRecipient
	}

	m.nextAWB++
	awb := &AWB{
		Number:    fmt.Sprintf("%d", m.nextAWB),
		LabelRef:  fmt.Sprintf("label-%d", m.nextAWB),
		Carrier:   "mock",
		CreatedAt: time.Now(),
	}
	m.AWBs[awb.Number] = awb
	m.Tracking[awb.Number] = &TrackingInfo{
		AWB:       awb.Number,
		Status:    "registered",
		LastEvent: "AWB registered",
		UpdatedAt: time.Now(),
	}
	return awb, nil
}

// TrackAWB returns the stored tracking state.
func (m *MockProvider) TrackAWB(ctx context.Context, awb string) (*TrackingInfo, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("TrackAWB(%s)", awb))

	if m.TrackAWBFunc != nil {
		return m.TrackAWBFunc(ctx, awb)
	}

	info, exists := m.Tracking[awb]
	if !exists {
		return nil, ErrAWBNotFound
	}
	return info, nil
}

// DownloadLabel returns a stub label.
func (m *MockProvider) DownloadLabel(ctx context.Context, labelRef string) ([]byte, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("DownloadLabel(%s)", labelRef))

	if m.DownloadLabelFunc != nil {
		return m.DownloadLabelFunc(ctx, labelRef)
	}
	return []byte("%PDF-1.4 mock label " + labelRef), nil
}

// SetStatus overrides a shipment's tracking state, standing in for
// carrier-side progress.
func (m *MockProvider) SetStatus(awb, status, event string) {
	m.Tracking[awb] = &TrackingInfo{
		AWB:       awb,
		Status:    status,
		LastEvent: event,
		UpdatedAt: time.Now(),
		Delivered: status == "delivered",
	}
}
