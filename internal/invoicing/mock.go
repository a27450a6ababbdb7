package invoicing

import (
	"context"
	"fmt"
	"time"
)

// MockProvider is a mock invoicing provider for testing.
type MockProvider struct {
	// IssueInvoiceFunc allows customizing issuance behavior
	IssueInvoiceFunc func(ctx context.Context, params IssueInvoiceParams) (*Invoice, error)

	// Issued stores issued invoices keyed by order number
	Issued map[string]*Invoice

	// CallLog tracks method calls for test assertions
	CallLog []string

	nextNumber int
}

// NewMockProvider creates a new mock invoicing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Issued:     make(map[string]*Invoice),
		CallLog:    []string{},
		nextNumber: 1000,
	}
}

// IssueInvoice issues a mock invoice with a sequential number.
func (m *MockProvider) IssueInvoice(ctx context.Context, params IssueInvoiceParams) (*Invoice, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("IssueInvoice(%s, %s)", params.OrderNumber, params.Total))

	if m.IssueInvoiceFunc != nil {
		return m.IssueInvoiceFunc(ctx, params)
	}

	if len(params.Lines) == 0 {
		return nil, ErrEmptyInvoice
	}

	m.nextNumber++
	inv := &Invoice{
		Series:       "PRN",
		Number:       fmt.Sprintf("%d", m.nextNumber),
		DocumentLink: fmt.Sprintf("https://invoices.example.com/PRN/%d.pdf", m.nextNumber),
		IssuedAt:     time.Now(),
	}
	m.Issued[params.OrderNumber] = inv
	return inv, nil
}
