package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/events"
	"github.com/printera/printera/internal/postgres"
)

// mockStore is an in-memory stand-in for the postgres store. Every
// method can be overridden with a func field; the defaults act on the
// maps so multi-step flows work without per-test plumbing.
type mockStore struct {
	mu sync.Mutex

	Orders    map[uuid.UUID]*domain.Order
	Discounts map[string]*domain.DiscountCode
	Payments  map[string]*domain.Payment // keyed by session ID
	Invoices  map[uuid.UUID]*domain.Invoice
	Shipments map[string]*domain.Shipment // keyed by AWB
	Events    map[string]bool             // provider:event_id
	Released  []string

	nextNumber int

	NextOrderNumberFunc      func(ctx context.Context) (string, error)
	ResolveCustomerFunc      func(ctx context.Context, name, email, phone string) (*domain.Customer, error)
	CreateOrderFunc          func(ctx context.Context, order *domain.Order) error
	MutateOrderFunc          func(ctx context.Context, id uuid.UUID, fn func(o *domain.Order) error) (*domain.Order, error)
	MarkOrderPaidFunc        func(ctx context.Context, id uuid.UUID) error
	ApplyDiscountUsageFunc   func(ctx context.Context, code string, check func(c *domain.DiscountCode) error) (*domain.DiscountCode, error)
	ReleaseDiscountUsageFunc func(ctx context.Context, code string) error
	RecordWebhookEventFunc   func(ctx context.Context, provider, eventID string) error
	SaveShipmentFunc         func(ctx context.Context, sh *domain.Shipment) error
}

func newMockStore() *mockStore {
	return &mockStore{
		Orders:     make(map[uuid.UUID]*domain.Order),
		Discounts:  make(map[string]*domain.DiscountCode),
		Payments:   make(map[string]*domain.Payment),
		Invoices:   make(map[uuid.UUID]*domain.Invoice),
		Shipments:  make(map[string]*domain.Shipment),
		Events:     make(map[string]bool),
		nextNumber: 100,
	}
}

func (m *mockStore) NextOrderNumber(ctx context.Context) (string, error) {
	if m.NextOrderNumberFunc != nil {
		return m.NextOrderNumberFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNumber++
	return fmt.Sprintf("CMD-%06d", m.nextNumber), nil
}

func (m *mockStore) ResolveCustomer(ctx context.Context, name, email, phone string) (*domain.Customer, error) {
	if m.ResolveCustomerFunc != nil {
		return m.ResolveCustomerFunc(ctx, name, email, phone)
	}
	return &domain.Customer{ID: uuid.New(), Name: name, Email: email, Phone: phone}, nil
}

func (m *mockStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, order)
	}
	m.Orders[order.ID] = order
	return nil
}

func (m *mockStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.Orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	for _, o := range m.Orders {
		if o.Number == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockStore) ListOrders(ctx context.Context, filter postgres.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.Orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockStore) MutateOrder(ctx context.Context, id uuid.UUID, fn func(o *domain.Order) error) (*domain.Order, error) {
	if m.MutateOrderFunc != nil {
		return m.MutateOrderFunc(ctx, id, fn)
	}
	o, ok := m.Orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) MarkOrderPaid(ctx context.Context, id uuid.UUID) error {
	if m.MarkOrderPaidFunc != nil {
		return m.MarkOrderPaidFunc(ctx, id)
	}
	o, ok := m.Orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderStatusAwaitingPayment {
		if o.Status == domain.OrderStatusPaid {
			return domain.ErrOrderAlreadyPaid
		}
		return domain.ErrInvalidStatusChange
	}
	o.Status = domain.OrderStatusPaid
	return nil
}

func (m *mockStore) GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	c, ok := m.Discounts[domain.NormalizeCode(code)]
	if !ok {
		return nil, domain.ErrDiscountNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) ApplyDiscountUsage(ctx context.Context, code string, check func(c *domain.DiscountCode) error) (*domain.DiscountCode, error) {
	if m.ApplyDiscountUsageFunc != nil {
		return m.ApplyDiscountUsageFunc(ctx, code, check)
	}
	c, ok := m.Discounts[domain.NormalizeCode(code)]
	if !ok {
		return nil, domain.ErrDiscountNotFound
	}
	if err := check(c); err != nil {
		return nil, err
	}
	c.UsageCount++
	cp := *c
	return &cp, nil
}

func (m *mockStore) ReleaseDiscountUsage(ctx context.Context, code string) error {
	if m.ReleaseDiscountUsageFunc != nil {
		return m.ReleaseDiscountUsageFunc(ctx, code)
	}
	m.Released = append(m.Released, domain.NormalizeCode(code))
	if c, ok := m.Discounts[domain.NormalizeCode(code)]; ok && c.UsageCount > 0 {
		c.UsageCount--
	}
	return nil
}

func (m *mockStore) CreateDiscountCode(ctx context.Context, c *domain.DiscountCode) error {
	if _, exists := m.Discounts[c.Code]; exists {
		return domain.Conflict("mock", "code already exists")
	}
	m.Discounts[c.Code] = c
	return nil
}

func (m *mockStore) ListDiscountCodes(ctx context.Context) ([]domain.DiscountCode, error) {
	var out []domain.DiscountCode
	for _, c := range m.Discounts {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockStore) CreatePayment(ctx context.Context, p *domain.Payment) error {
	m.Payments[p.SessionID] = p
	return nil
}

func (m *mockStore) GetPaymentBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	p, ok := m.Payments[sessionID]
	if !ok {
		return nil, domain.NotFound("mock", "payment", sessionID)
	}
	return p, nil
}

func (m *mockStore) SettlePayment(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) error {
	for _, p := range m.Payments {
		if p.OrderID == orderID && p.Status == domain.PaymentStatusPending {
			p.Status = status
			return nil
		}
	}
	return domain.ErrEventAlreadyHandled
}

func (m *mockStore) RecordWebhookEvent(ctx context.Context, provider, eventID string) error {
	if m.RecordWebhookEventFunc != nil {
		return m.RecordWebhookEventFunc(ctx, provider, eventID)
	}
	key := provider + ":" + eventID
	if m.Events[key] {
		return domain.ErrEventAlreadyHandled
	}
	m.Events[key] = true
	return nil
}

func (m *mockStore) DeleteWebhookEvent(ctx context.Context, provider, eventID string) error {
	delete(m.Events, provider+":"+eventID)
	return nil
}

func (m *mockStore) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	if _, exists := m.Invoices[inv.OrderID]; exists {
		return domain.Conflict("mock", "order already has an invoice")
	}
	m.Invoices[inv.OrderID] = inv
	return nil
}

func (m *mockStore) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error) {
	inv, ok := m.Invoices[orderID]
	if !ok {
		return nil, domain.NotFound("mock", "invoice", orderID.String())
	}
	return inv, nil
}

func (m *mockStore) SaveShipment(ctx context.Context, sh *domain.Shipment) error {
	if m.SaveShipmentFunc != nil {
		return m.SaveShipmentFunc(ctx, sh)
	}
	m.Shipments[sh.AWB] = sh
	return nil
}

func (m *mockStore) GetShipmentByAWB(ctx context.Context, awb string) (*domain.Shipment, error) {
	sh, ok := m.Shipments[awb]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	return sh, nil
}

func (m *mockStore) GetActiveShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	for _, sh := range m.Shipments {
		if sh.OrderID == orderID && sh.SupersededAt == nil {
			return sh, nil
		}
	}
	return nil, domain.ErrShipmentNotFound
}

func (m *mockStore) SupersedeShipment(ctx context.Context, orderID uuid.UUID) error {
	for _, sh := range m.Shipments {
		if sh.OrderID == orderID && sh.SupersededAt == nil {
			now := time.Now()
			sh.SupersededAt = &now
			return nil
		}
	}
	return domain.ErrShipmentNotFound
}

func (m *mockStore) UpdateShipmentTracking(ctx context.Context, awb, status, lastEvent string) error {
	sh, ok := m.Shipments[awb]
	if !ok {
		return domain.ErrShipmentNotFound
	}
	sh.Status = status
	sh.LastEvent = lastEvent
	return nil
}

func (m *mockStore) ListUndeliveredShipments(ctx context.Context, limit int32) ([]domain.Shipment, error) {
	var out []domain.Shipment
	for _, sh := range m.Shipments {
		if sh.SupersededAt == nil && sh.Status != "delivered" && sh.Status != "returned" {
			out = append(out, *sh)
		}
	}
	return out, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	PublishFunc func(ctx context.Context, subject string, event events.OrderEvent) error
	Published   []publishedEvent
}

type publishedEvent struct {
	Subject string
	Event   events.OrderEvent
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, event events.OrderEvent) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, subject, event)
	}
	m.Published = append(m.Published, publishedEvent{Subject: subject, Event: event})
	return nil
}
