package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printera/printera/internal/courier"
	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/invoicing"
	"github.com/printera/printera/internal/notify"
	"github.com/printera/printera/internal/service"
)

// workerStore backs the fulfillment service and records task outcomes.
type workerStore struct {
	Orders    map[uuid.UUID]*domain.Order
	Invoices  map[uuid.UUID]*domain.Invoice
	Shipments map[string]*domain.Shipment
	Tasks     []*domain.FulfillmentTask
}

func newWorkerStore() *workerStore {
	return &workerStore{
		Orders:    make(map[uuid.UUID]*domain.Order),
		Invoices:  make(map[uuid.UUID]*domain.Invoice),
		Shipments: make(map[string]*domain.Shipment),
	}
}

func (s *workerStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := s.Orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *workerStore) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	if _, ok := s.Invoices[inv.OrderID]; ok {
		return domain.Conflict("store", "invoice already issued")
	}
	s.Invoices[inv.OrderID] = inv
	return nil
}

func (s *workerStore) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error) {
	inv, ok := s.Invoices[orderID]
	if !ok {
		return nil, domain.NotFound("store", "invoice", orderID.String())
	}
	return inv, nil
}

func (s *workerStore) SaveShipment(ctx context.Context, sh *domain.Shipment) error {
	s.Shipments[sh.AWB] = sh
	return nil
}

func (s *workerStore) GetShipmentByAWB(ctx context.Context, awb string) (*domain.Shipment, error) {
	sh, ok := s.Shipments[awb]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	return sh, nil
}

func (s *workerStore) GetActiveShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	for _, sh := range s.Shipments {
		if sh.OrderID == orderID && sh.SupersededAt == nil {
			return sh, nil
		}
	}
	return nil, domain.ErrShipmentNotFound
}

func (s *workerStore) SupersedeShipment(ctx context.Context, orderID uuid.UUID) error {
	now := time.Now()
	for _, sh := range s.Shipments {
		if sh.OrderID == orderID && sh.SupersededAt == nil {
			sh.SupersededAt = &now
		}
	}
	return nil
}

func (s *workerStore) UpdateShipmentTracking(ctx context.Context, awb, status, lastEvent string) error {
	sh, ok := s.Shipments[awb]
	if !ok {
		return domain.ErrShipmentNotFound
	}
	sh.Status = status
	sh.LastEvent = lastEvent
	return nil
}

func (s *workerStore) ListUndeliveredShipments(ctx context.Context, limit int32) ([]domain.Shipment, error) {
	var out []domain.Shipment
	for _, sh := range s.Shipments {
		if sh.SupersededAt == nil && sh.Status != "delivered" {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (s *workerStore) CreateFulfillmentTask(ctx context.Context, task *domain.FulfillmentTask) error {
	s.Tasks = append(s.Tasks, task)
	return nil
}

func (s *workerStore) UpdateFulfillmentTask(ctx context.Context, orderID uuid.UUID, kind domain.FulfillmentTaskKind, status domain.FulfillmentTaskStatus, attempts int32, lastError string) error {
	for i := len(s.Tasks) - 1; i >= 0; i-- {
		t := s.Tasks[i]
		if t.OrderID == orderID && t.Kind == kind {
			t.Status = status
			t.Attempts = attempts
			t.LastError = lastError
			return nil
		}
	}
	return domain.NotFound("store", "task", string(kind))
}

func (s *workerStore) taskByKind(kind domain.FulfillmentTaskKind) *domain.FulfillmentTask {
	for _, t := range s.Tasks {
		if t.Kind == kind {
			return t
		}
	}
	return nil
}

type workerFixture struct {
	store    *workerStore
	invoicer *invoicing.MockProvider
	carrier  *courier.MockProvider
	sender   *notify.MockSender
	worker   *Worker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	store := newWorkerStore()
	invoicer := invoicing.NewMockProvider()
	carrier := courier.NewMockProvider()
	sender := notify.NewMockSender()
	dispatcher, err := notify.NewDispatcher(sender, "comenzi@printera.ro", "Printera", "productie@printera.ro", zerolog.Nop())
	require.NoError(t, err)

	fulfillment := service.NewFulfillmentService(store, invoicer, carrier, dispatcher, nil, "https://printera.ro", zerolog.Nop())
	w := New(store, fulfillment, nil, Config{
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		TaskTimeout: time.Second,
	}, zerolog.Nop())

	return &workerFixture{store: store, invoicer: invoicer, carrier: carrier, sender: sender, worker: w}
}

func securedCashOrder(store *workerStore) *domain.Order {
	order := &domain.Order{
		ID:       uuid.New(),
		Number:   "CMD-000301",
		Status:   domain.OrderStatusCashPending,
		Channel:  domain.ChannelWeb,
		Currency: "RON",
		Method:   domain.PaymentMethodCashDelivery,
		Shipping: domain.Address{
			Name:       "Ion Popescu",
			Phone:      "0722000000",
			Email:      "ion@example.com",
			Line1:      "Str. Fabricii 12",
			City:       "Cluj-Napoca",
			County:     "Cluj",
			PostalCode: "400000",
			Country:    "RO",
		},
		Billing: domain.BillingProfile{
			Name:    "Ion Popescu",
			Address: "Str. Fabricii 12",
			City:    "Cluj-Napoca",
			County:  "Cluj",
			Country: "RO",
			Email:   "ion@example.com",
		},
		Items: []domain.OrderItem{{
			ID:          uuid.New(),
			ProductID:   "banner",
			ProductName: "Banner frontlit 200x100 cm",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("158.00"),
		}},
		ShippingFee: decimal.RequireFromString("19.99"),
	}
	order.RecomputeTotals()
	store.Orders[order.ID] = order
	return order
}

func TestRunOrderExecutesAllTasks(t *testing.T) {
	f := newWorkerFixture(t)
	order := securedCashOrder(f.store)

	f.worker.RunOrder(context.Background(), order.ID, order.Number)

	assert.Contains(t, f.store.Invoices, order.ID)
	assert.Len(t, f.store.Shipments, 1)
	// Customer confirmation plus the ops report.
	assert.Len(t, f.sender.Sent, 2)

	require.Len(t, f.store.Tasks, 4)
	for _, task := range f.store.Tasks {
		assert.Equal(t, domain.TaskDone, task.Status, string(task.Kind))
		assert.Equal(t, int32(1), task.Attempts, string(task.Kind))
	}
}

func TestTaskFailureLeavesOrderAndSiblingsUntouched(t *testing.T) {
	f := newWorkerFixture(t)
	order := securedCashOrder(f.store)
	f.invoicer.IssueInvoiceFunc = func(ctx context.Context, params invoicing.IssueInvoiceParams) (*invoicing.Invoice, error) {
		return nil, domain.Internal(nil, "invoicing.issue", "provider rejected the document")
	}

	f.worker.RunOrder(context.Background(), order.ID, order.Number)

	// The order itself is never touched by a failed side effect.
	assert.Equal(t, domain.OrderStatusCashPending, f.store.Orders[order.ID].Status)

	invoiceTask := f.store.taskByKind(domain.TaskIssueInvoice)
	require.NotNil(t, invoiceTask)
	assert.Equal(t, domain.TaskFailed, invoiceTask.Status)
	// Terminal error: no retries.
	assert.Equal(t, int32(1), invoiceTask.Attempts)
	assert.NotEmpty(t, invoiceTask.LastError)

	// The shipment task ran regardless of the invoice failure.
	shipmentTask := f.store.taskByKind(domain.TaskIssueShipment)
	require.NotNil(t, shipmentTask)
	assert.Equal(t, domain.TaskDone, shipmentTask.Status)
	assert.Len(t, f.store.Shipments, 1)
}

func TestRetryableFailuresAreRetried(t *testing.T) {
	f := newWorkerFixture(t)
	order := securedCashOrder(f.store)

	var calls int
	f.invoicer.IssueInvoiceFunc = func(ctx context.Context, params invoicing.IssueInvoiceParams) (*invoicing.Invoice, error) {
		calls++
		if calls < 3 {
			return nil, domain.Unavailable(nil, "invoicing.issue", "collaborator timeout")
		}
		f.invoicer.IssueInvoiceFunc = nil
		return f.invoicer.IssueInvoice(ctx, params)
	}

	f.worker.RunOrder(context.Background(), order.ID, order.Number)

	invoiceTask := f.store.taskByKind(domain.TaskIssueInvoice)
	require.NotNil(t, invoiceTask)
	assert.Equal(t, domain.TaskDone, invoiceTask.Status)
	assert.Equal(t, int32(3), invoiceTask.Attempts)
	assert.Contains(t, f.store.Invoices, order.ID)
}

func TestExistingShipmentIsNotDuplicated(t *testing.T) {
	f := newWorkerFixture(t)
	order := securedCashOrder(f.store)
	f.store.Shipments["7000001"] = &domain.Shipment{
		ID: uuid.New(), OrderID: order.ID, AWB: "7000001", Status: "registered",
	}

	f.worker.RunOrder(context.Background(), order.ID, order.Number)

	// The conflict is treated as already-done, not a failure.
	shipmentTask := f.store.taskByKind(domain.TaskIssueShipment)
	require.NotNil(t, shipmentTask)
	assert.Equal(t, domain.TaskDone, shipmentTask.Status)
	assert.Len(t, f.store.Shipments, 1)
}
