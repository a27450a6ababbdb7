package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/events"
	"github.com/printera/printera/internal/payment"
	"github.com/printera/printera/internal/postgres"
	"github.com/printera/printera/internal/service"
)

// stubStore is a minimal in-memory store for handler tests. It covers
// the assembler, order, checkout and discount store surfaces.
type stubStore struct {
	Orders    map[uuid.UUID]*domain.Order
	Discounts map[string]*domain.DiscountCode
	Payments  map[string]*domain.Payment
	Events    map[string]bool
	next      int
}

func newStubStore() *stubStore {
	return &stubStore{
		Orders:    make(map[uuid.UUID]*domain.Order),
		Discounts: make(map[string]*domain.DiscountCode),
		Payments:  make(map[string]*domain.Payment),
		Events:    make(map[string]bool),
		next:      200,
	}
}

func (s *stubStore) NextOrderNumber(ctx context.Context) (string, error) {
	s.next++
	return fmt.Sprintf("CMD-%06d", s.next), nil
}

func (s *stubStore) ResolveCustomer(ctx context.Context, name, email, phone string) (*domain.Customer, error) {
	return &domain.Customer{ID: uuid.New(), Name: name, Email: email, Phone: phone}, nil
}

func (s *stubStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.Orders[order.ID] = order
	return nil
}

func (s *stubStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := s.Orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubStore) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	for _, o := range s.Orders {
		if o.Number == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (s *stubStore) ListOrders(ctx context.Context, filter postgres.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.Orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *stubStore) MutateOrder(ctx context.Context, id uuid.UUID, fn func(o *domain.Order) error) (*domain.Order, error) {
	o, ok := s.Orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	cp := *o
	return &cp, nil
}

func (s *stubStore) MarkOrderPaid(ctx context.Context, id uuid.UUID) error {
	o, ok := s.Orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderStatusAwaitingPayment {
		return domain.ErrOrderAlreadyPaid
	}
	o.Status = domain.OrderStatusPaid
	return nil
}

func (s *stubStore) GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	c, ok := s.Discounts[domain.NormalizeCode(code)]
	if !ok {
		return nil, domain.ErrDiscountNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *stubStore) ApplyDiscountUsage(ctx context.Context, code string, check func(c *domain.DiscountCode) error) (*domain.DiscountCode, error) {
	c, ok := s.Discounts[domain.NormalizeCode(code)]
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

func (s *stubStore) ReleaseDiscountUsage(ctx context.Context, code string) error {
	if c, ok := s.Discounts[domain.NormalizeCode(code)]; ok && c.UsageCount > 0 {
		c.UsageCount--
	}
	return nil
}

func (s *stubStore) CreateDiscountCode(ctx context.Context, c *domain.DiscountCode) error {
	s.Discounts[c.Code] = c
	return nil
}

func (s *stubStore) ListDiscountCodes(ctx context.Context) ([]domain.DiscountCode, error) {
	var out []domain.DiscountCode
	for _, c := range s.Discounts {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubStore) CreatePayment(ctx context.Context, p *domain.Payment) error {
	s.Payments[p.SessionID] = p
	return nil
}

func (s *stubStore) GetPaymentBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	p, ok := s.Payments[sessionID]
	if !ok {
		return nil, domain.NotFound("stub", "payment", sessionID)
	}
	return p, nil
}

func (s *stubStore) SettlePayment(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) error {
	for _, p := range s.Payments {
		if p.OrderID == orderID {
			p.Status = status
			return nil
		}
	}
	return domain.ErrEventAlreadyHandled
}

func (s *stubStore) RecordWebhookEvent(ctx context.Context, provider, eventID string) error {
	key := provider + ":" + eventID
	if s.Events[key] {
		return domain.ErrEventAlreadyHandled
	}
	s.Events[key] = true
	return nil
}

func (s *stubStore) DeleteWebhookEvent(ctx context.Context, provider, eventID string) error {
	delete(s.Events, provider+":"+eventID)
	return nil
}

type testEnv struct {
	store    *stubStore
	provider *payment.MockProvider
	echo     *echo.Echo
}

// stubPublisher drops events; handler tests assert state, not
// side-effect dispatch.
type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, subject string, event events.OrderEvent) error {
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newStubStore()
	provider := payment.NewMockProvider()
	logger := zerolog.Nop()

	assembler := service.NewAssembler(store, service.AssemblerConfig{
		Currency:    "RON",
		ShippingFee: decimal.RequireFromString("19.99"),
	}, logger)
	orders := service.NewOrderService(store, assembler, logger)
	discounts := service.NewDiscountService(store, logger)
	checkout := service.NewCheckoutService(store, provider, stubPublisher{}, assembler, nil, service.CheckoutConfig{
		SuccessURL: "https://printera.ro/ok",
		CancelURL:  "https://printera.ro/anulat",
	}, logger)

	h := New(orders, assembler, checkout, discounts, nil, nil, nil, provider, nil, Config{
		AdminAPIKey:         "test-key",
		StripeWebhookSecret: "whsec_test",
	}, logger)

	e := echo.New()
	h.Register(e)
	return &testEnv{store: store, provider: provider, echo: e}
}

func (env *testEnv) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func TestQuoteEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/price/banner", `{"widthCm":200,"heightCm":100,"quantity":1}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var quote struct {
		UnitPrice string `json:"unit_price"`
		LineTotal string `json:"line_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "158", quote.UnitPrice)
}

func TestQuoteEndpointRejectsBadDimensions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/price/banner", `{"widthCm":-5,"heightCm":100}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "widthCm")
}

func TestQuotePresetEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/price/canvas/preset", `{"sizeKey":"30x40","quantity":2}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var quote struct {
		LineTotal string `json:"line_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "238", quote.LineTotal)
}

func TestPreviewDiscountUnknownCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/discounts/preview", `{"code":"NOPE","subtotal":"100","channel":"web"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Valid)
}

func TestCreateOrderCashFlow(t *testing.T) {
	env := newTestEnv(t)

	body := `{
		"items":[{"product_id":"banner","quantity":1,"config":{"width_cm":200,"height_cm":100}}],
		"shipping":{"name":"Ion Popescu","phone":"0722000000","email":"ion@example.com","line1":"Str. Fabricii 12","city":"Cluj-Napoca","county":"Cluj","postal_code":"400000","country":"RO"},
		"billing":{"name":"Ion Popescu","address":"Str. Fabricii 12","city":"Cluj-Napoca","county":"Cluj","country":"RO","email":"ion@example.com"},
		"payment_method":"cod"
	}`
	rec := env.do(http.MethodPost, "/api/orders", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		Order struct {
			Number string `json:"number"`
			Status string `json:"status"`
			Total  string `json:"total"`
		} `json:"order"`
		PaymentURL string `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "cash_pending", result.Order.Status)
	assert.Equal(t, "177.99", result.Order.Total)
	assert.Empty(t, result.PaymentURL)

	lookup := env.do(http.MethodGet, "/api/orders/"+result.Order.Number, "", nil)
	assert.Equal(t, http.StatusOK, lookup.Code)
}

func TestCreateOrderCardFlowReturnsPaymentURL(t *testing.T) {
	env := newTestEnv(t)

	body := `{
		"items":[{"product_id":"banner","quantity":1,"config":{"width_cm":200,"height_cm":100}}],
		"shipping":{"name":"Ion Popescu","phone":"0722000000","email":"ion@example.com","line1":"Str. Fabricii 12","city":"Cluj-Napoca","county":"Cluj","postal_code":"400000","country":"RO"},
		"billing":{"name":"Ion Popescu","address":"Str. Fabricii 12","city":"Cluj-Napoca","county":"Cluj","country":"RO","email":"ion@example.com"},
		"payment_method":"card"
	}`
	rec := env.do(http.MethodPost, "/api/orders", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		Order struct {
			Status string `json:"status"`
		} `json:"order"`
		PaymentURL string `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "awaiting_payment", result.Order.Status)
	assert.NotEmpty(t, result.PaymentURL)
}

func TestFinalizeRetryAfterProviderOutage(t *testing.T) {
	env := newTestEnv(t)
	env.provider.CreateSessionFunc = func(ctx context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
		return nil, domain.Unavailable(nil, "payment.createSession", "stripe is down")
	}

	body := `{
		"items":[{"product_id":"banner","quantity":1,"config":{"width_cm":200,"height_cm":100}}],
		"shipping":{"name":"Ion Popescu","phone":"0722000000","email":"ion@example.com","line1":"Str. Fabricii 12","city":"Cluj-Napoca","county":"Cluj","postal_code":"400000","country":"RO"},
		"billing":{"name":"Ion Popescu","address":"Str. Fabricii 12","city":"Cluj-Napoca","county":"Cluj","country":"RO","email":"ion@example.com"},
		"payment_method":"card"
	}`
	rec := env.do(http.MethodPost, "/api/orders", body, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// The order row survived the outage in created.
	require.Len(t, env.store.Orders, 1)
	var number string
	for _, o := range env.store.Orders {
		assert.Equal(t, domain.OrderStatusCreated, o.Status)
		number = o.Number
	}

	env.provider.CreateSessionFunc = nil
	retry := env.do(http.MethodPost, "/api/orders/"+number+"/finalize", "", nil)
	require.Equal(t, http.StatusOK, retry.Code, retry.Body.String())

	var result struct {
		Order struct {
			Status string `json:"status"`
		} `json:"order"`
		PaymentURL string `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(retry.Body.Bytes(), &result))
	assert.Equal(t, "awaiting_payment", result.Order.Status)
	assert.NotEmpty(t, result.PaymentURL)

	// Finalizing twice conflicts instead of opening a second session.
	again := env.do(http.MethodPost, "/api/orders/"+number+"/finalize", "", nil)
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/orders/CMD-999999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/webhooks/stripe", `{"id":"evt_1","type":"checkout.session.completed"}`,
		map[string]string{"Stripe-Signature": "invalid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhookConfirmsPayment(t *testing.T) {
	env := newTestEnv(t)

	order := &domain.Order{
		ID:       uuid.New(),
		Number:   "CMD-000201",
		Status:   domain.OrderStatusAwaitingPayment,
		Channel:  domain.ChannelWeb,
		Currency: "RON",
		Method:   domain.PaymentMethodCard,
	}
	env.store.Orders[order.ID] = order
	env.store.Payments["cs_ok"] = &domain.Payment{
		ID: uuid.New(), OrderID: order.ID, SessionID: "cs_ok",
		Status: domain.PaymentStatusPending,
	}

	body := `{"id":"evt_ok","type":"checkout.session.completed","data":{"object":{"id":"cs_ok","payment_status":"paid","metadata":{"order_id":"` + order.ID.String() + `"}}}}`
	rec := env.do(http.MethodPost, "/webhooks/stripe", body,
		map[string]string{"Stripe-Signature": "t=1,v1=valid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, domain.OrderStatusPaid, env.store.Orders[order.ID].Status)

	// Replay answers 200 without touching the order again.
	replay := env.do(http.MethodPost, "/webhooks/stripe", body,
		map[string]string{"Stripe-Signature": "t=1,v1=valid"})
	assert.Equal(t, http.StatusOK, replay.Code)
}

func TestStripeWebhookIgnoresUnrelatedEvents(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/webhooks/stripe", `{"id":"evt_x","type":"invoice.created"}`,
		map[string]string{"Stripe-Signature": "t=1,v1=valid"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/admin/orders", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/admin/orders", "", map[string]string{"X-API-Key": "test-key"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCreateDiscount(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/admin/discounts",
		`{"code":"vara10","type":"percentage","value":"10"}`,
		map[string]string{"X-API-Key": "test-key"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, env.store.Discounts, "VARA10")
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
