package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/pricing"
)

// AssemblerStore is the storage surface the assembler needs.
type AssemblerStore interface {
	NextOrderNumber(ctx context.Context) (string, error)
	ResolveCustomer(ctx context.Context, name, email, phone string) (*domain.Customer, error)
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error)
	ApplyDiscountUsage(ctx context.Context, code string, check func(c *domain.DiscountCode) error) (*domain.DiscountCode, error)
	ReleaseDiscountUsage(ctx context.Context, code string) error
}

// AssemblerConfig carries pricing defaults applied at assembly.
type AssemblerConfig struct {
	Currency    string
	ShippingFee decimal.Decimal
}

// Assembler normalizes every intake shape into one canonical Order.
// Channels differ only at the boundary; nothing downstream branches on
// where an order came from.
type Assembler struct {
	store    AssemblerStore
	cfg      AssemblerConfig
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAssembler creates the order assembler.
func NewAssembler(store AssemblerStore, cfg AssemblerConfig, logger zerolog.Logger) *Assembler {
	if cfg.Currency == "" {
		cfg.Currency = "RON"
	}
	return &Assembler{
		store:    store,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger.With().Str("component", "assembler").Logger(),
	}
}

// AssembleWeb creates an order from a web-cart checkout. Item prices are
// recomputed by the pricing engine; a client-submitted total is never
// trusted. A discount code, when present, is applied with its usage
// reserved before the order row is committed and released again if the
// commit fails.
func (a *Assembler) AssembleWeb(ctx context.Context, payload domain.WebCheckout) (*domain.Order, error) {
	const op = "assembler.web"

	if err := a.validate.Struct(payload); err != nil {
		return nil, bindValidation(op, err)
	}

	order, err := a.newOrder(ctx, domain.ChannelWeb, payload.Method, payload.Shipping, payload.Billing, payload.Notes)
	if err != nil {
		return nil, err
	}

	for _, entry := range payload.Items {
		item, err := a.priceItem(entry.ProductID, entry.Config, entry.Quantity, entry.ArtworkRef)
		if err != nil {
			return nil, err
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, *item)
	}
	order.RecomputeTotals()

	var appliedCode string
	if payload.DiscountCode != "" {
		code, err := a.store.ApplyDiscountUsage(ctx, payload.DiscountCode, func(c *domain.DiscountCode) error {
			return c.EligibleFor(order.Subtotal, order.Channel, time.Now())
		})
		if err != nil {
			return nil, err
		}
		order.Discount = code.Descriptor()
		order.RecomputeTotals()
		appliedCode = code.Code
	}

	if err := a.store.CreateOrder(ctx, order); err != nil {
		if appliedCode != "" {
			if relErr := a.store.ReleaseDiscountUsage(ctx, appliedCode); relErr != nil {
				a.logger.Error().Err(relErr).Str("code", appliedCode).Msg("failed to release discount usage after create failure")
			}
		}
		return nil, err
	}

	a.logger.Info().Str("number", order.Number).Str("channel", string(order.Channel)).
		Str("total", order.Total.StringFixed(2)).Msg("order assembled")
	return order, nil
}

// AssembleAssistant creates an order from a chat or messaging-bot tool
// call. The assistant resolved unit prices through the pricing endpoints
// already; line and order totals are still recomputed here.
func (a *Assembler) AssembleAssistant(ctx context.Context, payload domain.AssistantOrder) (*domain.Order, error) {
	const op = "assembler.assistant"

	if err := a.validate.Struct(payload); err != nil {
		return nil, bindValidation(op, err)
	}
	if payload.Customer.Email == "" && payload.Customer.Phone == "" {
		return nil, ErrMissingContact
	}

	shipping := payload.Shipping
	if shipping.Name == "" {
		shipping.Name = payload.Customer.Name
	}
	if shipping.Email == "" {
		shipping.Email = payload.Customer.Email
	}
	if shipping.Phone == "" {
		shipping.Phone = payload.Customer.Phone
	}
	// Assistant channels carry no separate billing form: consumer
	// billing is derived from the shipping snapshot.
	billing := domain.BillingProfile{
		Name:    shipping.Name,
		Address: shipping.Line1,
		City:    shipping.City,
		County:  shipping.County,
		Country: shipping.Country,
		Email:   shipping.Email,
	}

	order, err := a.newOrder(ctx, payload.Channel, payload.Method, shipping, billing, payload.Notes)
	if err != nil {
		return nil, err
	}

	for _, entry := range payload.Items {
		unitPrice, err := decimal.NewFromString(entry.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, ErrInvalidUnitPrice
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   entry.ProductID,
			ProductName: entry.ProductName,
			Quantity:    entry.Quantity,
			UnitPrice:   domain.Round2(unitPrice),
			Config:      entry.Config,
		})
	}
	order.RecomputeTotals()

	if err := a.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	a.logger.Info().Str("number", order.Number).Str("channel", string(order.Channel)).
		Str("session_key", payload.SessionKey).Msg("assistant order assembled")
	return order, nil
}

// ReconstructFromSession rebuilds an order from the cart snapshot carried
// in payment session metadata. This is the recovery path for a confirmed
// payment whose order row is missing; the snapshot was serialized by
// checkout at session-creation time, so totals recompute to the charged
// amount.
func (a *Assembler) ReconstructFromSession(ctx context.Context, metadata map[string]string) (*domain.Order, error) {
	const op = "assembler.reconstruct"

	raw, ok := metadata["cart"]
	if !ok || raw == "" {
		return nil, domain.ErrMissingSessionOrder
	}
	var snapshot CartSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, domain.WrapError(err, domain.EINVALID, op, "cart snapshot is not valid JSON")
	}

	order, err := a.newOrder(ctx, snapshot.Channel, domain.PaymentMethodCard, snapshot.Shipping, snapshot.Billing, "")
	if err != nil {
		return nil, err
	}
	order.ShippingFee = snapshot.ShippingFee
	for _, line := range snapshot.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Config:      line.Config,
		})
	}
	order.Status = domain.OrderStatusAwaitingPayment
	order.RecomputeTotals()

	if err := a.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	a.logger.Warn().Str("number", order.Number).Msg("order reconstructed from session metadata")
	return order, nil
}

// AdminItem prices a manual admin item entry for an existing order.
// The mutation itself goes through OrderService under the order lock.
func (a *Assembler) AdminItem(entry domain.AdminItemEntry) (*domain.OrderItem, error) {
	const op = "assembler.adminItem"

	if err := a.validate.Struct(entry); err != nil {
		return nil, bindValidation(op, err)
	}
	return a.priceItem(entry.ProductID, entry.Config, entry.Quantity, entry.ArtworkRef)
}

// newOrder builds the shared order shell: customer resolution, order
// number, snapshots, defaults.
func (a *Assembler) newOrder(ctx context.Context, channel domain.Channel, method domain.PaymentMethod, shipping domain.Address, billing domain.BillingProfile, notes string) (*domain.Order, error) {
	customer, err := a.store.ResolveCustomer(ctx, shipping.Name, shipping.Email, shipping.Phone)
	if err != nil {
		return nil, err
	}
	number, err := a.store.NextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Order{
		ID:          uuid.New(),
		Number:      number,
		Status:      domain.OrderStatusCreated,
		Channel:     channel,
		Currency:    a.cfg.Currency,
		CustomerID:  customer.ID,
		Shipping:    shipping,
		Billing:     billing,
		Method:      method,
		ShippingFee: a.cfg.ShippingFee,
		Notes:       notes,
	}, nil
}

// priceItem runs an item configuration through the pricing engine.
func (a *Assembler) priceItem(productID string, cfg domain.ItemConfig, quantity int32, artworkRef string) (*domain.OrderItem, error) {
	quote, err := pricing.QuoteItemConfig(productID, cfg, quantity)
	if err != nil {
		return nil, err
	}
	return &domain.OrderItem{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: productDisplayName(productID, cfg),
		Quantity:    quantity,
		UnitPrice:   quote.UnitPrice,
		Config:      cfg,
		ArtworkRef:  artworkRef,
	}, nil
}

// CartSnapshot is the serialized cart stored on a payment session so the
// order can be reconstructed from the confirmation event alone.
type CartSnapshot struct {
	Channel     domain.Channel        `json:"channel"`
	Shipping    domain.Address        `json:"shipping"`
	Billing     domain.BillingProfile `json:"billing"`
	ShippingFee decimal.Decimal       `json:"shipping_fee"`
	Items       []CartSnapshotItem    `json:"items"`
}

// CartSnapshotItem is one priced line in a cart snapshot.
type CartSnapshotItem struct {
	ProductID   string            `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int32             `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Config      domain.ItemConfig `json:"config"`
}

// SnapshotOrder serializes an order's cart for session metadata.
func SnapshotOrder(order *domain.Order) (string, error) {
	snapshot := CartSnapshot{
		Channel:     order.Channel,
		Shipping:    order.Shipping,
		Billing:     order.Billing,
		ShippingFee: order.ShippingFee,
	}
	for _, item := range order.Items {
		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Config:      item.Config,
		})
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// bindValidation converts validator.v10 struct errors to field-level
// validation errors.
func bindValidation(op string, err error) error {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		var out error
		for _, fe := range invalid {
			out = domain.AddFieldError(out, fe.Field(), "failed "+fe.Tag()+" validation")
		}
		if ve, ok := out.(*domain.ValidationError); ok {
			ve.Op = op
		}
		return out
	}
	return domain.WrapError(err, domain.EINVALID, op, "invalid payload")
}

// productDisplayName derives the customer-facing line name from the
// product family and configuration.
func productDisplayName(productID string, cfg domain.ItemConfig) string {
	name := familyNames[productID]
	if name == "" {
		name = productID
	}
	if cfg.SizeKey != "" {
		return name + " " + cfg.SizeKey + " cm"
	}
	if cfg.WidthCm > 0 && cfg.HeightCm > 0 {
		return name + " " + formatDim(cfg.WidthCm) + "x" + formatDim(cfg.HeightCm) + " cm"
	}
	return name
}

var familyNames = map[string]string{
	"banner":          "Banner frontlit",
	"mesh":            "Banner mesh",
	"sticker":         "Autocolant",
	"canvas":          "Tablou canvas",
	"board-forex-3":   "Panou forex 3mm",
	"board-forex-5":   "Panou forex 5mm",
	"board-forex-10":  "Panou forex 10mm",
	"board-alucobond": "Panou alucobond",
}

func formatDim(v float64) string {
	return decimal.NewFromFloat(v).String()
}
