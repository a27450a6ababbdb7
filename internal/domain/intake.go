package domain

// Intake payloads. Each channel arrives with its own shape; the handler
// layer binds and validates these types and the assembler translates them
// into the canonical Order. Core logic never branches on channel shape.

// CheckoutItem is one line of a web-cart checkout. Prices are never taken
// from the client; the pricing engine recomputes them from the config.
type CheckoutItem struct {
	ProductID  string     `json:"product_id" validate:"required"`
	Quantity   int32      `json:"quantity" validate:"required,min=1"`
	Config     ItemConfig `json:"config"`
	ArtworkRef string     `json:"artwork_ref"`
}

// WebCheckout is the authenticated/guest web-cart intake shape.
type WebCheckout struct {
	Items        []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	Shipping     Address        `json:"shipping" validate:"required"`
	Billing      BillingProfile `json:"billing" validate:"required"`
	Method       PaymentMethod  `json:"payment_method" validate:"required,oneof=card cod bank_transfer"`
	DiscountCode string         `json:"discount_code"`
	Notes        string         `json:"notes"`
}

// AssistantItem is one line of an assistant tool-call order. The assistant
// has already resolved a unit price through the pricing endpoints; the
// assembler still recomputes the line and order totals from it.
type AssistantItem struct {
	ProductID   string     `json:"product_id" validate:"required"`
	ProductName string     `json:"product_name" validate:"required"`
	Quantity    int32      `json:"quantity" validate:"required,min=1"`
	UnitPrice   string     `json:"unit_price" validate:"required"`
	Config      ItemConfig `json:"config"`
}

// AssistantCustomer is the customer-description object carried by chat and
// messaging-bot tool calls.
type AssistantCustomer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// AssistantOrder is the chat/bot tool-call intake shape.
type AssistantOrder struct {
	SessionKey string            `json:"session_key" validate:"required"`
	Channel    Channel           `json:"channel" validate:"required,oneof=chat bot"`
	Customer   AssistantCustomer `json:"customer" validate:"required"`
	Items      []AssistantItem   `json:"items" validate:"required,min=1,dive"`
	Shipping   Address           `json:"shipping" validate:"required"`
	Method     PaymentMethod     `json:"payment_method" validate:"required,oneof=card cod bank_transfer"`
	Notes      string            `json:"notes"`
}

// AdminItemEntry is the manual item entry shape used against an existing
// order from the admin surface.
type AdminItemEntry struct {
	ProductID  string     `json:"product_id" validate:"required"`
	Quantity   int32      `json:"quantity" validate:"required,min=1"`
	Config     ItemConfig `json:"config"`
	ArtworkRef string     `json:"artwork_ref"`
}
